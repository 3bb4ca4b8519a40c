// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package devapi

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/taibuivan/clouds/internal/platform/respond"
)

// HealthDependencies holds the injectable dependency checkers for the /ready endpoint.
type HealthDependencies struct {
	// Checks maps a dependency name to its probe.
	Checks map[string]func() error
}

type healthHandler struct {
	dependencies HealthDependencies
	logger       *slog.Logger
}

// NewHealthHandlers creates the /health and /ready http.HandlerFuncs.
func NewHealthHandlers(deps HealthDependencies, logger *slog.Logger) (liveness, readiness http.HandlerFunc) {
	handler := &healthHandler{dependencies: deps, logger: logger}
	return handler.liveness, handler.readiness
}

// liveness handles GET /health (Liveness probe).
func (handler *healthHandler) liveness(writer http.ResponseWriter, _ *http.Request) {
	respond.OK(writer, map[string]string{"status": "ok"})
}

// readiness handles GET /ready (Readiness probe).
func (handler *healthHandler) readiness(writer http.ResponseWriter, _ *http.Request) {
	type checkResult struct {
		Name  string `json:"name"`
		IsOK  bool   `json:"ok"`
		Error string `json:"error,omitempty"`
	}

	names := make([]string, 0, len(handler.dependencies.Checks))
	for name := range handler.dependencies.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]checkResult, 0, len(names))
	isSystemReady := true

	for _, name := range names {
		result := checkResult{Name: name, IsOK: true}
		if err := handler.dependencies.Checks[name](); err != nil {
			result.IsOK = false
			result.Error = err.Error()
			isSystemReady = false
			handler.logger.Error("readiness_check_failed", slog.String("dependency", name), slog.Any("error", err))
		}
		results = append(results, result)
	}

	status, responseStatus := http.StatusOK, "ready"
	if !isSystemReady {
		status, responseStatus = http.StatusServiceUnavailable, "degraded"
	}

	respond.JSON(writer, status, respond.SuccessEnvelope{Data: map[string]any{
		"status": responseStatus,
		"checks": results,
	}})
}
