// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package client

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/taibuivan/clouds/internal/platform/apperr"
)

// htmlPrefixes mark a body that is a web page rather than an API payload.
var htmlPrefixes = [][]byte{[]byte("<!doctype"), []byte("<html")}

// isHTML reports whether the response is an HTML page, which happens when
// the base URL points at a web server or SPA fallback instead of the API.
func isHTML(contentType string, body []byte) bool {
	if strings.HasPrefix(strings.ToLower(contentType), "text/html") {
		return true
	}

	head := bytes.TrimSpace(body)
	if len(head) > 16 {
		head = head[:16]
	}
	head = bytes.ToLower(head)

	for _, prefix := range htmlPrefixes {
		if bytes.HasPrefix(head, prefix) {
			return true
		}
	}
	return false
}

// parseError rebuilds an [apperr.AppError] from a non-2xx response.
//
// Accepted shapes include the reference API envelope
// {"error": "...", "code": "...", "details": [...]}, {"message": "..."},
// {"error": {"message": "...", "code": "..."}} and any of those under "data".
// Details may be a list of {field, message} or a map of field to messages.
func parseError(status int, body []byte) *apperr.AppError {
	if !gjson.ValidBytes(body) {
		return apperr.HTTP(status)
	}

	root := gjson.ParseBytes(body)
	if data := root.Get("data"); data.IsObject() {
		root = data
	}

	message := firstString(root, "message", "error", "error.message", "detail")
	code := firstString(root, "code", "error.code")

	if message == "" && code == "" {
		return apperr.HTTP(status)
	}
	if message == "" {
		message = apperr.HTTP(status).Message
	}
	if code == "" {
		code = codeForStatus(status)
	}

	return &apperr.AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
		Details:    parseDetails(root.Get("details")),
	}
}

// firstString returns the first path that holds a non-empty string.
func firstString(root gjson.Result, paths ...string) string {
	for _, path := range paths {
		if value := root.Get(path); value.Type == gjson.String && value.Str != "" {
			return value.Str
		}
	}
	return ""
}

func parseDetails(details gjson.Result) []apperr.FieldError {
	var out []apperr.FieldError

	switch {
	case details.IsArray():
		details.ForEach(func(_, item gjson.Result) bool {
			out = append(out, apperr.FieldError{
				Field:   item.Get("field").String(),
				Message: item.Get("message").String(),
			})
			return true
		})

	case details.IsObject():
		details.ForEach(func(field, messages gjson.Result) bool {
			if messages.IsArray() {
				messages.ForEach(func(_, message gjson.Result) bool {
					out = append(out, apperr.FieldError{Field: field.String(), Message: message.String()})
					return true
				})
				return true
			}
			out = append(out, apperr.FieldError{Field: field.String(), Message: messages.String()})
			return true
		})
	}

	return out
}

// codeForStatus picks a code when the server did not send one.
func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperr.CodeValidation
	case http.StatusUnauthorized:
		return apperr.CodeUnauthorized
	case http.StatusForbidden:
		return apperr.CodeForbidden
	case http.StatusNotFound:
		return apperr.CodeNotFound
	case http.StatusConflict:
		return apperr.CodeConflict
	case http.StatusTooManyRequests:
		return apperr.CodeRateLimited
	}
	if status >= http.StatusInternalServerError {
		return apperr.CodeInternal
	}
	return apperr.CodeHTTP
}

// Unwrap returns the "data" member of a {"data": ...} envelope, or body unchanged.
func Unwrap(body []byte) []byte {
	if !gjson.ValidBytes(body) {
		return body
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return body
	}
	if data := root.Get("data"); data.Exists() && (data.IsObject() || data.IsArray()) {
		return []byte(data.Raw)
	}
	return body
}
