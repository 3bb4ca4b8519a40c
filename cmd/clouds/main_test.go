// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/clouds/internal/devapi"
	"github.com/taibuivan/clouds/internal/devapi/devapitest"
)

// cli runs commands against one API with a SQLite store shared between runs,
// the way separate invocations of the binary share it.
type cli struct {
	t *testing.T
}

func newCLI(t *testing.T) (*cli, *devapitest.API) {
	api := devapitest.Start(t, 0)
	t.Setenv("API_BASE_URL", api.BaseURL())
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("STORE_PATH", filepath.Join(t.TempDir(), "clouds.db"))
	t.Setenv("LOG_FILE", filepath.Join(t.TempDir(), "clouds.log"))
	return &cli{t: t}, api
}

func (c *cli) run(args ...string) (int, string, string) {
	c.t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestCLI_SessionAcrossInvocations(t *testing.T) {
	c, api := newCLI(t)

	code, out, errOut := c.run("login", "-email", devapi.DemoEmail, "-password", devapi.DemoPassword)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Signed in as Demo User (demo@clouds.app).")

	before := api.Requests()
	code, out, errOut = c.run("whoami")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "demo@clouds.app")
	assert.Contains(t, out, "cache")
	assert.Equal(t, before, api.Requests())

	code, out, errOut = c.run("profile", "-bio", "Above the clouds")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Profile updated for Demo User.")

	code, out, errOut = c.run("sessions")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "(current)")

	code, out, errOut = c.run("refresh")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Access token refreshed.")

	code, out, _ = c.run("logout")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Signed out.")

	code, _, errOut = c.run("whoami")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "not signed in")

	code, _, errOut = c.run("refresh")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Session expired (run: clouds login)")
}

func TestCLI_LoginFailure(t *testing.T) {
	c, _ := newCLI(t)

	code, _, errOut := c.run("login", "-email", devapi.DemoEmail, "-password", "wrong-password")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Invalid email or password")
}

func TestCLI_ProfileValidation(t *testing.T) {
	c, _ := newCLI(t)

	code, _, _ := c.run("login", "-email", devapi.DemoEmail, "-password", devapi.DemoPassword)
	require.Equal(t, 0, code)

	code, _, errOut := c.run("profile", "-avatar", "not a url")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "avatar: Must be an http or https URL")
}

func TestCLI_Usage(t *testing.T) {
	c, _ := newCLI(t)

	code, out, _ := c.run()
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "revoke-all")

	code, _, errOut := c.run("fly")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, `unknown command "fly"`)
}
