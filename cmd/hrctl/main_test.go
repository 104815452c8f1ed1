package main

import (
	"bytes"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guarzo/hrapi/modules/hrfake"
)

func setup(t *testing.T) *bytes.Buffer {
	t.Helper()
	fake := hrfake.New(hrfake.Options{Secret: "cli"})
	require.NoError(t, fake.SeedDemo())
	ts := httptest.NewServer(fake.Handler())
	t.Cleanup(ts.Close)

	t.Setenv("HRAPI_CONFIG", "")
	t.Setenv("HRAPI_BASE_URL", ts.URL)
	t.Setenv("HRAPI_SESSION_BACKEND", "file")
	t.Setenv("HRAPI_SESSION_PATH", filepath.Join(t.TempDir(), "session.yaml"))
	t.Setenv("HRAPI_LOG_LEVEL", "error")

	buf := &bytes.Buffer{}
	old := stdout
	stdout = buf
	t.Cleanup(func() { stdout = old })
	return buf
}

func TestRun_LoginWhoamiLogout(t *testing.T) {
	out := setup(t)

	require.Equal(t, 0, run([]string{"login", "-email", hrfake.DemoPMEmail, "-password", hrfake.DemoPassword}))
	assert.Contains(t, out.String(), "Logged in as Paul Manager (PM)")

	out.Reset()
	require.Equal(t, 0, run([]string{"whoami"}))
	assert.Contains(t, out.String(), "email: "+hrfake.DemoPMEmail)

	out.Reset()
	require.Equal(t, 0, run([]string{"managed"}))
	assert.Contains(t, out.String(), "Apollo")
	assert.Contains(t, out.String(), "Gemini")

	require.Equal(t, 0, run([]string{"logout"}))
	out.Reset()
	require.Equal(t, 0, run([]string{"status"}))
	assert.Contains(t, out.String(), "not logged in")

	assert.Equal(t, 3, run([]string{"whoami"}), "401 without a session")
}

func TestRun_AssignValidationExitCode(t *testing.T) {
	setup(t)
	require.Equal(t, 0, run([]string{"login", "-email", hrfake.DemoPMEmail, "-password", hrfake.DemoPassword}))
	assert.Equal(t, 1, run([]string{"assign", "-employee", "1", "-project", "999", "-start", "01-01-2024"}))
	assert.Equal(t, 2, run([]string{"assign", "-start", "2024-01-01"}), "bad date layout is a usage error")
}

func TestRun_Usage(t *testing.T) {
	setup(t)
	assert.Equal(t, 2, run(nil))
	assert.Equal(t, 2, run([]string{"no-such-command"}))
}

func TestDateFlag(t *testing.T) {
	var d dateFlag
	assert.Nil(t, d.ptr())
	require.NoError(t, d.Set("05-03-2024"))
	require.NotNil(t, d.ptr())
	assert.Equal(t, "05-03-2024", d.String())
	assert.Error(t, d.Set("2024-03-05"))
}
