package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svcmon/internal/checker"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "svcmon version dev")
	assert.Contains(t, out, "Go version:")
}

func TestConfigErrorsSurfaceBeforeDBus(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"services": [], "monitor_url": "https://m/x"}`), 0o600))
	badURL := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badURL, []byte(`{"services": ["a.service"], "monitor_url": "not a url"}`), 0o600))

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "positional", args: []string{empty}, wantErr: "services should not be empty"},
		{name: "run flag", args: []string{"run", "--config", badURL}, wantErr: "monitor_url"},
		{name: "check", args: []string{"check", "-c", empty}, wantErr: "services should not be empty"},
		{name: "serve", args: []string{"serve", "-c", badURL}, wantErr: "monitor_url"},
		{name: "missing file", args: []string{"run", "-c", filepath.Join(dir, "nope.json")}, wantErr: "no such file"},
		{name: "missing env file", args: []string{"run", "-c", empty, "--env-file", filepath.Join(dir, "nope.env")}, wantErr: "env file"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRootRejectsExtraArgs(t *testing.T) {
	_, err := execute(t, "a.json", "b.json")
	require.Error(t, err)
}

func TestPrintFindings(t *testing.T) {
	var buf bytes.Buffer
	printFindings(&buf, []checker.Finding{
		checker.Healthy("a.service"),
		checker.Unhealthy("b.service", "failed", "failed", "exit-code"),
	})
	assert.Equal(t,
		"healthy      a.service\n"+
			"unhealthy    b.service\n"+
			"status: b.service active_state=failed sub_state=failed, result=exit-code\n",
		buf.String(),
	)

	buf.Reset()
	printFindings(&buf, []checker.Finding{checker.Healthy("a.service")})
	assert.Contains(t, buf.String(), "status: ok\n")
}
