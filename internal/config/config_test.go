package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func validConfig() *Config {
	return &Config{
		Services:   []string{"a.service", "b.service"},
		MonitorURL: "https://m/x",
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "svcmon.json", `{
		"services": ["dbus.service", "nginx.service"],
		"monitor_url": "https://hc.example/ping/abc",
		"report": {"deadline": "45s"},
		"logging": {"level": "debug", "console": false}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"dbus.service", "nginx.service"}, cfg.Services)
	assert.Equal(t, "https://hc.example/ping/abc", cfg.MonitorURL)
	assert.Equal(t, 45*time.Second, cfg.ReportDeadline())
	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout())
	assert.Equal(t, DefaultDBusTimeout, cfg.DBusCallTimeout())
	assert.False(t, cfg.Logging.ConsoleEnabled())
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "svcmon.yaml", `
services:
  - dbus.service
monitor_url: http://localhost:8080/ping
schedule: "@every 5m"
dbus:
  call_timeout: 2s
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"dbus.service"}, cfg.Services)
	assert.Equal(t, "@every 5m", cfg.Schedule)
	assert.Equal(t, 2*time.Second, cfg.DBusCallTimeout())
	assert.Equal(t, DefaultReportDeadline, cfg.ReportDeadline())
	assert.True(t, cfg.Logging.ConsoleEnabled())
}

func TestDecodeRejectsUnknownFieldsAndTrailingData(t *testing.T) {
	t.Parallel()

	_, err := Decode("c.json", []byte(`{"services":["a"],"monitor_url":"https://m","timeout":"3s"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")

	_, err = Decode("c.json", []byte(`{"services":["a"],"monitor_url":"https://m"}{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trailing data")
}

func TestDecodeYAMLEdgeCases(t *testing.T) {
	t.Parallel()

	_, err := Decode("c.yml", []byte("services: [a.service]\nmonitor_url: https://m/x\n1: one\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-string key 1")

	cfg, err := Decode("c.yaml", []byte(""))
	require.NoError(t, err)
	assert.Empty(t, cfg.Services)

	cfg, err = Decode("c.yaml", []byte("services: [a.service]\nreport:\n  deadline: 0s\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultReportDeadline, cfg.ReportDeadline())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "empty services", mutate: func(c *Config) { c.Services = nil }, wantErr: "services should not be empty"},
		{name: "blank service", mutate: func(c *Config) { c.Services = []string{"a.service", " "} }, wantErr: "services[1]: empty service name"},
		{name: "repeated service", mutate: func(c *Config) { c.Services = []string{"a.service", "a.service"} }},
		{name: "empty url", mutate: func(c *Config) { c.MonitorURL = "" }, wantErr: "monitor_url: must not be empty"},
		{name: "relative url", mutate: func(c *Config) { c.MonitorURL = "/ping" }, wantErr: "monitor_url: unsupported scheme"},
		{name: "bad scheme", mutate: func(c *Config) { c.MonitorURL = "ftp://m/x" }, wantErr: "unsupported scheme"},
		{name: "missing host", mutate: func(c *Config) { c.MonitorURL = "https:///x" }, wantErr: "missing host"},
		{name: "unparseable url", mutate: func(c *Config) { c.MonitorURL = "https://m/%zz" }, wantErr: "monitor_url"},
		{name: "bad schedule", mutate: func(c *Config) { c.Schedule = "every tuesday" }, wantErr: "schedule: invalid spec"},
		{name: "cron schedule", mutate: func(c *Config) { c.Schedule = "*/5 * * * *" }},
		{name: "bad duration", mutate: func(c *Config) { c.Report.Deadline = "soon" }, wantErr: "report.deadline: invalid duration"},
		{name: "negative duration", mutate: func(c *Config) { c.DBus.CallTimeout = "-1s" }, wantErr: "dbus.call_timeout: duration must be >= 0"},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: "logging.level"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()
	env := map[string]string{
		EnvMonitorURL: " https://secret.example/ping/token ",
		EnvHostname:   "web-1",
		EnvLogLevel:   "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	c := validConfig()
	c.Logging.Level = "warn"
	c.ApplyEnv(lookup)

	assert.Equal(t, "https://secret.example/ping/token", c.MonitorURL)
	assert.Equal(t, "web-1", c.Hostname)
	assert.Equal(t, "warn", c.Logging.Level)
}

func TestLoadEnvFile(t *testing.T) {
	path := writeFile(t, ".env", "SVCMON_HOSTNAME=from-dotenv\n")
	t.Setenv(EnvHostname, "")
	require.NoError(t, os.Unsetenv(EnvHostname))

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-dotenv", os.Getenv(EnvHostname))

	require.NoError(t, LoadEnvFile(""))
	require.Error(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}
