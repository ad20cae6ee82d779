package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultReportDeadline = 30 * time.Second
	DefaultRequestTimeout = 10 * time.Second
	DefaultDBusTimeout    = 5 * time.Second
)

// Config is the agent's configuration file.
//
// Example:
//
//	{
//	  "services": ["dbus.service", "nginx.service"],
//	  "monitor_url": "https://hc.example/ping/abc"
//	}
type Config struct {
	// Services lists the systemd units to check, in report order.
	Services []string `json:"services"`
	// MonitorURL receives a GET with `status` and `hostname` parameters.
	MonitorURL string `json:"monitor_url"`
	// Hostname overrides os.Hostname() in reports.
	Hostname string `json:"hostname,omitempty"`

	// Schedule is a cron spec (or @every) used by `svcmon serve`.
	Schedule string `json:"schedule,omitempty"`

	Report  ReportConfig  `json:"report"`
	DBus    DBusConfig    `json:"dbus"`
	Logging LoggingConfig `json:"logging"`
}

// ReportConfig tunes status delivery.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
//
// Defaults (when fields are omitted/zero):
//   - deadline: "30s"
//   - request_timeout: "10s"
type ReportConfig struct {
	Deadline       string `json:"deadline,omitempty"`
	RequestTimeout string `json:"request_timeout,omitempty"`
}

type DBusConfig struct {
	// CallTimeout bounds each D-Bus call (default "5s").
	CallTimeout string `json:"call_timeout,omitempty"`
}

type LoggingConfig struct {
	Level    string      `json:"level"`
	Console  *bool       `json:"console,omitempty"`
	Journald bool        `json:"journald,omitempty"`
	File     LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// ConsoleEnabled defaults to true when the field is omitted.
func (l LoggingConfig) ConsoleEnabled() bool {
	return l.Console == nil || *l.Console
}

// durationSetting ties a duration field to its config path and default.
// Empty or zero means the default; negative values are rejected.
type durationSetting struct {
	path  string
	def   time.Duration
	field func(*Config) string
}

var (
	reportDeadline  = durationSetting{path: "report.deadline", def: DefaultReportDeadline, field: func(c *Config) string { return c.Report.Deadline }}
	requestTimeout  = durationSetting{path: "report.request_timeout", def: DefaultRequestTimeout, field: func(c *Config) string { return c.Report.RequestTimeout }}
	dbusCallTimeout = durationSetting{path: "dbus.call_timeout", def: DefaultDBusTimeout, field: func(c *Config) string { return c.DBus.CallTimeout }}

	durationSettings = []durationSetting{reportDeadline, requestTimeout, dbusCallTimeout}
)

func (s durationSetting) parse(c *Config) (time.Duration, error) {
	raw := strings.TrimSpace(s.field(c))
	if raw == "" {
		return s.def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", s.path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", s.path)
	}
	if d == 0 {
		return s.def, nil
	}
	return d, nil
}

// ReportDeadline bounds the whole report retry loop.
func (c *Config) ReportDeadline() time.Duration {
	d, _ := reportDeadline.parse(c)
	return d
}

// RequestTimeout bounds a single HTTP attempt.
func (c *Config) RequestTimeout() time.Duration {
	d, _ := requestTimeout.parse(c)
	return d
}

// DBusCallTimeout bounds each D-Bus call.
func (c *Config) DBusCallTimeout() time.Duration {
	d, _ := dbusCallTimeout.parse(c)
	return d
}
