package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"

	logx "svcmon/pkg/logx"
)

// ScheduleParser accepts 5-field specs, an optional leading seconds field and
// descriptors such as @hourly or @every 5m.
var ScheduleParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks the config before anything touches D-Bus or the network.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config: nil config")
	}

	if len(c.Services) == 0 {
		return errors.New("config: services should not be empty")
	}
	// Repeated names are checked and reported once per occurrence.
	for i, s := range c.Services {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("config: services[%d]: empty service name", i)
		}
	}

	if err := validateMonitorURL(c.MonitorURL); err != nil {
		return fmt.Errorf("config: monitor_url: %w", err)
	}

	if s := strings.TrimSpace(c.Schedule); s != "" {
		if _, err := ScheduleParser.Parse(s); err != nil {
			return fmt.Errorf("config: schedule: invalid spec %q: %w", c.Schedule, err)
		}
	}

	for _, s := range durationSettings {
		if _, err := s.parse(c); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}

	if !logx.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("config: logging.level: unknown level %q", c.Logging.Level)
	}
	return nil
}

func validateMonitorURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q (want http or https)", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}
