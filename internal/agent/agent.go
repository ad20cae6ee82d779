// Package agent runs one health pass: check every configured service in
// order, fold the findings into a status string and report it once.
package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"svcmon/internal/checker"
	"svcmon/internal/reporter"
	"svcmon/pkg/logx"
)

// Checker is satisfied by *checker.Checker.
type Checker interface {
	Check(ctx context.Context, service string) (checker.Finding, error)
}

// Reporter is satisfied by *reporter.Reporter.
type Reporter interface {
	Report(ctx context.Context, baseURL, status, hostname string) error
}

type Options struct {
	Services   []string
	MonitorURL string
	// Hostname defaults to os.Hostname().
	Hostname string
}

type Agent struct {
	opts     Options
	checker  Checker
	reporter Reporter
	log      logx.Logger
}

func New(opts Options, c Checker, r Reporter, log logx.Logger) (*Agent, error) {
	if len(opts.Services) == 0 {
		return nil, errors.New("agent: no services configured")
	}
	if strings.TrimSpace(opts.MonitorURL) == "" {
		return nil, errors.New("agent: monitor url is empty")
	}
	if c == nil || r == nil {
		return nil, errors.New("agent: checker and reporter are required")
	}
	opts.Services = append([]string(nil), opts.Services...)
	return &Agent{opts: opts, checker: c, reporter: r, log: log}, nil
}

// Collect checks every service and returns the aggregated status text, empty
// when everything is healthy. The first checker failure aborts the pass.
func (a *Agent) Collect(ctx context.Context) (string, error) {
	return a.collect(ctx, a.log)
}

func (a *Agent) collect(ctx context.Context, log logx.Logger) (string, error) {
	findings := make([]checker.Finding, 0, len(a.opts.Services))
	for _, s := range a.opts.Services {
		f, err := a.checker.Check(ctx, s)
		if err != nil {
			return "", err
		}
		if !f.IsHealthy() {
			log.Info("service unhealthy", logx.String("service", s), logx.String("finding", f.Kind.String()))
		}
		findings = append(findings, f)
	}
	return checker.Aggregate(findings), nil
}

// Run performs one pass and reports the result. A nil error means the
// status was delivered, whatever the services' health.
func (a *Agent) Run(ctx context.Context) error {
	start := time.Now()
	log := a.log.With(logx.String("run_id", uuid.NewString()))

	host, err := a.hostname()
	if err != nil {
		return err
	}

	text, err := a.collect(ctx, log)
	if err != nil {
		log.Error("service check failed", logx.Err(err))
		return err
	}

	status := reporter.HealthyStatus
	if text != "" {
		status = text
		log.Warn("sending status", logx.String("status", status))
	}

	if err := a.reporter.Report(ctx, a.opts.MonitorURL, status, host); err != nil {
		log.Error("status report failed", logx.Err(err), logx.Duration("elapsed", time.Since(start)))
		return fmt.Errorf("report status: %w", err)
	}
	log.Info(
		"status reported",
		logx.Bool("healthy", text == ""),
		logx.Int("services", len(a.opts.Services)),
		logx.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (a *Agent) hostname() (string, error) {
	if h := strings.TrimSpace(a.opts.Hostname); h != "" {
		return h, nil
	}
	h, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("hostname: %w", err)
	}
	return h, nil
}
