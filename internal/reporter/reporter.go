// Package reporter delivers the agent's status to the monitoring endpoint.
//
// Every failure short of an explicit rejection in the response body is
// treated as transient and retried with linear backoff (0s, 1s, 2s, ...)
// until the deadline passes.
package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"svcmon/pkg/logx"
)

const (
	// HealthyStatus is sent when every service is healthy.
	HealthyStatus = "ok"

	DefaultDeadline = 30 * time.Second
	defaultStep     = time.Second

	maxBodyBytes = 1 << 20
)

// ErrDeadlineExceeded means no attempt succeeded or was rejected before the
// deadline.
var ErrDeadlineExceeded = errors.New("deadline exceeded")

// RejectedError is a definitive refusal returned by the server in the
// response body's "error" field.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string { return "error from server: " + e.Reason }

type Reporter struct {
	client   *http.Client
	log      logx.Logger
	deadline time.Duration
	step     time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

type Option func(*Reporter)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(r *Reporter) {
		if c != nil {
			r.client = c
		}
	}
}

// WithDeadline bounds the whole retry loop. Zero keeps the default.
func WithDeadline(d time.Duration) Option {
	return func(r *Reporter) {
		if d > 0 {
			r.deadline = d
		}
	}
}

func WithLogger(log logx.Logger) Option {
	return func(r *Reporter) { r.log = log }
}

func New(opts ...Option) *Reporter {
	r := &Reporter{
		client:   &http.Client{Timeout: 10 * time.Second},
		log:      logx.Nop(),
		deadline: DefaultDeadline,
		step:     defaultStep,
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, o := range opts {
		if o != nil {
			o(r)
		}
	}
	return r
}

// Report sends status for hostname to baseURL.
//
// It returns nil once a response without an error field arrives, a
// *RejectedError when the server refuses the report, and ErrDeadlineExceeded
// when the deadline passes first. Transport errors, non-2xx codes and
// unparseable bodies are logged and retried.
func (r *Reporter) Report(ctx context.Context, baseURL, status, hostname string) error {
	target, err := BuildURL(baseURL, status, hostname)
	if err != nil {
		return err
	}

	deadline := r.now().Add(r.deadline)
	for attempt := 0; r.now().Before(deadline); attempt++ {
		if attempt > 0 {
			if err := r.sleep(ctx, time.Duration(attempt)*r.step); err != nil {
				return err
			}
		}

		reason, err := r.attempt(ctx, target)
		if err != nil {
			r.log.Warn("report attempt failed", logx.Int("attempt", attempt+1), logx.Err(err))
			continue
		}
		if reason != nil {
			return &RejectedError{Reason: *reason}
		}
		r.log.Debug("status delivered", logx.Int("attempts", attempt+1))
		return nil
	}
	return ErrDeadlineExceeded
}

// attempt performs one GET. A non-nil error is transient; a non-nil reason is
// the server's rejection.
func (r *Reporter) attempt(ctx context.Context, target string) (*string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("http code: %s", resp.Status)
	}

	reason, err := parseResponse(body)
	if err != nil {
		return nil, fmt.Errorf("parsing body: %w", err)
	}
	return reason, nil
}

// parseResponse reads the monitor's reply, which must be a single JSON
// object. Only the exact key "error" is inspected: absent or null means
// delivered, a string is the rejection reason. Duplicate "error" keys and
// any other value type are parse errors.
func parseResponse(body []byte) (*string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var (
		raw  json.RawMessage
		seen bool
	)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		if key != "error" {
			continue
		}
		if seen {
			return nil, errors.New(`duplicate field "error"`)
		}
		raw, seen = v, true
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after object")
	}

	if !seen || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var reason string
	if err := json.Unmarshal(raw, &reason); err != nil {
		return nil, fmt.Errorf(`field "error": %w`, err)
	}
	return &reason, nil
}

// BuildURL appends status and hostname to baseURL's query, keeping any
// parameters already present.
func BuildURL(baseURL, status, hostname string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("monitor url: %w", err)
	}
	params := "status=" + url.QueryEscape(status) + "&hostname=" + url.QueryEscape(hostname)
	if u.RawQuery == "" {
		u.RawQuery = params
	} else {
		u.RawQuery += "&" + params
	}
	return u.String(), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
