// Package checker classifies systemd units as healthy or unhealthy.
//
// A unit is unhealthy when its active state is not "active" or its last
// result is not "success". Both values are opaque strings from systemd and
// are reported verbatim. A unit systemd does not know is a normal NotLoaded
// finding; every other lookup failure is returned to the caller, since it
// means the checking path itself is broken.
package checker

import (
	"context"
	"errors"
	"fmt"

	"svcmon/pkg/logx"
	"svcmon/pkg/systemdmanager"
)

const (
	stateActive   = "active"
	resultSuccess = "success"
)

// UnitQuerier reads the raw state of one unit. Implementations report a unit
// the manager does not know with an error wrapping systemdmanager.ErrNoSuchUnit.
type UnitQuerier interface {
	UnitStateContext(ctx context.Context, unitName string) (systemdmanager.UnitState, error)
}

type Checker struct {
	units UnitQuerier
	log   logx.Logger
}

func New(units UnitQuerier, log logx.Logger) *Checker {
	return &Checker{units: units, log: log}
}

// Check inspects one service. It fails only when the lookup fails for a
// reason other than the unit not existing.
func (c *Checker) Check(ctx context.Context, service string) (Finding, error) {
	st, err := c.units.UnitStateContext(ctx, service)
	if err != nil {
		if errors.Is(err, systemdmanager.ErrNoSuchUnit) {
			c.log.Debug("unit not loaded", logx.String("service", service))
			return NotLoaded(service), nil
		}
		return Finding{}, fmt.Errorf("check %s: %w", service, err)
	}

	f := Classify(service, st)
	c.log.Debug(
		"unit checked",
		logx.String("service", service),
		logx.String("active_state", st.ActiveState),
		logx.String("sub_state", st.SubState),
		logx.String("result", st.Result),
		logx.String("finding", f.Kind.String()),
	)
	return f, nil
}

// Classify maps a unit's raw state to a finding.
func Classify(service string, st systemdmanager.UnitState) Finding {
	if st.ActiveState != stateActive || st.Result != resultSuccess {
		return Unhealthy(service, st.ActiveState, st.SubState, st.Result)
	}
	return Healthy(service)
}

// CheckAll checks services in order and stops at the first hard failure.
func (c *Checker) CheckAll(ctx context.Context, services []string) ([]Finding, error) {
	findings := make([]Finding, 0, len(services))
	for _, s := range services {
		f, err := c.Check(ctx, s)
		if err != nil {
			return nil, err
		}
		findings = append(findings, f)
	}
	return findings, nil
}
