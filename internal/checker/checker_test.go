package checker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	godbus "github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svcmon/pkg/logx"
	"svcmon/pkg/systemdmanager"
)

type fakeUnits struct {
	states map[string]systemdmanager.UnitState
	errs   map[string]error
	calls  []string
}

func (f *fakeUnits) UnitStateContext(ctx context.Context, unitName string) (systemdmanager.UnitState, error) {
	f.calls = append(f.calls, unitName)
	if err, ok := f.errs[unitName]; ok {
		return systemdmanager.UnitState{}, err
	}
	st, ok := f.states[unitName]
	if !ok {
		return systemdmanager.UnitState{}, fmt.Errorf("%s: %w", unitName, systemdmanager.ErrNoSuchUnit)
	}
	st.Name = unitName
	return st, nil
}

func state(active, sub, result string) systemdmanager.UnitState {
	return systemdmanager.UnitState{ActiveState: active, SubState: sub, Result: result}
}

func TestClassify(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		st   systemdmanager.UnitState
		want Kind
	}{
		{name: "running", st: state("active", "running", "success"), want: KindHealthy},
		{name: "oneshot exited", st: state("active", "exited", "success"), want: KindHealthy},
		{name: "failed", st: state("failed", "failed", "exit-code"), want: KindUnhealthy},
		{name: "inactive clean", st: state("inactive", "dead", "success"), want: KindUnhealthy},
		{name: "active after failure", st: state("active", "running", "exit-code"), want: KindUnhealthy},
		{name: "activating auto-restart", st: state("activating", "auto-restart", "signal"), want: KindUnhealthy},
		{name: "unknown vocabulary", st: state("reloading-notify", "x", "success"), want: KindUnhealthy},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := Classify("svc.service", tt.st)
			assert.Equal(t, tt.want, f.Kind)
			if tt.want == KindUnhealthy {
				s := f.String()
				assert.Contains(t, s, "svc.service")
				assert.Contains(t, s, tt.st.ActiveState)
				assert.Contains(t, s, tt.st.SubState)
				assert.Contains(t, s, tt.st.Result)
			} else {
				assert.Empty(t, f.String())
			}
		})
	}
}

func TestFindingString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", Healthy("a.service").String())
	assert.Equal(t, "x.service not loaded", NotLoaded("x.service").String())
	assert.Equal(t,
		"b.service active_state=failed sub_state=failed, result=exit-code",
		Unhealthy("b.service", "failed", "failed", "exit-code").String(),
	)
}

func TestCheckNotLoaded(t *testing.T) {
	t.Parallel()
	units := &fakeUnits{}
	c := New(units, logx.Nop())

	f, err := c.Check(context.Background(), "ghost.service")
	require.NoError(t, err)
	assert.Equal(t, NotLoaded("ghost.service"), f)
}

func TestCheckPropagatesOtherErrors(t *testing.T) {
	t.Parallel()
	denied := godbus.Error{Name: "org.freedesktop.DBus.Error.AccessDenied"}
	units := &fakeUnits{errs: map[string]error{"a.service": denied}}
	c := New(units, logx.Nop())

	_, err := c.Check(context.Background(), "a.service")
	require.Error(t, err)
	assert.False(t, errors.Is(err, systemdmanager.ErrNoSuchUnit))
	var got godbus.Error
	require.ErrorAs(t, err, &got)
	assert.Equal(t, denied.Name, got.Name)
	assert.Contains(t, err.Error(), "check a.service")
}

func TestCheckAllStopsAtHardFailure(t *testing.T) {
	t.Parallel()
	units := &fakeUnits{
		states: map[string]systemdmanager.UnitState{"a.service": state("active", "running", "success")},
		errs:   map[string]error{"b.service": errors.New("connection reset")},
	}
	c := New(units, logx.Nop())

	findings, err := c.CheckAll(context.Background(), []string{"a.service", "b.service", "c.service"})
	require.Error(t, err)
	assert.Nil(t, findings)
	assert.Equal(t, []string{"a.service", "b.service"}, units.calls)
}

func TestCheckAllKeepsConfiguredOrder(t *testing.T) {
	t.Parallel()
	units := &fakeUnits{
		states: map[string]systemdmanager.UnitState{
			"a.service": state("active", "running", "success"),
			"b.service": state("failed", "failed", "exit-code"),
			"d.service": state("inactive", "dead", "success"),
		},
	}
	c := New(units, logx.Nop())

	findings, err := c.CheckAll(context.Background(), []string{"d.service", "a.service", "c.service", "b.service"})
	require.NoError(t, err)
	require.Len(t, findings, 4)
	assert.Equal(t,
		"d.service active_state=inactive sub_state=dead, result=success,c.service not loaded,b.service active_state=failed sub_state=failed, result=exit-code",
		Aggregate(findings),
	)
}

func TestAggregate(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Aggregate(nil))
	assert.Empty(t, Aggregate([]Finding{Healthy("a"), Healthy("b")}))

	findings := []Finding{Healthy("a"), NotLoaded("b"), Healthy("c"), Unhealthy("d", "failed", "failed", "timeout")}
	first := Aggregate(findings)
	assert.Equal(t, "b not loaded,d active_state=failed sub_state=failed, result=timeout", first)
	assert.Equal(t, first, Aggregate(findings))
}
