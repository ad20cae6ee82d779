//go:build linux

package systemdmanager

import (
	"context"
	"fmt"
	"sync"
	"time"

	godbus "github.com/godbus/dbus/v5"
)

// ServiceManager reads unit state from systemd over the system bus.
//
// Unit lookup goes through Manager.GetUnit so that a unit systemd has never
// loaded surfaces as NoSuchUnit instead of being loaded on demand. State
// properties are read from the object path GetUnit returned.
type ServiceManager struct {
	mu  sync.RWMutex
	bus *godbus.Conn

	callTimeout time.Duration
}

// NewServiceManagerContext connects to the system bus. callTimeout bounds each
// individual D-Bus call; zero means the default (5s).
// If ctx is nil, context.Background() is used.
func NewServiceManagerContext(ctx context.Context, callTimeout time.Duration) (*ServiceManager, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}

	bus, err := godbus.ConnectSystemBus(godbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}
	return &ServiceManager{bus: bus, callTimeout: callTimeout}, nil
}

// Close closes the bus connection.
func (sm *ServiceManager) Close() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.bus == nil {
		return nil
	}
	err := sm.bus.Close()
	sm.bus = nil
	return err
}

func (sm *ServiceManager) conn() (*godbus.Conn, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if sm.bus == nil {
		return nil, ErrClosed
	}
	return sm.bus, nil
}

// ResolveContext returns the object path of a loaded unit.
// A unit systemd does not know yields an error wrapping ErrNoSuchUnit.
func (sm *ServiceManager) ResolveContext(ctx context.Context, unitName string) (godbus.ObjectPath, error) {
	bus, err := sm.conn()
	if err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, sm.callTimeout)
	defer cancel()

	var path godbus.ObjectPath
	obj := bus.Object(systemdBusName, systemdPath)
	err = obj.CallWithContext(callCtx, managerInterface+".GetUnit", 0, unitName).Store(&path)
	if err != nil {
		if isNoSuchUnitErr(err) {
			return "", fmt.Errorf("%s: %w", unitName, ErrNoSuchUnit)
		}
		return "", fmt.Errorf("failed to resolve %s: %w", unitName, err)
	}
	return path, nil
}

// UnitStateContext resolves unitName and reads ActiveState, SubState and the
// service Result from the resolved object. Each call is bounded by the call
// timeout; the first failing read is returned.
func (sm *ServiceManager) UnitStateContext(ctx context.Context, unitName string) (UnitState, error) {
	path, err := sm.ResolveContext(ctx, unitName)
	if err != nil {
		return UnitState{}, err
	}
	bus, err := sm.conn()
	if err != nil {
		return UnitState{}, err
	}
	obj := bus.Object(systemdBusName, path)

	st := UnitState{Name: unitName}
	for _, p := range unitStateProperties(&st) {
		v, err := sm.property(ctx, obj, p.iface, p.name)
		if err != nil {
			return UnitState{}, fmt.Errorf("failed to read %s of %s: %w", p.name, unitName, err)
		}
		s, ok := variantString(v)
		if !ok {
			return UnitState{}, fmt.Errorf("%s: property %s has type %s, want string", unitName, p.name, v.Signature())
		}
		*p.dst = s
	}
	return st, nil
}

func (sm *ServiceManager) property(ctx context.Context, obj godbus.BusObject, iface, name string) (godbus.Variant, error) {
	callCtx, cancel := context.WithTimeout(ctx, sm.callTimeout)
	defer cancel()

	var v godbus.Variant
	err := obj.CallWithContext(callCtx, propertiesGet, 0, iface, name).Store(&v)
	return v, err
}
