//go:build !linux

package systemdmanager

import (
	"context"
	"errors"
	"time"

	godbus "github.com/godbus/dbus/v5"
)

var ErrUnsupported = errors.New("systemdmanager: unsupported OS (linux only)")

type ServiceManager struct{}

func NewServiceManagerContext(ctx context.Context, callTimeout time.Duration) (*ServiceManager, error) {
	return nil, ErrUnsupported
}

func (sm *ServiceManager) Close() error { return nil }

func (sm *ServiceManager) ResolveContext(ctx context.Context, unitName string) (godbus.ObjectPath, error) {
	return "", ErrUnsupported
}

func (sm *ServiceManager) UnitStateContext(ctx context.Context, unitName string) (UnitState, error) {
	return UnitState{}, ErrUnsupported
}
