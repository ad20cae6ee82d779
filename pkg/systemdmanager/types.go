package systemdmanager

import (
	"errors"
	"time"

	godbus "github.com/godbus/dbus/v5"
)

// NoSuchUnitErrorName is the D-Bus error name systemd returns from GetUnit
// when the unit is not loaded.
const NoSuchUnitErrorName = "org.freedesktop.systemd1.NoSuchUnit"

const defaultCallTimeout = 5 * time.Second

const (
	systemdBusName   = "org.freedesktop.systemd1"
	systemdPath      = godbus.ObjectPath("/org/freedesktop/systemd1")
	managerInterface = "org.freedesktop.systemd1.Manager"
	unitInterface    = "org.freedesktop.systemd1.Unit"
	serviceInterface = "org.freedesktop.systemd1.Service"
	propertiesGet    = "org.freedesktop.DBus.Properties.Get"
)

var (
	// ErrNoSuchUnit marks a unit the manager does not know about.
	ErrNoSuchUnit = errors.New("systemdmanager: no such unit")
	ErrClosed     = errors.New("systemd connection is closed")
)

// UnitState is the raw state triple systemd reports for a loaded unit.
// Values are passed through verbatim.
type UnitState struct {
	Name        string
	ActiveState string // active, inactive, failed, activating, ...
	SubState    string // running, dead, exited, auto-restart, ...
	Result      string // success, exit-code, signal, timeout, ...
}

// isNoSuchUnitErr reports whether err is the systemd NoSuchUnit D-Bus error.
func isNoSuchUnitErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNoSuchUnit) {
		return true
	}
	var dbusErr godbus.Error
	if errors.As(err, &dbusErr) {
		return dbusErr.Name == NoSuchUnitErrorName
	}
	var dbusErrPtr *godbus.Error
	if errors.As(err, &dbusErrPtr) && dbusErrPtr != nil {
		return dbusErrPtr.Name == NoSuchUnitErrorName
	}
	return false
}

// stateProperty names one string property and where it lands in a UnitState.
type stateProperty struct {
	iface string
	name  string
	dst   *string
}

// unitStateProperties lists the reads behind a UnitState, in read order.
func unitStateProperties(st *UnitState) []stateProperty {
	return []stateProperty{
		{iface: unitInterface, name: "ActiveState", dst: &st.ActiveState},
		{iface: unitInterface, name: "SubState", dst: &st.SubState},
		{iface: serviceInterface, name: "Result", dst: &st.Result},
	}
}

func variantString(v godbus.Variant) (string, bool) {
	s, ok := v.Value().(string)
	return s, ok
}
