package checker

import (
	"fmt"
	"strings"
)

// Kind tags the outcome of a single service check.
type Kind int

const (
	KindHealthy Kind = iota
	KindNotLoaded
	KindUnhealthy
)

func (k Kind) String() string {
	switch k {
	case KindHealthy:
		return "healthy"
	case KindNotLoaded:
		return "not_loaded"
	case KindUnhealthy:
		return "unhealthy"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Finding is the result of checking one service. State fields are only set
// for KindUnhealthy and hold the manager's raw values.
type Finding struct {
	Kind    Kind
	Service string

	ActiveState string
	SubState    string
	Result      string
}

func Healthy(service string) Finding   { return Finding{Kind: KindHealthy, Service: service} }
func NotLoaded(service string) Finding { return Finding{Kind: KindNotLoaded, Service: service} }

func Unhealthy(service, activeState, subState, result string) Finding {
	return Finding{
		Kind:        KindUnhealthy,
		Service:     service,
		ActiveState: activeState,
		SubState:    subState,
		Result:      result,
	}
}

func (f Finding) IsHealthy() bool { return f.Kind == KindHealthy }

// String renders the finding fragment sent to the monitor. Healthy findings
// render as the empty string.
func (f Finding) String() string {
	switch f.Kind {
	case KindNotLoaded:
		return f.Service + " not loaded"
	case KindUnhealthy:
		return fmt.Sprintf("%s active_state=%s sub_state=%s, result=%s", f.Service, f.ActiveState, f.SubState, f.Result)
	default:
		return ""
	}
}

// Aggregate folds findings into the status text: non-healthy fragments
// joined by "," in the given order. The result is empty iff every finding is
// healthy.
func Aggregate(findings []Finding) string {
	var b strings.Builder
	for _, f := range findings {
		frag := f.String()
		if frag == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(frag)
	}
	return b.String()
}
