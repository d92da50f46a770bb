package detection

import (
	"fmt"
	"math"
)

// Decision records how the forward and backward candidates were combined.
type Decision uint8

const (
	// Agree: the candidates were within AgreementWindow and were averaged.
	Agree Decision = iota + 1
	// TrustForward: forward fired later; the backward scan fell short.
	TrustForward
	// TrustBackward: forward fired early on a dip; the later backward time wins.
	TrustBackward
)

func (d Decision) String() string {
	switch d {
	case Agree:
		return "agree"
	case TrustForward:
		return "trust_forward"
	case TrustBackward:
		return "trust_backward"
	default:
		return fmt.Sprintf("Decision(%d)", uint8(d))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Decision) MarshalText() ([]byte, error) {
	switch d {
	case Agree, TrustForward, TrustBackward:
		return []byte(d.String()), nil
	}
	return nil, fmt.Errorf("invalid decision %d", uint8(d))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Decision) UnmarshalText(text []byte) error {
	v, err := ParseDecision(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// ParseDecision maps the wire name back to a Decision.
func ParseDecision(s string) (Decision, error) {
	switch s {
	case "agree":
		return Agree, nil
	case "trust_forward":
		return TrustForward, nil
	case "trust_backward":
		return TrustBackward, nil
	}
	return 0, fmt.Errorf("unknown decision %q", s)
}

// Reconcile combines the forward and backward candidate end times.
func Reconcile(forward, backward, agreementWindow float64) (final float64, decision Decision, gap float64) {
	gap = math.Abs(forward - backward)
	switch {
	case gap <= agreementWindow:
		return (forward + backward) / 2, Agree, gap
	case forward < backward:
		return backward, TrustBackward, gap
	default:
		return forward, TrustForward, gap
	}
}
