package usecase

import "sync/atomic"

type PresenceState int32

const (
	OrderAbsent PresenceState = iota
	OrderPresent
)

func (s PresenceState) String() string {
	if s == OrderPresent {
		return "present"
	}
	return "absent"
}

type Transition int

const (
	TransitionNone Transition = iota
	TransitionAppeared
	TransitionVanished
)

func (t Transition) String() string {
	switch t {
	case TransitionAppeared:
		return "appeared"
	case TransitionVanished:
		return "vanished"
	default:
		return "none"
	}
}

// OrderPresence tracks whether the symbol had a resting order on the previous tick.
// It is written by the price loop only; reads from other goroutines are safe.
type OrderPresence struct {
	state atomic.Int32
}

func (p *OrderPresence) State() PresenceState {
	return PresenceState(p.state.Load())
}

// Observe records the presence seen on the current tick and reports the transition.
func (p *OrderPresence) Observe(present bool) Transition {
	next := OrderAbsent
	if present {
		next = OrderPresent
	}
	prev := PresenceState(p.state.Swap(int32(next)))

	switch {
	case prev == OrderAbsent && next == OrderPresent:
		return TransitionAppeared
	case prev == OrderPresent && next == OrderAbsent:
		return TransitionVanished
	default:
		return TransitionNone
	}
}
