package terminal

import (
	"fmt"
	"time"
)

type State int

const (
	Idle State = iota
	Connecting
	Open
	Reconnecting
	Closed
	Failed
)

var stateNames = [...]string{"idle", "connecting", "open", "reconnecting", "closed", "failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Status is the state of a session plus the reconnect attempts used so far.
type Status struct {
	State   State
	Attempt int
}

// Terminal reports whether no further transitions except Close can happen.
func (s Status) Terminal() bool {
	return s.State == Closed || s.State == Failed
}

func (s Status) String() string {
	if s.Attempt == 0 {
		return s.State.String()
	}
	return fmt.Sprintf("%s (attempt %d/%d)", s.State, s.Attempt, MaxAttempts)
}

type Event int

const (
	EventOpen Event = iota
	EventReady
	EventDropped
	EventRetryFired
	EventClose
)

// Effect is the side effect the session must carry out after a transition.
type Effect int

const (
	EffectNone Effect = iota
	EffectDial
	EffectScheduleRetry
	EffectRelease
	EffectCancelAndRelease
)

const (
	MaxAttempts = 3
	RetryDelay  = 2 * time.Second
)

// Transition is the session state machine. Attempts accumulate over the
// whole session and are never reset by a successful reconnect.
func Transition(s Status, ev Event) (Status, Effect) {
	switch ev {
	case EventOpen:
		if s.State == Idle {
			return Status{State: Connecting, Attempt: s.Attempt}, EffectDial
		}
	case EventReady:
		if s.State == Connecting {
			return Status{State: Open, Attempt: s.Attempt}, EffectNone
		}
	case EventDropped:
		switch s.State {
		case Open, Connecting:
			if s.Attempt < MaxAttempts {
				return Status{State: Reconnecting, Attempt: s.Attempt + 1}, EffectScheduleRetry
			}
			return Status{State: Failed, Attempt: s.Attempt}, EffectRelease
		case Reconnecting:
			if s.Attempt >= MaxAttempts {
				return Status{State: Failed, Attempt: s.Attempt}, EffectRelease
			}
		}
	case EventRetryFired:
		if s.State == Reconnecting {
			return Status{State: Connecting, Attempt: s.Attempt}, EffectDial
		}
	case EventClose:
		if s.State != Closed {
			return Status{State: Closed, Attempt: s.Attempt}, EffectCancelAndRelease
		}
	}
	return s, EffectNone
}
