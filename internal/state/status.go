package state

import (
	"fmt"
	"time"
)

// MaxDuration is the length of every countdown.
const MaxDuration = 3 * time.Second

type Kind int

const (
	Ready Kind = iota
	Ticking
	Pausing
	Reached
)

func (k Kind) String() string {
	switch k {
	case Ready:
		return "ready"
	case Ticking:
		return "ticking"
	case Pausing:
		return "pausing"
	case Reached:
		return "reached"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Status is what the screen renders. Remaining is MaxDuration when Ready and
// zero when Reached.
type Status struct {
	Kind      Kind
	Remaining time.Duration
}

func ReadyStatus() Status { return Status{Kind: Ready, Remaining: MaxDuration} }

func TickingStatus(remaining time.Duration) Status {
	return Status{Kind: Ticking, Remaining: clamp(remaining)}
}

func PausingStatus(remaining time.Duration) Status {
	return Status{Kind: Pausing, Remaining: clamp(remaining)}
}

func ReachedStatus() Status { return Status{Kind: Reached} }

func (s Status) String() string {
	switch s.Kind {
	case Ticking, Pausing:
		return fmt.Sprintf("%s(%dms)", s.Kind, s.Remaining.Milliseconds())
	}
	return s.Kind.String()
}

// ProgressToNextSecond is how far the countdown is into the current second:
// 1 right on a whole second, approaching 0 just before the next one.
func (s Status) ProgressToNextSecond() float64 {
	ms := s.Remaining.Milliseconds() % 1000
	return 1 - float64(ms)/1000
}

// NextSecond is the whole second shown as the countdown's current number.
func (s Status) NextSecond() int {
	return int(s.Remaining/time.Second) + 1
}

// PreviousSecond is the number fading out behind NextSecond. It does not
// exist while it would be larger than the countdown itself.
func (s Status) PreviousSecond() (int, bool) {
	prev := s.NextSecond() + 1
	if time.Duration(prev)*time.Second > MaxDuration {
		return 0, false
	}
	return prev, true
}

// Controls says which of the four buttons may be pressed.
type Controls struct {
	Start  bool
	Pause  bool
	Resume bool
	Reset  bool
}

func ControlsFor(s Status) Controls {
	return Controls{
		Start:  s.Kind == Ready,
		Pause:  s.Kind == Ticking,
		Resume: s.Kind == Pausing,
		Reset:  s.Kind == Pausing || s.Kind == Reached,
	}
}

func clamp(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d > MaxDuration {
		return MaxDuration
	}
	return d
}
