package timelog

import "time"

type Outcome string

const (
	Reached   Outcome = "reached"
	Reset     Outcome = "reset"
	Restarted Outcome = "restarted"
)

// Entry records one countdown session from start until it reached zero or
// was interrupted.
type Entry struct {
	ID        string
	StartedAt time.Time
	EndedAt   time.Time
	Outcome   Outcome
	Remaining time.Duration
	Pauses    int
}

// Duration is the wall time the session lasted, pauses included.
func (e Entry) Duration() time.Duration {
	return e.EndedAt.Sub(e.StartedAt)
}
