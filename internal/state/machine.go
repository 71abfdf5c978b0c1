package state

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"countdown/internal/clock"
	"countdown/internal/timelog"
	"countdown/internal/timer"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// ErrTransitionNotAllowed is returned for an event the current status does
// not accept. The machine is left untouched.
var ErrTransitionNotAllowed = errors.New("transition not allowed")

type Event int

const (
	OnClickStart Event = iota + 1
	OnClickPause
	OnClickResume
	OnClickReset
)

func (e Event) String() string {
	switch e {
	case OnClickStart:
		return "start"
	case OnClickPause:
		return "pause"
	case OnClickResume:
		return "resume"
	case OnClickReset:
		return "reset"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// Recorder stores finished sessions.
type Recorder interface {
	Record(ctx context.Context, e timelog.Entry) error
}

type options struct {
	interval time.Duration
	clock    clock.Clock
	log      *log.Logger
	recorder Recorder
}

type Option func(*options)

func WithInterval(d time.Duration) Option {
	return func(o *options) { o.interval = d }
}

func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.log = l }
}

func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

type session struct {
	id        string
	startedAt time.Time
	pauses    int
}

// Machine turns button events into engine calls and keeps the Status the
// screen renders. Dispatch, Deliver and Run may be used from different
// goroutines; the machine lock serializes them.
type Machine struct {
	mu       sync.Mutex
	engine   *timer.Engine
	clock    clock.Clock
	log      *log.Logger
	recorder Recorder

	status  Status
	session *session
	pending []timelog.Entry
	subs    []chan Status
	closed  bool
}

func New(opts ...Option) (*Machine, error) {
	o := options{
		interval: timer.DefaultInterval,
		clock:    clock.System{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = log.New(io.Discard)
	}

	m := &Machine{
		clock:    o.clock,
		log:      o.log.With("component", "state"),
		recorder: o.recorder,
		status:   ReadyStatus(),
	}

	engine, err := timer.New(MaxDuration,
		timer.WithInterval(o.interval),
		timer.WithClock(o.clock),
		timer.WithLogger(o.log.With("component", "timer")),
		timer.OnTick(m.tickLocked),
		timer.OnFinish(m.finishLocked),
	)
	if err != nil {
		return nil, fmt.Errorf("create countdown engine: %w", err)
	}
	m.engine = engine
	return m, nil
}

func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Subscribe returns a channel that receives the current status and every
// change after it. A slow reader skips intermediate statuses but always
// ends up with the latest one. The channel is closed when Run returns.
func (m *Machine) Subscribe(buffer int) <-chan Status {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Status, buffer)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		close(ch)
		return ch
	}
	ch <- m.status
	m.subs = append(m.subs, ch)
	return ch
}

// Dispatch applies a button event. Start and Reset are accepted in every
// status, Pause only while Ticking and Resume only while Pausing.
func (m *Machine) Dispatch(ev Event) error {
	m.mu.Lock()
	err := m.dispatchLocked(ev)
	pending := m.takePendingLocked()
	m.mu.Unlock()

	m.flush(pending)
	return err
}

// Deliver hands a queued engine event to the engine under the machine lock
// so that it cannot interleave with Dispatch.
func (m *Machine) Deliver(ev timer.Event) bool {
	m.mu.Lock()
	applied := m.engine.Deliver(ev)
	pending := m.takePendingLocked()
	m.mu.Unlock()

	m.flush(pending)
	return applied
}

// Run pumps engine events until ctx is done, then stops the engine and
// closes every subscription.
func (m *Machine) Run(ctx context.Context) {
	defer m.shutdown()

	events := m.engine.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if !m.Deliver(ev) {
				m.log.Debug("dropped stale tick", "session", ev.Session, "remaining", ev.Remaining)
			}
		}
	}
}

func (m *Machine) dispatchLocked(ev Event) error {
	from := m.status

	switch ev {
	case OnClickStart:
		if m.session != nil {
			m.endSessionLocked(timelog.Restarted, m.engine.Remaining())
		}
		m.engine.Start()
		m.session = &session{id: uuid.NewString(), startedAt: m.clock.Now()}
		m.status = TickingStatus(MaxDuration)

	case OnClickPause:
		if from.Kind != Ticking {
			return fmt.Errorf("%w: %s while %s", ErrTransitionNotAllowed, ev, from.Kind)
		}
		m.engine.Pause()
		if m.session != nil {
			m.session.pauses++
		}
		m.status = PausingStatus(m.engine.Remaining())

	case OnClickResume:
		if from.Kind != Pausing {
			return fmt.Errorf("%w: %s while %s", ErrTransitionNotAllowed, ev, from.Kind)
		}
		m.engine.Resume()
		m.status = TickingStatus(m.engine.Remaining())

	case OnClickReset:
		if m.session != nil {
			m.endSessionLocked(timelog.Reset, m.engine.Remaining())
		}
		m.engine.Reset()
		m.status = ReadyStatus()

	default:
		return fmt.Errorf("unknown event %s", ev)
	}

	m.log.Debug("transition", "event", ev, "from", from, "to", m.status)
	m.publishLocked()
	return nil
}

// tickLocked and finishLocked run inside engine.Deliver, which the machine
// only calls with its lock held.
func (m *Machine) tickLocked(remaining time.Duration) {
	m.status = TickingStatus(remaining)
	m.publishLocked()
}

func (m *Machine) finishLocked() {
	m.status = ReachedStatus()
	if m.session != nil {
		m.endSessionLocked(timelog.Reached, 0)
	}
	m.log.Info("countdown reached zero")
	m.publishLocked()
}

func (m *Machine) endSessionLocked(outcome timelog.Outcome, remaining time.Duration) {
	s := m.session
	m.session = nil
	if m.recorder == nil {
		return
	}
	m.pending = append(m.pending, timelog.Entry{
		ID:        s.id,
		StartedAt: s.startedAt,
		EndedAt:   m.clock.Now(),
		Outcome:   outcome,
		Remaining: remaining,
		Pauses:    s.pauses,
	})
}

func (m *Machine) takePendingLocked() []timelog.Entry {
	pending := m.pending
	m.pending = nil
	return pending
}

func (m *Machine) flush(entries []timelog.Entry) {
	for _, e := range entries {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := m.recorder.Record(ctx, e); err != nil {
			m.log.Error("record session", "id", e.ID, "outcome", e.Outcome, "err", err)
		}
		cancel()
	}
}

func (m *Machine) publishLocked() {
	for _, ch := range m.subs {
		select {
		case ch <- m.status:
			continue
		default:
		}
		// Full: make room by discarding the oldest undelivered status.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- m.status:
		default:
		}
	}
}

func (m *Machine) shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.engine.Close()
	if m.closed {
		return
	}
	m.closed = true
	for _, ch := range m.subs {
		close(ch)
	}
	m.subs = nil
}
