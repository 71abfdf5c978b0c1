package timer

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"countdown/internal/clock"

	"github.com/charmbracelet/log"
)

// DefaultInterval is roughly one frame at 60Hz.
const DefaultInterval = 16 * time.Millisecond

var (
	ErrNegativeDuration = errors.New("countdown duration must not be negative")
	ErrInvalidInterval  = errors.New("tick interval must be positive")
)

// Event is one message from a tick stream. Session names the stream that
// produced it so that ticks from a cancelled stream can be recognised.
type Event struct {
	Session   uint64
	Remaining time.Duration
	Finished  bool
}

type stream struct {
	id        uint64
	from      time.Duration
	startedAt time.Time
	ticker    clock.Ticker
	stop      chan struct{}
}

// Engine counts down from a fixed duration. Ticks are produced on a
// background goroutine and queued on Events; they only take effect once the
// owner hands them back through Deliver. Deliver and the control methods
// must be serialized by the caller.
type Engine struct {
	mu       sync.Mutex
	max      time.Duration
	interval time.Duration
	clock    clock.Clock
	log      *log.Logger
	onTick   func(remaining time.Duration)
	onFinish func()

	current  time.Duration
	finished bool
	active   *stream
	lastID   uint64
	events   chan Event
}

type Option func(*Engine)

func WithInterval(d time.Duration) Option {
	return func(e *Engine) { e.interval = d }
}

func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// OnTick registers the callback run for every applied tick.
func OnTick(fn func(remaining time.Duration)) Option {
	return func(e *Engine) { e.onTick = fn }
}

// OnFinish registers the callback run once when the countdown reaches zero.
func OnFinish(fn func()) Option {
	return func(e *Engine) { e.onFinish = fn }
}

func New(max time.Duration, opts ...Option) (*Engine, error) {
	if max < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNegativeDuration, max)
	}
	max = max.Truncate(time.Millisecond)

	e := &Engine{
		max:      max,
		interval: DefaultInterval,
		clock:    clock.System{},
		current:  max,
		events:   make(chan Event, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.interval <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInterval, e.interval)
	}
	if e.clock == nil {
		e.clock = clock.System{}
	}
	if e.log == nil {
		e.log = log.New(io.Discard)
	}
	return e, nil
}

// Events is the queue every stream writes to.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Start restarts the countdown from the full duration.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelLocked()
	e.current = e.max
	e.finished = false
	e.beginLocked(e.max)
}

// Pause stops ticking and keeps the last observed remaining time.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == nil {
		return
	}
	e.cancelLocked()
	e.log.Debug("paused", "remaining", e.current)
}

// Resume continues counting down from the remaining time. It does nothing
// once the countdown has finished.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.finished {
		return
	}
	e.cancelLocked()
	e.beginLocked(e.current)
}

// Reset stops ticking and restores the full duration.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelLocked()
	e.current = e.max
	e.finished = false
}

// Close stops any running stream.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelLocked()
}

// Deliver applies ev if it belongs to the running stream and reports whether
// it did. Remaining is updated before the callback runs.
func (e *Engine) Deliver(ev Event) bool {
	e.mu.Lock()
	if e.active == nil || ev.Session != e.active.id {
		e.mu.Unlock()
		return false
	}

	if ev.Finished {
		e.cancelLocked()
		e.current = 0
		e.finished = true
		fn := e.onFinish
		e.mu.Unlock()

		e.log.Debug("finished")
		if fn != nil {
			fn()
		}
		return true
	}

	if ev.Remaining >= e.current {
		e.mu.Unlock()
		return false
	}
	e.current = ev.Remaining
	fn := e.onTick
	e.mu.Unlock()

	if fn != nil {
		fn(ev.Remaining)
	}
	return true
}

func (e *Engine) Remaining() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active != nil
}

func (e *Engine) Finished() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.finished
}

// Session returns the id of the running stream, or 0 when idle.
func (e *Engine) Session() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return 0
	}
	return e.active.id
}

func (e *Engine) Max() time.Duration {
	return e.max
}

func (e *Engine) Interval() time.Duration {
	return e.interval
}

func (e *Engine) beginLocked(from time.Duration) {
	e.lastID++
	s := &stream{
		id:        e.lastID,
		from:      from,
		startedAt: e.clock.Now(),
		ticker:    e.clock.NewTicker(e.interval),
		stop:      make(chan struct{}),
	}
	e.active = s
	e.log.Debug("stream started", "session", s.id, "from", from)

	go e.run(s)
}

func (e *Engine) cancelLocked() {
	if e.active == nil {
		return
	}
	close(e.active.stop)
	e.active.ticker.Stop()
	e.active = nil
}

func (e *Engine) run(s *stream) {
	defer s.ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case at := <-s.ticker.C():
			remaining := s.from - at.Sub(s.startedAt)
			if remaining < 0 {
				remaining = 0
			}
			ev := Event{Session: s.id, Remaining: remaining.Truncate(time.Millisecond)}
			ev.Finished = ev.Remaining == 0

			select {
			case e.events <- ev:
			case <-s.stop:
				return
			}
			if ev.Finished {
				return
			}
		}
	}
}
