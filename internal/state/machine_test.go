package state

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"countdown/internal/clock"
	"countdown/internal/timelog"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeRecorder struct {
	mu      sync.Mutex
	entries []timelog.Entry
	err     error
}

func (f *fakeRecorder) Record(_ context.Context, e timelog.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return f.err
}

func (f *fakeRecorder) outcomes() []timelog.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []timelog.Outcome
	for _, e := range f.entries {
		out = append(out, e.Outcome)
	}
	return out
}

func newTestMachine(t *testing.T) (*Machine, *clock.Manual, *fakeRecorder) {
	t.Helper()
	clk := clock.NewManual(epoch)
	rec := &fakeRecorder{}
	m, err := New(WithClock(clk), WithInterval(10*time.Millisecond), WithRecorder(rec))
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}
	t.Cleanup(m.engine.Close)
	return m, clk, rec
}

// advance moves the clock and delivers the resulting tick.
func advance(t *testing.T, m *Machine, clk *clock.Manual, d time.Duration) {
	t.Helper()
	clk.Advance(d)
	select {
	case ev := <-m.engine.Events():
		if !m.Deliver(ev) {
			t.Fatalf("tick %+v was not applied", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("no tick within a second")
	}
}

func mustDispatch(t *testing.T, m *Machine, ev Event) {
	t.Helper()
	if err := m.Dispatch(ev); err != nil {
		t.Fatalf("dispatch %s: %v", ev, err)
	}
}

func expectStatus(t *testing.T, m *Machine, want Status) {
	t.Helper()
	if got := m.Status(); got != want {
		t.Fatalf("status = %s, want %s", got, want)
	}
}

func TestFullCountdownScenario(t *testing.T) {
	t.Parallel()
	m, clk, rec := newTestMachine(t)
	expectStatus(t, m, ReadyStatus())

	mustDispatch(t, m, OnClickStart)
	expectStatus(t, m, TickingStatus(3000*time.Millisecond))

	advance(t, m, clk, 500*time.Millisecond)
	expectStatus(t, m, TickingStatus(2500*time.Millisecond))
	if p := m.Status().ProgressToNextSecond(); p != 0.5 {
		t.Fatalf("progress = %v", p)
	}

	mustDispatch(t, m, OnClickPause)
	expectStatus(t, m, PausingStatus(2500*time.Millisecond))

	clk.Advance(5 * time.Second)
	mustDispatch(t, m, OnClickResume)
	expectStatus(t, m, TickingStatus(2500*time.Millisecond))

	advance(t, m, clk, time.Second)
	expectStatus(t, m, TickingStatus(1500*time.Millisecond))

	advance(t, m, clk, 1600*time.Millisecond)
	expectStatus(t, m, ReachedStatus())

	mustDispatch(t, m, OnClickReset)
	expectStatus(t, m, ReadyStatus())

	if got := rec.outcomes(); len(got) != 1 || got[0] != timelog.Reached {
		t.Fatalf("recorded outcomes = %v", got)
	}
	entry := rec.entries[0]
	if entry.Pauses != 1 || entry.Remaining != 0 || entry.ID == "" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if !entry.StartedAt.Equal(epoch) || entry.Duration() != 8100*time.Millisecond {
		t.Fatalf("unexpected session timing: %+v", entry)
	}
}

func TestGuardedEventsAreNoops(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		setup []Event
		event Event
	}{
		{name: "pause while ready", event: OnClickPause},
		{name: "resume while ready", event: OnClickResume},
		{name: "resume while ticking", setup: []Event{OnClickStart}, event: OnClickResume},
		{name: "pause while pausing", setup: []Event{OnClickStart, OnClickPause}, event: OnClickPause},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, _, _ := newTestMachine(t)
			for _, ev := range tt.setup {
				mustDispatch(t, m, ev)
			}
			before := m.Status()
			running := m.engine.Running()

			err := m.Dispatch(tt.event)
			if !errors.Is(err, ErrTransitionNotAllowed) {
				t.Fatalf("expected ErrTransitionNotAllowed, got %v", err)
			}
			if m.Status() != before || m.engine.Running() != running {
				t.Fatalf("rejected event changed state: %s -> %s", before, m.Status())
			}
		})
	}
}

func TestGuardedEventsWhileReached(t *testing.T) {
	t.Parallel()
	m, clk, _ := newTestMachine(t)
	mustDispatch(t, m, OnClickStart)
	advance(t, m, clk, 4*time.Second)
	expectStatus(t, m, ReachedStatus())

	for _, ev := range []Event{OnClickPause, OnClickResume} {
		if err := m.Dispatch(ev); !errors.Is(err, ErrTransitionNotAllowed) {
			t.Fatalf("%s while reached: %v", ev, err)
		}
	}
	expectStatus(t, m, ReachedStatus())
}

func TestStartAndResetFromEveryStatus(t *testing.T) {
	t.Parallel()
	reach := func(t *testing.T, m *Machine, clk *clock.Manual) {
		mustDispatch(t, m, OnClickStart)
		advance(t, m, clk, 5*time.Second)
	}
	tick := func(t *testing.T, m *Machine, clk *clock.Manual) {
		mustDispatch(t, m, OnClickStart)
		advance(t, m, clk, 700*time.Millisecond)
	}
	pause := func(t *testing.T, m *Machine, clk *clock.Manual) {
		tick(t, m, clk)
		mustDispatch(t, m, OnClickPause)
	}
	setups := map[string]func(*testing.T, *Machine, *clock.Manual){
		"ready":   func(*testing.T, *Machine, *clock.Manual) {},
		"ticking": tick,
		"pausing": pause,
		"reached": reach,
	}

	for name, setup := range setups {
		name, setup := name, setup
		t.Run("start from "+name, func(t *testing.T) {
			t.Parallel()
			m, clk, _ := newTestMachine(t)
			setup(t, m, clk)
			mustDispatch(t, m, OnClickStart)
			expectStatus(t, m, TickingStatus(MaxDuration))
			if !m.engine.Running() || m.engine.Remaining() != MaxDuration {
				t.Fatalf("engine not restarted from the full duration")
			}
		})
		t.Run("reset from "+name, func(t *testing.T) {
			t.Parallel()
			m, clk, _ := newTestMachine(t)
			setup(t, m, clk)
			mustDispatch(t, m, OnClickReset)
			expectStatus(t, m, ReadyStatus())
			if m.engine.Running() || m.engine.Remaining() != MaxDuration {
				t.Fatalf("engine not reset to the full duration")
			}
		})
	}
}

func TestInterruptedSessionsAreRecorded(t *testing.T) {
	t.Parallel()
	m, clk, rec := newTestMachine(t)

	mustDispatch(t, m, OnClickStart)
	advance(t, m, clk, 200*time.Millisecond)
	mustDispatch(t, m, OnClickStart)
	advance(t, m, clk, 300*time.Millisecond)
	mustDispatch(t, m, OnClickPause)
	mustDispatch(t, m, OnClickReset)
	mustDispatch(t, m, OnClickReset)

	got := rec.outcomes()
	want := []timelog.Outcome{timelog.Restarted, timelog.Reset}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("outcomes = %v, want %v", got, want)
	}
	if rec.entries[0].Remaining != 2800*time.Millisecond || rec.entries[1].Remaining != 2700*time.Millisecond {
		t.Fatalf("unexpected remaining: %s, %s", rec.entries[0].Remaining, rec.entries[1].Remaining)
	}
	if rec.entries[0].ID == rec.entries[1].ID {
		t.Fatalf("sessions share an id")
	}
}

func TestRecorderFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	m, clk, rec := newTestMachine(t)
	rec.err = errors.New("disk full")

	mustDispatch(t, m, OnClickStart)
	advance(t, m, clk, 4*time.Second)
	expectStatus(t, m, ReachedStatus())
	mustDispatch(t, m, OnClickReset)
	expectStatus(t, m, ReadyStatus())
}

func TestStaleTickNeverObserved(t *testing.T) {
	t.Parallel()
	m, clk, _ := newTestMachine(t)

	mustDispatch(t, m, OnClickStart)
	clk.Advance(time.Second)
	stale := <-m.engine.Events()

	mustDispatch(t, m, OnClickPause)
	if m.Deliver(stale) {
		t.Fatalf("stale tick applied after pause")
	}
	expectStatus(t, m, PausingStatus(MaxDuration))

	mustDispatch(t, m, OnClickReset)
	if m.Deliver(stale) {
		t.Fatalf("stale tick applied after reset")
	}
	expectStatus(t, m, ReadyStatus())
}

func TestSubscribeKeepsLatest(t *testing.T) {
	t.Parallel()
	m, _, _ := newTestMachine(t)

	sub := m.Subscribe(1)
	if got := <-sub; got != ReadyStatus() {
		t.Fatalf("initial status = %s", got)
	}

	mustDispatch(t, m, OnClickStart)
	mustDispatch(t, m, OnClickPause)
	if got := <-sub; got != PausingStatus(MaxDuration) {
		t.Fatalf("subscriber saw %s, want the latest status", got)
	}
}

func TestRunDeliversTicksAndClosesSubscriptions(t *testing.T) {
	t.Parallel()
	m, clk, _ := newTestMachine(t)
	sub := m.Subscribe(8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	mustDispatch(t, m, OnClickStart)
	clk.Advance(750 * time.Millisecond)

	want := TickingStatus(2250 * time.Millisecond)
	deadline := time.After(time.Second)
	for seen := false; !seen; {
		select {
		case st := <-sub:
			seen = st == want
		case <-deadline:
			t.Fatalf("never observed %s", want)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("run did not return after cancel")
	}
	for range sub {
	}
	if m.engine.Running() {
		t.Fatalf("engine still running after shutdown")
	}

	late := m.Subscribe(1)
	if _, ok := <-late; ok {
		t.Fatalf("subscription after shutdown should be closed")
	}
}
