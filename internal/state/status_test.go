package state

import (
	"math"
	"testing"
	"time"
)

func TestDerivedDisplayValues(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		remaining time.Duration
		progress  float64
		next      int
		prev      int
		hasPrev   bool
	}{
		{name: "full", remaining: 3000 * time.Millisecond, progress: 1, next: 4},
		{name: "half into third second", remaining: 2500 * time.Millisecond, progress: 0.5, next: 3},
		{name: "second from the top", remaining: 1500 * time.Millisecond, progress: 0.5, next: 2, prev: 3, hasPrev: true},
		{name: "just below a second", remaining: 999 * time.Millisecond, progress: 0.001, next: 1, prev: 2, hasPrev: true},
		{name: "zero", remaining: 0, progress: 1, next: 1, prev: 2, hasPrev: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := TickingStatus(tt.remaining)
			if got := s.ProgressToNextSecond(); math.Abs(got-tt.progress) > 1e-9 {
				t.Fatalf("progress = %v, want %v", got, tt.progress)
			}
			if got := s.NextSecond(); got != tt.next {
				t.Fatalf("next = %d, want %d", got, tt.next)
			}
			prev, ok := s.PreviousSecond()
			if ok != tt.hasPrev || prev != tt.prev {
				t.Fatalf("previous = (%d, %t), want (%d, %t)", prev, ok, tt.prev, tt.hasPrev)
			}
		})
	}
}

func TestPreviousSecondDefinedWithinCountdown(t *testing.T) {
	t.Parallel()
	maxSeconds := int(MaxDuration / time.Second)
	for ms := 0; ms <= int(MaxDuration/time.Millisecond); ms += 7 {
		s := TickingStatus(time.Duration(ms) * time.Millisecond)
		_, ok := s.PreviousSecond()
		if undefined := s.NextSecond()+1 > maxSeconds; ok == undefined {
			t.Fatalf("remaining %dms: previous defined=%t, next=%d", ms, ok, s.NextSecond())
		}
		if p := s.ProgressToNextSecond(); p <= 0 || p > 1 {
			t.Fatalf("remaining %dms: progress %v out of range", ms, p)
		}
	}
}

func TestStatusConstructorsClamp(t *testing.T) {
	t.Parallel()
	if got := TickingStatus(-time.Second).Remaining; got != 0 {
		t.Fatalf("negative remaining not clamped: %s", got)
	}
	if got := PausingStatus(time.Hour).Remaining; got != MaxDuration {
		t.Fatalf("remaining above max not clamped: %s", got)
	}
	if ReadyStatus().Remaining != MaxDuration || ReachedStatus().Remaining != 0 {
		t.Fatalf("unexpected fixed remaining values")
	}
}

func TestControlsFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		status Status
		want   Controls
	}{
		{ReadyStatus(), Controls{Start: true}},
		{TickingStatus(time.Second), Controls{Pause: true}},
		{PausingStatus(time.Second), Controls{Resume: true, Reset: true}},
		{ReachedStatus(), Controls{Reset: true}},
	}
	for _, tt := range tests {
		if got := ControlsFor(tt.status); got != tt.want {
			t.Fatalf("%s: controls = %+v, want %+v", tt.status, got, tt.want)
		}
	}
}
