package micmute_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/voxtype/internal/micmute"
)

// scriptedQuery plays back a sequence of (muted, ok) readings, repeating the
// last one once exhausted.
type scriptedQuery struct {
	mu       sync.Mutex
	readings [][2]bool
	idx      int
}

func (s *scriptedQuery) query() (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.readings[s.idx]
	if s.idx < len(s.readings)-1 {
		s.idx++
	}
	return r[0], r[1]
}

func runMonitor(t *testing.T, q *scriptedQuery) <-chan bool {
	t.Helper()
	m := micmute.NewMonitor(
		micmute.WithQuery(q.query),
		micmute.WithInterval(time.Millisecond),
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return m.Changes()
}

func recv(t *testing.T, ch <-chan bool) bool {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for mute change")
		return false
	}
}

func TestReportsInitialStateAndTransitions(t *testing.T) {
	q := &scriptedQuery{readings: [][2]bool{
		{false, true}, // initial: unmuted
		{false, true},
		{true, true}, // muted
		{true, true},
		{false, true}, // unmuted again
	}}
	changes := runMonitor(t, q)

	if got := recv(t, changes); got != false {
		t.Errorf("initial state = %v, want unmuted", got)
	}
	if got := recv(t, changes); got != true {
		t.Errorf("first transition = %v, want muted", got)
	}
	if got := recv(t, changes); got != false {
		t.Errorf("second transition = %v, want unmuted", got)
	}
}

func TestSkipsTransientQueryFailures(t *testing.T) {
	q := &scriptedQuery{readings: [][2]bool{
		{false, true},
		{false, false}, // pactl hiccup, ignored
		{true, true},
	}}
	changes := runMonitor(t, q)

	if got := recv(t, changes); got != false {
		t.Errorf("initial state = %v, want unmuted", got)
	}
	if got := recv(t, changes); got != true {
		t.Errorf("transition after hiccup = %v, want muted", got)
	}
}

func TestDisablesWhenPactlUnavailableAtStartup(t *testing.T) {
	m := micmute.NewMonitor(
		micmute.WithQuery(func() (bool, bool) { return false, false }),
		micmute.WithInterval(time.Millisecond),
	)

	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not exit with pactl unavailable")
	}

	select {
	case v := <-m.Changes():
		t.Errorf("unexpected change %v from disabled monitor", v)
	default:
	}
}
