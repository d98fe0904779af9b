package audit

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectSink remembers everything written to it.
type collectSink struct {
	mu     sync.Mutex
	events []Event
}

func (c *collectSink) Write(evt Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func (c *collectSink) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

type failingSink struct{}

func (failingSink) Write(Event) error { return errors.New("backend down") }

func TestEmitAssignsIDAndTimestamp(t *testing.T) {
	n := NewNotifier()
	ch := n.Subscribe()

	n.Emit(Event{Type: TypeViolation, ActorID: "actor-1"})

	select {
	case evt := <-ch:
		assert.NotEmpty(t, evt.ID)
		assert.False(t, evt.Timestamp.IsZero())
		assert.Equal(t, TypeViolation, evt.Type)
	case <-time.After(time.Second):
		t.Fatal("subscriber received nothing")
	}
}

func TestEmitPreservesExplicitTimestamp(t *testing.T) {
	n := NewNotifier()
	ch := n.Subscribe()

	when := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	n.Emit(Event{Type: TypeAdmin, Timestamp: when})

	evt := <-ch
	assert.Equal(t, when, evt.Timestamp)
}

func TestSinksReceiveEvents(t *testing.T) {
	sink := &collectSink{}
	n := NewNotifier(sink)

	n.Emit(Event{Type: TypeViolation})
	n.Emit(Event{Type: TypeEnforcement})

	require.Eventually(t, func() bool { return sink.len() == 2 },
		time.Second, 10*time.Millisecond)
}

func TestFailingSinkNeverBlocksEmit(t *testing.T) {
	sink := &collectSink{}
	n := NewNotifier(failingSink{}, sink)

	n.Emit(Event{Type: TypeViolation})

	require.Eventually(t, func() bool { return sink.len() == 1 },
		time.Second, 10*time.Millisecond)
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	n := NewNotifier()
	ch := n.Subscribe()

	// Nobody reads; the buffer fills, further emissions are dropped, and
	// Emit itself returns promptly each time.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 2*cap(ch); i++ {
			n.Emit(Event{Type: TypeViolation})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("emit blocked on full subscriber")
	}
	assert.Equal(t, cap(ch), len(ch))
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	n := NewNotifier()
	ch := n.Subscribe()
	n.Unsubscribe(ch)

	_, open := <-ch
	assert.False(t, open)

	// Emitting after unsubscribe must not panic on the closed channel.
	assert.NotPanics(t, func() { n.Emit(Event{Type: TypeViolation}) })
}

func TestAddSink(t *testing.T) {
	n := NewNotifier()
	sink := &collectSink{}
	n.AddSink(sink)

	n.Emit(Event{Type: TypeAlert})
	require.Eventually(t, func() bool { return sink.len() == 1 },
		time.Second, 10*time.Millisecond)
}
