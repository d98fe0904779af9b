// Package audit emits violation and enforcement events to telemetry and
// operator-facing collaborators. Emission is strictly fire-and-forget:
// a slow or failing sink can never stall or fail a validation decision.
package audit

import (
	"log"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the engine.
const (
	TypeViolation      = "violation"
	TypeSessionSummary = "session_summary"
	TypeEnforcement    = "enforcement"
	TypeAdmin          = "admin"
	TypeAlert          = "alert"
)

// Event is the audit envelope for everything the engine reports.
type Event struct {
	ID            string             `json:"id"`
	Type          string             `json:"type"`
	ActorID       string             `json:"actor_id,omitempty"`
	ViolationKind string             `json:"violation_kind,omitempty"`
	Detail        map[string]float64 `json:"detail,omitempty"`
	RunningCount  int                `json:"running_count,omitempty"`
	Timestamp     time.Time          `json:"timestamp"`
	Data          map[string]any     `json:"data,omitempty"`
}

// Sink receives events out of band. Implementations may block or fail;
// the notifier isolates the caller from both.
type Sink interface {
	Write(evt Event) error
}

// Notifier fans events out to registered sinks and in-process
// subscribers. Subscriber channels are buffered and drop on overflow —
// a stalled operator stream never backs up into the engine.
type Notifier struct {
	mu         sync.RWMutex
	sinks      []Sink
	subs       []chan Event
	bufferSize int
	logger     *log.Logger
}

// NewNotifier creates a notifier with the given sinks.
func NewNotifier(sinks ...Sink) *Notifier {
	return &Notifier{
		sinks:      sinks,
		bufferSize: 100,
		logger:     log.New(log.Writer(), "[AUDIT] ", log.LstdFlags),
	}
}

// AddSink registers an additional sink.
func (n *Notifier) AddSink(s Sink) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sinks = append(n.sinks, s)
}

// Subscribe returns a channel receiving every emitted event. Used by the
// operator stream and by tests.
func (n *Notifier) Subscribe() chan Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	ch := make(chan Event, n.bufferSize)
	n.subs = append(n.subs, ch)
	return ch
}

// Unsubscribe removes and closes a subscriber channel.
func (n *Notifier) Unsubscribe(ch chan Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	filtered := n.subs[:0]
	for _, s := range n.subs {
		if s != ch {
			filtered = append(filtered, s)
		}
	}
	n.subs = filtered
	close(ch)
}

// Emit assigns the event an ID and timestamp if missing, delivers it to
// subscribers without blocking, and writes it to each sink on its own
// goroutine. Errors are logged and swallowed.
func (n *Notifier) Emit(evt Event) {
	if evt.ID == "" {
		evt.ID = uuid.New().String()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	n.mu.RLock()
	sinks := n.sinks
	for _, ch := range n.subs {
		select {
		case ch <- evt:
		default:
			// Subscriber full, drop.
		}
	}
	n.mu.RUnlock()

	for _, s := range sinks {
		go func(s Sink) {
			if err := s.Write(evt); err != nil {
				slog.Error("[Audit] sink write failed",
					"event_type", evt.Type,
					"actor_id", evt.ActorID,
					"error", err,
				)
			}
		}(s)
	}
}
