package enforce

import (
	"log"
	"time"

	"github.com/groveworld/guardian/internal/audit"
	"github.com/groveworld/guardian/internal/bans"
	"github.com/groveworld/guardian/internal/ledger"
	"github.com/groveworld/guardian/internal/violation"
)

// Callbacks are the enforcement hooks the connection layer implements.
// The engine reports the decision; executing the punitive effect (the
// actual message or disconnect) is the caller's best-effort duty. A
// failed disconnect still leaves the ban record in force.
type Callbacks interface {
	OnWarn(actorID string, kind violation.Kind)
	OnKick(actorID string, reason string)
	OnBan(actorID string, reason string, duration time.Duration)
}

// NopCallbacks satisfies Callbacks with no-ops, for callers that only
// want the records and audit trail.
type NopCallbacks struct{}

func (NopCallbacks) OnWarn(string, violation.Kind)       {}
func (NopCallbacks) OnKick(string, string)               {}
func (NopCallbacks) OnBan(string, string, time.Duration) {}

// Outcome is what recording one violation produced.
type Outcome struct {
	NewCount int
	Action   Action
	Event    violation.Event
}

// Tracker records violations against the ledger and applies the
// enforcement policy on every one. Each detected violation produces
// exactly one ViolationEvent and exactly one audit emission.
type Tracker struct {
	policy    Thresholds
	registry  *bans.Registry
	callbacks Callbacks
	notifier  *audit.Notifier
	logger    *log.Logger
}

// NewTracker wires the tracker. A nil callbacks falls back to NopCallbacks.
func NewTracker(policy Thresholds, registry *bans.Registry, cb Callbacks, notifier *audit.Notifier) *Tracker {
	if cb == nil {
		cb = NopCallbacks{}
	}
	return &Tracker{
		policy:    policy,
		registry:  registry,
		callbacks: cb,
		notifier:  notifier,
		logger:    log.New(log.Writer(), "[ENFORCE] ", log.LstdFlags),
	}
}

// Policy returns the configured thresholds.
func (t *Tracker) Policy() Thresholds { return t.policy }

// Record books one violation against the actor's record, decides the
// enforcement tier for the new running count, fires the matching
// callback, and emits the audit event. Requires the record lock.
func (t *Tracker) Record(rec *ledger.Record, fault violation.Fault, now time.Time) Outcome {
	newCount, evt := rec.IncrementViolation(fault.Kind, fault.Detail, now)
	action := t.policy.Decide(newCount)

	switch action {
	case ActionLog:
		t.logger.Printf("Violation by %s: %s (count=%d)", rec.ActorID, fault.Kind, newCount)

	case ActionWarn:
		rec.WarningCount++
		t.logger.Printf("Warning %s: %s (count=%d)", rec.ActorID, fault.Kind, newCount)
		t.callbacks.OnWarn(rec.ActorID, fault.Kind)

	case ActionKick:
		rec.KickCount++
		t.logger.Printf("Kicking %s: %s (count=%d)", rec.ActorID, fault.Kind, newCount)
		t.callbacks.OnKick(rec.ActorID, fault.Kind.String())

	case ActionBan:
		// An actor already holding an active ban keeps it; the sweep can
		// push counts past the threshold after the ban landed.
		if !t.registry.IsBanned(rec.ActorID, now) {
			t.registry.Ban(rec.ActorID, fault.Kind.String(), fault.Detail, t.policy.BanDuration, now)
			t.logger.Printf("Banning %s for %s: %s (count=%d)",
				rec.ActorID, t.policy.BanDuration, fault.Kind, newCount)
			t.callbacks.OnBan(rec.ActorID, fault.Kind.String(), t.policy.BanDuration)
		}
	}

	if t.notifier != nil {
		t.notifier.Emit(audit.Event{
			Type:          audit.TypeViolation,
			ActorID:       rec.ActorID,
			ViolationKind: fault.Kind.String(),
			Detail:        map[string]float64(fault.Detail),
			RunningCount:  newCount,
			Timestamp:     now,
			Data:          map[string]any{"enforcement": action.String()},
		})
	}

	return Outcome{NewCount: newCount, Action: action, Event: evt}
}
