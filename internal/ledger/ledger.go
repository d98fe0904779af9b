// Package ledger holds per-actor security state for the lifetime of a
// session: action history, per-kind cooldowns, the bounded violation log,
// and escalation counters. Records are keyed by actor ID and individually
// locked, so validating one actor never contends with another; the map
// itself is only locked for session start/end and sweep snapshots.
package ledger

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/groveworld/guardian/internal/actions"
	"github.com/groveworld/guardian/internal/violation"
)

const (
	// historyCapacity bounds the action-timestamp ring buffer. The widest
	// observation window is the 5s rapid-action sweep at the 10/s global
	// cap, so 128 entries leaves ample slack.
	historyCapacity = 128

	// maxViolationEvents bounds the per-actor violation log between
	// retention sweeps.
	maxViolationEvents = 256
)

// IntegritySample is an out-of-band movement-capability report awaiting
// the next sweep pass.
type IntegritySample struct {
	Speed      float64   `json:"speed"`
	JumpPower  float64   `json:"jump_power"`
	ReportedAt time.Time `json:"reported_at"`
}

// SessionSummary is emitted when a record is archived on session end.
type SessionSummary struct {
	ActorID      string        `json:"actor_id"`
	Violations   int           `json:"violations"`
	TotalActions int64         `json:"total_actions"`
	Warnings     int           `json:"warnings"`
	Kicks        int           `json:"kicks"`
	Duration     time.Duration `json:"duration"`
}

// Record is the security state of one connected actor.
//
// All methods below require the record lock. The validation pipeline holds
// it across an entire Validate call so rate checks, violation increments
// and tier decisions are linearizable per actor, and Close naturally
// drains in-flight validations before archiving.
type Record struct {
	mu sync.Mutex

	ActorID      string
	JoinedAt     time.Time
	LastAction   time.Time
	TotalActions int64

	// ViolationCount is monotonic within a session; only an explicit
	// admin reset may lower it.
	ViolationCount int
	WarningCount   int
	KickCount      int

	history   ring
	cooldowns map[actions.Kind]time.Time
	events    []violation.Event

	// patternMarks holds, per violation kind, the high-water mark of the
	// last compounding pattern detection so a group of violations is
	// counted once, not once per sweep pass.
	patternMarks map[violation.Kind]time.Time

	// rapidMark is the timestamp of the last rapid-action detection.
	rapidMark time.Time

	pendingIntegrity []IntegritySample
}

// Lock acquires the per-record mutex.
func (r *Record) Lock() { r.mu.Lock() }

// Unlock releases the per-record mutex.
func (r *Record) Unlock() { r.mu.Unlock() }

// RecordAction appends an allowed action to the trailing history window.
func (r *Record) RecordAction(now time.Time) {
	r.history.push(now)
	r.TotalActions++
	r.LastAction = now
}

// CountActionsInWindow returns how many allowed actions fall within the
// trailing window ending at now.
func (r *Record) CountActionsInWindow(window time.Duration, now time.Time) int {
	cutoff := now.Add(-window)
	return r.history.countAfter(cutoff)
}

// CooldownRemaining returns how much of the per-kind minimum inter-arrival
// is still outstanding. Zero means the kind is off cooldown.
func (r *Record) CooldownRemaining(kind actions.Kind, minInterval time.Duration, now time.Time) time.Duration {
	last, ok := r.cooldowns[kind]
	if !ok {
		return 0
	}
	elapsed := now.Sub(last)
	if elapsed >= minInterval {
		return 0
	}
	return minInterval - elapsed
}

// TouchCooldown records now as the last accepted submission for kind.
func (r *Record) TouchCooldown(kind actions.Kind, now time.Time) {
	r.cooldowns[kind] = now
}

// IncrementViolation bumps the monotonic counter and appends one immutable
// event carrying the new running count. The event log is bounded; when
// full, the oldest entry is dropped (the counter itself never decreases).
func (r *Record) IncrementViolation(kind violation.Kind, detail violation.Detail, now time.Time) (int, violation.Event) {
	r.ViolationCount++
	evt := violation.Event{
		Kind:         kind,
		Detail:       detail,
		Timestamp:    now,
		RunningCount: r.ViolationCount,
	}
	if len(r.events) >= maxViolationEvents {
		r.events = r.events[1:]
	}
	r.events = append(r.events, evt)
	return r.ViolationCount, evt
}

// RecentViolationsOfKind counts events of the given kind inside the
// trailing window, ignoring events at or before the per-kind pattern mark.
func (r *Record) RecentViolationsOfKind(kind violation.Kind, window time.Duration, now time.Time) int {
	cutoff := now.Add(-window)
	mark := r.patternMarks[kind]
	n := 0
	for _, evt := range r.events {
		if evt.Kind != kind {
			continue
		}
		if evt.Timestamp.Before(cutoff) || !evt.Timestamp.After(mark) {
			continue
		}
		n++
	}
	return n
}

// MarkPattern advances the pattern high-water mark for kind, consuming
// the events that contributed to a compounding detection.
func (r *Record) MarkPattern(kind violation.Kind, now time.Time) {
	r.patternMarks[kind] = now
}

// RapidMark returns the time of the last rapid-action detection.
func (r *Record) RapidMark() time.Time { return r.rapidMark }

// MarkRapid records a rapid-action detection at now.
func (r *Record) MarkRapid(now time.Time) { r.rapidMark = now }

// AddIntegritySample queues a movement report for the next sweep pass.
func (r *Record) AddIntegritySample(s IntegritySample) {
	r.pendingIntegrity = append(r.pendingIntegrity, s)
}

// TakeIntegritySamples returns and clears the queued movement reports.
func (r *Record) TakeIntegritySamples() []IntegritySample {
	out := r.pendingIntegrity
	r.pendingIntegrity = nil
	return out
}

// Events returns a copy of the current violation log.
func (r *Record) Events() []violation.Event {
	out := make([]violation.Event, len(r.events))
	copy(out, r.events)
	return out
}

// PruneEvents drops violation events older than cutoff.
func (r *Record) PruneEvents(cutoff time.Time) int {
	kept := r.events[:0]
	dropped := 0
	for _, evt := range r.events {
		if evt.Timestamp.Before(cutoff) {
			dropped++
			continue
		}
		kept = append(kept, evt)
	}
	r.events = kept
	return dropped
}

// ResetViolations zeroes the violation counter and log. Admin use only.
func (r *Record) ResetViolations() {
	r.ViolationCount = 0
	r.events = nil
	r.patternMarks = make(map[violation.Kind]time.Time)
}

// Summary captures the archival numbers for session end.
func (r *Record) Summary(now time.Time) SessionSummary {
	return SessionSummary{
		ActorID:      r.ActorID,
		Violations:   r.ViolationCount,
		TotalActions: r.TotalActions,
		Warnings:     r.WarningCount,
		Kicks:        r.KickCount,
		Duration:     now.Sub(r.JoinedAt),
	}
}

// Ledger owns all active records. Insertion and removal lock the map;
// per-record mutation happens under each record's own lock.
type Ledger struct {
	mu      sync.RWMutex
	records map[string]*Record
	logger  *log.Logger
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		records: make(map[string]*Record),
		logger:  log.New(log.Writer(), "[LEDGER] ", log.LstdFlags),
	}
}

// Open creates the record for a starting session. Opening an already-open
// actor returns the existing record unchanged.
func (l *Ledger) Open(actorID string, now time.Time) *Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec, ok := l.records[actorID]; ok {
		return rec
	}
	rec := &Record{
		ActorID:      actorID,
		JoinedAt:     now,
		cooldowns:    make(map[actions.Kind]time.Time),
		patternMarks: make(map[violation.Kind]time.Time),
	}
	l.records[actorID] = rec
	return rec
}

// Get returns the record for an active session.
func (l *Ledger) Get(actorID string) (*Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.records[actorID]
	return rec, ok
}

// Close archives and removes an actor's record, returning its summary.
// It acquires the record lock before removal, so any validation already
// holding the record finishes first — the archive never races a
// still-processing submission.
func (l *Ledger) Close(actorID string, now time.Time) (SessionSummary, error) {
	l.mu.Lock()
	rec, ok := l.records[actorID]
	if !ok {
		l.mu.Unlock()
		return SessionSummary{}, fmt.Errorf("no active session for actor %s", actorID)
	}
	delete(l.records, actorID)
	l.mu.Unlock()

	rec.Lock()
	defer rec.Unlock()
	summary := rec.Summary(now)
	l.logger.Printf("Archived actor %s: %d violations, %d actions, %d warnings, %d kicks",
		actorID, summary.Violations, summary.TotalActions, summary.Warnings, summary.Kicks)
	return summary, nil
}

// Snapshot returns the current set of records for a sweep pass. The
// caller locks each record individually; no global lock is held while
// the pass runs.
func (l *Ledger) Snapshot() []*Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Record, 0, len(l.records))
	for _, rec := range l.records {
		out = append(out, rec)
	}
	return out
}

// Len returns the number of active sessions.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
