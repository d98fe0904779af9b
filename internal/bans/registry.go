// Package bans keeps the time-bounded ban records consulted before any
// other validation rule. Records expire lazily on read; a retention sweep
// clears out whatever nobody asked about.
package bans

import (
	"log"
	"sync"
	"time"

	"github.com/groveworld/guardian/internal/violation"
)

// Record is one active (or not yet observed as expired) ban.
type Record struct {
	ActorID  string           `json:"actor_id"`
	Reason   string           `json:"reason"`
	Detail   violation.Detail `json:"detail"`
	Start    time.Time        `json:"start"`
	End      time.Time        `json:"end"`
	Duration time.Duration    `json:"duration"`
}

// Registry is the in-process ban store. A multi-server deployment would
// need a shared registry instead; that is explicitly out of scope here.
type Registry struct {
	mu     sync.Mutex
	bans   map[string]*Record
	logger *log.Logger
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		bans:   make(map[string]*Record),
		logger: log.New(log.Writer(), "[BANS] ", log.LstdFlags),
	}
}

// Ban records a ban starting at now. The end timestamp is always strictly
// after the start. An existing ban for the actor is replaced.
func (r *Registry) Ban(actorID, reason string, detail violation.Detail, duration time.Duration, now time.Time) *Record {
	if duration <= 0 {
		duration = time.Hour
	}
	rec := &Record{
		ActorID:  actorID,
		Reason:   reason,
		Detail:   detail,
		Start:    now,
		End:      now.Add(duration),
		Duration: duration,
	}

	r.mu.Lock()
	r.bans[actorID] = rec
	r.mu.Unlock()

	r.logger.Printf("Banned actor %s until %s: %s", actorID, rec.End.Format(time.RFC3339), reason)
	return rec
}

// IsBanned reports whether the actor has an active ban at now. A record
// whose end has passed is removed on this read.
func (r *Registry) IsBanned(actorID string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.bans[actorID]
	if !ok {
		return false
	}
	if !now.Before(rec.End) {
		delete(r.bans, actorID)
		return false
	}
	return true
}

// Get returns the ban record for an actor, or nil. Expired records are
// removed on read, same as IsBanned.
func (r *Registry) Get(actorID string, now time.Time) *Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.bans[actorID]
	if !ok {
		return nil
	}
	if !now.Before(rec.End) {
		delete(r.bans, actorID)
		return nil
	}
	out := *rec
	return &out
}

// Unban removes an actor's ban regardless of remaining time. Admin override.
func (r *Registry) Unban(actorID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bans[actorID]; !ok {
		return false
	}
	delete(r.bans, actorID)
	r.logger.Printf("Unbanned actor %s (admin override)", actorID)
	return true
}

// Sweep removes every record whose end has passed and returns the count.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, rec := range r.bans {
		if !now.Before(rec.End) {
			delete(r.bans, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored records, expired or not.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bans)
}
