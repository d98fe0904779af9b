package engine

import (
	"fmt"
	"time"

	"github.com/groveworld/guardian/internal/audit"
	"github.com/groveworld/guardian/internal/bans"
	"github.com/groveworld/guardian/internal/violation"
)

// Report is the operator-facing view of one actor's security state.
type Report struct {
	ActorID        string            `json:"actor_id"`
	ViolationCount int               `json:"violation_count"`
	TotalActions   int64             `json:"total_actions"`
	WarningCount   int               `json:"warning_count"`
	KickCount      int               `json:"kick_count"`
	JoinedAt       time.Time         `json:"joined_at"`
	LastAction     time.Time         `json:"last_action,omitempty"`
	Events         []violation.Event `json:"events"`
	Ban            *bans.Record      `json:"ban,omitempty"`
}

// Report assembles the full ledger, violation log and ban state for an
// actor. Operator-only; bypasses all heuristics.
func (e *Engine) Report(actorID string, now time.Time) (*Report, error) {
	rec, ok := e.ledger.Get(actorID)
	if !ok {
		// A banned actor may have no live session; still report the ban.
		if ban := e.registry.Get(actorID, now); ban != nil {
			return &Report{ActorID: actorID, Ban: ban}, nil
		}
		return nil, fmt.Errorf("no active session for actor %s", actorID)
	}

	rec.Lock()
	report := &Report{
		ActorID:        actorID,
		ViolationCount: rec.ViolationCount,
		TotalActions:   rec.TotalActions,
		WarningCount:   rec.WarningCount,
		KickCount:      rec.KickCount,
		JoinedAt:       rec.JoinedAt,
		LastAction:     rec.LastAction,
		Events:         rec.Events(),
	}
	rec.Unlock()

	report.Ban = e.registry.Get(actorID, now)
	return report, nil
}

// ResetViolations zeroes an actor's violation state. The only sanctioned
// way a violation count decreases mid-session. Explicitly audited.
func (e *Engine) ResetViolations(actorID, operator string, now time.Time) error {
	rec, ok := e.ledger.Get(actorID)
	if !ok {
		return fmt.Errorf("no active session for actor %s", actorID)
	}

	rec.Lock()
	previous := rec.ViolationCount
	rec.ResetViolations()
	rec.Unlock()

	e.logger.Printf("Admin reset for %s by %s (was %d violations)", actorID, operator, previous)
	e.notifier.Emit(audit.Event{
		Type:      audit.TypeAdmin,
		ActorID:   actorID,
		Timestamp: now,
		Detail:    map[string]float64{"previous_count": float64(previous)},
		Data:      map[string]any{"operation": "reset_violations", "operator": operator},
	})
	return nil
}

// Unban lifts an actor's ban early. Explicitly audited.
func (e *Engine) Unban(actorID, operator string, now time.Time) bool {
	removed := e.registry.Unban(actorID)
	if removed {
		e.logger.Printf("Admin unban for %s by %s", actorID, operator)
		e.notifier.Emit(audit.Event{
			Type:      audit.TypeAdmin,
			ActorID:   actorID,
			Timestamp: now,
			Data:      map[string]any{"operation": "unban", "operator": operator},
		})
	}
	return removed
}
