// Package enforce turns detected violations into recorded events and
// escalating punishment: log, warn, kick, then a timed ban.
package enforce

import "time"

// Action is the enforcement tier selected for a violation count.
type Action int

const (
	ActionLog Action = iota
	ActionWarn
	ActionKick
	ActionBan
)

func (a Action) String() string {
	switch a {
	case ActionLog:
		return "log"
	case ActionWarn:
		return "warn"
	case ActionKick:
		return "kick"
	case ActionBan:
		return "ban"
	}
	return "unknown"
}

// Thresholds is the process-wide, read-only escalation configuration.
type Thresholds struct {
	WarningAt   int
	KickAt      int
	BanAt       int
	BanDuration time.Duration
}

// DefaultThresholds returns the tuning the policy was designed around.
func DefaultThresholds() Thresholds {
	return Thresholds{
		WarningAt:   3,
		KickAt:      10,
		BanAt:       25,
		BanDuration: time.Hour,
	}
}

// Decide maps a running violation count to an enforcement tier. It is a
// pure function, re-evaluated on every new violation rather than only at
// the first threshold crossing, so a delayed burst still resolves to the
// correct, highest tier.
func (t Thresholds) Decide(count int) Action {
	switch {
	case count >= t.BanAt:
		return ActionBan
	case count >= t.KickAt:
		return ActionKick
	case count >= t.WarningAt:
		return ActionWarn
	default:
		return ActionLog
	}
}
