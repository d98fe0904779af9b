// Package validate implements the per-request plausibility checks the
// pipeline composes: rate limits, spatial bounds, and payload shape.
// Each check returns a *violation.Fault on failure and nil on pass.
package validate

import (
	"time"

	"github.com/groveworld/guardian/internal/actions"
	"github.com/groveworld/guardian/internal/ledger"
	"github.com/groveworld/guardian/internal/violation"
)

// globalWindow is the trailing slice the global cap is measured over.
const globalWindow = time.Second

// RateLimiter applies two independent constraints per actor: a global cap
// on total actions per second, and a per-kind minimum inter-arrival
// derived from the configured max-rate table. Two tiers catch both
// mixed-action flooding and narrow per-kind spam at O(1) memory per actor.
type RateLimiter struct {
	globalMax int
	cooldowns map[actions.Kind]time.Duration
}

// NewRateLimiter builds a limiter from a max-rate table in actions/second.
// A kind rated 2/s gets a 500ms cooldown, 1/s gets 1000ms.
func NewRateLimiter(globalMaxPerSecond int, perKindRates map[string]float64) *RateLimiter {
	if globalMaxPerSecond <= 0 {
		globalMaxPerSecond = 10
	}
	cooldowns := make(map[actions.Kind]time.Duration, len(perKindRates))
	for kind, rate := range perKindRates {
		if rate <= 0 {
			continue
		}
		cooldowns[actions.Kind(kind)] = time.Duration(float64(time.Second) / rate)
	}
	return &RateLimiter{globalMax: globalMaxPerSecond, cooldowns: cooldowns}
}

// Cooldown returns the minimum inter-arrival for a kind (zero if unlimited).
func (rl *RateLimiter) Cooldown(kind actions.Kind) time.Duration {
	return rl.cooldowns[kind]
}

// Check runs the global cap first, then the per-kind cooldown. On pass the
// cooldown timestamp is consumed. Requires the record lock.
func (rl *RateLimiter) Check(rec *ledger.Record, kind actions.Kind, now time.Time) *violation.Fault {
	if count := rec.CountActionsInWindow(globalWindow, now); count >= rl.globalMax {
		return &violation.Fault{
			Kind: violation.KindExcessiveRate,
			Detail: violation.Detail{
				"count": float64(count),
				"limit": float64(rl.globalMax),
			},
		}
	}

	minInterval, limited := rl.cooldowns[kind]
	if !limited {
		return nil
	}
	if remaining := rec.CooldownRemaining(kind, minInterval, now); remaining > 0 {
		return &violation.Fault{
			Kind: violation.KindRateViolation,
			Detail: violation.Detail{
				"remaining_ms": float64(remaining.Milliseconds()),
				"cooldown_ms":  float64(minInterval.Milliseconds()),
			},
		}
	}
	rec.TouchCooldown(kind, now)
	return nil
}
