// Package violation defines the closed taxonomy of detected abuse and the
// immutable event records the engine accumulates per actor.
package violation

import (
	"fmt"
	"time"
)

// Kind is the closed enumeration of violation categories. Analytics and
// tests pattern-match on these values, so the set is deliberately small
// and never carries free-form text.
type Kind int

const (
	// KindExcessiveRate: the actor exceeded the global actions-per-second cap.
	KindExcessiveRate Kind = iota
	// KindRateViolation: a per-action-kind cooldown was still running.
	KindRateViolation
	// KindSpatialViolation: the target lies beyond the interaction range.
	KindSpatialViolation
	// KindContextInvalid: malformed payload or unknown referenced entity.
	KindContextInvalid
	// KindIntegrityAnomaly: reported movement capabilities exceed known maxima.
	KindIntegrityAnomaly
	// KindPatternViolation: a sweep-detected burst or repeated-violation pattern.
	KindPatternViolation
)

var kindNames = map[Kind]string{
	KindExcessiveRate:    "excessive-rate",
	KindRateViolation:    "rate-violation",
	KindSpatialViolation: "spatial-violation",
	KindContextInvalid:   "context-invalid",
	KindIntegrityAnomaly: "integrity-anomaly",
	KindPatternViolation: "pattern-violation",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// MarshalText makes kinds render as their wire names in JSON payloads.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a wire name back into a kind.
func (k *Kind) UnmarshalText(text []byte) error {
	name := string(text)
	for kind, n := range kindNames {
		if n == name {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown violation kind %q", name)
}

// Detail is the structured numeric payload attached to a violation.
// Keys are measurement names (distance, bound, count, …), never prose.
type Detail map[string]float64

// Fault is a detected-but-not-yet-recorded violation, returned by the
// validators and the sweep detectors. The tracker turns a Fault into an
// Event with a running count.
type Fault struct {
	Kind   Kind
	Detail Detail
}

// Event is one recorded violation. Immutable once created.
type Event struct {
	Kind         Kind      `json:"kind"`
	Detail       Detail    `json:"detail"`
	Timestamp    time.Time `json:"timestamp"`
	RunningCount int       `json:"running_count"`
}
