package validate

import (
	"encoding/json"

	"github.com/groveworld/guardian/internal/actions"
	"github.com/groveworld/guardian/internal/violation"
)

// PositionResolver resolves a target entity reference to its authoritative
// world position. Injected so this package never depends on gameplay
// entities at compile time.
type PositionResolver interface {
	// ResolvePosition returns the position of the referenced entity and
	// whether the reference could be resolved at all.
	ResolvePosition(targetID string) (actions.Position, bool)
}

// PositionResolverFunc adapts a plain function to a PositionResolver.
type PositionResolverFunc func(targetID string) (actions.Position, bool)

func (f PositionResolverFunc) ResolvePosition(targetID string) (actions.Position, bool) {
	return f(targetID)
}

// targetEnvelope is the minimal payload slice the spatial check needs.
type targetEnvelope struct {
	TargetID string `json:"target_id"`
}

// SpatialValidator compares the server-authoritative actor position
// against the resolved target position for kinds that have a spatial
// component.
type SpatialValidator struct {
	resolver    PositionResolver
	maxDistance map[actions.Kind]float64
}

// NewSpatialValidator builds a validator from the per-kind interaction
// distance table. Kinds absent from the table have no spatial component
// and are skipped.
func NewSpatialValidator(resolver PositionResolver, distances map[string]float64) *SpatialValidator {
	table := make(map[actions.Kind]float64, len(distances))
	for kind, dist := range distances {
		if dist > 0 {
			table[actions.Kind(kind)] = dist
		}
	}
	return &SpatialValidator{resolver: resolver, maxDistance: table}
}

// Spatial reports whether a kind carries a spatial component.
func (sv *SpatialValidator) Spatial(kind actions.Kind) bool {
	_, ok := sv.maxDistance[kind]
	return ok
}

// Check validates the actor-to-target distance. A target that cannot be
// parsed or resolved is a context failure, never a spatial one — resolving
// it to some default origin would manufacture a false large-distance
// violation.
func (sv *SpatialValidator) Check(actorPos actions.Position, kind actions.Kind, payload json.RawMessage) *violation.Fault {
	bound, ok := sv.maxDistance[kind]
	if !ok {
		return nil
	}

	var env targetEnvelope
	if err := json.Unmarshal(payload, &env); err != nil || env.TargetID == "" {
		return &violation.Fault{
			Kind:   violation.KindContextInvalid,
			Detail: violation.Detail{"target_present": 0},
		}
	}

	targetPos, resolved := sv.resolver.ResolvePosition(env.TargetID)
	if !resolved {
		return &violation.Fault{
			Kind:   violation.KindContextInvalid,
			Detail: violation.Detail{"target_present": 1, "target_resolved": 0},
		}
	}

	distance := actorPos.DistanceTo(targetPos)
	if distance > bound {
		return &violation.Fault{
			Kind: violation.KindSpatialViolation,
			Detail: violation.Detail{
				"distance": distance,
				"bound":    bound,
			},
		}
	}
	return nil
}
