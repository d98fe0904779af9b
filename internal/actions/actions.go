// Package actions defines the action-request vocabulary shared by the
// validation engine and its callers: action kinds and world positions.
package actions

import "math"

// Kind identifies the category of an action request.
type Kind string

const (
	KindPlant    Kind = "plant"
	KindHarvest  Kind = "harvest"
	KindWater    Kind = "water"
	KindPurchase Kind = "purchase"
	KindSell     Kind = "sell"
)

// Position is a point in world space. The engine only ever receives the
// server-authoritative actor position here, never a client-reported one.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// DistanceTo returns the Euclidean distance between two positions.
func (p Position) DistanceTo(q Position) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	dz := p.Z - q.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
