package models

import "fmt"

// PivotLevel is one of the five NATO standard classification levels used as
// the intermediate vocabulary between national marking systems. The order is
// UNCLASSIFIED < RESTRICTED < CONFIDENTIAL < SECRET < TOP_SECRET and exists
// for display and sorting only; conversion never compares levels.
type PivotLevel string

const (
	PivotUnclassified PivotLevel = "UNCLASSIFIED"
	PivotRestricted   PivotLevel = "RESTRICTED"
	PivotConfidential PivotLevel = "CONFIDENTIAL"
	PivotSecret       PivotLevel = "SECRET"
	PivotTopSecret    PivotLevel = "TOP_SECRET"
)

// PivotLevels lists all levels in ascending rank order.
var PivotLevels = []PivotLevel{
	PivotUnclassified,
	PivotRestricted,
	PivotConfidential,
	PivotSecret,
	PivotTopSecret,
}

var pivotRanks = map[PivotLevel]int{
	PivotUnclassified: 0,
	PivotRestricted:   1,
	PivotConfidential: 2,
	PivotSecret:       3,
	PivotTopSecret:    4,
}

// Valid reports whether the level is one of the five pivot levels.
func (l PivotLevel) Valid() bool {
	_, ok := pivotRanks[l]
	return ok
}

// Rank returns the display ordering rank, lowest first.
func (l PivotLevel) Rank() int {
	return pivotRanks[l]
}

// NATOMarking returns the NATO display marking for the level. Top secret
// material carries the COSMIC prefix per NATO convention.
func (l PivotLevel) NATOMarking() string {
	if l == PivotTopSecret {
		return "COSMIC TOP SECRET"
	}
	return "NATO " + string(l)
}

// ParsePivotLevel converts a stored string into a PivotLevel.
func ParsePivotLevel(raw string) (PivotLevel, error) {
	level := PivotLevel(raw)
	if !level.Valid() {
		return "", fmt.Errorf("unknown pivot level %q", raw)
	}
	return level, nil
}
