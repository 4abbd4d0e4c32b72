package models

import (
	"strconv"
	"strings"
	"time"
)

// ClassificationSchema is one nation's bidirectional mapping table between
// its national markings and the five pivot levels, for one version. Schemas
// are never mutated in place: a correction is a new version, and expiry makes
// a schema unusable for new conversions while past conversions referencing it
// stay valid history.
type ClassificationSchema struct {
	ID         string `db:"id" json:"id"`
	CreatorID  string `db:"creator_id" json:"creator_id"`
	NationCode string `db:"nation_code" json:"nation_code"`

	// Markings recognized when converting toward the pivot standard.
	ToPivotUnclassified string `db:"to_pivot_unclassified" json:"to_pivot_unclassified"`
	ToPivotRestricted   string `db:"to_pivot_restricted" json:"to_pivot_restricted"`
	ToPivotConfidential string `db:"to_pivot_confidential" json:"to_pivot_confidential"`
	ToPivotSecret       string `db:"to_pivot_secret" json:"to_pivot_secret"`
	ToPivotTopSecret    string `db:"to_pivot_top_secret" json:"to_pivot_top_secret"`

	// Markings emitted when converting from the pivot standard.
	FromPivotUnclassified string `db:"from_pivot_unclassified" json:"from_pivot_unclassified"`
	FromPivotRestricted   string `db:"from_pivot_restricted" json:"from_pivot_restricted"`
	FromPivotConfidential string `db:"from_pivot_confidential" json:"from_pivot_confidential"`
	FromPivotSecret       string `db:"from_pivot_secret" json:"from_pivot_secret"`
	FromPivotTopSecret    string `db:"from_pivot_top_secret" json:"from_pivot_top_secret"`

	Caveats     string     `db:"caveats" json:"caveats"`
	Version     string     `db:"version" json:"version"`
	AuthorityID string     `db:"authority_id" json:"authority_id"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	ExpiresAt   *time.Time `db:"expires_at" json:"expires_at,omitempty"`
}

// SchemaFilter captures filtering criteria for listing schemas.
type SchemaFilter struct {
	NationCode  string
	AuthorityID string
	ActiveAt    *time.Time
	Page        int
	PageSize    int
}

// ToPivot maps a national marking string onto its pivot level. Matching is
// exact: trimming or case folding could silently misclassify, so neither is
// applied.
func (s *ClassificationSchema) ToPivot(marking string) (PivotLevel, bool) {
	switch marking {
	case s.ToPivotUnclassified:
		return PivotUnclassified, true
	case s.ToPivotRestricted:
		return PivotRestricted, true
	case s.ToPivotConfidential:
		return PivotConfidential, true
	case s.ToPivotSecret:
		return PivotSecret, true
	case s.ToPivotTopSecret:
		return PivotTopSecret, true
	}
	return "", false
}

// FromPivot maps a pivot level onto this nation's marking string. All five
// slots are mandatory at registration, so the lookup always succeeds for a
// valid level.
func (s *ClassificationSchema) FromPivot(level PivotLevel) string {
	switch level {
	case PivotUnclassified:
		return s.FromPivotUnclassified
	case PivotRestricted:
		return s.FromPivotRestricted
	case PivotConfidential:
		return s.FromPivotConfidential
	case PivotSecret:
		return s.FromPivotSecret
	case PivotTopSecret:
		return s.FromPivotTopSecret
	}
	return ""
}

// RecognizedMarkings lists the five marking strings this schema accepts as
// conversion input, in ascending pivot rank order.
func (s *ClassificationSchema) RecognizedMarkings() []string {
	return []string{
		s.ToPivotUnclassified,
		s.ToPivotRestricted,
		s.ToPivotConfidential,
		s.ToPivotSecret,
		s.ToPivotTopSecret,
	}
}

// MissingMappings returns the names of empty mapping slots. A registrable
// schema has none.
func (s *ClassificationSchema) MissingMappings() []string {
	slots := map[string]string{
		"to_pivot_unclassified":   s.ToPivotUnclassified,
		"to_pivot_restricted":     s.ToPivotRestricted,
		"to_pivot_confidential":   s.ToPivotConfidential,
		"to_pivot_secret":         s.ToPivotSecret,
		"to_pivot_top_secret":     s.ToPivotTopSecret,
		"from_pivot_unclassified": s.FromPivotUnclassified,
		"from_pivot_restricted":   s.FromPivotRestricted,
		"from_pivot_confidential": s.FromPivotConfidential,
		"from_pivot_secret":       s.FromPivotSecret,
		"from_pivot_top_secret":   s.FromPivotTopSecret,
	}

	ordered := []string{
		"to_pivot_unclassified", "to_pivot_restricted", "to_pivot_confidential",
		"to_pivot_secret", "to_pivot_top_secret",
		"from_pivot_unclassified", "from_pivot_restricted", "from_pivot_confidential",
		"from_pivot_secret", "from_pivot_top_secret",
	}

	var missing []string
	for _, name := range ordered {
		if strings.TrimSpace(slots[name]) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// ActiveAt reports whether the schema may serve new conversions at ts.
func (s *ClassificationSchema) ActiveAt(ts time.Time) bool {
	return s.ExpiresAt == nil || s.ExpiresAt.After(ts)
}

// CompareVersions orders two version strings. Dotted segments compare
// numerically when both sides parse as unsigned integers and bytewise
// otherwise; a shorter version sorts before its extension ("1.2" < "1.2.1").
// The rule is deliberately explicit rather than assuming semantic versioning.
func CompareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")

	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aerr := strconv.ParseUint(as[i], 10, 64)
		bn, berr := strconv.ParseUint(bs[i], 10, 64)
		if aerr == nil && berr == nil {
			if an != bn {
				if an < bn {
					return -1
				}
				return 1
			}
			continue
		}
		if as[i] != bs[i] {
			if as[i] < bs[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	}
	return 0
}

// PickActiveSchema selects the schema that serves conversions at ts: the
// highest version precedence among non-expired candidates, most recent
// created_at breaking exact ties. Returns nil when no candidate is active;
// callers must treat that as a hard stop, never fall back to an expired row.
func PickActiveSchema(candidates []ClassificationSchema, ts time.Time) *ClassificationSchema {
	var best *ClassificationSchema
	for i := range candidates {
		c := &candidates[i]
		if !c.ActiveAt(ts) {
			continue
		}
		if best == nil {
			best = c
			continue
		}
		switch CompareVersions(c.Version, best.Version) {
		case 1:
			best = c
		case 0:
			if c.CreatedAt.After(best.CreatedAt) {
				best = c
			}
		}
	}
	return best
}
