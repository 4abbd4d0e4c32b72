package dto

import "time"

// RegisterSchemaRequest describes payload for registering a schema version.
// All ten mapping slots are mandatory; a schema with holes is rejected before
// anything is written.
type RegisterSchemaRequest struct {
	NationCode string `json:"nation_code" validate:"required,len=3,uppercase"`

	ToPivotUnclassified string `json:"to_pivot_unclassified" validate:"required"`
	ToPivotRestricted   string `json:"to_pivot_restricted" validate:"required"`
	ToPivotConfidential string `json:"to_pivot_confidential" validate:"required"`
	ToPivotSecret       string `json:"to_pivot_secret" validate:"required"`
	ToPivotTopSecret    string `json:"to_pivot_top_secret" validate:"required"`

	FromPivotUnclassified string `json:"from_pivot_unclassified" validate:"required"`
	FromPivotRestricted   string `json:"from_pivot_restricted" validate:"required"`
	FromPivotConfidential string `json:"from_pivot_confidential" validate:"required"`
	FromPivotSecret       string `json:"from_pivot_secret" validate:"required"`
	FromPivotTopSecret    string `json:"from_pivot_top_secret" validate:"required"`

	Caveats     string     `json:"caveats"`
	Version     string     `json:"version" validate:"required"`
	AuthorityID string     `json:"authority_id" validate:"required,uuid4"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// ExpireSchemaRequest describes payload for expiring a schema version.
type ExpireSchemaRequest struct {
	ExpiresAt *time.Time `json:"expires_at"`
}
