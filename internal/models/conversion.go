package models

import "time"

// ConversionRequest is the immutable record of intent for one classification
// conversion: who asked, on whose authority, what data object, from which
// nation's marking, to which allies. completed_at stays null until every
// target has either a response entry or a recorded failure.
type ConversionRequest struct {
	ID                   string     `db:"id" json:"id"`
	CreatorID            string     `db:"creator_id" json:"creator_id"`
	AuthorityID          string     `db:"authority_id" json:"authority_id"`
	DataObjectID         string     `db:"data_object_id" json:"data_object_id"`
	SourceClassification string     `db:"source_classification" json:"source_classification"`
	SourceNationCode     string     `db:"source_nation_code" json:"source_nation_code"`
	TargetNationCodes    StringList `db:"target_nation_codes" json:"target_nation_codes"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
	CompletedAt          *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// Completed reports whether all targets were resolved or failed terminally.
func (r *ConversionRequest) Completed() bool {
	return r.CompletedAt != nil
}

// ConversionResponse is the persisted outcome for a request: the pivot
// equivalent plus the per-target marking strings. Immutable after creation.
// TargetClassifications is stored as jsonb keyed by nation code.
type ConversionResponse struct {
	ID                    string     `db:"id" json:"id"`
	ConversionRequestID   string     `db:"conversion_request_id" json:"conversion_request_id"`
	SubjectDataID         string     `db:"subject_data_id" json:"subject_data_id"`
	PivotEquivalent       string     `db:"pivot_equivalent" json:"nato_equivalent"`
	TargetClassifications JSONMap    `db:"target_classifications" json:"target_nation_classifications"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
	ExpiresAt             *time.Time `db:"expires_at" json:"expires_at,omitempty"`
}

// TargetFailure records why a single target nation could not be resolved.
// Failed targets ride alongside successes in the same result, never
// discarded.
type TargetFailure struct {
	NationCode string `json:"nation_code"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// ConversionResult aggregates one conversion invocation: the pivot
// equivalent, successful per-target markings, and per-target failures.
type ConversionResult struct {
	RequestID       string            `json:"request_id"`
	PivotEquivalent PivotLevel        `json:"nato_equivalent"`
	Targets         map[string]string `json:"target_nation_classifications"`
	Failures        []TargetFailure   `json:"failures,omitempty"`
	Status          string            `json:"status"`
	SourceSchemaID  string            `json:"source_schema_id"`
	ExpiresAt       *time.Time        `json:"expires_at,omitempty"`
	CompletedAt     time.Time         `json:"completed_at"`
}

// Result statuses recorded on the audit entry.
const (
	ConversionStatusSuccess = "success"
	ConversionStatusPartial = "partial"
	ConversionStatusError   = "error"
)

// ConversionFilter captures filtering criteria for listing requests.
type ConversionFilter struct {
	CreatorID        string
	AuthorityID      string
	SourceNationCode string
	TargetNationCode string
	Pending          *bool
	Page             int
	PageSize         int
}
