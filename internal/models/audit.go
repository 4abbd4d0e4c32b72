package models

import "time"

// OperationType classifies the API operation being audited.
type OperationType string

const (
	OperationQuery        OperationType = "query"
	OperationMutation     OperationType = "mutation"
	OperationSubscription OperationType = "subscription"
)

// Valid reports whether the operation type is a known kind.
func (t OperationType) Valid() bool {
	switch t {
	case OperationQuery, OperationMutation, OperationSubscription:
		return true
	}
	return false
}

// Audit outcome statuses.
const (
	AuditStatusSuccess = "success"
	AuditStatusError   = "error"
	AuditStatusPartial = "partial"
)

// AuditLogEntry is the append-only record of one API operation. The actor's
// role and access level are snapshotted at write time so the record does not
// depend on a live join against a mutable user row. Entries are created
// exactly once per operation (request_id is the dedup key) and never mutated
// or deleted by the application.
type AuditLogEntry struct {
	ID              string        `db:"id" json:"id"`
	UserID          *string       `db:"user_id" json:"user_id,omitempty"`
	UserRole        *string       `db:"user_role" json:"user_role,omitempty"`
	UserAccessLevel *string       `db:"user_access_level" json:"user_access_level,omitempty"`
	AuthorityID     *string       `db:"authority_id" json:"authority_id,omitempty"`
	NationCode      *string       `db:"nation_code" json:"nation_code,omitempty"`
	OperationType   OperationType `db:"operation_type" json:"operation_type"`
	OperationName   *string       `db:"operation_name" json:"operation_name,omitempty"`
	OperationText   string        `db:"operation_text" json:"operation_text"`
	VariablesJSON   []byte        `db:"variables_json" json:"variables_json,omitempty"`
	RequestID       string        `db:"request_id" json:"request_id"`
	ClientIP        *string       `db:"client_ip" json:"client_ip,omitempty"`
	UserAgent       *string       `db:"user_agent" json:"user_agent,omitempty"`
	ExecutionTimeMS *int          `db:"execution_time_ms" json:"execution_time_ms,omitempty"`
	ResponseStatus  string        `db:"response_status" json:"response_status"`
	ErrorMessage    *string       `db:"error_message" json:"error_message,omitempty"`

	// Identifiers and marking strings touched by the operation, kept as
	// plain columns so aggregation never needs bulk decryption.
	AccessedDataObjects     StringList `db:"accessed_data_objects" json:"accessed_data_objects,omitempty"`
	AccessedClassifications StringList `db:"accessed_classifications" json:"accessed_classifications,omitempty"`

	ExecutedAt time.Time `db:"executed_at" json:"executed_at"`
	SessionID  *string   `db:"session_id" json:"session_id,omitempty"`
}

// AuditFilter captures filtering criteria for audit queries.
type AuditFilter struct {
	UserID        string
	AuthorityID   string
	NationCode    string
	RequestID     string
	OperationType *OperationType
	Status        string
	Limit         int
}
