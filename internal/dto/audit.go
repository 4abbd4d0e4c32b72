package dto

// AuditQueryRequest describes query parameters for listing audit entries.
type AuditQueryRequest struct {
	UserID        string `form:"user_id"`
	AuthorityID   string `form:"authority_id"`
	NationCode    string `form:"nation_code"`
	RequestID     string `form:"request_id"`
	OperationType string `form:"operation_type"`
	Status        string `form:"status"`
	Limit         int    `form:"limit"`
}

// AuditSummary aggregates entry counts per outcome for a reporting window.
type AuditSummary struct {
	WindowHours int            `json:"window_hours"`
	Totals      map[string]int `json:"totals"`
}
