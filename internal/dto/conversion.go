package dto

import (
	"time"

	"github.com/crossmark-io/crossmark-api/internal/models"
)

// ConvertRequest describes payload for converting one classification marking
// into the markings of one or more target nations. AsOf pins schema
// resolution to a past instant; when omitted the active schemas of the
// current moment are used.
type ConvertRequest struct {
	DataObjectID         string     `json:"data_object_id" validate:"required,uuid4"`
	SourceClassification string     `json:"source_classification" validate:"required"`
	SourceNationCode     string     `json:"source_nation_code" validate:"required,len=3,uppercase"`
	TargetNationCodes    []string   `json:"target_nation_codes" validate:"required,min=1,dive,len=3,uppercase"`
	AsOf                 *time.Time `json:"as_of,omitempty"`
}

// ConvertResponse is the API shape of a conversion outcome. Failed targets
// ride alongside successes; Status distinguishes full from partial success.
type ConvertResponse struct {
	RequestID             string                 `json:"request_id"`
	NATOEquivalent        string                 `json:"nato_equivalent"`
	TargetClassifications map[string]string      `json:"target_nation_classifications"`
	Failures              []models.TargetFailure `json:"failures,omitempty"`
	Status                string                 `json:"status"`
	ExpiresAt             *time.Time             `json:"expires_at,omitempty"`
	CompletedAt           string                 `json:"completed_at"`
}

// CreateDataObjectRequest describes payload for registering a data object
// with its metadata.
type CreateDataObjectRequest struct {
	Title       string                 `json:"title" validate:"required"`
	Description string                 `json:"description"`
	Metadata    *DataObjectMetadataDTO `json:"metadata"`
}

// DataObjectMetadataDTO carries provenance and handling attributes.
type DataObjectMetadataDTO struct {
	Identifier               string   `json:"identifier" validate:"required"`
	AuthorizationReference   *string  `json:"authorization_reference"`
	OriginatorOrganizationID string   `json:"originator_organization_id" validate:"required,uuid4"`
	CustodianOrganizationID  string   `json:"custodian_organization_id" validate:"required,uuid4"`
	Format                   string   `json:"format" validate:"required"`
	FormatSize               *int64   `json:"format_size"`
	SecurityClassification   string   `json:"security_classification" validate:"required"`
	ReleasableToCountries    []string `json:"releasable_to_countries"`
	HandlingRestrictions     []string `json:"handling_restrictions"`
	HandlingAuthority        *string  `json:"handling_authority"`
	Domain                   string   `json:"domain" validate:"required"`
	Tags                     []string `json:"tags"`
}
