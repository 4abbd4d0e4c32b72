package models

import (
	"time"

	"github.com/crossmark-io/crossmark-api/pkg/crypto/fieldcrypt"
)

// DataObject is the classified artifact a conversion request refers to.
// Title and Description are sealed at rest; repositories run SealFields
// before insert and OpenFields after scan so the columns only ever hold
// ciphertext blobs.
type DataObject struct {
	ID          string    `db:"id" json:"id"`
	CreatorID   string    `db:"creator_id" json:"creator_id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// SealFields encrypts the sensitive columns in place.
func (d *DataObject) SealFields(c *fieldcrypt.Codec) error {
	sealed, err := c.Seal(d.Title)
	if err != nil {
		return err
	}
	d.Title = sealed

	sealed, err = c.Seal(d.Description)
	if err != nil {
		return err
	}
	d.Description = sealed
	return nil
}

// OpenFields decrypts the sensitive columns in place.
func (d *DataObject) OpenFields(c *fieldcrypt.Codec) error {
	opened, err := c.Open(d.Title)
	if err != nil {
		return err
	}
	d.Title = opened

	opened, err = c.Open(d.Description)
	if err != nil {
		return err
	}
	d.Description = opened
	return nil
}

// Metadata describes provenance, format, and handling of a data object.
// AuthorizationReference is sealed at rest.
type Metadata struct {
	ID                         string     `db:"id" json:"id"`
	DataObjectID               string     `db:"data_object_id" json:"data_object_id"`
	Identifier                 string     `db:"identifier" json:"identifier"`
	AuthorizationReference     *string    `db:"authorization_reference" json:"authorization_reference,omitempty"`
	AuthorizationReferenceDate *time.Time `db:"authorization_reference_date" json:"authorization_reference_date,omitempty"`
	OriginatorOrganizationID   string     `db:"originator_organization_id" json:"originator_organization_id"`
	CustodianOrganizationID    string     `db:"custodian_organization_id" json:"custodian_organization_id"`
	Format                     string     `db:"format" json:"format"`
	FormatSize                 *int64     `db:"format_size" json:"format_size,omitempty"`
	SecurityClassification     string     `db:"security_classification" json:"security_classification"`
	ReleasableToCountries      StringList `db:"releasable_to_countries" json:"releasable_to_countries,omitempty"`
	HandlingRestrictions       StringList `db:"handling_restrictions" json:"handling_restrictions,omitempty"`
	HandlingAuthority          *string    `db:"handling_authority" json:"handling_authority,omitempty"`
	Domain                     string     `db:"domain" json:"domain"`
	Tags                       StringList `db:"tags" json:"tags"`
	CreatedAt                  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt                  time.Time  `db:"updated_at" json:"updated_at"`
}

// SealFields encrypts the sensitive columns in place.
func (m *Metadata) SealFields(c *fieldcrypt.Codec) error {
	if m.AuthorizationReference == nil {
		return nil
	}
	sealed, err := c.Seal(*m.AuthorizationReference)
	if err != nil {
		return err
	}
	m.AuthorizationReference = &sealed
	return nil
}

// OpenFields decrypts the sensitive columns in place.
func (m *Metadata) OpenFields(c *fieldcrypt.Codec) error {
	if m.AuthorizationReference == nil {
		return nil
	}
	opened, err := c.Open(*m.AuthorizationReference)
	if err != nil {
		return err
	}
	m.AuthorizationReference = &opened
	return nil
}
