package models

import "time"

// Nation is a reference row for a participating nation, keyed by its
// ISO 3166-1 alpha-3 code.
type Nation struct {
	ID         string    `db:"id" json:"id"`
	CreatorID  string    `db:"creator_id" json:"creator_id"`
	NationCode string    `db:"nation_code" json:"nation_code"`
	NationName string    `db:"nation_name" json:"nation_name"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Authority is an accredited organization entitled to own schemas and issue
// conversion requests on behalf of a nation.
type Authority struct {
	ID        string     `db:"id" json:"id"`
	CreatorID string     `db:"creator_id" json:"creator_id"`
	NationID  string     `db:"nation_id" json:"nation_id"`
	Name      string     `db:"name" json:"name"`
	Email     string     `db:"email" json:"email"`
	Phone     string     `db:"phone" json:"phone"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	ExpiresAt *time.Time `db:"expires_at" json:"expires_at,omitempty"`
}
