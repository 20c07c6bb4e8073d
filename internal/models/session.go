package models

import "time"

// SessionRecord is one row in the sessions table, the durable counterpart
// of one issued refresh token. Its existence is the source of truth for
// revocability: deleting the row ends the refresh path.
//
// Token is empty at insert time and attached once the refresh token has
// been signed, since the token's claims embed this row's id.
type SessionRecord struct {
	ID        string    `db:"id" json:"id"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	Token     string    `db:"token" json:"-"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
