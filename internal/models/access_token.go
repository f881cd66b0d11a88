package models

import (
	"time"
)

// Access token status values reported by tokeninfo.
const (
	TokenStatusActive  = "active"
	TokenStatusExpired = "expired"
	TokenStatusRevoked = "revoked"
)

// AccessToken is an opaque bearer token. Only the SHA-256 hash of the raw
// token is persisted; the raw value lives in RawToken just long enough to be
// returned to the client once.
type AccessToken struct {
	ID            int64             `gorm:"primaryKey;autoIncrement"`
	TokenHash     string            `gorm:"uniqueIndex;not null"`
	RawToken      string            `gorm:"-"`
	ApplicationID int64             `gorm:"index;not null"`
	Application   ClientApplication `gorm:"foreignKey:ApplicationID"`
	UserID        string            `gorm:"index;not null"`
	ProfileID     string
	Scopes        string
	ExpiresAt     time.Time         `gorm:"index;not null"`
	RevokedAt     *time.Time
	CreatedAt     time.Time
}

// IsExpired checks if the access token has expired
func (t *AccessToken) IsExpired() bool {
	return !time.Now().Before(t.ExpiresAt)
}

// IsRevoked checks if the access token has been revoked
func (t *AccessToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// Status returns the introspection status string for the token
func (t *AccessToken) Status() string {
	switch {
	case t.IsRevoked():
		return TokenStatusRevoked
	case t.IsExpired():
		return TokenStatusExpired
	default:
		return TokenStatusActive
	}
}

// TableName overrides the table name used by AccessToken to `access_tokens`
func (AccessToken) TableName() string {
	return "access_tokens"
}
