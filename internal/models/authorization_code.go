package models

import (
	"time"
)

// AuthorizationCode is a single-use grant minted during the authorization
// step and redeemed at the token endpoint. Codes are looked up by the
// (code, application_id) pair and marked used atomically on redemption.
type AuthorizationCode struct {
	ID                  int64             `gorm:"primaryKey;autoIncrement"`
	Code                string            `gorm:"uniqueIndex;not null"`
	ApplicationID       int64             `gorm:"index;not null"`
	Application         ClientApplication `gorm:"foreignKey:ApplicationID"`
	UserID              string            `gorm:"index;not null"`
	ProfileID           string
	Scopes              string
	RedirectURI         string            `gorm:"not null"`
	CodeChallenge       string
	CodeChallengeMethod string
	ExpiresAt           time.Time         `gorm:"index;not null"`
	UsedAt              *time.Time
	CreatedAt           time.Time
}

// IsExpired checks if the authorization code has expired.
// A code expiring exactly now is treated as expired.
func (ac *AuthorizationCode) IsExpired() bool {
	return !time.Now().Before(ac.ExpiresAt)
}

// IsUsed checks if the authorization code has already been redeemed
func (ac *AuthorizationCode) IsUsed() bool {
	return ac.UsedAt != nil
}

// TableName overrides the table name used by AuthorizationCode to `authorization_codes`
func (AuthorizationCode) TableName() string {
	return "authorization_codes"
}
