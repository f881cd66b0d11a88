package models

import (
	"time"
)

// RefreshToken is a long-lived opaque token used to obtain fresh access
// tokens. Rotation links each new token back to the one it replaced via
// PreviousTokenID, and a rotated token can never be redeemed again.
type RefreshToken struct {
	ID              int64             `gorm:"primaryKey;autoIncrement"`
	TokenHash       string            `gorm:"uniqueIndex;not null"`
	RawToken        string            `gorm:"-"`
	ApplicationID   int64             `gorm:"index;not null"`
	Application     ClientApplication `gorm:"foreignKey:ApplicationID"`
	UserID          string            `gorm:"index;not null"`
	ProfileID       string
	Scopes          string
	AccessTokenID   int64             `gorm:"index"`
	PreviousTokenID *int64            `gorm:"index"`
	ExpiresAt       time.Time         `gorm:"index;not null"`
	RevokedAt       *time.Time
	RotatedAt       *time.Time
	CreatedAt       time.Time
}

// IsExpired checks if the refresh token has expired
func (t *RefreshToken) IsExpired() bool {
	return !time.Now().Before(t.ExpiresAt)
}

// IsRevoked checks if the refresh token has been revoked
func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// IsRotated checks if the refresh token has been replaced by a newer one
func (t *RefreshToken) IsRotated() bool {
	return t.RotatedAt != nil
}

// TableName overrides the table name used by RefreshToken to `refresh_tokens`
func (RefreshToken) TableName() string {
	return "refresh_tokens"
}
