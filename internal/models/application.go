package models

import (
	"context"
	"time"

	"github.com/schoolpulse/identity/internal/util"

	"golang.org/x/crypto/bcrypt"
)

// ClientApplication identifies an OAuth client. Applications are created and
// deactivated by an external admin workflow; the token service only reads them.
// Applications without a stored secret are public (PKCE-only) clients.
type ClientApplication struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	ClientID     string `gorm:"uniqueIndex;not null"`
	ClientSecret string // bcrypt hashed secret; empty for public clients
	ClientName   string `gorm:"not null"`
	Description  string `gorm:"type:text"`
	Scopes       string `gorm:"not null"` // space-separated scopes
	IsActive     bool   `gorm:"not null;default:true"`
	CreatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsPublic reports whether this is a public (PKCE-only) client with no secret.
func (app *ClientApplication) IsPublic() bool {
	return app.ClientSecret == ""
}

// GenerateClientSecret generates a fresh client secret, stores its bcrypt hash
// on the record, and returns the plaintext for one-time display.
func (app *ClientApplication) GenerateClientSecret(ctx context.Context) (string, error) {
	secret, err := util.NewOpaqueToken(util.ClientSecretPrefix)
	if err != nil {
		return "", err
	}

	hashedSecret, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	app.ClientSecret = string(hashedSecret)
	return secret, nil
}

// ValidateClientSecret validates the given secret against the stored hash
func (app *ClientApplication) ValidateClientSecret(secret []byte) bool {
	if app.ClientSecret == "" || len(secret) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(app.ClientSecret), secret) == nil
}

// TableName overrides the table name used by ClientApplication to `client_applications`
func (ClientApplication) TableName() string {
	return "client_applications"
}
