package store

import (
	"context"
	"log"
	"time"

	"github.com/schoolpulse/identity/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

func New(driver, dsn string) (*Store, error) {
	dialector, err := GetDialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// Auto migrate
	if err := db.AutoMigrate(
		&models.ClientApplication{},
		&models.AuthorizationCode{},
		&models.AccessToken{},
		&models.RefreshToken{},
		&models.AuditLog{},
	); err != nil {
		return nil, err
	}

	store := &Store{db: db}

	// Seed default data
	if err := store.seedData(); err != nil {
		log.Printf("Warning: failed to seed data: %v", err)
	}

	return store, nil
}

func (s *Store) seedData() error {
	// Create default client application if none exists
	var appCount int64
	s.db.Model(&models.ClientApplication{}).Count(&appCount)
	if appCount == 0 {
		app := &models.ClientApplication{
			ClientID:    uuid.New().String(),
			ClientName:  "SchoolPulse Web",
			Description: "Default confidential client for the wellbeing dashboard",
			Scopes:      "profile checkins:read checkins:write",
			IsActive:    true,
			CreatedBy:   "system",
		}
		secret, err := app.GenerateClientSecret(context.Background())
		if err != nil {
			return err
		}
		if err := s.db.Create(app).Error; err != nil {
			return err
		}
		log.Printf("Created default client application: %s (SchoolPulse Web)", app.ClientID)
		log.Printf("Client Secret (save this): %s", secret)
	}

	return nil
}

// Client application operations

func (s *Store) GetApplication(clientID string) (*models.ClientApplication, error) {
	var app models.ClientApplication
	if err := s.db.Where("client_id = ?", clientID).First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

func (s *Store) CreateApplication(app *models.ClientApplication) error {
	return s.db.Create(app).Error
}

func (s *Store) UpdateApplication(app *models.ClientApplication) error {
	return s.db.Save(app).Error
}

// Authorization code operations

func (s *Store) CreateAuthorizationCode(code *models.AuthorizationCode) error {
	return s.db.Create(code).Error
}

// GetAuthorizationCode retrieves an authorization code by its value, scoped to
// the application that redeems it. Codes issued to another application are
// indistinguishable from codes that do not exist.
func (s *Store) GetAuthorizationCode(code string, applicationID int64) (*models.AuthorizationCode, error) {
	var record models.AuthorizationCode
	err := s.db.Where("code = ? AND application_id = ?", code, applicationID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// MarkAuthorizationCodeUsed stamps used_at with a conditional update so that
// only one of any concurrent redemptions succeeds. The loser receives
// ErrAuthCodeAlreadyUsed (0 rows updated).
func (s *Store) MarkAuthorizationCodeUsed(id int64) error {
	result := s.db.Model(&models.AuthorizationCode{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", time.Now())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAuthCodeAlreadyUsed
	}
	return nil
}

func (s *Store) DeleteExpiredAuthorizationCodes() error {
	return s.db.Where("expires_at < ?", time.Now()).Delete(&models.AuthorizationCode{}).Error
}

// Access token operations

func (s *Store) CreateAccessToken(token *models.AccessToken) error {
	return s.db.Create(token).Error
}

func (s *Store) GetAccessTokenByHash(tokenHash string) (*models.AccessToken, error) {
	var t models.AccessToken
	if err := s.db.Where("token_hash = ?", tokenHash).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) RevokeAccessTokenByHash(tokenHash string) error {
	return s.db.Model(&models.AccessToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", tokenHash).
		Update("revoked_at", time.Now()).Error
}

func (s *Store) CountActiveAccessTokens() (int64, error) {
	var count int64
	err := s.db.Model(&models.AccessToken{}).
		Where("expires_at > ? AND revoked_at IS NULL", time.Now()).
		Count(&count).Error
	return count, err
}

func (s *Store) DeleteExpiredAccessTokens() error {
	return s.db.Where("expires_at < ?", time.Now()).Delete(&models.AccessToken{}).Error
}

// Refresh token operations

func (s *Store) CreateRefreshToken(token *models.RefreshToken) error {
	return s.db.Create(token).Error
}

func (s *Store) GetRefreshTokenByHash(tokenHash string) (*models.RefreshToken, error) {
	var t models.RefreshToken
	if err := s.db.Where("token_hash = ?", tokenHash).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) RevokeRefreshTokenByHash(tokenHash string) error {
	return s.db.Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", tokenHash).
		Update("revoked_at", time.Now()).Error
}

func (s *Store) CountActiveRefreshTokens() (int64, error) {
	var count int64
	err := s.db.Model(&models.RefreshToken{}).
		Where("expires_at > ? AND revoked_at IS NULL AND rotated_at IS NULL", time.Now()).
		Count(&count).Error
	return count, err
}

func (s *Store) DeleteExpiredRefreshTokens() error {
	return s.db.Where("expires_at < ?", time.Now()).Delete(&models.RefreshToken{}).Error
}

// Audit log operations

func (s *Store) CreateAuditLog(entry *models.AuditLog) error {
	return s.db.Create(entry).Error
}

func (s *Store) CreateAuditLogsBatch(entries []*models.AuditLog) error {
	if len(entries) == 0 {
		return nil
	}
	return s.db.Create(entries).Error
}

func (s *Store) DeleteOldAuditLogs(olderThan time.Time) (int64, error) {
	result := s.db.Where("created_at < ?", olderThan).Delete(&models.AuditLog{})
	return result.RowsAffected, result.Error
}

// Health checks the database connection
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// DB returns the underlying GORM database connection (for transactions)
func (s *Store) DB() *gorm.DB {
	return s.db
}
