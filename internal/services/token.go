package services

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/schoolpulse/identity/internal/config"
	"github.com/schoolpulse/identity/internal/core"
	"github.com/schoolpulse/identity/internal/models"
	"github.com/schoolpulse/identity/internal/store"
	"github.com/schoolpulse/identity/internal/util"
)

// Grant types supported by the token endpoint (RFC 6749)
const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeRefreshToken      = "refresh_token"
)

// Token exchange errors. Handlers map these onto the OAuth error taxonomy:
// ErrInvalidClient becomes invalid_client (401), ErrCodeVerifierRequired
// becomes invalid_request, and the remaining grant-state errors become
// invalid_grant.
var (
	ErrInvalidClient        = errors.New("client authentication failed")
	ErrCodeNotFound         = errors.New("authorization code not found")
	ErrCodeAlreadyUsed      = errors.New("authorization code already used")
	ErrCodeExpired          = errors.New("authorization code expired")
	ErrRedirectURIMismatch  = errors.New("redirect_uri does not match")
	ErrCodeVerifierRequired = errors.New("code_verifier is required")
	ErrCodeVerifierMismatch = errors.New("invalid code_verifier")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")
	ErrRefreshTokenRevoked  = errors.New("refresh token revoked")
)

// CodeExchangeRequest carries the parameters of an authorization_code grant.
type CodeExchangeRequest struct {
	ClientID     string
	ClientSecret string
	Code         string
	RedirectURI  string
	CodeVerifier string
}

// RefreshRequest carries the parameters of a refresh_token grant.
type RefreshRequest struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// TokenPair is the result of a successful exchange. Both tokens carry their
// raw values in RawToken; those values exist only in this response.
type TokenPair struct {
	AccessToken  *models.AccessToken
	RefreshToken *models.RefreshToken
}

// TokenService implements the OAuth 2.0 token exchange flows.
type TokenService struct {
	store        *store.Store
	config       *config.Config
	auditService *AuditService
	metrics      core.Recorder
}

func NewTokenService(
	s *store.Store,
	cfg *config.Config,
	auditService *AuditService,
	m core.Recorder,
) *TokenService {
	return &TokenService{
		store:        s,
		config:       cfg,
		auditService: auditService,
		metrics:      m,
	}
}

// ExchangeAuthorizationCode redeems a single-use authorization code for a
// fresh access/refresh token pair. The code is marked used with a conditional
// update, so replayed or concurrently redeemed codes fail with
// ErrCodeAlreadyUsed.
func (s *TokenService) ExchangeAuthorizationCode(
	ctx context.Context,
	req CodeExchangeRequest,
) (*TokenPair, error) {
	start := time.Now()

	app, err := s.authenticateClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		s.metrics.RecordExchangeRejected(GrantTypeAuthorizationCode, "invalid_client")
		return nil, err
	}

	// Lookup is scoped to the redeeming application: a code minted for a
	// different client is indistinguishable from a nonexistent one.
	record, err := s.store.GetAuthorizationCode(req.Code, app.ID)
	if err != nil {
		s.metrics.RecordExchangeRejected(GrantTypeAuthorizationCode, "code_not_found")
		return nil, ErrCodeNotFound
	}

	if record.IsUsed() {
		s.metrics.RecordExchangeRejected(GrantTypeAuthorizationCode, "code_replayed")
		s.logCodeDenied(ctx, app, record, "Authorization code replay detected", ErrCodeAlreadyUsed)
		return nil, ErrCodeAlreadyUsed
	}
	if record.IsExpired() {
		s.metrics.RecordExchangeRejected(GrantTypeAuthorizationCode, "code_expired")
		return nil, ErrCodeExpired
	}
	if record.RedirectURI != req.RedirectURI {
		s.metrics.RecordExchangeRejected(GrantTypeAuthorizationCode, "redirect_uri_mismatch")
		return nil, ErrRedirectURIMismatch
	}

	// PKCE (RFC 7636): enforced whenever the code was bound to a challenge
	if record.CodeChallenge != "" {
		if req.CodeVerifier == "" {
			s.metrics.RecordExchangeRejected(GrantTypeAuthorizationCode, "verifier_missing")
			return nil, ErrCodeVerifierRequired
		}
		if !verifyPKCE(record.CodeChallenge, record.CodeChallengeMethod, req.CodeVerifier) {
			s.metrics.RecordExchangeRejected(GrantTypeAuthorizationCode, "verifier_mismatch")
			s.logCodeDenied(ctx, app, record, "PKCE verification failed", ErrCodeVerifierMismatch)
			return nil, ErrCodeVerifierMismatch
		}
	}

	// Mark as used atomically (WHERE used_at IS NULL ensures only one concurrent
	// request wins; the loser receives ErrAuthCodeAlreadyUsed from the store).
	now := time.Now()
	if err := s.store.MarkAuthorizationCodeUsed(record.ID); err != nil {
		if errors.Is(err, store.ErrAuthCodeAlreadyUsed) {
			s.metrics.RecordExchangeRejected(GrantTypeAuthorizationCode, "code_replayed")
			s.logCodeDenied(ctx, app, record, "Authorization code lost redemption race", ErrCodeAlreadyUsed)
			return nil, ErrCodeAlreadyUsed
		}
		return nil, fmt.Errorf("failed to mark code as used: %w", err)
	}
	record.UsedAt = &now // Reflect DB state in the returned struct

	pair, err := s.issueTokenPair(app, record.UserID, record.ProfileID, record.Scopes, nil)
	if err != nil {
		return nil, err
	}

	duration := time.Since(start)
	s.metrics.RecordTokenIssued("access", GrantTypeAuthorizationCode, duration)
	s.metrics.RecordTokenIssued("refresh", GrantTypeAuthorizationCode, duration)

	if s.auditService != nil {
		s.auditService.Log(ctx, AuditLogEntry{
			EventType:     models.EventAuthorizationCodeExchanged,
			Severity:      models.SeverityInfo,
			ActorClientID: app.ClientID,
			ActorUserID:   record.UserID,
			ResourceType:  models.ResourceAuthorization,
			ResourceID:    fmt.Sprintf("%d", record.ID),
			Action:        "Authorization code exchanged for token pair",
			Details: models.AuditDetails{
				"scopes":          record.Scopes,
				"pkce":            record.CodeChallenge != "",
				"access_token_id": pair.AccessToken.ID,
			},
			Success: true,
		})
	}

	return pair, nil
}

// ExchangeRefreshToken redeems a refresh token for a new token pair, rotating
// the refresh token. The presented token is stamped rotated_at with a
// conditional update so that only one of any concurrent redemptions succeeds,
// and its paired access token is revoked in the same transaction. Rotated
// tokens are treated as revoked on later redemption attempts.
func (s *TokenService) ExchangeRefreshToken(
	ctx context.Context,
	req RefreshRequest,
) (*TokenPair, error) {
	start := time.Now()

	app, err := s.authenticateClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		s.metrics.RecordTokenRefresh(false)
		s.metrics.RecordExchangeRejected(GrantTypeRefreshToken, "invalid_client")
		return nil, err
	}

	tokenHash := util.SHA256Hex(req.RefreshToken)
	refreshToken, err := s.store.GetRefreshTokenByHash(tokenHash)
	if err != nil {
		s.metrics.RecordTokenRefresh(false)
		s.metrics.RecordExchangeRejected(GrantTypeRefreshToken, "token_not_found")
		return nil, ErrRefreshTokenNotFound
	}

	// Don't reveal the token exists for another client
	if refreshToken.ApplicationID != app.ID {
		s.metrics.RecordTokenRefresh(false)
		s.metrics.RecordExchangeRejected(GrantTypeRefreshToken, "token_not_found")
		return nil, ErrRefreshTokenNotFound
	}

	if refreshToken.IsRevoked() || refreshToken.IsRotated() {
		s.metrics.RecordTokenRefresh(false)
		s.metrics.RecordExchangeRejected(GrantTypeRefreshToken, "token_replayed")
		s.logRefreshReplay(ctx, app, refreshToken)
		return nil, ErrRefreshTokenRevoked
	}
	if refreshToken.IsExpired() {
		s.metrics.RecordTokenRefresh(false)
		s.metrics.RecordExchangeRejected(GrantTypeRefreshToken, "token_expired")
		return nil, ErrRefreshTokenExpired
	}

	tx := s.store.DB().Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	// Rotate atomically: the conditional update loses (0 rows) if another
	// request rotated or revoked this token first.
	now := time.Now()
	result := tx.Model(&models.RefreshToken{}).
		Where("id = ? AND revoked_at IS NULL AND rotated_at IS NULL", refreshToken.ID).
		Update("rotated_at", now)
	if result.Error != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to rotate refresh token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		s.metrics.RecordTokenRefresh(false)
		s.metrics.RecordExchangeRejected(GrantTypeRefreshToken, "token_replayed")
		s.logRefreshReplay(ctx, app, refreshToken)
		return nil, ErrRefreshTokenRevoked
	}

	// Revoke the access token that was issued alongside the presented
	// refresh token, so the old pair dies together.
	if refreshToken.AccessTokenID != 0 {
		err := tx.Model(&models.AccessToken{}).
			Where("id = ? AND revoked_at IS NULL", refreshToken.AccessTokenID).
			Update("revoked_at", now).Error
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to revoke paired access token: %w", err)
		}
	}

	newAccess, newRefresh, err := buildTokenPair(
		app, refreshToken.UserID, refreshToken.ProfileID, refreshToken.Scopes,
		&refreshToken.ID, s.config,
	)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Create(newAccess).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to save new access token: %w", err)
	}
	newRefresh.AccessTokenID = newAccess.ID
	if err := tx.Create(newRefresh).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to save new refresh token: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		s.metrics.RecordTokenRefresh(false)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	duration := time.Since(start)
	s.metrics.RecordTokenRefresh(true)
	s.metrics.RecordTokenIssued("access", GrantTypeRefreshToken, duration)
	s.metrics.RecordTokenIssued("refresh", GrantTypeRefreshToken, duration)
	s.metrics.RecordTokenRevoked("access", "rotation")
	s.metrics.RecordTokenRevoked("refresh", "rotation")

	if s.auditService != nil {
		s.auditService.Log(ctx, AuditLogEntry{
			EventType:     models.EventTokenRefreshed,
			Severity:      models.SeverityInfo,
			ActorClientID: app.ClientID,
			ActorUserID:   refreshToken.UserID,
			ResourceType:  models.ResourceToken,
			ResourceID:    fmt.Sprintf("%d", newRefresh.ID),
			Action:        "Refresh token rotated",
			Details: models.AuditDetails{
				"old_refresh_token_id": refreshToken.ID,
				"new_access_token_id":  newAccess.ID,
				"scopes":               refreshToken.Scopes,
			},
			Success: true,
		})
	}

	return &TokenPair{AccessToken: newAccess, RefreshToken: newRefresh}, nil
}

// RevokeToken invalidates a presented token (RFC 7009). The token may be an
// access or refresh token; unknown tokens are not an error. Revoking a
// refresh token also revokes its paired access token.
func (s *TokenService) RevokeToken(ctx context.Context, clientID, clientSecret, rawToken string) error {
	app, err := s.authenticateClient(ctx, clientID, clientSecret)
	if err != nil {
		return err
	}

	tokenHash := util.SHA256Hex(rawToken)

	if refreshToken, err := s.store.GetRefreshTokenByHash(tokenHash); err == nil {
		if refreshToken.ApplicationID != app.ID {
			return nil // Pretend it does not exist
		}
		if err := s.store.RevokeRefreshTokenByHash(tokenHash); err != nil {
			return fmt.Errorf("failed to revoke refresh token: %w", err)
		}
		if refreshToken.AccessTokenID != 0 {
			err := s.store.DB().Model(&models.AccessToken{}).
				Where("id = ? AND revoked_at IS NULL", refreshToken.AccessTokenID).
				Update("revoked_at", time.Now()).Error
			if err != nil {
				return fmt.Errorf("failed to revoke paired access token: %w", err)
			}
		}
		s.metrics.RecordTokenRevoked("refresh", "user_request")
		s.logTokenRevoked(ctx, app, refreshToken.UserID, fmt.Sprintf("%d", refreshToken.ID), "refresh")
		return nil
	}

	if accessToken, err := s.store.GetAccessTokenByHash(tokenHash); err == nil {
		if accessToken.ApplicationID != app.ID {
			return nil
		}
		if err := s.store.RevokeAccessTokenByHash(tokenHash); err != nil {
			return fmt.Errorf("failed to revoke access token: %w", err)
		}
		s.metrics.RecordTokenRevoked("access", "user_request")
		s.logTokenRevoked(ctx, app, accessToken.UserID, fmt.Sprintf("%d", accessToken.ID), "access")
		return nil
	}

	// Unknown token: succeed silently per RFC 7009 §2.2
	return nil
}

// TokenInfo describes the state of an access token for introspection.
type TokenInfo struct {
	Active    bool
	Status    string
	ClientID  string
	UserID    string
	ProfileID string
	Scopes    string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// IntrospectToken reports the state of an access token.
func (s *TokenService) IntrospectToken(
	ctx context.Context,
	clientID, clientSecret, rawToken string,
) (*TokenInfo, error) {
	app, err := s.authenticateClient(ctx, clientID, clientSecret)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.store.GetAccessTokenByHash(util.SHA256Hex(rawToken))
	if err != nil || accessToken.ApplicationID != app.ID {
		s.metrics.RecordTokenValidation("invalid")
		return &TokenInfo{Active: false, Status: "invalid"}, nil
	}

	status := accessToken.Status()
	s.metrics.RecordTokenValidation(status)

	return &TokenInfo{
		Active:    status == models.TokenStatusActive,
		Status:    status,
		ClientID:  app.ClientID,
		UserID:    accessToken.UserID,
		ProfileID: accessToken.ProfileID,
		Scopes:    accessToken.Scopes,
		ExpiresAt: accessToken.ExpiresAt,
		IssuedAt:  accessToken.CreatedAt,
	}, nil
}

// authenticateClient resolves and authenticates the requesting application.
// Confidential clients must present their secret; public clients must not be
// asked for one. Inactive applications always fail.
func (s *TokenService) authenticateClient(
	ctx context.Context,
	clientID, clientSecret string,
) (*models.ClientApplication, error) {
	if clientID == "" {
		return nil, ErrInvalidClient
	}

	app, err := s.store.GetApplication(clientID)
	if err != nil || !app.IsActive {
		s.logAuthFailure(ctx, clientID, "unknown or inactive client")
		return nil, ErrInvalidClient
	}

	if !app.IsPublic() {
		if clientSecret == "" || !app.ValidateClientSecret([]byte(clientSecret)) {
			s.logAuthFailure(ctx, clientID, "client secret mismatch")
			return nil, ErrInvalidClient
		}
	}

	return app, nil
}

// issueTokenPair mints and persists a fresh access/refresh token pair in one
// transaction.
func (s *TokenService) issueTokenPair(
	app *models.ClientApplication,
	userID, profileID, scopes string,
	previousTokenID *int64,
) (*TokenPair, error) {
	accessToken, refreshToken, err := buildTokenPair(
		app, userID, profileID, scopes, previousTokenID, s.config,
	)
	if err != nil {
		return nil, err
	}

	tx := s.store.DB().Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Create(accessToken).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to save access token: %w", err)
	}
	refreshToken.AccessTokenID = accessToken.ID
	if err := tx.Create(refreshToken).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to save refresh token: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// buildTokenPair generates raw token strings and the persistence records that
// carry only their hashes.
func buildTokenPair(
	app *models.ClientApplication,
	userID, profileID, scopes string,
	previousTokenID *int64,
	cfg *config.Config,
) (*models.AccessToken, *models.RefreshToken, error) {
	rawAccess, err := util.NewOpaqueToken(util.AccessTokenPrefix)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	rawRefresh, err := util.NewOpaqueToken(util.RefreshTokenPrefix)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	now := time.Now()
	accessToken := &models.AccessToken{
		TokenHash:     util.SHA256Hex(rawAccess),
		RawToken:      rawAccess,
		ApplicationID: app.ID,
		UserID:        userID,
		ProfileID:     profileID,
		Scopes:        scopes,
		ExpiresAt:     now.Add(cfg.AccessTokenExpiration),
	}
	refreshToken := &models.RefreshToken{
		TokenHash:       util.SHA256Hex(rawRefresh),
		RawToken:        rawRefresh,
		ApplicationID:   app.ID,
		UserID:          userID,
		ProfileID:       profileID,
		Scopes:          scopes,
		PreviousTokenID: previousTokenID,
		ExpiresAt:       now.Add(cfg.RefreshTokenExpiration),
	}

	return accessToken, refreshToken, nil
}

func (s *TokenService) logAuthFailure(ctx context.Context, clientID, reason string) {
	if s.auditService == nil {
		return
	}
	s.auditService.Log(ctx, AuditLogEntry{
		EventType:     models.EventAuthenticationFailure,
		Severity:      models.SeverityWarning,
		ActorClientID: clientID,
		ResourceType:  models.ResourceClient,
		Action:        "Client authentication failed",
		ErrorMessage:  reason,
		Success:       false,
	})
}

func (s *TokenService) logCodeDenied(
	ctx context.Context,
	app *models.ClientApplication,
	record *models.AuthorizationCode,
	action string,
	cause error,
) {
	if s.auditService == nil {
		return
	}
	eventType := models.EventAuthorizationCodeDenied
	severity := models.SeverityWarning
	if errors.Is(cause, ErrCodeAlreadyUsed) {
		eventType = models.EventReplayDetected
		severity = models.SeverityCritical
	}
	s.auditService.Log(ctx, AuditLogEntry{
		EventType:     eventType,
		Severity:      severity,
		ActorClientID: app.ClientID,
		ActorUserID:   record.UserID,
		ResourceType:  models.ResourceAuthorization,
		ResourceID:    fmt.Sprintf("%d", record.ID),
		Action:        action,
		ErrorMessage:  cause.Error(),
		Success:       false,
	})
}

func (s *TokenService) logRefreshReplay(
	ctx context.Context,
	app *models.ClientApplication,
	token *models.RefreshToken,
) {
	if s.auditService == nil {
		return
	}
	s.auditService.Log(ctx, AuditLogEntry{
		EventType:     models.EventReplayDetected,
		Severity:      models.SeverityCritical,
		ActorClientID: app.ClientID,
		ActorUserID:   token.UserID,
		ResourceType:  models.ResourceToken,
		ResourceID:    fmt.Sprintf("%d", token.ID),
		Action:        "Rotated or revoked refresh token presented",
		ErrorMessage:  ErrRefreshTokenRevoked.Error(),
		Success:       false,
	})
}

func (s *TokenService) logTokenRevoked(
	ctx context.Context,
	app *models.ClientApplication,
	userID, resourceID, tokenType string,
) {
	if s.auditService == nil {
		return
	}
	s.auditService.Log(ctx, AuditLogEntry{
		EventType:     models.EventTokenRevoked,
		Severity:      models.SeverityInfo,
		ActorClientID: app.ClientID,
		ActorUserID:   userID,
		ResourceType:  models.ResourceToken,
		ResourceID:    resourceID,
		Action:        "Token revoked at client request",
		Details:       models.AuditDetails{"token_type": tokenType},
		Success:       true,
	})
}

// verifyPKCE validates code_verifier against the stored code_challenge
// (RFC 7636). S256 compares the base64url-encoded SHA-256 digest of the
// verifier; every other method, including an absent one, falls back to a
// literal comparison.
func verifyPKCE(codeChallenge, method, codeVerifier string) bool {
	if codeVerifier == "" {
		return false
	}
	if method == "S256" {
		sum := sha256.Sum256([]byte(codeVerifier))
		computed := base64.RawURLEncoding.EncodeToString(sum[:])
		return computed == codeChallenge
	}
	return codeVerifier == codeChallenge
}
