package services

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/schoolpulse/identity/internal/config"
	"github.com/schoolpulse/identity/internal/metrics"
	"github.com/schoolpulse/identity/internal/models"
	"github.com/schoolpulse/identity/internal/store"
	"github.com/schoolpulse/identity/internal/util"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testClientPlainSecret = "spc_test-plain-secret" //nolint:gosec
	testRedirectURI       = "https://app.example.com/callback"
	testPKCEVerifier      = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	// Use in-memory SQLite database for testing
	s, err := store.New("sqlite", ":memory:")
	require.NoError(t, err)
	return s
}

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	s := setupTestStore(t)
	cfg := &config.Config{
		AccessTokenExpiration:  1 * time.Hour,
		RefreshTokenExpiration: 720 * time.Hour,
	}
	return NewTokenService(s, cfg, nil, metrics.NewNoopMetrics())
}

// createConfidentialApp creates an active application whose ClientSecret field
// stores the bcrypt hash of testClientPlainSecret.
func createConfidentialApp(t *testing.T, svc *TokenService) *models.ClientApplication {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testClientPlainSecret), bcrypt.MinCost)
	require.NoError(t, err)
	app := &models.ClientApplication{
		ClientID:     uuid.New().String(),
		ClientSecret: string(hash),
		ClientName:   "Test Confidential Client",
		Scopes:       "profile checkins:read",
		IsActive:     true,
	}
	require.NoError(t, svc.store.CreateApplication(app))
	return app
}

func createPublicApp(t *testing.T, svc *TokenService) *models.ClientApplication {
	t.Helper()
	app := &models.ClientApplication{
		ClientID:   uuid.New().String(),
		ClientName: "Test Public Client",
		Scopes:     "profile",
		IsActive:   true,
	}
	require.NoError(t, svc.store.CreateApplication(app))
	return app
}

type codeOverride func(*models.AuthorizationCode)

func seedAuthCode(
	t *testing.T,
	svc *TokenService,
	app *models.ClientApplication,
	overrides ...codeOverride,
) *models.AuthorizationCode {
	t.Helper()
	code := &models.AuthorizationCode{
		Code:          uuid.New().String(),
		ApplicationID: app.ID,
		UserID:        "user-1",
		ProfileID:     "profile-1",
		Scopes:        "profile checkins:read",
		RedirectURI:   testRedirectURI,
		ExpiresAt:     time.Now().Add(10 * time.Minute),
	}
	for _, o := range overrides {
		o(code)
	}
	require.NoError(t, svc.store.CreateAuthorizationCode(code))
	return code
}

func s256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// ============================================================
// ExchangeAuthorizationCode
// ============================================================

func TestExchangeAuthorizationCode_Success(t *testing.T) {
	svc := newTestTokenService(t)
	app := createConfidentialApp(t, svc)
	code := seedAuthCode(t, svc, app)

	pair, err := svc.ExchangeAuthorizationCode(context.Background(), CodeExchangeRequest{
		ClientID:     app.ClientID,
		ClientSecret: testClientPlainSecret,
		Code:         code.Code,
		RedirectURI:  testRedirectURI,
	})
	require.NoError(t, err)

	// Raw token values come back exactly once, with their type prefixes
	assert.True(t, strings.HasPrefix(pair.AccessToken.RawToken, util.AccessTokenPrefix))
	assert.True(t, strings.HasPrefix(pair.RefreshToken.RawToken, util.RefreshTokenPrefix))

	// Scope and subject carry through from the code
	assert.Equal(t, code.Scopes, pair.AccessToken.Scopes)
	assert.Equal(t, code.UserID, pair.AccessToken.UserID)
	assert.Equal(t, code.ProfileID, pair.AccessToken.ProfileID)
	assert.Equal(t, code.Scopes, pair.RefreshToken.Scopes)

	// The refresh token links to its paired access token, no ancestry yet
	assert.Equal(t, pair.AccessToken.ID, pair.RefreshToken.AccessTokenID)
	assert.Nil(t, pair.RefreshToken.PreviousTokenID)
}

func TestExchangeAuthorizationCode_PersistsHashOnly(t *testing.T) {
	svc := newTestTokenService(t)
	app := createConfidentialApp(t, svc)
	code := seedAuthCode(t, svc, app)

	pair, err := svc.ExchangeAuthorizationCode(context.Background(), CodeExchangeRequest{
		ClientID:     app.ClientID,
		ClientSecret: testClientPlainSecret,
		Code:         code.Code,
		RedirectURI:  testRedirectURI,
	})
	require.NoError(t, err)

	stored, err := svc.store.GetAccessTokenByHash(util.SHA256Hex(pair.AccessToken.RawToken))
	require.NoError(t, err)
	assert.Equal(t, pair.AccessToken.ID, stored.ID)
	assert.Empty(t, stored.RawToken, "raw token must not survive a database round trip")

	storedRefresh, err := svc.store.GetRefreshTokenByHash(util.SHA256Hex(pair.RefreshToken.RawToken))
	require.NoError(t, err)
	assert.Empty(t, storedRefresh.RawToken)
}

func TestExchangeAuthorizationCode_UnknownClient(t *testing.T) {
	svc := newTestTokenService(t)

	_, err := svc.ExchangeAuthorizationCode(context.Background(), CodeExchangeRequest{
		ClientID:     "nonexistent",
		ClientSecret: "whatever",
		Code:         "some-code",
		RedirectURI:  testRedirectURI,
	})
	assert.ErrorIs(t, err, ErrInvalidClient)
}

func TestExchangeAuthorizationCode_WrongSecret(t *testing.T) {
	svc := newTestTokenService(t)
	app := createConfidentialApp(t, svc)
	code := seedAuthCode(t, svc, app)

	_, err := svc.ExchangeAuthorizationCode(context.Background(), CodeExchangeRequest{
		ClientID:     app.ClientID,
		ClientSecret: "spc_wrong",
		Code:         code.Code,
		RedirectURI:  testRedirectURI,
	})
	assert.ErrorIs(t, err, ErrInvalidClient)
}

func TestExchangeAuthorizationCode_InactiveClient(t *testing.T) {
	svc := newTestTokenService(t)
	app := createConfidentialApp(t, svc)
	app.IsActive = false
	require.NoError(t, svc.store.UpdateApplication(app))

	_, err := svc.ExchangeAuthorizationCode(context.Background(), CodeExchangeRequest{
		ClientID:     app.ClientID,
		ClientSecret: testClientPlainSecret,
		Code:         "irrelevant",
		RedirectURI:  testRedirectURI,
	})
	assert.ErrorIs(t, err, ErrInvalidClient)
}

func TestExchangeAuthorizationCode_UnknownCode(t *testing.T) {
	svc := newTestTokenService(t)
	app := createConfidentialApp(t, svc)

	_, err := svc.ExchangeAuthorizationCode(context.Background(), CodeExchangeRequest{
		ClientID:     app.ClientID,
		ClientSecret: testClientPlainSecret,
		Code:         "never-issued",
		RedirectURI:  testRedirectURI,
	})
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestExchangeAuthorizationCode_CodeBoundToOtherClient(t *testing.T) {
	svc := newTestTokenService(t)
	owner := createConfidentialApp(t, svc)
	thief := createConfidentialApp(t, svc)
	code := seedAuthCode(t, svc, owner)

	// A code minted for another application reads as nonexistent
	_, err := svc.ExchangeAuthorizationCode(context.Background(), CodeExchangeRequest{
		ClientID:     thief.ClientID,
		ClientSecret: testClientPlainSecret,
		Code:         code.Code,
		RedirectURI:  testRedirectURI,
	})
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestExchangeAuthorizationCode_Replay(t *testing.T) {
	svc := newTestTokenService(t)
	app := createConfidentialApp(t, svc)
	code := seedAuthCode(t, svc, app)

	req := CodeExchangeRequest{
		ClientID:     app.ClientID,
		ClientSecret: testClientPlainSecret,
		Code:         code.Code,
		RedirectURI:  testRedirectURI,
	}

	_, err := svc.ExchangeAuthorizationCode(context.Background(), req)
	require.NoError(t, err)

	// Redeeming the same code again must fail
	_, err = svc.ExchangeAuthorizationCode(context.Background(), req)
	assert.ErrorIs(t, err, ErrCodeAlreadyUsed)
}

// Concurrent redemptions of one code: the conditional mark-used update lets
// exactly one request win, every other one loses the race.
func TestExchangeAuthorizationCode_ConcurrentRedemption(t *testing.T) {
	svc := newTestTokenService(t)
	app := createConfidentialApp(t, svc)
	code := seedAuthCode(t, svc, app)

	// An in-memory sqlite database exists per connection; pin the pool to a
	// single connection so every goroutine sees the same database.
	sqlDB, err := svc.store.DB().DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	const workers = 8
	start := make(chan struct{})
	results := make(chan error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.ExchangeAuthorizationCode(context.Background(), CodeExchangeRequest{
				ClientID:     app.ClientID,
				ClientSecret: testClientPlainSecret,
				Code:         code.Code,
				RedirectURI:  testRedirectURI,
			})
			results <- err
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	var wins, losses int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrCodeAlreadyUsed):
			losses++
		default:
			t.Fatalf("unexpected exchange error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, workers-1, losses)
}

func TestExchangeAuthorizationCode_Expired(t *testing.T) {
	svc := newTestTokenService(t)
	app := createConfidentialApp(t, svc)
	code := seedAuthCode(t, svc, app, func(c *models.AuthorizationCode) {
		c.ExpiresAt = time.Now().Add(-1 * time.Second)
	})

	_, err := svc.ExchangeAuthorizationCode(context.Background(), CodeExchangeRequest{
		ClientID:     app.ClientID,
		ClientSecret: testClientPlainSecret,
		Code:         code.Code,
		RedirectURI:  testRedirectURI,
	})
	assert.ErrorIs(t, err, ErrCodeExpired)

	// An expired code stays unused
	stored, err := svc.store.GetAuthorizationCode(code.Code, app.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsUsed())
}

func TestExchangeAuthorizationCode_RedirectURIMismatch(t *testing.T) {
	svc := newTestTokenService(t)
	app := createConfidentialApp(t, svc)
	code := seedAuthCode(t, svc, app)

	_, err := svc.ExchangeAuthorizationCode(context.Background(), CodeExchangeRequest{
		ClientID:     app.ClientID,
		ClientSecret: testClientPlainSecret,
		Code:         code.Code,
		RedirectURI:  "https://evil.example.com/callback",
	})
	assert.ErrorIs(t, err, ErrRedirectURIMismatch)
}

func TestExchangeAuthorizationCode_PKCES256(t *testing.T) {
	svc := newTestTokenService(t)
	app := createPublicApp(t, svc)
	code := seedAuthCode(t, svc, app, func(c *models.AuthorizationCode) {
		c.CodeChallenge = s256Challenge(testPKCEVerifier)
		c.CodeChallengeMethod = "S256"
	})

	pair, err := svc.ExchangeAuthorizationCode(context.Background(), CodeExchangeRequest{
		ClientID:     app.ClientID,
		Code:         code.Code,
		RedirectURI:  testRedirectURI,
		CodeVerifier: testPKCEVerifier,
	})
	require.NoError(t, err)
	assert.NotNil(t, pair.AccessToken)
}

func TestExchangeAuthorizationCode_PKCEWrongVerifier(t *testing.T) {
	svc := newTestTokenService(t)
	app := createPublicApp(t, svc)
	code := seedAuthCode(t, svc, app, func(c *models.AuthorizationCode) {
		c.CodeChallenge = s256Challenge(testPKCEVerifier)
		c.CodeChallengeMethod = "S256"
	})

	_, err := svc.ExchangeAuthorizationCode(context.Background(), CodeExchangeRequest{
		ClientID:     app.ClientID,
		Code:         code.Code,
		RedirectURI:  testRedirectURI,
		CodeVerifier: "not-the-right-verifier-at-all-but-long-enough",
	})
	assert.ErrorIs(t, err, ErrCodeVerifierMismatch)

	// Failed PKCE must not consume the code
	stored, err := svc.store.GetAuthorizationCode(code.Code, app.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsUsed())
}

func TestExchangeAuthorizationCode_PKCEVerifierMissing(t *testing.T) {
	svc := newTestTokenService(t)
	app := createPublicApp(t, svc)
	code := seedAuthCode(t, svc, app, func(c *models.AuthorizationCode) {
		c.CodeChallenge = s256Challenge(testPKCEVerifier)
		c.CodeChallengeMethod = "S256"
	})

	_, err := svc.ExchangeAuthorizationCode(context.Background(), CodeExchangeRequest{
		ClientID:    app.ClientID,
		Code:        code.Code,
		RedirectURI: testRedirectURI,
	})
	assert.ErrorIs(t, err, ErrCodeVerifierRequired)
}

func TestExchangeAuthorizationCode_PKCEPlainMethod(t *testing.T) {
	svc := newTestTokenService(t)
	app := createPublicApp(t, svc)
	code := seedAuthCode(t, svc, app, func(c *models.AuthorizationCode) {
		c.CodeChallenge = "literal-challenge-value"
		c.CodeChallengeMethod = "plain"
	})

	_, err := svc.ExchangeAuthorizationCode(context.Background(), CodeExchangeRequest{
		ClientID:     app.ClientID,
		Code:         code.Code,
		RedirectURI:  testRedirectURI,
		CodeVerifier: "literal-challenge-value",
	})
	require.NoError(t, err)
}

func TestExchangeAuthorizationCode_NoChallengeSkipsPKCE(t *testing.T) {
	svc := newTestTokenService(t)
	app := createConfidentialApp(t, svc)
	code := seedAuthCode(t, svc, app)

	// Verifier is ignored when the code carries no challenge
	_, err := svc.ExchangeAuthorizationCode(context.Background(), CodeExchangeRequest{
		ClientID:     app.ClientID,
		ClientSecret: testClientPlainSecret,
		Code:         code.Code,
		RedirectURI:  testRedirectURI,
		CodeVerifier: "stray-verifier",
	})
	require.NoError(t, err)
}

// ============================================================
// ExchangeRefreshToken
// ============================================================

func issueInitialPair(t *testing.T, svc *TokenService, app *models.ClientApplication) *TokenPair {
	t.Helper()
	code := seedAuthCode(t, svc, app)
	pair, err := svc.ExchangeAuthorizationCode(context.Background(), CodeExchangeRequest{
		ClientID:     app.ClientID,
		ClientSecret: testClientPlainSecret,
		Code:         code.Code,
		RedirectURI:  testRedirectURI,
	})
	require.NoError(t, err)
	return pair
}

func TestExchangeRefreshToken_Rotation(t *testing.T) {
	svc := newTestTokenService(t)
	app := createConfidentialApp(t, svc)
	initial := issueInitialPair(t, svc, app)

	newPair, err := svc.ExchangeRefreshToken(context.Background(), RefreshRequest{
		ClientID:     app.ClientID,
		ClientSecret: testClientPlainSecret,
		RefreshToken: initial.RefreshToken.RawToken,
	})
	require.NoError(t, err)

	// Fresh raw values, not the old ones
	assert.NotEqual(t, initial.AccessToken.RawToken, newPair.AccessToken.RawToken)
	assert.NotEqual(t, initial.RefreshToken.RawToken, newPair.RefreshToken.RawToken)

	// Subject and scope carry forward
	assert.Equal(t, initial.RefreshToken.UserID, newPair.RefreshToken.UserID)
	assert.Equal(t, initial.RefreshToken.ProfileID, newPair.RefreshToken.ProfileID)
	assert.Equal(t, initial.RefreshToken.Scopes, newPair.AccessToken.Scopes)

	// Ancestry chain recorded
	require.NotNil(t, newPair.RefreshToken.PreviousTokenID)
	assert.Equal(t, initial.RefreshToken.ID, *newPair.RefreshToken.PreviousTokenID)

	// Old refresh token is rotated, old access token is revoked
	oldRefresh, err := svc.store.GetRefreshTokenByHash(initial.RefreshToken.TokenHash)
	require.NoError(t, err)
	assert.True(t, oldRefresh.IsRotated())

	oldAccess, err := svc.store.GetAccessTokenByHash(initial.AccessToken.TokenHash)
	require.NoError(t, err)
	assert.True(t, oldAccess.IsRevoked())
}

func TestExchangeRefreshToken_ReplayAfterRotation(t *testing.T) {
	svc := newTestTokenService(t)
	app := createConfidentialApp(t, svc)
	initial := issueInitialPair(t, svc, app)

	req := RefreshRequest{
		ClientID:     app.ClientID,
		ClientSecret: testClientPlainSecret,
		RefreshToken: initial.RefreshToken.RawToken,
	}

	_, err := svc.ExchangeRefreshToken(context.Background(), req)
	require.NoError(t, err)

	// Presenting the rotated token again must be rejected
	_, err = svc.ExchangeRefreshToken(context.Background(), req)
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked)
}

func TestExchangeRefreshToken_Revoked(t *testing.T) {
	svc := newTestTokenService(t)
	app := createConfidentialApp(t, svc)
	initial := issueInitialPair(t, svc, app)

	require.NoError(t, svc.store.RevokeRefreshTokenByHash(initial.RefreshToken.TokenHash))

	_, err := svc.ExchangeRefreshToken(context.Background(), RefreshRequest{
		ClientID:     app.ClientID,
		ClientSecret: testClientPlainSecret,
		RefreshToken: initial.RefreshToken.RawToken,
	})
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked)
}

func TestExchangeRefreshToken_Expired(t *testing.T) {
	svc := newTestTokenService(t)
	app := createConfidentialApp(t, svc)
	initial := issueInitialPair(t, svc, app)

	err := svc.store.DB().Model(&models.RefreshToken{}).
		Where("id = ?", initial.RefreshToken.ID).
		Update("expires_at", time.Now().Add(-1*time.Second)).Error
	require.NoError(t, err)

	_, err = svc.ExchangeRefreshToken(context.Background(), RefreshRequest{
		ClientID:     app.ClientID,
		ClientSecret: testClientPlainSecret,
		RefreshToken: initial.RefreshToken.RawToken,
	})
	assert.ErrorIs(t, err, ErrRefreshTokenExpired)
}

func TestExchangeRefreshToken_UnknownToken(t *testing.T) {
	svc := newTestTokenService(t)
	app := createConfidentialApp(t, svc)

	_, err := svc.ExchangeRefreshToken(context.Background(), RefreshRequest{
		ClientID:     app.ClientID,
		ClientSecret: testClientPlainSecret,
		RefreshToken: "spr_never-issued",
	})
	assert.ErrorIs(t, err, ErrRefreshTokenNotFound)
}

func TestExchangeRefreshToken_TokenBoundToOtherClient(t *testing.T) {
	svc := newTestTokenService(t)
	owner := createConfidentialApp(t, svc)
	thief := createConfidentialApp(t, svc)
	initial := issueInitialPair(t, svc, owner)

	_, err := svc.ExchangeRefreshToken(context.Background(), RefreshRequest{
		ClientID:     thief.ClientID,
		ClientSecret: testClientPlainSecret,
		RefreshToken: initial.RefreshToken.RawToken,
	})
	assert.ErrorIs(t, err, ErrRefreshTokenNotFound)
}

func TestExchangeRefreshToken_ChainAcrossRotations(t *testing.T) {
	svc := newTestTokenService(t)
	app := createConfidentialApp(t, svc)
	initial := issueInitialPair(t, svc, app)

	second, err := svc.ExchangeRefreshToken(context.Background(), RefreshRequest{
		ClientID:     app.ClientID,
		ClientSecret: testClientPlainSecret,
		RefreshToken: initial.RefreshToken.RawToken,
	})
	require.NoError(t, err)

	third, err := svc.ExchangeRefreshToken(context.Background(), RefreshRequest{
		ClientID:     app.ClientID,
		ClientSecret: testClientPlainSecret,
		RefreshToken: second.RefreshToken.RawToken,
	})
	require.NoError(t, err)

	require.NotNil(t, third.RefreshToken.PreviousTokenID)
	assert.Equal(t, second.RefreshToken.ID, *third.RefreshToken.PreviousTokenID)
	require.NotNil(t, second.RefreshToken.PreviousTokenID)
	assert.Equal(t, initial.RefreshToken.ID, *second.RefreshToken.PreviousTokenID)
}

// ============================================================
// RevokeToken / IntrospectToken
// ============================================================

func TestRevokeToken_RefreshTokenRevokesPair(t *testing.T) {
	svc := newTestTokenService(t)
	app := createConfidentialApp(t, svc)
	initial := issueInitialPair(t, svc, app)

	err := svc.RevokeToken(
		context.Background(),
		app.ClientID, testClientPlainSecret,
		initial.RefreshToken.RawToken,
	)
	require.NoError(t, err)

	refresh, err := svc.store.GetRefreshTokenByHash(initial.RefreshToken.TokenHash)
	require.NoError(t, err)
	assert.True(t, refresh.IsRevoked())

	access, err := svc.store.GetAccessTokenByHash(initial.AccessToken.TokenHash)
	require.NoError(t, err)
	assert.True(t, access.IsRevoked())
}

func TestRevokeToken_AccessToken(t *testing.T) {
	svc := newTestTokenService(t)
	app := createConfidentialApp(t, svc)
	initial := issueInitialPair(t, svc, app)

	err := svc.RevokeToken(
		context.Background(),
		app.ClientID, testClientPlainSecret,
		initial.AccessToken.RawToken,
	)
	require.NoError(t, err)

	access, err := svc.store.GetAccessTokenByHash(initial.AccessToken.TokenHash)
	require.NoError(t, err)
	assert.True(t, access.IsRevoked())

	// The refresh token is untouched
	refresh, err := svc.store.GetRefreshTokenByHash(initial.RefreshToken.TokenHash)
	require.NoError(t, err)
	assert.False(t, refresh.IsRevoked())
}

func TestRevokeToken_UnknownTokenIsNotAnError(t *testing.T) {
	svc := newTestTokenService(t)
	app := createConfidentialApp(t, svc)

	err := svc.RevokeToken(
		context.Background(),
		app.ClientID, testClientPlainSecret,
		"spa_never-issued",
	)
	assert.NoError(t, err)
}

func TestIntrospectToken(t *testing.T) {
	svc := newTestTokenService(t)
	app := createConfidentialApp(t, svc)
	initial := issueInitialPair(t, svc, app)

	info, err := svc.IntrospectToken(
		context.Background(),
		app.ClientID, testClientPlainSecret,
		initial.AccessToken.RawToken,
	)
	require.NoError(t, err)
	assert.True(t, info.Active)
	assert.Equal(t, models.TokenStatusActive, info.Status)
	assert.Equal(t, "user-1", info.UserID)
	assert.Equal(t, app.ClientID, info.ClientID)

	// After revocation the token reports inactive
	require.NoError(t, svc.store.RevokeAccessTokenByHash(initial.AccessToken.TokenHash))
	info, err = svc.IntrospectToken(
		context.Background(),
		app.ClientID, testClientPlainSecret,
		initial.AccessToken.RawToken,
	)
	require.NoError(t, err)
	assert.False(t, info.Active)
	assert.Equal(t, models.TokenStatusRevoked, info.Status)

	// Unknown token reports inactive without error
	info, err = svc.IntrospectToken(
		context.Background(),
		app.ClientID, testClientPlainSecret,
		"spa_unknown",
	)
	require.NoError(t, err)
	assert.False(t, info.Active)
	assert.Equal(t, "invalid", info.Status)
}

// ============================================================
// verifyPKCE
// ============================================================

func TestVerifyPKCE(t *testing.T) {
	challenge := s256Challenge(testPKCEVerifier)

	tests := []struct {
		name      string
		challenge string
		method    string
		verifier  string
		want      bool
	}{
		{
			name:      "S256 match",
			challenge: challenge,
			method:    "S256",
			verifier:  testPKCEVerifier,
			want:      true,
		},
		{
			// Method dispatch is case sensitive; "s256" is not S256 and
			// compares literally, so the digest does not match.
			name:      "lowercase s256 falls back to literal comparison",
			challenge: challenge,
			method:    "s256",
			verifier:  testPKCEVerifier,
			want:      false,
		},
		{
			name:      "lowercase s256 literal match",
			challenge: testPKCEVerifier,
			method:    "s256",
			verifier:  testPKCEVerifier,
			want:      true,
		},
		{
			name:      "S256 mismatch",
			challenge: challenge,
			method:    "S256",
			verifier:  "something-else-entirely",
			want:      false,
		},
		{
			name:      "plain match",
			challenge: "literal",
			method:    "plain",
			verifier:  "literal",
			want:      true,
		},
		{
			name:      "empty method falls back to literal comparison",
			challenge: "literal",
			method:    "",
			verifier:  "literal",
			want:      true,
		},
		{
			name:      "unknown method falls back to literal comparison",
			challenge: "literal",
			method:    "S512",
			verifier:  "literal",
			want:      true,
		},
		{
			name:      "unknown method literal mismatch",
			challenge: "literal",
			method:    "S512",
			verifier:  "other",
			want:      false,
		},
		{
			name:      "empty verifier always fails",
			challenge: "literal",
			method:    "plain",
			verifier:  "",
			want:      false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := verifyPKCE(tt.challenge, tt.method, tt.verifier)
			assert.Equal(t, tt.want, got)
		})
	}
}
