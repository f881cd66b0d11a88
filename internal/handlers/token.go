package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/schoolpulse/identity/internal/config"
	"github.com/schoolpulse/identity/internal/services"

	"github.com/gin-gonic/gin"
)

const (
	// errInvalidGrant is reused across the grant error paths
	errInvalidGrant = "invalid_grant"
	// errInvalidRequest covers missing or malformed parameters
	errInvalidRequest = "invalid_request"
)

type TokenHandler struct {
	tokenService *services.TokenService
	config       *config.Config
}

func NewTokenHandler(ts *services.TokenService, cfg *config.Config) *TokenHandler {
	return &TokenHandler{
		tokenService: ts,
		config:       cfg,
	}
}

// Token godoc
//
//	@Summary		Request access token
//	@Description	Exchange an authorization code or refresh token for an access token (RFC 6749)
//	@Tags			OAuth
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			grant_type		formData	string																							true	"Grant type: 'authorization_code' or 'refresh_token'"
//	@Param			client_id		formData	string																							true	"OAuth client ID (may also be sent via HTTP Basic Auth)"
//	@Param			client_secret	formData	string																							false	"Client secret (confidential clients only)"
//	@Param			code			formData	string																							false	"Authorization code (required when grant_type=authorization_code)"
//	@Param			redirect_uri	formData	string																							false	"Redirect URI the code was issued for"
//	@Param			code_verifier	formData	string																							false	"PKCE code verifier"
//	@Param			refresh_token	formData	string																							false	"Refresh token (required when grant_type=refresh_token)"
//	@Success		200				{object}	object{access_token=string,refresh_token=string,token_type=string,expires_in=int,scope=string}	"Tokens issued successfully"
//	@Failure		400				{object}	object{error=string,error_description=string}													"Invalid request (unsupported_grant_type, invalid_request, invalid_grant)"
//	@Failure		401				{object}	object{error=string,error_description=string}													"Client authentication failed (invalid_client)"
//	@Failure		429				{object}	object{error=string,error_description=string}													"Rate limit exceeded"
//	@Failure		500				{object}	object{error=string,error_description=string}													"Internal server error"
//	@Router			/oauth/token [post]
func (h *TokenHandler) Token(c *gin.Context) {
	grantType := c.PostForm("grant_type")

	switch grantType {
	case services.GrantTypeAuthorizationCode:
		h.handleAuthorizationCodeGrant(c)
	case services.GrantTypeRefreshToken:
		h.handleRefreshTokenGrant(c)
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "unsupported_grant_type",
			"error_description": "Supported grant types: authorization_code, refresh_token",
		})
	}
}

// handleAuthorizationCodeGrant handles the authorization_code grant type (RFC 6749 §4.1.3).
func (h *TokenHandler) handleAuthorizationCodeGrant(c *gin.Context) {
	clientID, clientSecret := h.clientCredentials(c)
	code := c.PostForm("code")
	redirectURI := c.PostForm("redirect_uri")
	codeVerifier := c.PostForm("code_verifier") // PKCE; empty when the code carried no challenge

	if code == "" || redirectURI == "" || clientID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             errInvalidRequest,
			"error_description": "code, redirect_uri and client_id are required",
		})
		return
	}

	pair, err := h.tokenService.ExchangeAuthorizationCode(c.Request.Context(), services.CodeExchangeRequest{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Code:         code,
		RedirectURI:  redirectURI,
		CodeVerifier: codeVerifier,
	})
	if err != nil {
		h.writeGrantError(c, err)
		return
	}

	h.writeTokenPair(c, pair)
}

// handleRefreshTokenGrant handles the refresh_token grant type (RFC 6749 §6).
func (h *TokenHandler) handleRefreshTokenGrant(c *gin.Context) {
	clientID, clientSecret := h.clientCredentials(c)
	refreshToken := c.PostForm("refresh_token")

	if refreshToken == "" || clientID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             errInvalidRequest,
			"error_description": "refresh_token and client_id are required",
		})
		return
	}

	pair, err := h.tokenService.ExchangeRefreshToken(c.Request.Context(), services.RefreshRequest{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RefreshToken: refreshToken,
	})
	if err != nil {
		h.writeGrantError(c, err)
		return
	}

	h.writeTokenPair(c, pair)
}

// Revoke godoc
//
//	@Summary		Revoke token
//	@Description	Revoke an access token or refresh token (RFC 7009). Returns 200 for both successful revocation and unknown tokens to prevent token scanning attacks.
//	@Tags			OAuth
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			token			formData	string											true	"Token to revoke (access token or refresh token)"
//	@Param			token_type_hint	formData	string											false	"Token type hint: 'access_token' or 'refresh_token'"
//	@Success		200				{string}	string											"Token revoked successfully (or unknown token)"
//	@Failure		400				{object}	object{error=string,error_description=string}	"Invalid request (token parameter missing)"
//	@Failure		401				{object}	object{error=string,error_description=string}	"Client authentication failed (invalid_client)"
//	@Router			/oauth/revoke [post]
func (h *TokenHandler) Revoke(c *gin.Context) {
	clientID, clientSecret := h.clientCredentials(c)

	// RFC 7009 specifies that the token parameter is REQUIRED
	rawToken := c.PostForm("token")
	if rawToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             errInvalidRequest,
			"error_description": "token parameter is required",
		})
		return
	}

	// token_type_hint is accepted but not needed; the token prefix and the
	// hash lookup order disambiguate refresh and access tokens.

	err := h.tokenService.RevokeToken(c.Request.Context(), clientID, clientSecret, rawToken)
	if err != nil {
		if errors.Is(err, services.ErrInvalidClient) {
			h.writeInvalidClient(c)
			return
		}
		// RFC 7009 §2.2: respond with 200 whether or not the submitted
		// token was known, to prevent token scanning attacks.
		c.Status(http.StatusOK)
		return
	}

	c.Status(http.StatusOK)
}

// TokenInfo godoc
//
//	@Summary		Introspect access token
//	@Description	Report whether an access token is active and its metadata (RFC 7662 style introspection)
//	@Tags			OAuth
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			token	formData	string																						true	"Access token to introspect"
//	@Success		200		{object}	object{active=bool,status=string,client_id=string,sub=string,scope=string,exp=int,iss=string}	"Introspection result"
//	@Failure		400		{object}	object{error=string,error_description=string}												"Invalid request (token parameter missing)"
//	@Failure		401		{object}	object{error=string,error_description=string}												"Client authentication failed (invalid_client)"
//	@Router			/oauth/tokeninfo [post]
func (h *TokenHandler) TokenInfo(c *gin.Context) {
	clientID, clientSecret := h.clientCredentials(c)

	rawToken := c.PostForm("token")
	if rawToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             errInvalidRequest,
			"error_description": "token parameter is required",
		})
		return
	}

	info, err := h.tokenService.IntrospectToken(c.Request.Context(), clientID, clientSecret, rawToken)
	if err != nil {
		if errors.Is(err, services.ErrInvalidClient) {
			h.writeInvalidClient(c)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":             "server_error",
			"error_description": "Token introspection failed",
		})
		return
	}

	// RFC 7662 §2.2: an inactive token gets a bare active=false response so
	// callers cannot probe metadata of tokens they do not hold.
	if !info.Active {
		c.JSON(http.StatusOK, gin.H{
			"active": false,
			"status": info.Status,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"active":     true,
		"status":     info.Status,
		"client_id":  info.ClientID,
		"sub":        info.UserID,
		"profile_id": info.ProfileID,
		"scope":      info.Scopes,
		"exp":        info.ExpiresAt.Unix(),
		"iat":        info.IssuedAt.Unix(),
		"iss":        h.config.BaseURL,
	})
}

// clientCredentials extracts client authentication from HTTP Basic Auth
// (preferred per RFC 6749 §2.3.1) or from the form body.
func (h *TokenHandler) clientCredentials(c *gin.Context) (clientID, clientSecret string) {
	clientID, clientSecret, ok := c.Request.BasicAuth()
	if !ok {
		clientID = c.PostForm("client_id")
		clientSecret = c.PostForm("client_secret")
	}
	return clientID, clientSecret
}

// writeTokenPair renders a successful token response (RFC 6749 §5.1).
func (h *TokenHandler) writeTokenPair(c *gin.Context, pair *services.TokenPair) {
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken.RawToken,
		"refresh_token": pair.RefreshToken.RawToken,
		"token_type":    "Bearer",
		"expires_in":    int(time.Until(pair.AccessToken.ExpiresAt).Seconds()),
		"scope":         pair.AccessToken.Scopes,
	})
}

// writeGrantError maps service errors onto RFC 6749 §5.2 error codes.
func (h *TokenHandler) writeGrantError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidClient):
		h.writeInvalidClient(c)
	case errors.Is(err, services.ErrCodeVerifierRequired):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             errInvalidRequest,
			"error_description": "code_verifier is required for this authorization code",
		})
	case errors.Is(err, services.ErrCodeNotFound),
		errors.Is(err, services.ErrCodeAlreadyUsed),
		errors.Is(err, services.ErrCodeExpired),
		errors.Is(err, services.ErrRedirectURIMismatch),
		errors.Is(err, services.ErrCodeVerifierMismatch):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             errInvalidGrant,
			"error_description": "Authorization code is invalid, expired, or already used",
		})
	case errors.Is(err, services.ErrRefreshTokenNotFound),
		errors.Is(err, services.ErrRefreshTokenExpired),
		errors.Is(err, services.ErrRefreshTokenRevoked):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             errInvalidGrant,
			"error_description": "Refresh token is invalid, expired, or revoked",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":             "server_error",
			"error_description": "Token issuance failed",
		})
	}
}

// writeInvalidClient renders the RFC 6749 §5.2 invalid_client response,
// using 401 with a WWW-Authenticate challenge.
func (h *TokenHandler) writeInvalidClient(c *gin.Context) {
	c.Header("WWW-Authenticate", `Basic realm="schoolpulse"`)
	c.JSON(http.StatusUnauthorized, gin.H{
		"error":             "invalid_client",
		"error_description": "Client authentication failed",
	})
}
