package bootstrap

import (
	"github.com/schoolpulse/identity/internal/config"
	"github.com/schoolpulse/identity/internal/handlers"
	"github.com/schoolpulse/identity/internal/services"
)

// TokenHandlerSet holds the OAuth HTTP handlers
type TokenHandlerSet struct {
	token *handlers.TokenHandler
}

// initializeHandlers creates all HTTP handlers
func initializeHandlers(cfg *config.Config, tokenService *services.TokenService) *TokenHandlerSet {
	return &TokenHandlerSet{
		token: handlers.NewTokenHandler(tokenService, cfg),
	}
}
