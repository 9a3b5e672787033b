// File: internal/auth/state.go
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"desirius_backend/internal/config"
	"desirius_backend/internal/middleware"
	"desirius_backend/internal/platform/crypto"

	"github.com/gin-gonic/gin"
)

var errStateMismatch = errors.New("oauth state mismatch")

func generateAndSetOAuthState(c *gin.Context, cfg *config.Config) (string, error) {
	state, err := crypto.GenerateSecureRandomString(32)
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	middleware.SetCookie(c, cfg, cfg.OAuthStateCookieName, state, cfg.OAuthCookieMaxAgeMinutes*60)
	return state, nil
}

// verifyOAuthState compares the callback state with the cookie set at login. The cookie is
// consumed either way.
func verifyOAuthState(c *gin.Context, cfg *config.Config, got string) error {
	want, err := middleware.TakeCookie(c, cfg, cfg.OAuthStateCookieName)
	if err != nil {
		return err
	}
	if got == "" || subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
		return errStateMismatch
	}
	return nil
}
