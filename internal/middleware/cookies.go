// File: internal/middleware/cookies.go
package middleware

import (
	"fmt"
	"net/http"

	"desirius_backend/internal/config"

	"github.com/gin-gonic/gin"
)

// SetCookie writes a cookie with the configured domain and security attributes.
// maxAge follows http.Cookie: negative deletes, zero makes a browser-session cookie.
func SetCookie(c *gin.Context, cfg *config.Config, name, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   cfg.OAuthCookieDomain,
		MaxAge:   maxAge,
		Secure:   cfg.OAuthCookieSecure,
		HttpOnly: cfg.OAuthCookieHTTPOnly,
		SameSite: ParseSameSite(cfg.OAuthCookieSameSite),
	})
}

// TakeCookie reads a cookie and deletes it from the browser.
func TakeCookie(c *gin.Context, cfg *config.Config, name string) (string, error) {
	cookie, err := c.Request.Cookie(name)
	if err != nil {
		return "", fmt.Errorf("%s cookie not found: %w", name, err)
	}
	SetCookie(c, cfg, name, "", -1)
	return cookie.Value, nil
}

func ParseSameSite(s string) http.SameSite {
	switch s {
	case "Strict":
		return http.SameSiteStrictMode
	case "None":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
