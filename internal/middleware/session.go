// File: internal/middleware/session.go
package middleware

import (
	"context"

	"desirius_backend/internal/common"
	"desirius_backend/internal/config"
	"desirius_backend/internal/session"
	"desirius_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionOpener resolves the controller for a browser session ID.
type SessionOpener interface {
	Open(ctx context.Context, id string) *session.Controller
}

// SessionLoader identifies the browser by its session cookie, issuing a new ID when the
// cookie is missing or malformed, and puts the browser's controller on the request.
func SessionLoader(opener SessionOpener, cfg *config.Config, logger *zap.Logger) gin.HandlerFunc {
	maxAge := int(cfg.SessionIdleTTL.Seconds())
	return func(c *gin.Context) {
		id, err := c.Cookie(cfg.SessionCookieName)
		if err != nil || uuid.Validate(id) != nil {
			id = uuid.NewString()
			RequestLogger(c, logger).Debug("Issuing new browser session", zap.String("session", shortSessionID(id)))
		}
		// refreshed on every request so the cookie and the registry entry idle out together
		SetCookie(c, cfg, cfg.SessionCookieName, id, maxAge)

		c.Set(common.SessionIDKey, id)
		c.Set(common.ControllerKey, opener.Open(c.Request.Context(), id))
		c.Next()
	}
}

// RequireSession lets the request through only when the browser is signed in. A state that
// is still loading or signed out is checked against the provider once before rejecting.
func RequireSession(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctrl := CurrentController(c)
		if ctrl == nil {
			RequestLogger(c, logger).Error("RequireSession used without SessionLoader", zap.String("path", c.Request.URL.Path))
			common.RespondWithError(c, common.ErrInternalServer)
			return
		}

		st := ctrl.State()
		if st.IsLoading || !st.IsAuthenticated {
			ctrl.CheckSession(c.Request.Context())
			st = ctrl.State()
		}
		if !st.IsAuthenticated || st.Profile == nil {
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Entre na sua conta para continuar"))
			return
		}

		c.Set(common.ProfileKey, st.Profile)
		c.Next()
	}
}

// CurrentController returns the browser's controller, or nil outside SessionLoader.
func CurrentController(c *gin.Context) *session.Controller {
	return session.FromContext(c)
}

// CurrentProfile returns the profile set by RequireSession.
func CurrentProfile(c *gin.Context) (*shared.Profile, bool) {
	v, ok := c.Get(common.ProfileKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*shared.Profile)
	return p, ok && p != nil
}
