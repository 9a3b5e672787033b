// File: internal/auth/handler.go
package auth

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"desirius_backend/internal/common"
	"desirius_backend/internal/config"
	"desirius_backend/internal/middleware"
	"desirius_backend/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Handler exposes the session controller's account operations over HTTP.
type Handler struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewHandler creates a new auth handler.
func NewHandler(cfg *config.Config, logger *zap.Logger) *Handler {
	return &Handler{cfg: cfg, logger: logger.Named("auth_handler")}
}

// RegisterRoutes sets up the routes for authentication operations. limit wraps the
// credential endpoints and guard protects the password reset.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, limit, guard gin.HandlerFunc) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", limit, h.login)
		authGroup.POST("/register", limit, h.register)
		authGroup.GET("/google/login", h.googleLogin)
		authGroup.GET("/google/callback", h.googleCallback)
		authGroup.POST("/logout", h.logout)
		authGroup.POST("/password/forgot", limit, h.forgotPassword)
		authGroup.POST("/password/reset", guard, h.resetPassword)
	}
}

func (h *Handler) login(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	var req LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := ctrl.Login(c.Request.Context(), strings.TrimSpace(req.Email), req.Password); err != nil {
		h.respondFailure(c, ctrl, err)
		return
	}
	common.RespondOK(c, "Login realizado com sucesso.", session.NewStateResponse(ctrl.State()))
}

func (h *Handler) register(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	var req RegisterRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)

	if err := ctrl.Register(c.Request.Context(), req.toShared()); err != nil {
		h.respondFailure(c, ctrl, err)
		return
	}
	common.RespondCreated(c, "Conta criada com sucesso.", session.NewStateResponse(ctrl.State()))
}

func (h *Handler) googleLogin(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	state, err := generateAndSetOAuthState(c, h.cfg)
	if err != nil {
		h.logger.Error("Failed to generate OAuth state", zap.Error(err))
		common.RespondWithError(c, common.ErrInternalServer)
		return
	}
	authURL, err := ctrl.LoginWithGoogle(state)
	if err != nil {
		h.respondFailure(c, ctrl, err)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, authURL)
}

func (h *Handler) googleCallback(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	if errorParam := c.Query("error"); errorParam != "" {
		h.logger.Warn("Google OAuth callback error",
			zap.String("error", errorParam), zap.String("description", c.Query("error_description")))
		h.redirectToApp(c, "Não foi possível entrar com o Google")
		return
	}
	if err := verifyOAuthState(c, h.cfg, c.Query("state")); err != nil {
		h.logger.Warn("Google callback state rejected", zap.Error(err))
		h.redirectToApp(c, "Não foi possível entrar com o Google")
		return
	}
	code := c.Query("code")
	if code == "" {
		h.logger.Warn("Google callback missing code")
		h.redirectToApp(c, "Não foi possível entrar com o Google")
		return
	}

	if err := ctrl.CompleteOAuth(c.Request.Context(), code); err != nil {
		h.redirectToApp(c, ctrl.State().Error)
		return
	}
	h.redirectToApp(c, "")
}

func (h *Handler) logout(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	ctrl.Logout(c.Request.Context())
	common.RespondOK(c, "Sessão encerrada.", session.NewStateResponse(ctrl.State()))
}

func (h *Handler) forgotPassword(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	var req ForgotPasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := ctrl.ForgotPassword(c.Request.Context(), strings.TrimSpace(req.Email)); err != nil {
		h.respondFailure(c, ctrl, err)
		return
	}
	common.RespondOK(c, "Enviamos um e-mail com instruções para redefinir sua senha.", nil)
}

func (h *Handler) resetPassword(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	var req ResetPasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := ctrl.ResetPassword(c.Request.Context(), req.Password); err != nil {
		h.respondFailure(c, ctrl, err)
		return
	}
	common.RespondOK(c, "Senha redefinida com sucesso.", nil)
}

func (h *Handler) controller(c *gin.Context) (*session.Controller, bool) {
	ctrl := middleware.CurrentController(c)
	if ctrl == nil {
		h.logger.Error("No session controller on request", zap.String("path", c.Request.URL.Path))
		common.RespondWithError(c, common.ErrInternalServer)
		return nil, false
	}
	return ctrl, true
}

func (h *Handler) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.logger.Warn("Invalid request body", zap.String("path", c.Request.URL.Path), zap.Error(err))
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(ve)))
			return false
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return false
	}
	return true
}

// respondFailure answers with the operation's error, or with the form message the
// controller stored when the error is not an API error.
func (h *Handler) respondFailure(c *gin.Context, ctrl *session.Controller, err error) {
	if _, ok := common.IsAPIError(err); ok {
		common.RespondWithError(c, err)
		return
	}
	h.logger.Warn("Auth operation failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	msg := ctrl.State().Error
	if msg == "" {
		msg = common.ErrServiceUnavailable.Message
	}
	common.RespondWithError(c, common.ErrServiceUnavailable.WithDetails(msg))
}

func (h *Handler) redirectToApp(c *gin.Context, errMsg string) {
	target := strings.TrimRight(h.cfg.AppBaseURL, "/") + "/"
	if errMsg != "" {
		target += "login?" + url.Values{"error": {errMsg}}.Encode()
	}
	c.Redirect(http.StatusFound, target)
}
