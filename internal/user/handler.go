// File: internal/user/handler.go
package user

import (
	"errors"
	"strconv"

	"desirius_backend/internal/common"
	"desirius_backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for user handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new user handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.Named("user_handler"),
	}
}

// RegisterRoutes sets up the profile, directory and ranking routes. The directory and
// ranking are public; /users/me runs guard in order, which must end by resolving the
// authenticated profile (see middleware.RequireSession). awardLimit, when set, throttles
// point awards and runs after guard.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, awardLimit gin.HandlerFunc, guard ...gin.HandlerFunc) {
	userGroup := router.Group("/users")
	{
		userGroup.GET("/search", h.search)

		me := userGroup.Group("/me", guard...)
		{
			me.GET("", h.getMe)
			me.PATCH("", h.updateMe)
			if awardLimit != nil {
				me.POST("/points", awardLimit, h.awardPoints)
			} else {
				me.POST("/points", h.awardPoints)
			}
			me.POST("/avatar", h.uploadAvatar)
		}
	}
	router.GET("/ranking", h.ranking)
}

func (h *Handler) getMe(c *gin.Context) {
	profile, ok := middleware.CurrentProfile(c)
	if !ok {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}
	common.RespondOK(c, "Profile retrieved successfully.", profile)
}

func (h *Handler) updateMe(c *gin.Context) {
	profile, ok := middleware.CurrentProfile(c)
	if !ok {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}
	var req UpdateProfileRequest
	if !bindJSON(c, &req, h.logger) {
		return
	}
	updated, err := h.service.UpdateProfile(c.Request.Context(), profile.ID, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	notifyUserUpdated(c)
	common.RespondOK(c, "Profile updated successfully.", updated)
}

func (h *Handler) awardPoints(c *gin.Context) {
	profile, ok := middleware.CurrentProfile(c)
	if !ok {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}
	var req AwardPointsRequest
	if !bindJSON(c, &req, h.logger) {
		return
	}
	updated, err := h.service.AwardActivity(c.Request.Context(), profile.ID, req.Activity)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	notifyUserUpdated(c)
	common.RespondOK(c, "Points awarded.", gin.H{
		"points":       ActivityPoints[req.Activity],
		"total_points": updated.TotalPoints,
	})
}

func (h *Handler) uploadAvatar(c *gin.Context) {
	profile, ok := middleware.CurrentProfile(c)
	if !ok {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}
	file, err := c.FormFile("avatar")
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("The avatar file is required."))
		return
	}
	updated, err := h.service.UpdateAvatar(c.Request.Context(), profile.ID, file)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	notifyUserUpdated(c)
	common.RespondOK(c, "Avatar updated successfully.", updated)
}

func (h *Handler) search(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	profiles, err := h.service.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "", profiles)
}

func (h *Handler) ranking(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	entries, err := h.service.Ranking(c.Request.Context(), limit)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "", entries)
}

func bindJSON(c *gin.Context, req interface{}, logger *zap.Logger) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		logger.Warn("Invalid request body", zap.String("path", c.FullPath()), zap.Error(err))
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

// notifyUserUpdated lets the browser's session controller refetch the edited profile.
func notifyUserUpdated(c *gin.Context) {
	if ctrl := middleware.CurrentController(c); ctrl != nil {
		ctrl.NotifyUserUpdated()
	}
}
