// File: internal/session/handler.go
package session

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"desirius_backend/internal/common"
	"desirius_backend/internal/shared"
)

const (
	SourceVerified = "verified"
	SourceFallback = "fallback"
)

// StateResponse is the JSON form of State.
type StateResponse struct {
	Profile         *shared.Profile `json:"profile"`
	IsAuthenticated bool            `json:"is_authenticated"`
	IsLoading       bool            `json:"is_loading"`
	Error           *string         `json:"error"`
	ProfileSource   string          `json:"profile_source,omitempty"`
}

// NewStateResponse converts a State for the API.
func NewStateResponse(st State) StateResponse {
	resp := StateResponse{
		Profile:         st.Profile,
		IsAuthenticated: st.IsAuthenticated,
		IsLoading:       st.IsLoading,
	}
	if st.Error != "" {
		msg := st.Error
		resp.Error = &msg
	}
	if st.Profile != nil {
		resp.ProfileSource = SourceVerified
		if st.Fallback {
			resp.ProfileSource = SourceFallback
		}
	}
	return resp
}

// FromContext returns the browser's controller placed on the request by the session middleware.
func FromContext(c *gin.Context) *Controller {
	v, ok := c.Get(common.ControllerKey)
	if !ok {
		return nil
	}
	ctrl, _ := v.(*Controller)
	return ctrl
}

// Handler serves the session state endpoints.
type Handler struct {
	logger *zap.Logger
}

// NewHandler creates a new session handler.
func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{logger: logger.Named("session_handler")}
}

// RegisterRoutes sets up the session routes.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/session")
	{
		group.GET("", h.getState)
		group.POST("/check", h.check)
	}
}

func (h *Handler) getState(c *gin.Context) {
	ctrl := FromContext(c)
	if ctrl == nil {
		h.logger.Error("No session controller on request", zap.String("path", c.Request.URL.Path))
		common.RespondWithError(c, common.ErrInternalServer)
		return
	}
	common.RespondOK(c, "", NewStateResponse(ctrl.State()))
}

func (h *Handler) check(c *gin.Context) {
	ctrl := FromContext(c)
	if ctrl == nil {
		h.logger.Error("No session controller on request", zap.String("path", c.Request.URL.Path))
		common.RespondWithError(c, common.ErrInternalServer)
		return
	}
	ctrl.CheckSession(c.Request.Context())
	common.RespondOK(c, "", NewStateResponse(ctrl.State()))
}
