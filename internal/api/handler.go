// Package api is the HTTP adapter over the session service. It translates
// JSON requests into service calls and validation errors into 4xx responses;
// no game rules live here.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/rmoreas/warcycle/internal/constants"
	"github.com/rmoreas/warcycle/internal/service"
)

// SessionHandler serves the session lifecycle and action endpoints.
type SessionHandler struct {
	manager *service.Manager
}

// NewSessionHandler builds the handler over a session manager.
func NewSessionHandler(manager *service.Manager) *SessionHandler {
	return &SessionHandler{manager: manager}
}

// RegisterRoutes mounts every endpoint under the API prefix.
func RegisterRoutes(r *gin.Engine, h *SessionHandler) {
	api := r.Group(constants.RouteAPIPrefix)
	{
		api.POST(constants.RouteSessions, h.CreateSession)
		api.GET(constants.RouteSessions, h.ListSessions)
		api.GET(constants.RouteSessionByID, h.GetSession)
		api.DELETE(constants.RouteSessionByID, h.DeleteSession)
		api.POST(constants.RouteSessionActions, h.SubmitAction)
		api.GET(constants.RouteSessionActions+"/:actionID", h.GetAction)
		api.DELETE(constants.RouteSessionActions+"/:actionID", h.CancelAction)
		api.POST(constants.RouteSessionPause, h.PauseSession)
		api.POST(constants.RouteSessionResume, h.ResumeSession)
		api.GET(constants.RouteSessionCycle, h.GetCycle)
	}
	r.GET(constants.RouteVersion, Version)
}
