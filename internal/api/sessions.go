package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rmoreas/warcycle/internal/constants"
	"github.com/rmoreas/warcycle/internal/game"
	"github.com/rmoreas/warcycle/internal/service"
)

// createSessionRequest seeds a new session with its initial board.
type createSessionRequest struct {
	Seed    int64 `json:"seed"`
	Players []struct {
		ID        string              `json:"id" binding:"required"`
		Name      string              `json:"name"`
		Resources game.ResourceVector `json:"resources"`
	} `json:"players"`
	Regions []game.Region `json:"regions"`
	Units   []game.Unit   `json:"units"`
}

// submitActionRequest is the producer-facing submission shape.
type submitActionRequest struct {
	PlayerID string             `json:"player_id" binding:"required"`
	Type     game.ActionType    `json:"type" binding:"required"`
	Priority float64            `json:"priority"`
	Payload  game.ActionPayload `json:"payload"`
}

// CreateSession builds, seeds and starts a session.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: err.Error()})
		return
	}
	s, err := h.manager.Create(req.Seed)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: err.Error()})
		return
	}
	for _, p := range req.Players {
		if err := s.AddPlayer(&game.Player{ID: p.ID, Name: p.Name}, p.Resources); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: err.Error()})
			return
		}
	}
	for i := range req.Regions {
		r := req.Regions[i]
		s.AddRegion(&r)
	}
	for i := range req.Units {
		u := req.Units[i]
		if u.Health == 0 {
			u.Health = 100
		}
		s.AddUnit(&u)
	}
	c.JSON(http.StatusCreated, gin.H{"session_id": s.ID, "cycle": s.Snapshot()})
}

// ListSessions returns the IDs of hosted sessions.
func (h *SessionHandler) ListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": h.manager.List()})
}

// GetSession returns the session's current counters and queue depth.
func (h *SessionHandler) GetSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	resp := gin.H{
		"session_id": s.ID,
		"cycle":      s.Snapshot(),
		"completed":  s.Completed(),
	}
	if err := s.LastFault(); err != nil {
		resp["fault"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteSession stops and removes a session.
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	if err := h.manager.Remove(c.Param("sessionID")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{constants.JSONKeyError: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{constants.JSONKeyStatus: "stopped"})
}

// SubmitAction validates and enqueues one action. Rejections come back as
// 422 with the human-readable reason.
func (h *SessionHandler) SubmitAction(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req submitActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: err.Error()})
		return
	}
	action := &game.QueuedAction{
		PlayerID: req.PlayerID,
		Type:     req.Type,
		Priority: req.Priority,
		Payload:  req.Payload,
	}
	accepted, err := s.Submit(c.Request.Context(), action)
	if err != nil {
		var verr *game.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{constants.JSONKeyError: verr.Reason})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, accepted)
}

// GetAction returns the tracked state of a submission.
func (h *SessionHandler) GetAction(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	a, ok := s.Action(c.Param("actionID"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{constants.JSONKeyError: "action not found"})
		return
	}
	c.JSON(http.StatusOK, a)
}

// CancelAction removes a still-queued action.
func (h *SessionHandler) CancelAction(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.CancelAction(c.Request.Context(), c.Param("actionID")); err != nil {
		c.JSON(http.StatusConflict, gin.H{constants.JSONKeyError: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{constants.JSONKeyStatus: string(game.StatusCancelled)})
}

// PauseSession freezes the clock and drain loop.
func (h *SessionHandler) PauseSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Pause()
	c.JSON(http.StatusOK, gin.H{constants.JSONKeyStatus: "paused", "remaining_ms": s.PhaseTimeRemaining().Milliseconds()})
}

// ResumeSession continues from the frozen remainder.
func (h *SessionHandler) ResumeSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Resume()
	c.JSON(http.StatusOK, gin.H{constants.JSONKeyStatus: "running", "cycle": s.Snapshot()})
}

// GetCycle returns the canonical counters plus phase time remaining.
func (h *SessionHandler) GetCycle(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	resp := gin.H{
		"cycle":        s.Snapshot(),
		"remaining_ms": s.PhaseTimeRemaining().Milliseconds(),
		"completed":    s.Completed(),
	}
	if err := s.LastFault(); err != nil {
		resp["fault"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SessionHandler) session(c *gin.Context) (*service.Session, bool) {
	s, ok := h.manager.Get(c.Param("sessionID"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{constants.JSONKeyError: "session not found"})
		return nil, false
	}
	return s, true
}
