package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"routinedash/internal/dashboard"
	"routinedash/internal/model"
	"routinedash/internal/progress"
)

// StaleHeader is set when the response is the last known state rather than fresh data.
const StaleHeader = "X-Dashboard-Stale"

type DashboardHandler struct {
	svc    *dashboard.Service
	logger *zap.Logger
}

func NewDashboardHandler(svc *dashboard.Service, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{svc: svc, logger: logger}
}

// GetDashboard GET /dashboard
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	state, stale, err := h.svc.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, "GetDashboard: failed to load dashboard", err)
		return
	}
	c.Header(StaleHeader, strconv.FormatBool(stale))
	c.JSON(http.StatusOK, gin.H{
		"dashboard":  state,
		"completion": progress.Completion(state.Progress),
		"stale":      stale,
	})
}

// ToggleChecklist PATCH /dashboard/tasks/:id
func (h *DashboardHandler) ToggleChecklist(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var req struct {
		Completed *bool `json:"completed" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "completed is required")
		return
	}

	state, err := h.svc.ToggleChecklist(c.Request.Context(), userID, c.Param("id"), *req.Completed)
	if err != nil {
		respondError(c, h.logger, "ToggleChecklist: update rejected", err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// UpdateHabit PATCH /dashboard/habits/:id
func (h *DashboardHandler) UpdateHabit(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var req model.DashboardHabitUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	state, err := h.svc.UpdateHabit(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		respondError(c, h.logger, "UpdateHabit: update rejected", err)
		return
	}
	c.JSON(http.StatusOK, state)
}
