package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"routinedash/internal/autoschedule"
	"routinedash/internal/model"
	"routinedash/internal/mutation"
	"routinedash/internal/taskstore"
)

type ScheduleHandler struct {
	coord   *mutation.Coordinator
	planner *autoschedule.Planner
	healer  *autoschedule.BacklogHealer
	now     func() time.Time
	logger  *zap.Logger
}

func NewScheduleHandler(coord *mutation.Coordinator, planner *autoschedule.Planner, healer *autoschedule.BacklogHealer, logger *zap.Logger) *ScheduleHandler {
	return &ScheduleHandler{coord: coord, planner: planner, healer: healer, now: time.Now, logger: logger}
}

// ListSchedule GET /schedule
func (h *ScheduleHandler) ListSchedule(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	events, err := h.coord.Schedule(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, "ListSchedule: failed to fetch events", err)
		return
	}
	c.JSON(http.StatusOK, model.ListResponse[model.ScheduleEvent]{Total: len(events), Items: nonNil(events)})
}

type planRequest struct {
	Tasks []struct {
		TaskID          string `json:"task_id"`
		DurationMinutes int    `json:"duration_minutes"`
	} `json:"tasks"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// Plan POST /autoschedule/plan
func (h *ScheduleHandler) Plan(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	sel := autoschedule.NewSelection()
	for _, t := range req.Tasks {
		if t.TaskID == "" {
			continue
		}
		if t.DurationMinutes == 0 {
			sel.Select(t.TaskID)
			continue
		}
		sel.SetDuration(t.TaskID, t.DurationMinutes)
	}

	window := autoschedule.DefaultWindow(h.now())
	if req.Start != "" || req.End != "" {
		w, err := autoschedule.ParseWindow(req.Start, req.End, time.UTC)
		if err != nil {
			respondError(c, h.logger, "Plan: invalid window", err)
			return
		}
		window = w
	}

	proposal, err := h.planner.Plan(c.Request.Context(), userID, sel, window)
	if err != nil {
		respondError(c, h.logger, "Plan: failed", err)
		return
	}
	c.JSON(http.StatusOK, proposal)
}

// Commit POST /autoschedule/commit，body 为 Plan 返回的 blocks
func (h *ScheduleHandler) Commit(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req struct {
		Blocks []model.PlanBlock `json:"blocks"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	ctx := c.Request.Context()
	tasks, err := h.coord.LoadTasks(ctx, userID, taskstore.PartitionAll)
	if err != nil {
		// 摘要退回默认文案，不阻止保存
		h.logger.Warn("Commit: task lookup failed", zap.Error(err))
	}
	resp, err := h.planner.Commit(ctx, userID, autoschedule.Proposal{Blocks: req.Blocks}, tasks)
	if err != nil {
		respondError(c, h.logger, "Commit: failed", err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// OverdueCount GET /backlog
func (h *ScheduleHandler) OverdueCount(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	tasks, err := h.coord.LoadTasks(c.Request.Context(), userID, taskstore.PartitionAll)
	if err != nil {
		respondError(c, h.logger, "OverdueCount: failed to fetch tasks", err)
		return
	}
	overdue := nonNil(autoschedule.Overdue(tasks, h.now()))
	c.JSON(http.StatusOK, gin.H{"overdue": len(overdue), "tasks": overdue})
}

// PreviewBacklog POST /backlog/preview
func (h *ScheduleHandler) PreviewBacklog(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	res, err := h.healer.Preview(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, "PreviewBacklog: failed", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ApplyBacklog POST /backlog/apply
func (h *ScheduleHandler) ApplyBacklog(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	res, err := h.healer.Apply(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, "ApplyBacklog: failed", err)
		return
	}
	c.JSON(http.StatusOK, res)
}
