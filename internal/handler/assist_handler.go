package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"routinedash/internal/model"
)

// Assistant 是服务端生成的洞察与 AI 建议接口，由 apiclient.Client 实现
type Assistant interface {
	DailyInsight(ctx context.Context, userID, date string, force bool) (model.DailyInsight, error)
	MonthlyInsight(ctx context.Context, userID, month string, force bool) (model.MonthlyInsight, error)
	Summary(ctx context.Context, userID string) (model.Summary, error)
	Suggest(ctx context.Context, req model.AISuggestRequest) (model.AISuggestResponse, error)
	Feedback(ctx context.Context, fb model.AIFeedback) error
	SplitTask(ctx context.Context, req model.SplitRequest) (model.SplitResponse, error)
	CreateSubtasks(ctx context.Context, taskID string, req model.SubtasksBulkRequest) ([]model.Task, error)
	ApplyCoach(ctx context.Context, habitID string, body map[string]any) (model.Habit, error)
}

// Refresher reloads cached collections after a server-side write.
type Refresher interface {
	Refetch(ctx context.Context, userID string) error
}

type AssistHandler struct {
	assistant Assistant
	tasks     Refresher
	logger    *zap.Logger
}

func NewAssistHandler(assistant Assistant, tasks Refresher, logger *zap.Logger) *AssistHandler {
	return &AssistHandler{assistant: assistant, tasks: tasks, logger: logger}
}

func forceParam(c *gin.Context) bool {
	force, _ := strconv.ParseBool(c.Query("force"))
	return force
}

// DailyInsight GET /insights/daily?date=&force=
func (h *AssistHandler) DailyInsight(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	insight, err := h.assistant.DailyInsight(c.Request.Context(), userID, c.Query("date"), forceParam(c))
	if err != nil {
		respondError(c, h.logger, "DailyInsight: failed", err)
		return
	}
	c.JSON(http.StatusOK, insight)
}

// MonthlyInsight GET /insights/monthly?month=&force=
func (h *AssistHandler) MonthlyInsight(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	insight, err := h.assistant.MonthlyInsight(c.Request.Context(), userID, c.Query("month"), forceParam(c))
	if err != nil {
		respondError(c, h.logger, "MonthlyInsight: failed", err)
		return
	}
	c.JSON(http.StatusOK, insight)
}

// Summary GET /summary
func (h *AssistHandler) Summary(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	summary, err := h.assistant.Summary(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, "Summary: failed", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Suggest POST /ai/suggest
func (h *AssistHandler) Suggest(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req model.AISuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Intent == "" {
		badRequest(c, "intent is required")
		return
	}
	if !checkPayloadUser(c, userID, req.UserID) {
		return
	}
	req.UserID = userID

	resp, err := h.assistant.Suggest(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, "Suggest: failed", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Feedback POST /ai/feedback
func (h *AssistHandler) Feedback(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req model.AIFeedback
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	if !checkPayloadUser(c, userID, req.UserID) {
		return
	}
	req.UserID = userID

	if err := h.assistant.Feedback(c.Request.Context(), req); err != nil {
		respondError(c, h.logger, "Feedback: failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

// SplitTask POST /ai/split
func (h *AssistHandler) SplitTask(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req model.SplitRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Description == "" {
		badRequest(c, "description is required")
		return
	}
	req.UserID = userID

	resp, err := h.assistant.SplitTask(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, "SplitTask: failed", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CreateSubtasks POST /tasks/:id/subtasks
func (h *AssistHandler) CreateSubtasks(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req model.SubtasksBulkRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Subtasks) == 0 {
		badRequest(c, "subtasks are required")
		return
	}
	req.UserID = userID

	ctx := c.Request.Context()
	tasks, err := h.assistant.CreateSubtasks(ctx, c.Param("id"), req)
	if err != nil {
		respondError(c, h.logger, "CreateSubtasks: failed", err)
		return
	}
	h.refetch(ctx, userID)
	c.JSON(http.StatusCreated, nonNil(tasks))
}

// ApplyCoach POST /habits/:id/coach/apply
func (h *AssistHandler) ApplyCoach(c *gin.Context) {
	if _, ok := getUserID(c); !ok {
		return
	}
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request")
		return
	}
	habit, err := h.assistant.ApplyCoach(c.Request.Context(), c.Param("id"), body)
	if err != nil {
		respondError(c, h.logger, "ApplyCoach: failed", err)
		return
	}
	c.JSON(http.StatusOK, habit)
}

func (h *AssistHandler) refetch(ctx context.Context, userID string) {
	if h.tasks == nil {
		return
	}
	if err := h.tasks.Refetch(ctx, userID); err != nil {
		h.logger.Warn("Refetch after subtasks failed", zap.String("user_id", userID), zap.Error(err))
	}
}
