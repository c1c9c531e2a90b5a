package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"routinedash/internal/model"
	"routinedash/internal/mutation"
	"routinedash/internal/progress"
	"routinedash/internal/taskstore"
	"routinedash/pkg/logger"
)

type TaskHandler struct {
	coord  *mutation.Coordinator
	now    func() time.Time
	logger *zap.Logger
}

func NewTaskHandler(coord *mutation.Coordinator, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{coord: coord, now: time.Now, logger: logger}
}

// ListTasks GET /tasks?status=all|complete|incomplete
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	p, err := taskstore.ParsePartition(c.Query("status"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	tasks, err := h.coord.LoadTasks(c.Request.Context(), userID, p)
	if err != nil {
		respondError(c, h.logger, "ListTasks: failed to fetch tasks", err)
		return
	}
	logger.WithTrace(c.Request.Context(), h.logger).Debug("ListTasks: success",
		zap.String("user_id", userID),
		zap.String("status", string(p)),
		zap.Int("task_count", len(tasks)),
	)
	if tasks == nil {
		tasks = []model.Task{}
	}
	c.JSON(http.StatusOK, tasks)
}

// CreateTask POST /tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req model.TaskCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	if !checkPayloadUser(c, userID, req.UserID) {
		return
	}
	req.UserID = userID

	task, err := h.coord.CreateTask(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, "CreateTask: failed", err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// taskPatchRequest keeps due_date raw so an explicit null clears it.
type taskPatchRequest struct {
	IsCompleted *bool           `json:"is_completed"`
	Priority    *model.Priority `json:"priority"`
	DueDate     json.RawMessage `json:"due_date"`
}

func (r taskPatchRequest) toPatch() (model.TaskPatch, error) {
	patch := model.TaskPatch{IsCompleted: r.IsCompleted, Priority: r.Priority}
	switch {
	case len(r.DueDate) == 0:
	case bytes.Equal(bytes.TrimSpace(r.DueDate), []byte("null")):
		patch.ClearDueDate = true
	default:
		var due time.Time
		if err := json.Unmarshal(r.DueDate, &due); err != nil {
			return patch, err
		}
		patch.DueDate = &due
	}
	return patch, nil
}

// UpdateTask PATCH /tasks/:id
// 只带 is_completed 时走 toggle 接口，否则整体 patch
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req taskPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		badRequest(c, "invalid due_date")
		return
	}

	taskID := c.Param("id")
	ctx := c.Request.Context()
	if patch.IsCompleted != nil && patch.Priority == nil && patch.DueDate == nil && !patch.ClearDueDate {
		err = h.coord.ToggleTask(ctx, userID, taskID, *patch.IsCompleted)
	} else {
		err = h.coord.UpdateTask(ctx, userID, taskID, patch)
	}
	if err != nil {
		respondError(c, h.logger, "UpdateTask: rolled back", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated", "task_id": taskID})
}

// DeleteTask DELETE /tasks/:id
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	taskID := c.Param("id")
	if err := h.coord.DeleteTask(c.Request.Context(), userID, taskID); err != nil {
		respondError(c, h.logger, "DeleteTask: rolled back", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "task_id": taskID})
}

// WeekBoard GET /tasks/week
func (h *TaskHandler) WeekBoard(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	tasks, err := h.coord.LoadTasks(c.Request.Context(), userID, taskstore.PartitionAll)
	if err != nil {
		respondError(c, h.logger, "WeekBoard: failed to fetch tasks", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": progress.WeekBoard(tasks, h.now())})
}

// ByPriority GET /tasks/by-priority
func (h *TaskHandler) ByPriority(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	tasks, err := h.coord.LoadTasks(c.Request.Context(), userID, taskstore.PartitionAll)
	if err != nil {
		respondError(c, h.logger, "ByPriority: failed to fetch tasks", err)
		return
	}
	c.JSON(http.StatusOK, progress.ByPriority(tasks))
}
