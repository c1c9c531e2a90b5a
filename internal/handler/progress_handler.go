package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"routinedash/internal/mutation"
	"routinedash/internal/progress"
	"routinedash/internal/taskstore"
)

type ProgressHandler struct {
	coord  *mutation.Coordinator
	now    func() time.Time
	logger *zap.Logger
}

func NewProgressHandler(coord *mutation.Coordinator, logger *zap.Logger) *ProgressHandler {
	return &ProgressHandler{coord: coord, now: time.Now, logger: logger}
}

// GetProgress GET /progress?start=&end=
// 缺省区间为今天；start/end 接受 YYYY-MM-DD 或 RFC3339
func (h *ProgressHandler) GetProgress(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	now := h.now()
	rng, err := progress.ParseRange(c.Query("start"), c.Query("end"), now)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	tasks, err := h.coord.LoadTasks(ctx, userID, taskstore.PartitionAll)
	if err != nil {
		respondError(c, h.logger, "GetProgress: failed to fetch tasks", err)
		return
	}
	habits, err := h.coord.Habits(ctx, userID)
	if err != nil {
		respondError(c, h.logger, "GetProgress: failed to fetch habits", err)
		return
	}
	logs, err := h.coord.HabitLogs(ctx, userID, "")
	if err != nil {
		respondError(c, h.logger, "GetProgress: failed to fetch habit logs", err)
		return
	}

	summary := progress.Summarize(tasks, habits, logs, &rng, now)
	c.JSON(http.StatusOK, gin.H{
		"progress":   summary,
		"completion": progress.Completion(summary),
		"start":      rng.Start.Format(time.DateOnly),
		"end":        rng.End.Format(time.DateOnly),
	})
}
