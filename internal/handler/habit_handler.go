package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"routinedash/internal/model"
	"routinedash/internal/mutation"
	"routinedash/internal/progress"
)

type HabitHandler struct {
	coord  *mutation.Coordinator
	now    func() time.Time
	logger *zap.Logger
}

func NewHabitHandler(coord *mutation.Coordinator, logger *zap.Logger) *HabitHandler {
	return &HabitHandler{coord: coord, now: time.Now, logger: logger}
}

// ListHabits GET /habits
func (h *HabitHandler) ListHabits(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	habits, err := h.coord.Habits(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, "ListHabits: failed to fetch habits", err)
		return
	}
	c.JSON(http.StatusOK, model.ListResponse[model.Habit]{Total: len(habits), Items: nonNil(habits)})
}

// CreateHabit POST /habits
func (h *HabitHandler) CreateHabit(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req model.HabitCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	if !checkPayloadUser(c, userID, req.UserID) {
		return
	}
	req.UserID = userID

	habit, err := h.coord.CreateHabit(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, "CreateHabit: failed", err)
		return
	}
	c.JSON(http.StatusCreated, habit)
}

// ListHabitLogs GET /habit-logs?habit_id=
func (h *HabitHandler) ListHabitLogs(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	logs, err := h.coord.HabitLogs(c.Request.Context(), userID, c.Query("habit_id"))
	if err != nil {
		respondError(c, h.logger, "ListHabitLogs: failed to fetch logs", err)
		return
	}
	c.JSON(http.StatusOK, model.ListResponse[model.HabitLog]{Total: len(logs), Items: nonNil(logs)})
}

// LogHabit POST /habit-logs
func (h *HabitHandler) LogHabit(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req model.HabitLogCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	if !checkPayloadUser(c, userID, req.UserID) {
		return
	}
	req.UserID = userID
	if req.Date.IsZero() {
		req.Date = h.now().UTC()
	}

	log, err := h.coord.LogHabit(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, "LogHabit: failed", err)
		return
	}
	c.JSON(http.StatusCreated, log)
}

type habitWeek struct {
	HabitID string `json:"habit_id"`
	Name    string `json:"name"`
	Goal    int    `json:"goal_repetitions"`
	Weekly  []int  `json:"weekly"`
}

// Weekly GET /habits/weekly：最近七天每个习惯的完成次数
func (h *HabitHandler) Weekly(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	habits, err := h.coord.Habits(ctx, userID)
	if err != nil {
		respondError(c, h.logger, "Weekly: failed to fetch habits", err)
		return
	}
	logs, err := h.coord.HabitLogs(ctx, userID, "")
	if err != nil {
		respondError(c, h.logger, "Weekly: failed to fetch logs", err)
		return
	}

	byHabit := make(map[string][]model.HabitLog, len(habits))
	for _, l := range logs {
		byHabit[l.HabitID] = append(byHabit[l.HabitID], l)
	}
	now := h.now()
	out := make([]habitWeek, 0, len(habits))
	for _, hb := range habits {
		out = append(out, habitWeek{
			HabitID: hb.ID,
			Name:    hb.Name,
			Goal:    hb.GoalRepetitions,
			Weekly:  progress.WeeklyRepetitions(byHabit[hb.ID], now),
		})
	}
	c.JSON(http.StatusOK, gin.H{"habits": out})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
