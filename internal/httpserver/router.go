package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"routinedash/internal/handler"
	"routinedash/pkg/otel"
	"routinedash/pkg/rbac"
)

// ReadyCheck 返回 nil 表示依赖可用
type ReadyCheck func(ctx context.Context) error

type Handlers struct {
	Dashboard *handler.DashboardHandler
	Tasks     *handler.TaskHandler
	Habits    *handler.HabitHandler
	Progress  *handler.ProgressHandler
	Schedule  *handler.ScheduleHandler
	Assist    *handler.AssistHandler
	// Admin 为 nil 时不注册 /admin 路由（未启用数据库）
	Admin *handler.AdminHandler
}

func NewRouter(h Handlers, jwtSecret string, checks map[string]ReadyCheck, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), otel.GinMiddleware(), TraceMiddleware(), RequestLogger(logger))

	// Health endpoints (放在最前面)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		for name, check := range checks {
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": name + "_not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	read := rbac.PermissionReadDashboard
	auth := r.Group("/")
	auth.Use(AuthMiddleware(jwtSecret))
	{
		auth.GET("/dashboard", RequirePermission(read), h.Dashboard.GetDashboard)
		auth.PATCH("/dashboard/tasks/:id", RequirePermission(rbac.PermissionUpdateTask), h.Dashboard.ToggleChecklist)
		auth.PATCH("/dashboard/habits/:id", RequirePermission(rbac.PermissionLogHabit), h.Dashboard.UpdateHabit)

		auth.GET("/tasks", RequirePermission(read), h.Tasks.ListTasks)
		auth.GET("/tasks/week", RequirePermission(read), h.Tasks.WeekBoard)
		auth.GET("/tasks/by-priority", RequirePermission(read), h.Tasks.ByPriority)
		auth.POST("/tasks", RequirePermission(rbac.PermissionUpdateTask), h.Tasks.CreateTask)
		auth.PATCH("/tasks/:id", RequirePermission(rbac.PermissionUpdateTask), h.Tasks.UpdateTask)
		auth.DELETE("/tasks/:id", RequirePermission(rbac.PermissionDeleteTask), h.Tasks.DeleteTask)

		auth.GET("/habits", RequirePermission(read), h.Habits.ListHabits)
		auth.POST("/habits", RequirePermission(rbac.PermissionLogHabit), h.Habits.CreateHabit)
		auth.GET("/habits/weekly", RequirePermission(read), h.Habits.Weekly)
		auth.GET("/habit-logs", RequirePermission(read), h.Habits.ListHabitLogs)
		auth.POST("/habit-logs", RequirePermission(rbac.PermissionLogHabit), h.Habits.LogHabit)

		auth.GET("/progress", RequirePermission(read), h.Progress.GetProgress)

		auth.GET("/schedule", RequirePermission(read), h.Schedule.ListSchedule)
		auth.POST("/autoschedule/plan", RequirePermission(rbac.PermissionBulkCreateSchedule), h.Schedule.Plan)
		auth.POST("/autoschedule/commit", RequirePermission(rbac.PermissionBulkCreateSchedule), h.Schedule.Commit)
		auth.GET("/backlog", RequirePermission(read), h.Schedule.OverdueCount)
		auth.POST("/backlog/preview", RequirePermission(rbac.PermissionReplanTasks), h.Schedule.PreviewBacklog)
		auth.POST("/backlog/apply", RequirePermission(rbac.PermissionReplanTasks), h.Schedule.ApplyBacklog)

		auth.GET("/insights/daily", RequirePermission(read), h.Assist.DailyInsight)
		auth.GET("/insights/monthly", RequirePermission(read), h.Assist.MonthlyInsight)
		auth.GET("/summary", RequirePermission(read), h.Assist.Summary)
		auth.POST("/ai/suggest", RequirePermission(rbac.PermissionUseAI), h.Assist.Suggest)
		auth.POST("/ai/feedback", RequirePermission(rbac.PermissionUseAI), h.Assist.Feedback)
		auth.POST("/ai/split", RequirePermission(rbac.PermissionUseAI), h.Assist.SplitTask)
		auth.POST("/tasks/:id/subtasks", RequirePermission(rbac.PermissionUseAI), h.Assist.CreateSubtasks)
		auth.POST("/habits/:id/coach/apply", RequirePermission(rbac.PermissionUseAI), h.Assist.ApplyCoach)

		if h.Admin != nil {
			admin := auth.Group("/admin", RequirePermission(rbac.PermissionReplayJournal))
			admin.GET("/journal", h.Admin.ListJournal)
			admin.POST("/journal/:id/replay", h.Admin.ReplayEntry)
			admin.POST("/journal/replay-failed", h.Admin.ReplayFailed)
		}
	}

	return r
}
