package autoschedule

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"routinedash/internal/model"
	"routinedash/pkg/logger"
)

const MsgNoOverdue = "No overdue tasks"

// TaskRefresher 由 mutation.Coordinator 实现
type TaskRefresher interface {
	Refetch(ctx context.Context, userID string) error
}

// Overdue returns open tasks whose due date is before now.
func Overdue(tasks []model.Task, now time.Time) []model.Task {
	var out []model.Task
	for _, t := range tasks {
		if t.IsCompleted || t.DueDate == nil {
			continue
		}
		if t.DueDate.Before(now) {
			out = append(out, t)
		}
	}
	return out
}

type HealResult struct {
	Proposals []model.ReplanProposal `json:"proposals"`
	Applied   int                    `json:"applied"`
	Message   string                 `json:"message,omitempty"`
}

type BacklogHealer struct {
	backend Backend
	tasks   TaskRefresher
	logger  *zap.Logger
}

func NewBacklogHealer(backend Backend, tasks TaskRefresher, logger *zap.Logger) *BacklogHealer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BacklogHealer{backend: backend, tasks: tasks, logger: logger}
}

// Preview asks for new due dates without applying them.
func (h *BacklogHealer) Preview(ctx context.Context, userID string) (HealResult, error) {
	resp, err := h.replan(ctx, userID, true)
	if err != nil {
		return HealResult{}, fmt.Errorf("could not generate a plan: %w", err)
	}
	res := HealResult{Proposals: resp.Proposals, Applied: resp.Applied}
	if len(res.Proposals) == 0 {
		res.Proposals = []model.ReplanProposal{}
		res.Message = MsgNoOverdue
	}
	return res, nil
}

// Apply writes the new due dates and refetches the task partitions.
func (h *BacklogHealer) Apply(ctx context.Context, userID string) (HealResult, error) {
	resp, err := h.replan(ctx, userID, false)
	if err != nil {
		return HealResult{}, fmt.Errorf("could not apply updates: %w", err)
	}
	if h.tasks != nil {
		if err := h.tasks.Refetch(ctx, userID); err != nil {
			logger.WithTrace(ctx, h.logger).Warn("Refetch after replan failed",
				zap.String("user_id", userID),
				zap.Error(err),
			)
		}
	}
	return HealResult{Proposals: resp.Proposals, Applied: resp.Applied}, nil
}

func (h *BacklogHealer) replan(ctx context.Context, userID string, dryRun bool) (model.ReplanResponse, error) {
	log := logger.WithTrace(ctx, h.logger).With(
		zap.String("user_id", userID),
		zap.Bool("dry_run", dryRun),
	)
	resp, err := h.backend.ReplanTasks(ctx, model.ReplanRequest{UserID: userID, DryRun: dryRun})
	if err != nil {
		log.Error("Replan request failed", zap.Error(err))
		return model.ReplanResponse{}, err
	}
	log.Info("Replan finished", zap.Int("proposals", len(resp.Proposals)), zap.Int("applied", resp.Applied))
	return resp, nil
}
