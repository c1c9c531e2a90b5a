package outbox

import (
	"context"
	"fmt"

	"routinedash/pkg/trace"
)

// ReplayStore is the part of Repository replay needs.
type ReplayStore interface {
	GetByID(ctx context.Context, id string) (*Entry, error)
	GetFailed(ctx context.Context, limit int) ([]*Entry, error)
	MarkAsSent(ctx context.Context, id string) error
	MarkAsFailed(ctx context.Context, id string, maxRetries int) error
}

// ReplayService 手动重发已提交的修改
type ReplayService struct {
	repo      ReplayStore
	publisher Publisher
}

func NewReplayService(repo ReplayStore, publisher Publisher) *ReplayService {
	return &ReplayService{repo: repo, publisher: publisher}
}

func (s *ReplayService) ReplayEntry(ctx context.Context, id string) error {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if e.Status != StatusCommitted {
		return fmt.Errorf("entry %s is %s, only committed entries are published", id, e.Status)
	}

	msg := e.Message()
	if msg.TraceID != "" {
		ctx = trace.WithContext(ctx, msg.TraceID)
	}
	if err := s.publisher.Publish(ctx, e.RoutingKey, msg); err != nil {
		if markErr := s.repo.MarkAsFailed(ctx, id, 5); markErr != nil {
			return fmt.Errorf("failed to publish and mark as failed: %w (mark error: %v)", err, markErr)
		}
		return fmt.Errorf("failed to publish: %w", err)
	}

	if err := s.repo.MarkAsSent(ctx, id); err != nil {
		return fmt.Errorf("failed to mark as sent: %w", err)
	}
	return nil
}

// ReplayFailed 重放所有发布失败的记录，返回成功条数
func (s *ReplayService) ReplayFailed(ctx context.Context, limit int) (int, error) {
	entries, err := s.repo.GetFailed(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to get failed entries: %w", err)
	}

	ok := 0
	for _, e := range entries {
		if err := s.ReplayEntry(ctx, e.ID); err != nil {
			continue
		}
		ok++
	}
	return ok, nil
}
