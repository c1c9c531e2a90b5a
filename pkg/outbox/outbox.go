package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"routinedash/pkg/otel"
)

// 乐观修改在日志中的状态
const (
	StatusPending    = "pending"
	StatusCommitted  = "committed"
	StatusRolledBack = "rolled_back"
)

// 发布状态：只有 committed 的记录会被 Dispatcher 发布
const (
	PublishPending = "pending"
	PublishSent    = "sent"
	PublishFailed  = "failed"
)

var ErrNotFound = errors.New("journal entry not found")

// Entry 一次乐观修改的日志记录
type Entry struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Kind          string          `json:"kind"`
	TaskID        string          `json:"task_id,omitempty"`
	RoutingKey    string          `json:"routing_key"`
	Payload       json.RawMessage `json:"payload"`
	Status        string          `json:"status"`
	Error         string          `json:"error,omitempty"`
	PublishStatus string          `json:"publish_status"`
	RetryCount    int             `json:"retry_count"`
	NextRetryAt   *time.Time      `json:"next_retry_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS mutation_journal (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	kind           TEXT NOT NULL,
	task_id        TEXT NOT NULL DEFAULT '',
	routing_key    TEXT NOT NULL,
	payload        JSONB NOT NULL,
	status         TEXT NOT NULL,
	error          TEXT NOT NULL DEFAULT '',
	publish_status TEXT NOT NULL DEFAULT 'pending',
	retry_count    INT NOT NULL DEFAULT 0,
	next_retry_at  TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS mutation_journal_publish_idx
	ON mutation_journal (status, publish_status, created_at);
`

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// EnsureSchema 启动时建表
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create mutation_journal: %w", err)
	}
	return nil
}

// Begin records a mutation as pending before it is sent to the backend.
func (r *Repository) Begin(ctx context.Context, e *Entry) error {
	return otel.WithDBSpan(ctx, "INSERT", "mutation_journal", func(ctx context.Context) error {
		query := `
			INSERT INTO mutation_journal (id, user_id, kind, task_id, routing_key, payload, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at, updated_at
		`
		err := r.db.QueryRow(ctx, query,
			e.ID,
			e.UserID,
			e.Kind,
			e.TaskID,
			e.RoutingKey,
			e.Payload,
			StatusPending,
		).Scan(&e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert journal entry: %w", err)
		}
		e.Status = StatusPending
		e.PublishStatus = PublishPending
		return nil
	})
}

// Settle moves a pending entry to committed or rolled_back.
func (r *Repository) Settle(ctx context.Context, id, status, errMsg string) error {
	return otel.WithDBSpan(ctx, "UPDATE", "mutation_journal", func(ctx context.Context) error {
		tag, err := r.db.Exec(ctx, `
			UPDATE mutation_journal
			SET status = $1, error = $2, updated_at = NOW()
			WHERE id = $3 AND status = 'pending'
		`, status, errMsg, id)
		if err != nil {
			return fmt.Errorf("failed to settle journal entry: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// GetUnpublished 获取已提交但尚未发布的记录（用于 Dispatcher）
func (r *Repository) GetUnpublished(ctx context.Context, limit int) ([]*Entry, error) {
	query := `
		SELECT ` + columns + `
		FROM mutation_journal
		WHERE status = 'committed' AND publish_status = 'pending'
		AND (next_retry_at IS NULL OR next_retry_at <= NOW())
		ORDER BY created_at ASC
		LIMIT $1
	`
	return r.list(ctx, query, limit)
}

// GetFailed 获取发布失败的记录（用于 Replay）
func (r *Repository) GetFailed(ctx context.Context, limit int) ([]*Entry, error) {
	query := `
		SELECT ` + columns + `
		FROM mutation_journal
		WHERE publish_status = 'failed'
		ORDER BY created_at ASC
		LIMIT $1
	`
	return r.list(ctx, query, limit)
}

// ListByUser returns the most recent entries of a user, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string, limit int) ([]*Entry, error) {
	query := `
		SELECT ` + columns + `
		FROM mutation_journal
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	return r.list(ctx, query, userID, limit)
}

func (r *Repository) MarkAsSent(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE mutation_journal
		SET publish_status = 'sent', updated_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to mark entry as sent: %w", err)
	}
	return nil
}

// MarkAsFailed 增加重试次数，超过上限后标记为 failed
func (r *Repository) MarkAsFailed(ctx context.Context, id string, maxRetries int) error {
	var retryCount int
	err := r.db.QueryRow(ctx, `SELECT retry_count FROM mutation_journal WHERE id = $1`, id).Scan(&retryCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get retry count: %w", err)
	}

	retryCount++
	publishStatus, nextRetryAt := nextAttempt(retryCount, maxRetries, time.Now())

	_, err = r.db.Exec(ctx, `
		UPDATE mutation_journal
		SET publish_status = $1, retry_count = $2, next_retry_at = $3, updated_at = NOW()
		WHERE id = $4
	`, publishStatus, retryCount, nextRetryAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark entry as failed: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Entry, error) {
	query := `SELECT ` + columns + ` FROM mutation_journal WHERE id = $1`
	e, err := scanEntry(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get journal entry: %w", err)
	}
	return e, nil
}

// ResetForReplay 把发布状态重置为 pending
func (r *Repository) ResetForReplay(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE mutation_journal
		SET publish_status = 'pending', retry_count = 0, next_retry_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'committed'
	`, id)
	if err != nil {
		return fmt.Errorf("failed to reset journal entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const columns = `id, user_id, kind, task_id, routing_key, payload, status, error,
	publish_status, retry_count, next_retry_at, created_at, updated_at`

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]*Entry, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.Kind,
		&e.TaskID,
		&e.RoutingKey,
		&e.Payload,
		&e.Status,
		&e.Error,
		&e.PublishStatus,
		&e.RetryCount,
		&e.NextRetryAt,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// nextAttempt 线性退避：5s, 10s, 15s...
func nextAttempt(retryCount, maxRetries int, now time.Time) (string, *time.Time) {
	if retryCount >= maxRetries {
		return PublishFailed, nil
	}
	next := now.Add(time.Duration(retryCount) * 5 * time.Second)
	return PublishPending, &next
}
