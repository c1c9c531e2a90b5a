package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"routinedash/pkg/trace"
)

type fakeStore struct {
	entries map[string]*Entry
	sent    []string
	failed  []string
}

func newFakeStore(entries ...*Entry) *fakeStore {
	s := &fakeStore{entries: map[string]*Entry{}}
	for _, e := range entries {
		s.entries[e.ID] = e
	}
	return s
}

func (s *fakeStore) GetUnpublished(ctx context.Context, limit int) ([]*Entry, error) {
	var out []*Entry
	for _, e := range s.entries {
		if e.Status == StatusCommitted && e.PublishStatus == PublishPending {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeStore) GetFailed(ctx context.Context, limit int) ([]*Entry, error) {
	var out []*Entry
	for _, e := range s.entries {
		if e.PublishStatus == PublishFailed {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeStore) GetByID(ctx context.Context, id string) (*Entry, error) {
	e, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

func (s *fakeStore) MarkAsSent(ctx context.Context, id string) error {
	s.sent = append(s.sent, id)
	s.entries[id].PublishStatus = PublishSent
	return nil
}

func (s *fakeStore) MarkAsFailed(ctx context.Context, id string, maxRetries int) error {
	s.failed = append(s.failed, id)
	return nil
}

type fakePublisher struct {
	err      error
	keys     []string
	traceIDs []string
}

func (p *fakePublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	p.keys = append(p.keys, routingKey)
	p.traceIDs = append(p.traceIDs, trace.FromContext(ctx))
	return p.err
}

func committed(t *testing.T, payload any) *Entry {
	e, err := NewEntry("u1", "toggle", "t1", payload)
	require.NoError(t, err)
	e.Status = StatusCommitted
	return e
}

func TestDispatchOncePublishesCommitted(t *testing.T) {
	e := committed(t, map[string]any{"is_completed": true, "trace_id": "abc"})
	pending, err := NewEntry("u1", "toggle", "t2", nil)
	require.NoError(t, err)

	store := newFakeStore(e, pending)
	pub := &fakePublisher{}
	d := NewDispatcher(store, pub, zap.NewNop())

	assert.Equal(t, 1, d.DispatchOnce(context.Background()))
	assert.Equal(t, []string{e.ID}, store.sent)
	assert.Equal(t, []string{"dashboard.mutation.committed"}, pub.keys)
	assert.Equal(t, []string{"abc"}, pub.traceIDs)
}

func TestDispatchOnceMarksFailures(t *testing.T) {
	e := committed(t, map[string]any{})
	store := newFakeStore(e)
	d := NewDispatcher(store, &fakePublisher{err: errors.New("channel closed")}, zap.NewNop())

	assert.Equal(t, 0, d.DispatchOnce(context.Background()))
	assert.Equal(t, []string{e.ID}, store.failed)
	assert.Empty(t, store.sent)
}

func TestReplayEntry(t *testing.T) {
	e := committed(t, map[string]any{})
	e.PublishStatus = PublishFailed
	rolled, err := NewEntry("u1", "toggle", "t9", nil)
	require.NoError(t, err)
	rolled.Status = StatusRolledBack

	store := newFakeStore(e, rolled)
	svc := NewReplayService(store, &fakePublisher{})

	n, err := svc.ReplayFailed(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, PublishSent, e.PublishStatus)

	assert.Error(t, svc.ReplayEntry(context.Background(), rolled.ID))
	assert.ErrorIs(t, svc.ReplayEntry(context.Background(), "missing"), ErrNotFound)
}

func TestNextAttempt(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	status, next := nextAttempt(2, 5, now)
	assert.Equal(t, PublishPending, status)
	require.NotNil(t, next)
	assert.Equal(t, now.Add(10*time.Second), *next)

	status, next = nextAttempt(5, 5, now)
	assert.Equal(t, PublishFailed, status)
	assert.Nil(t, next)
}
