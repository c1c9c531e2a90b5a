package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routinedash/internal/model"
	"routinedash/internal/querycache"
	"routinedash/internal/taskstore"
	"routinedash/pkg/mq"
)

func dashboard() model.DashboardState {
	return model.DashboardState{
		User: "Wendy",
		Checklist: []model.RoutineTask{
			{ID: "task-1", Title: "Stretch", Completed: false},
			{ID: "task-2", Title: "Plan", Completed: true},
		},
		Habits: []model.DashboardHabit{
			{ID: "habit-water", Title: "Water", GoalPerDay: 8, CompletedToday: 3, Streak: 4, WeeklyProgress: []int{1, 2, 3, 4, 5, 6, 7}},
		},
		Progress: model.ProgressSummary{TasksCompleted: 1, TasksTotal: 2, HabitsCompleted: 0, HabitsTotal: 1},
	}
}

func TestDecodeFormats(t *testing.T) {
	raw := `{"type":"task_updated","payload":{"taskId":"task-1","completed":true,"progress":{"tasks_completed":2,"tasks_total":2,"habits_completed":0,"habits_total":1}}}`
	cases := map[string]string{
		"raw frame":        raw,
		"object wrapper":   `{"event":"dashboard_event","data":` + raw + `}`,
		"socket.io packet": `42["dashboard_event",` + raw + `]`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			env, err := Decode([]byte(in))
			require.NoError(t, err)
			ev, ok := env.Event.(TaskUpdated)
			require.True(t, ok)
			assert.Equal(t, "task-1", ev.TaskID)
			assert.True(t, ev.Completed)
			require.NotNil(t, ev.Progress)
			assert.Equal(t, 2, ev.Progress.TasksCompleted)
		})
	}
}

func TestDecodeHabitAndUnknown(t *testing.T) {
	env, err := Decode([]byte(`{"id":"evt-1","user_id":"u9","type":"habit_updated","payload":{"habitId":"habit-water","completedToday":5,"streak":null}}`))
	require.NoError(t, err)
	assert.Equal(t, "evt-1", env.ID)
	assert.Equal(t, "u9", env.UserID)
	ev := env.Event.(HabitUpdated)
	assert.Equal(t, 5, ev.CompletedToday)
	assert.Nil(t, ev.Streak)

	env, err = Decode([]byte(`{"type":"group_cheer","payload":{}}`))
	require.NoError(t, err)
	assert.Equal(t, Unknown{Type: "group_cheer"}, env.Event)
}

func TestDecodeMalformed(t *testing.T) {
	for _, in := range []string{
		`not json`,
		`{"type":"task_updated","payload":{"completed":true}}`,
		`{"type":"habit_updated","payload":{"habitId":"h"}}`,
		`[1]`,
	} {
		_, err := Decode([]byte(in))
		assert.ErrorIs(t, err, ErrMalformed, in)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	streak := 6
	raw, err := Encode("u1", HabitUpdated{HabitID: "h", CompletedToday: 2, Streak: &streak})
	require.NoError(t, err)
	env, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "u1", env.UserID)
	assert.Equal(t, 6, *env.Event.(HabitUpdated).Streak)
}

func TestMergeTaskUpdated(t *testing.T) {
	state := dashboard()
	pushed := model.ProgressSummary{TasksCompleted: 2, TasksTotal: 2, HabitsTotal: 1}

	next := Merge(state, TaskUpdated{TaskID: "task-1", Completed: true, Progress: &pushed})

	assert.True(t, next.Checklist[0].Completed)
	assert.Equal(t, pushed, next.Progress)
	assert.False(t, state.Checklist[0].Completed, "input must not change")
}

func TestMergeRecomputesMissingProgress(t *testing.T) {
	next := Merge(dashboard(), TaskUpdated{TaskID: "task-1", Completed: true})
	assert.Equal(t, 2, next.Progress.TasksCompleted)
}

func TestMergeHabitUpdatedKeepsStreakWhenAbsent(t *testing.T) {
	next := Merge(dashboard(), HabitUpdated{HabitID: "habit-water", CompletedToday: 8})
	assert.Equal(t, 8, next.Habits[0].CompletedToday)
	assert.Equal(t, 4, next.Habits[0].Streak)
	assert.Equal(t, 1, next.Progress.HabitsCompleted)

	streak := 10
	next = Merge(next, HabitUpdated{HabitID: "habit-water", CompletedToday: 8, Streak: &streak})
	assert.Equal(t, 10, next.Habits[0].Streak)
}

func TestMergeUnknownPassThrough(t *testing.T) {
	state := dashboard()
	assert.Equal(t, state, Merge(state, Unknown{Type: "whatever"}))
	assert.Equal(t, state, Merge(state, TaskUpdated{TaskID: "missing", Completed: true}))
}

func TestPolicies(t *testing.T) {
	fixed := FixedDelay{Delay: 2 * time.Second}
	assert.Equal(t, 2*time.Second, fixed.Next(1))
	assert.Equal(t, 2*time.Second, fixed.Next(10))

	exp := ExponentialBackoff{Base: time.Second, Max: 5 * time.Second}
	assert.Equal(t, time.Second, exp.Next(1))
	assert.Equal(t, 2*time.Second, exp.Next(2))
	assert.Equal(t, 4*time.Second, exp.Next(3))
	assert.Equal(t, 5*time.Second, exp.Next(4))
	assert.Equal(t, 5*time.Second, exp.Next(200))

	assert.IsType(t, ExponentialBackoff{}, NewPolicy("exponential", time.Second, time.Minute))
	assert.IsType(t, FixedDelay{}, NewPolicy("fixed", time.Second, time.Minute))
}

func TestSocketURL(t *testing.T) {
	u, err := SocketURL("http://localhost:8000/", "wendy")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8000/ws/dashboard?userId=wendy", u)

	_, err = SocketURL("ftp://x", "wendy")
	assert.Error(t, err)
}

type memDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (d *memDeduper) AcquireOnce(ctx context.Context, scope, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen == nil {
		d.seen = map[string]bool{}
	}
	if d.seen[scope+key] {
		return false
	}
	d.seen[scope+key] = true
	return true
}

type memSnapshots struct {
	saved map[string]model.DashboardState
}

func (s *memSnapshots) Save(ctx context.Context, userID string, state model.DashboardState) error {
	if s.saved == nil {
		s.saved = map[string]model.DashboardState{}
	}
	s.saved[userID] = state
	return nil
}

func TestMergerAppliesToCacheAndTasks(t *testing.T) {
	cache := querycache.New()
	cache.Dashboard.Set(querycache.DashboardKey("u1"), dashboard())
	tasks := taskstore.New()
	tasks.Replace(taskstore.Key{UserID: "u1", Partition: taskstore.PartitionIncomplete}, []model.Task{{ID: "task-1"}})
	tasks.Replace(taskstore.Key{UserID: "u1", Partition: taskstore.PartitionComplete}, nil)
	snaps := &memSnapshots{}

	m := NewMerger(cache, tasks, nil, WithDeduper(&memDeduper{}), WithSnapshots(snaps), WithDefaultUser("u1"))

	frame := []byte(`{"id":"e1","type":"task_updated","payload":{"taskId":"task-1","completed":true}}`)
	_, err := m.HandleRaw(context.Background(), "websocket", "", frame)
	require.NoError(t, err)

	state, _, _ := cache.Dashboard.Get(querycache.DashboardKey("u1"))
	assert.True(t, state.Checklist[0].Completed)
	assert.True(t, snaps.saved["u1"].Checklist[0].Completed)

	complete, _ := tasks.Get(taskstore.Key{UserID: "u1", Partition: taskstore.PartitionComplete})
	require.Len(t, complete, 1)
	assert.Equal(t, "task-1", complete[0].ID)

	// 重复帧被去重，不会再次切换
	cache.Dashboard.Update(querycache.DashboardKey("u1"), func(s model.DashboardState) model.DashboardState {
		s.Checklist[0].Completed = false
		return s
	})
	_, err = m.HandleRaw(context.Background(), "amqp", "", frame)
	require.NoError(t, err)
	state, _, _ = cache.Dashboard.Get(querycache.DashboardKey("u1"))
	assert.False(t, state.Checklist[0].Completed)
}

type fakeConsumer struct {
	handler mq.MessageHandler
}

func (c *fakeConsumer) SetHandler(h mq.MessageHandler)           { c.handler = h }
func (c *fakeConsumer) StartConsuming(ctx context.Context) error { <-ctx.Done(); return nil }

func TestAMQPSourcePoisonsMalformed(t *testing.T) {
	cache := querycache.New()
	consumer := &fakeConsumer{}
	src := NewAMQPSource(consumer, NewMerger(cache, nil, nil, WithDefaultUser("u1")), nil)
	require.NotNil(t, consumer.handler)

	err := consumer.handler(context.Background(), json.RawMessage(`{"type":`))
	assert.ErrorIs(t, err, mq.ErrPoison)

	assert.NoError(t, src.Handle(context.Background(), json.RawMessage(`{"type":"noop","payload":{}}`)))
}

type countingReconciler struct {
	mu    sync.Mutex
	calls []string
}

func (r *countingReconciler) Reconcile(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, userID)
	return nil
}

func (r *countingReconciler) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestClientMergesAndReconcilesOnClose(t *testing.T) {
	upgrader := websocket.Upgrader{}
	gotUser := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser <- r.URL.Query().Get("userId")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"type":"habit_updated","payload":{"habitId":"habit-water","completedToday":8,"streak":5}}`))
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	}))
	defer srv.Close()

	cache := querycache.New()
	cache.Dashboard.Set(querycache.DashboardKey("wendy"), dashboard())
	rec := &countingReconciler{}
	client := NewClient(ClientConfig{
		BaseURL:         "ws" + strings.TrimPrefix(srv.URL, "http"),
		UserID:          "wendy",
		Policy:          FixedDelay{Delay: time.Hour},
		InvalidateDelay: 10 * time.Millisecond,
	}, NewMerger(cache, nil, nil), rec, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	require.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "wendy", <-gotUser)

	state, _, _ := cache.Dashboard.Get(querycache.DashboardKey("wendy"))
	assert.Equal(t, 8, state.Habits[0].CompletedToday)
	assert.Equal(t, 5, state.Habits[0].Streak)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("client did not stop")
	}
}

func TestClientReconcilesOnDialFailure(t *testing.T) {
	rec := &countingReconciler{}
	client := NewClient(ClientConfig{
		BaseURL:         "ws://127.0.0.1:1",
		UserID:          "wendy",
		Policy:          FixedDelay{Delay: 20 * time.Millisecond},
		InvalidateDelay: time.Millisecond,
	}, NewMerger(querycache.New(), nil, nil), rec, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Run(ctx) }()

	require.Eventually(t, func() bool { return rec.count() >= 2 }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, client.Connected())
}
