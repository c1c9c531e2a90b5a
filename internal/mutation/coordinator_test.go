package mutation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routinedash/internal/model"
	"routinedash/internal/querycache"
	"routinedash/internal/taskstore"
	"routinedash/pkg/outbox"
	"routinedash/pkg/util"
)

// fakeBackend keeps server-side truth in memory.
type fakeBackend struct {
	mu       sync.Mutex
	tasks    []model.Task
	fail     error
	failFor  map[string]error
	listFail error
	lists    int
	habitLog model.HabitLogCreate
	habit    model.HabitCreate

	// hold 中的任务，第一次写调用会阻塞到对应 channel 关闭
	hold    map[string]chan struct{}
	entered chan string
}

func (b *fakeBackend) holdNext(taskID string) chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.hold == nil {
		b.hold = map[string]chan struct{}{}
		b.entered = make(chan string, 4)
	}
	gate := make(chan struct{})
	b.hold[taskID] = gate
	return gate
}

func (b *fakeBackend) wait(taskID string) {
	b.mu.Lock()
	gate, ok := b.hold[taskID]
	delete(b.hold, taskID)
	b.mu.Unlock()
	if ok {
		b.entered <- taskID
		<-gate
	}
}

func (b *fakeBackend) setListFail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listFail = err
}

func (b *fakeBackend) ListTasks(ctx context.Context, userID string, completed *bool) ([]model.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lists++
	if b.listFail != nil {
		return nil, b.listFail
	}
	var out []model.Task
	for _, t := range b.tasks {
		if t.UserID == userID && (completed == nil || *completed == t.IsCompleted) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (b *fakeBackend) CreateTask(ctx context.Context, in model.TaskCreate) (model.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := model.Task{ID: "new", UserID: in.UserID, Description: in.Description, Priority: in.Priority.OrDefault()}
	b.tasks = append(b.tasks, t)
	return t, nil
}

func (b *fakeBackend) SetTaskCompleted(ctx context.Context, taskID string, completed bool) (model.Task, error) {
	return b.UpdateTask(ctx, taskID, model.TaskPatch{IsCompleted: &completed})
}

func (b *fakeBackend) UpdateTask(ctx context.Context, taskID string, patch model.TaskPatch) (model.Task, error) {
	b.wait(taskID)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return model.Task{}, b.fail
	}
	if err := b.failFor[taskID]; err != nil {
		return model.Task{}, err
	}
	for i := range b.tasks {
		if b.tasks[i].ID == taskID {
			if patch.IsCompleted != nil {
				b.tasks[i].IsCompleted = *patch.IsCompleted
			}
			if patch.Priority != nil {
				b.tasks[i].Priority = *patch.Priority
			}
			return b.tasks[i], nil
		}
	}
	return model.Task{}, errors.New("not found")
}

func (b *fakeBackend) DeleteTask(ctx context.Context, taskID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return b.fail
	}
	for i := range b.tasks {
		if b.tasks[i].ID == taskID {
			b.tasks = append(b.tasks[:i], b.tasks[i+1:]...)
			return nil
		}
	}
	return nil
}

func (b *fakeBackend) ListHabits(ctx context.Context, userID string) ([]model.Habit, error) {
	return []model.Habit{{ID: "h1", UserID: userID}}, nil
}

func (b *fakeBackend) ListHabitLogs(ctx context.Context, userID, habitID string) ([]model.HabitLog, error) {
	return nil, nil
}

func (b *fakeBackend) CreateHabit(ctx context.Context, in model.HabitCreate) (model.Habit, error) {
	b.habit = in
	return model.Habit{ID: "h-new", Name: in.Name, GoalRepetitions: in.GoalRepetitions, GoalPeriod: in.GoalPeriod}, nil
}

func (b *fakeBackend) CreateHabitLog(ctx context.Context, in model.HabitLogCreate) (model.HabitLog, error) {
	b.habitLog = in
	return model.HabitLog{ID: "l1", HabitID: in.HabitID, Status: in.Status, CompletedRepetitions: in.CompletedRepetitions}, nil
}

func (b *fakeBackend) ListScheduleEvents(ctx context.Context, userID string) ([]model.ScheduleEvent, error) {
	return nil, nil
}

type fakeJournal struct {
	begun   []*outbox.Entry
	settled map[string]string
}

func (j *fakeJournal) Begin(ctx context.Context, e *outbox.Entry) error {
	j.begun = append(j.begun, e)
	return nil
}

func (j *fakeJournal) Settle(ctx context.Context, id, status, errMsg string) error {
	if j.settled == nil {
		j.settled = map[string]string{}
	}
	j.settled[id] = status
	return nil
}

const user = "u1"

func setup(t *testing.T) (*Coordinator, *fakeBackend, *fakeJournal) {
	backend := &fakeBackend{tasks: []model.Task{
		{ID: "A", UserID: user, Description: "today"},
		{ID: "B", UserID: user, Description: "tomorrow"},
		{ID: "C", UserID: user, Description: "done", IsCompleted: true},
	}}
	journal := &fakeJournal{}
	c := NewCoordinator(taskstore.New(), querycache.New(), backend, journal, nil)
	for _, p := range []taskstore.Partition{taskstore.PartitionAll, taskstore.PartitionComplete, taskstore.PartitionIncomplete} {
		_, err := c.LoadTasks(context.Background(), user, p)
		require.NoError(t, err)
	}
	return c, backend, journal
}

func partitionIDs(t *testing.T, c *Coordinator, p taskstore.Partition) []string {
	tasks, ok := c.Tasks().Get(taskstore.Key{UserID: user, Partition: p})
	require.True(t, ok)
	ids := []string{}
	for _, tk := range tasks {
		ids = append(ids, tk.ID)
	}
	return ids
}

func TestToggleCommitsAndRefetches(t *testing.T) {
	c, backend, journal := setup(t)
	listsBefore := backend.lists

	require.NoError(t, c.ToggleTask(context.Background(), user, "A", true))

	assert.ElementsMatch(t, []string{"A", "C"}, partitionIDs(t, c, taskstore.PartitionComplete))
	assert.Equal(t, []string{"B"}, partitionIDs(t, c, taskstore.PartitionIncomplete))
	assert.Equal(t, listsBefore+3, backend.lists)
	assert.False(t, c.Tasks().IsStale(taskstore.Key{UserID: user, Partition: taskstore.PartitionAll}))

	require.Len(t, journal.begun, 1)
	assert.Equal(t, outbox.StatusCommitted, journal.settled[journal.begun[0].ID])
}

func TestToggleRollsBackOnBackendError(t *testing.T) {
	c, backend, journal := setup(t)
	before := c.Tasks().Lists(user)
	backend.fail = errors.New("boom")
	listsBefore := backend.lists

	err := c.ToggleTask(context.Background(), user, "B", true)
	require.Error(t, err)

	assert.Equal(t, before, c.Tasks().Lists(user))
	// 失败后也会重新拉取每个已加载分区
	assert.Equal(t, listsBefore+3, backend.lists)
	assert.False(t, c.Tasks().IsStale(taskstore.Key{UserID: user, Partition: taskstore.PartitionComplete}))
	assert.Equal(t, outbox.StatusRolledBack, journal.settled[journal.begun[0].ID])
}

func TestFailedToggleKeepsOtherCommittedToggle(t *testing.T) {
	c, backend, _ := setup(t)
	ctx := context.Background()
	backend.failFor = map[string]error{"A": errors.New("rejected")}
	gate := backend.holdNext("A")

	errA := make(chan error, 1)
	go func() { errA <- c.ToggleTask(ctx, user, "A", true) }()
	require.Equal(t, "A", <-backend.entered)

	require.NoError(t, c.ToggleTask(ctx, user, "B", true))

	// 刷新失败时缓存只能靠回滚本身保持正确
	backend.setListFail(errors.New("backend down"))
	close(gate)
	require.Error(t, <-errA)

	assert.Equal(t, []string{"B", "C"}, partitionIDs(t, c, taskstore.PartitionComplete))
	assert.Equal(t, []string{"A"}, partitionIDs(t, c, taskstore.PartitionIncomplete))

	all, _ := c.Tasks().Get(taskstore.Key{UserID: user, Partition: taskstore.PartitionAll})
	require.Len(t, all, 3)
	assert.False(t, all[0].IsCompleted)
	assert.True(t, all[1].IsCompleted)

	backend.setListFail(nil)
	require.NoError(t, c.Refetch(ctx, user))
	assert.Equal(t, []string{"B", "C"}, partitionIDs(t, c, taskstore.PartitionComplete))
	assert.Equal(t, []string{"A"}, partitionIDs(t, c, taskstore.PartitionIncomplete))
}

func TestRapidDoubleToggleLeavesSingleEntry(t *testing.T) {
	c, backend, _ := setup(t)
	ctx := context.Background()
	gate := backend.holdNext("A")

	first := make(chan error, 1)
	go func() { first <- c.ToggleTask(ctx, user, "A", true) }()
	require.Equal(t, "A", <-backend.entered)

	backend.setListFail(errors.New("backend down"))
	require.NoError(t, c.ToggleTask(ctx, user, "A", true))
	assert.Equal(t, []string{"A", "C"}, partitionIDs(t, c, taskstore.PartitionComplete))
	assert.Equal(t, []string{"B"}, partitionIDs(t, c, taskstore.PartitionIncomplete))

	backend.setListFail(nil)
	close(gate)
	require.NoError(t, <-first)
	assert.ElementsMatch(t, []string{"A", "C"}, partitionIDs(t, c, taskstore.PartitionComplete))
}

func TestToggleSequenceSettlesToServerTruth(t *testing.T) {
	c, _, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, c.ToggleTask(ctx, user, "A", true))
	require.NoError(t, c.ToggleTask(ctx, user, "A", false))
	require.NoError(t, c.ToggleTask(ctx, user, "A", true))
	require.NoError(t, c.ToggleTask(ctx, user, "C", false))

	complete := partitionIDs(t, c, taskstore.PartitionComplete)
	incomplete := partitionIDs(t, c, taskstore.PartitionIncomplete)
	assert.ElementsMatch(t, []string{"A"}, complete)
	assert.ElementsMatch(t, []string{"B", "C"}, incomplete)
}

func TestConcurrentTogglesStayExclusive(t *testing.T) {
	c, _, _ := setup(t)
	var wg sync.WaitGroup
	for _, id := range []string{"A", "B", "C"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			assert.NoError(t, c.ToggleTask(context.Background(), user, id, true))
		}(id)
	}
	wg.Wait()
	require.NoError(t, c.Refetch(context.Background(), user))

	assert.ElementsMatch(t, []string{"A", "B", "C"}, partitionIDs(t, c, taskstore.PartitionComplete))
	assert.Empty(t, partitionIDs(t, c, taskstore.PartitionIncomplete))
}

func TestUpdateTaskWithCompletionMovesPartition(t *testing.T) {
	c, _, _ := setup(t)
	done := true
	high := model.PriorityHigh

	require.NoError(t, c.UpdateTask(context.Background(), user, "B", model.TaskPatch{IsCompleted: &done, Priority: &high}))
	assert.ElementsMatch(t, []string{"B", "C"}, partitionIDs(t, c, taskstore.PartitionComplete))

	assert.ErrorIs(t, c.UpdateTask(context.Background(), user, "B", model.TaskPatch{}), ErrInvalidInput)
	bad := model.Priority("urgent")
	err := c.UpdateTask(context.Background(), user, "B", model.TaskPatch{Priority: &bad})
	assert.Equal(t, util.KindValidation, util.ClassifyError(err))
}

func TestDeleteTaskRollback(t *testing.T) {
	c, backend, _ := setup(t)
	backend.fail = errors.New("nope")
	require.Error(t, c.DeleteTask(context.Background(), user, "A"))
	assert.Contains(t, partitionIDs(t, c, taskstore.PartitionAll), "A")

	backend.fail = nil
	require.NoError(t, c.DeleteTask(context.Background(), user, "A"))
	assert.NotContains(t, partitionIDs(t, c, taskstore.PartitionAll), "A")
}

func TestCreateTaskRefetches(t *testing.T) {
	c, _, _ := setup(t)
	_, err := c.CreateTask(context.Background(), model.TaskCreate{UserID: user, Description: "write report"})
	require.NoError(t, err)
	assert.Contains(t, partitionIDs(t, c, taskstore.PartitionIncomplete), "new")

	_, err = c.CreateTask(context.Background(), model.TaskCreate{UserID: user})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLogHabitDefaultsAndInvalidates(t *testing.T) {
	c, backend, _ := setup(t)
	_, err := c.Habits(context.Background(), user)
	require.NoError(t, err)

	log, err := c.LogHabit(context.Background(), model.HabitLogCreate{UserID: user, HabitID: "h1"})
	require.NoError(t, err)
	assert.Equal(t, 1, backend.habitLog.CompletedRepetitions)
	assert.Equal(t, model.HabitStatusCompleted, log.Status)

	_, fresh, ok := c.Cache().Habits.Get(querycache.HabitsKey(user))
	assert.True(t, ok)
	assert.False(t, fresh)
}

func TestCreateHabitDefaultsAndInvalidates(t *testing.T) {
	c, backend, _ := setup(t)
	_, err := c.Habits(context.Background(), user)
	require.NoError(t, err)

	habit, err := c.CreateHabit(context.Background(), model.HabitCreate{UserID: user, Name: "Stretch"})
	require.NoError(t, err)
	assert.Equal(t, "h-new", habit.ID)
	assert.Equal(t, 1, backend.habit.GoalRepetitions)
	assert.Equal(t, model.HabitPeriodDaily, backend.habit.GoalPeriod)

	_, fresh, ok := c.Cache().Habits.Get(querycache.HabitsKey(user))
	assert.True(t, ok)
	assert.False(t, fresh)

	_, err = c.CreateHabit(context.Background(), model.HabitCreate{UserID: user})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = c.CreateHabit(context.Background(), model.HabitCreate{UserID: user, Name: "x", GoalPeriod: "hourly"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
