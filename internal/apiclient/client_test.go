package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routinedash/internal/model"
	"routinedash/pkg/circuitbreaker"
	"routinedash/pkg/util"
)

func TestNormalizeBaseURL(t *testing.T) {
	cases := map[string]string{
		"":                           defaultBaseURL,
		"  http://api.local/  ":      "http://api.local",
		"http://api.local/v1":        "http://api.local",
		"http://api.local/v1/":       "http://api.local",
		"http://api.local/prefix/v1": "http://api.local/prefix",
		"/v1":                        "/v1",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeBaseURL(in), in)
	}
}

func TestResolvePath(t *testing.T) {
	cases := map[string]string{
		"tasks":           "/v1/tasks",
		"/tasks":          "/v1/tasks",
		"/v1/tasks":       "/v1/tasks",
		"/v1":             "/v1",
		"/v1beta/x":       "/v1/v1beta/x",
		"/api/dashboard":  "/api/dashboard",
		"/scheduler/plan": "/v1/scheduler/plan",
	}
	for in, want := range cases {
		assert.Equal(t, want, ResolvePath(in), in)
	}
}

func TestListTasksSendsFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/tasks", r.URL.Path)
		assert.Equal(t, "u1", r.URL.Query().Get("user_id"))
		assert.Equal(t, "false", r.URL.Query().Get("is_completed"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode([]model.Task{{ID: "a", UserID: "u1"}})
	}))
	defer srv.Close()

	c := New(srv.URL+"/v1/", time.Second, WithToken("tok"))
	open := false
	tasks, err := c.ListTasks(context.Background(), "u1", &open)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "a", tasks[0].ID)
}

func TestSetTaskCompletedUsesQueryParam(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/v1/tasks/t1", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("is_completed"))
		_ = json.NewEncoder(w).Encode(model.Task{ID: "t1", IsCompleted: true})
	}))
	defer srv.Close()

	task, err := New(srv.URL, time.Second).SetTaskCompleted(context.Background(), "t1", true)
	require.NoError(t, err)
	assert.True(t, task.IsCompleted)
}

func TestLegacyDashboardPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tasks/task-1", r.URL.Path)
		var body model.DashboardTaskUpdate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, body.Completed)
		_ = json.NewEncoder(w).Encode(model.DashboardState{User: "Wendy"})
	}))
	defer srv.Close()

	state, err := New(srv.URL, time.Second).ToggleChecklist(context.Background(), "task-1", true)
	require.NoError(t, err)
	assert.Equal(t, "Wendy", state.User)
}

func TestAPIErrorDetail(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		detail string
		kind   string
	}{
		{"fastapi detail", 404, `{"detail":"Task not found"}`, "Task not found", util.KindNotFound},
		{"error field", 400, `{"error":"bad input"}`, "bad input", util.KindClient},
		{"plain text", 502, "upstream down", "upstream down", util.KindServer},
		{"structured detail", 422, `{"detail":[{"loc":["body"]}]}`, `[{"loc":["body"]}]`, util.KindClient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			err := New(srv.URL, time.Second).DeleteTask(context.Background(), "x")
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, tc.detail, apiErr.Detail)
			assert.Equal(t, tc.kind, util.ClassifyError(err))
		})
	}
}

func TestCreateHabitLogAppliesDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body model.HabitLogCreate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 1, body.CompletedRepetitions)
		assert.Equal(t, model.HabitStatusCompleted, body.Status)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(model.HabitLog{ID: "l1", HabitID: body.HabitID})
	}))
	defer srv.Close()

	log, err := New(srv.URL, time.Second).CreateHabitLog(context.Background(), model.HabitLogCreate{UserID: "u1", HabitID: "h1"})
	require.NoError(t, err)
	assert.Equal(t, "h1", log.HabitID)
}

func TestListEnvelopes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/habits":
			_, _ = w.Write([]byte(`{"total":1,"items":[{"_id":"h1","name":"Water"}]}`))
		case "/v1/schedule-events":
			_, _ = w.Write([]byte(`{"total":0,"items":[]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	habits, err := c.ListHabits(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Water", habits[0].Name)

	events, err := c.ListScheduleEvents(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, events)

	_, err = c.Summary(context.Background(), "u1")
	assert.True(t, IsNotFound(err))
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := circuitbreaker.DefaultConfig()
	cfg.FailureThreshold = 2
	cfg.IsFailure = util.IsTransient
	c := New(srv.URL, time.Second, WithBreaker(circuitbreaker.NewCircuitBreaker(cfg)))

	for i := 0; i < 2; i++ {
		_, err := c.ListHabits(context.Background(), "u1")
		require.Error(t, err)
	}
	_, err := c.ListHabits(context.Background(), "u1")
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitBreakerOpen)
	assert.Equal(t, 2, calls)
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, "/v1/tasks/:id", routeLabel("/tasks/abc"))
	assert.Equal(t, "/v1/tasks/replan", routeLabel("/tasks/replan"))
	assert.Equal(t, "/v1/tasks/ai/split", routeLabel("/tasks/ai/split"))
	assert.Equal(t, "/api/habits/:id", routeLabel("/api/habits/habit-water"))
}
