// Package realtime merges server-pushed dashboard events into the cached
// aggregate and keeps the push channel connected.
package realtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"routinedash/internal/model"
)

const (
	TypeTaskUpdated  = "task_updated"
	TypeHabitUpdated = "habit_updated"

	// socket.io 风格的事件名
	socketIOEvent = "dashboard_event"
)

var ErrMalformed = errors.New("malformed realtime frame")

// Event is one of TaskUpdated, HabitUpdated or Unknown.
type Event interface {
	EventType() string
}

type TaskUpdated struct {
	TaskID    string
	Completed bool
	Progress  *model.ProgressSummary
}

type HabitUpdated struct {
	HabitID        string
	CompletedToday int
	Streak         *int
	Progress       *model.ProgressSummary
}

// Unknown 未识别的事件类型，合并时原样忽略
type Unknown struct {
	Type string
}

func (TaskUpdated) EventType() string  { return TypeTaskUpdated }
func (HabitUpdated) EventType() string { return TypeHabitUpdated }
func (e Unknown) EventType() string    { return e.Type }

// Envelope is a decoded frame. ID and UserID are optional on the wire.
type Envelope struct {
	ID     string
	UserID string
	Event  Event
}

type frame struct {
	ID      string          `json:"id"`
	UserID  string          `json:"user_id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type taskPayload struct {
	TaskID    string                 `json:"taskId"`
	Completed *bool                  `json:"completed"`
	Progress  *model.ProgressSummary `json:"progress"`
}

type habitPayload struct {
	HabitID        string                 `json:"habitId"`
	CompletedToday *int                   `json:"completedToday"`
	Streak         *int                   `json:"streak"`
	Progress       *model.ProgressSummary `json:"progress"`
}

// Decode parses a raw websocket frame {type, payload}, the object wrapper
// {"event": "dashboard_event", "data": {...}} and the socket.io packet
// 42["dashboard_event", {...}].
func Decode(raw []byte) (Envelope, error) {
	raw = bytes.TrimSpace(raw)
	raw = bytes.TrimPrefix(raw, []byte("42"))

	f, err := unwrap(raw)
	if err != nil {
		return Envelope{}, err
	}
	env := Envelope{ID: f.ID, UserID: f.UserID}

	switch f.Type {
	case TypeTaskUpdated:
		var p taskPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if p.TaskID == "" || p.Completed == nil {
			return Envelope{}, fmt.Errorf("%w: task_updated needs taskId and completed", ErrMalformed)
		}
		env.Event = TaskUpdated{TaskID: p.TaskID, Completed: *p.Completed, Progress: p.Progress}
	case TypeHabitUpdated:
		var p habitPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if p.HabitID == "" || p.CompletedToday == nil {
			return Envelope{}, fmt.Errorf("%w: habit_updated needs habitId and completedToday", ErrMalformed)
		}
		env.Event = HabitUpdated{HabitID: p.HabitID, CompletedToday: *p.CompletedToday, Streak: p.Streak, Progress: p.Progress}
	default:
		env.Event = Unknown{Type: f.Type}
	}
	return env, nil
}

func unwrap(raw []byte) (frame, error) {
	var f frame
	if len(raw) > 0 && raw[0] == '[' {
		var packet []json.RawMessage
		if err := json.Unmarshal(raw, &packet); err != nil || len(packet) < 2 {
			return f, fmt.Errorf("%w: bad socket.io packet", ErrMalformed)
		}
		var name string
		if err := json.Unmarshal(packet[0], &name); err != nil || name != socketIOEvent {
			return frame{Type: name}, nil
		}
		raw = packet[1]
	}

	var wrapper struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return f, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if wrapper.Event == socketIOEvent && len(wrapper.Data) > 0 {
		raw = wrapper.Data
	}

	if err := json.Unmarshal(raw, &f); err != nil {
		return f, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return f, nil
}

// Encode 生成与后端相同格式的帧，供 mock 后端广播使用
func Encode(userID string, ev Event) ([]byte, error) {
	f := map[string]any{"type": ev.EventType(), "user_id": userID}
	switch e := ev.(type) {
	case TaskUpdated:
		f["payload"] = map[string]any{"taskId": e.TaskID, "completed": e.Completed, "progress": e.Progress}
	case HabitUpdated:
		f["payload"] = map[string]any{"habitId": e.HabitID, "completedToday": e.CompletedToday, "streak": e.Streak, "progress": e.Progress}
	default:
		f["payload"] = map[string]any{}
	}
	return json.Marshal(f)
}
