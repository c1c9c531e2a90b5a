package outbox

import (
	"encoding/json"

	"github.com/google/uuid"

	"routinedash/pkg/mq"
)

// NewEntry builds a pending entry for a mutation; payload is stored as JSON.
func NewEntry(userID, kind, taskID string, payload any) (*Entry, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Entry{
		ID:            uuid.NewString(),
		UserID:        userID,
		Kind:          kind,
		TaskID:        taskID,
		RoutingKey:    mq.RoutingKeyMutationCommitted,
		Payload:       body,
		Status:        StatusPending,
		PublishStatus: PublishPending,
	}, nil
}

// Message 发布到 MQ 的消息体
type Message struct {
	ID      string          `json:"id"`
	UserID  string          `json:"user_id"`
	Kind    string          `json:"kind"`
	TaskID  string          `json:"task_id,omitempty"`
	Payload json.RawMessage `json:"payload"`
	TraceID string          `json:"trace_id,omitempty"`
}

func (e *Entry) Message() Message {
	return Message{
		ID:      e.ID,
		UserID:  e.UserID,
		Kind:    e.Kind,
		TaskID:  e.TaskID,
		Payload: e.Payload,
		TraceID: traceIDOf(e.Payload),
	}
}

func traceIDOf(payload json.RawMessage) string {
	var body struct {
		TraceID string `json:"trace_id"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	return body.TraceID
}
