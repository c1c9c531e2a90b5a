// Package autoschedule assembles plan requests for the remote scheduler and
// persists accepted blocks. Placement itself happens server-side.
package autoschedule

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"routinedash/internal/model"
	"routinedash/internal/querycache"
	"routinedash/pkg/logger"
	"routinedash/pkg/util"
)

const (
	MinDuration     = 15
	MaxDuration     = 240
	DefaultDuration = 30
	BlockMinutes    = 15

	MsgNoSlots      = "No available time slots found"
	DefaultSummary  = "Scheduled focus block"
	localTimeLayout = "2006-01-02T15:04"
)

type validationError string

func (e validationError) Error() string    { return string(e) }
func (e validationError) Validation() bool { return true }

var (
	ErrInvalidInput    error = validationError("invalid input")
	ErrEmptySelection        = fmt.Errorf("%w: select at least one task", ErrInvalidInput)
	ErrInvalidWindow         = fmt.Errorf("%w: enter a valid planning window", ErrInvalidInput)
	ErrWindowOrder           = fmt.Errorf("%w: window start is after end", ErrInvalidInput)
	ErrNothingToCommit       = fmt.Errorf("%w: plan has no blocks", ErrInvalidInput)
)

// Backend 由 apiclient.Client 实现
type Backend interface {
	PlanSchedule(ctx context.Context, req model.PlanRequest) (model.PlanResponse, error)
	BulkCreateScheduleEvents(ctx context.Context, req model.BulkScheduleRequest) (model.BulkScheduleResponse, error)
	ReplanTasks(ctx context.Context, req model.ReplanRequest) (model.ReplanResponse, error)
}

// ClampDuration keeps minutes inside [MinDuration, MaxDuration]; 0 means MinDuration.
func ClampDuration(minutes int) int {
	return max(MinDuration, min(MaxDuration, minutes))
}

// Selection 保留勾选顺序，请求中的任务按该顺序排列
type Selection struct {
	order     []string
	durations map[string]int
}

func NewSelection() *Selection {
	return &Selection{durations: make(map[string]int)}
}

// Select adds taskID with DefaultDuration, keeping an earlier duration if already selected.
func (s *Selection) Select(taskID string) {
	if _, ok := s.durations[taskID]; ok {
		return
	}
	s.order = append(s.order, taskID)
	s.durations[taskID] = DefaultDuration
}

func (s *Selection) Deselect(taskID string) {
	if _, ok := s.durations[taskID]; !ok {
		return
	}
	delete(s.durations, taskID)
	s.order = slices.DeleteFunc(s.order, func(id string) bool { return id == taskID })
}

// SetDuration selects taskID if needed and stores the clamped duration.
func (s *Selection) SetDuration(taskID string, minutes int) {
	s.Select(taskID)
	s.durations[taskID] = ClampDuration(minutes)
}

func (s *Selection) Duration(taskID string) (int, bool) {
	d, ok := s.durations[taskID]
	return d, ok
}

func (s *Selection) Len() int { return len(s.order) }

func (s *Selection) Tasks() []model.PlanTask {
	out := make([]model.PlanTask, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, model.PlanTask{TaskID: id, DurationMinutes: s.durations[id]})
	}
	return out
}

// ParseWindow accepts RFC3339 or datetime-local ("2006-01-02T15:04") bounds.
func ParseWindow(start, end string, loc *time.Location) (model.PlanWindow, error) {
	s, err := parseBound(start, loc)
	if err != nil {
		return model.PlanWindow{}, err
	}
	e, err := parseBound(end, loc)
	if err != nil {
		return model.PlanWindow{}, err
	}
	w := model.PlanWindow{Start: s, End: e}
	return w, ValidateWindow(w)
}

func parseBound(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, ErrInvalidWindow
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.ParseInLocation(localTimeLayout, v, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidWindow, v)
}

func ValidateWindow(w model.PlanWindow) error {
	if w.Start.IsZero() || w.End.IsZero() {
		return ErrInvalidWindow
	}
	if w.Start.After(w.End) {
		return ErrWindowOrder
	}
	return nil
}

// DefaultWindow 今天 09:00 到明天 18:00
func DefaultWindow(now time.Time) model.PlanWindow {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return model.PlanWindow{
		Start: day.Add(9 * time.Hour),
		End:   day.AddDate(0, 0, 1).Add(18 * time.Hour),
	}
}

// Proposal is the plan as rendered to the user.
type Proposal struct {
	Blocks    []model.PlanBlock `json:"blocks"`
	Overflow  []string          `json:"overflow"`
	NoSlots   bool              `json:"no_slots"`
	CanCommit bool              `json:"can_commit"`
	Message   string            `json:"message,omitempty"`
}

func newProposal(resp model.PlanResponse) Proposal {
	p := Proposal{
		Blocks:   resp.Blocks,
		Overflow: resp.Overflow,
	}
	if p.Blocks == nil {
		p.Blocks = []model.PlanBlock{}
	}
	if p.Overflow == nil {
		p.Overflow = []string{}
	}
	p.NoSlots = len(p.Blocks) == 0
	p.CanCommit = !p.NoSlots
	if p.NoSlots {
		p.Message = MsgNoSlots
	}
	return p
}

type Planner struct {
	backend Backend
	cache   *querycache.Cache
	logger  *zap.Logger
}

func NewPlanner(backend Backend, cache *querycache.Cache, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{backend: backend, cache: cache, logger: logger}
}

// Plan asks the scheduler to place the selection inside window.
func (p *Planner) Plan(ctx context.Context, userID string, sel *Selection, window model.PlanWindow) (Proposal, error) {
	if sel == nil || sel.Len() == 0 {
		return Proposal{}, ErrEmptySelection
	}
	if err := ValidateWindow(window); err != nil {
		return Proposal{}, err
	}

	log := logger.WithTrace(ctx, p.logger).With(
		zap.String("user_id", userID),
		zap.Int("tasks", sel.Len()),
	)
	log.Debug("Requesting schedule plan")

	resp, err := p.backend.PlanSchedule(ctx, model.PlanRequest{
		UserID:       userID,
		Tasks:        sel.Tasks(),
		Window:       model.PlanWindow{Start: window.Start.UTC(), End: window.End.UTC()},
		BlockMinutes: BlockMinutes,
	})
	if err != nil {
		log.Error("Failed to plan schedule",
			zap.String("error_kind", util.ClassifyError(err)),
			zap.Error(err),
		)
		return Proposal{}, fmt.Errorf("could not generate a schedule: %w", err)
	}

	proposal := newProposal(resp)
	log.Info("Schedule planned",
		zap.Int("blocks", len(proposal.Blocks)),
		zap.Int("overflow", len(proposal.Overflow)),
	)
	return proposal, nil
}

// Commit bulk-creates schedule events for the proposal's blocks. tasks supplies
// block summaries; blocks for unknown tasks get DefaultSummary.
func (p *Planner) Commit(ctx context.Context, userID string, proposal Proposal, tasks []model.Task) (model.BulkScheduleResponse, error) {
	if len(proposal.Blocks) == 0 {
		return model.BulkScheduleResponse{}, ErrNothingToCommit
	}

	byID := make(map[string]model.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	blocks := make([]model.BulkScheduleBlock, 0, len(proposal.Blocks))
	for _, b := range proposal.Blocks {
		summary := DefaultSummary
		var description string
		if t, ok := byID[b.TaskID]; ok && t.Description != "" {
			summary = t.Description
			description = t.Description
		}
		blocks = append(blocks, model.BulkScheduleBlock{
			Summary:     summary,
			StartTime:   b.StartTime,
			EndTime:     b.EndTime,
			Description: description,
			TaskID:      b.TaskID,
		})
	}

	log := logger.WithTrace(ctx, p.logger).With(zap.String("user_id", userID))
	resp, err := p.backend.BulkCreateScheduleEvents(ctx, model.BulkScheduleRequest{UserID: userID, Blocks: blocks})
	if err != nil {
		log.Error("Failed to save scheduled blocks", zap.Error(err))
		return model.BulkScheduleResponse{}, fmt.Errorf("could not save events: %w", err)
	}

	p.cache.Schedule.Invalidate(querycache.ScheduleKey(userID))
	log.Info("Schedule saved", zap.Int("inserted", resp.Inserted))
	return resp, nil
}
