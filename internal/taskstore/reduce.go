package taskstore

import (
	"routinedash/internal/model"
)

// Mutation 是对任务列表的一次乐观修改
type Mutation interface {
	TaskID() string
	Kind() string
}

// Toggle flips a task's completion flag and moves it between partitions.
type Toggle struct {
	ID        string
	Completed bool
}

// Patch updates priority and/or due date in place.
type Patch struct {
	ID    string
	Patch model.TaskPatch
}

// Remove drops the task from every partition.
type Remove struct {
	ID string
}

// Batch applies several steps on the same task as one mutation.
type Batch []Mutation

func (m Toggle) TaskID() string { return m.ID }
func (m Toggle) Kind() string   { return "toggle" }
func (m Patch) TaskID() string  { return m.ID }
func (m Patch) Kind() string    { return "patch" }
func (m Remove) TaskID() string { return m.ID }
func (m Remove) Kind() string   { return "remove" }

func (m Batch) TaskID() string {
	if len(m) == 0 {
		return ""
	}
	return m[0].TaskID()
}

func (m Batch) Kind() string { return "patch" }

// Reduce applies m to lists and returns the new lists. The input is never
// modified; partitions the mutation leaves alone share their backing slice.
func Reduce(lists Lists, m Mutation) Lists {
	next, _ := reduce(lists, m)
	return next
}

// reduce also reports which partitions changed.
func reduce(lists Lists, m Mutation) (Lists, []Partition) {
	if batch, ok := m.(Batch); ok {
		return reduceBatch(lists, batch)
	}

	next := make(Lists, len(lists))
	for p, tasks := range lists {
		next[p] = tasks
	}

	var changed []Partition
	set := func(p Partition, tasks []model.Task, ok bool) {
		if ok {
			next[p] = tasks
			changed = append(changed, p)
		}
	}

	switch m := m.(type) {
	case Toggle:
		moved, found := locate(lists, m.ID)
		moved.IsCompleted = m.Completed
		for _, p := range partitionOrder {
			tasks, loaded := lists[p]
			if !loaded {
				continue
			}
			flip := func(t *model.Task) { t.IsCompleted = m.Completed }
			switch {
			case p == PartitionAll:
				out, changed, _ := patchInPlace(tasks, m.ID, flip)
				set(p, out, changed)
			case p.Accepts(m.Completed):
				// 目标分区：已存在则原地更新，否则插到最前面（最近完成的在前）
				out, changed, present := patchInPlace(tasks, m.ID, flip)
				if present {
					set(p, out, changed)
				} else if found {
					set(p, prepend(tasks, moved), true)
				}
			default:
				out, removed := removeByID(tasks, m.ID)
				set(p, out, removed)
			}
		}
	case Patch:
		for _, p := range partitionOrder {
			if tasks, loaded := lists[p]; loaded {
				out, changed, _ := patchInPlace(tasks, m.ID, func(t *model.Task) { applyPatch(t, m.Patch) })
				set(p, out, changed)
			}
		}
	case Remove:
		for _, p := range partitionOrder {
			if tasks, loaded := lists[p]; loaded {
				out, removed := removeByID(tasks, m.ID)
				set(p, out, removed)
			}
		}
	}
	return next, changed
}

var partitionOrder = []Partition{PartitionIncomplete, PartitionComplete, PartitionAll}

// locate finds the task's current shape in any loaded partition.
func locate(lists Lists, id string) (model.Task, bool) {
	for _, p := range partitionOrder {
		for _, t := range lists[p] {
			if t.ID == id {
				return t, true
			}
		}
	}
	return model.Task{}, false
}

// patchInPlace reports whether the task is present and, separately, whether
// fn changed it. A present but unchanged task returns the input slice.
func patchInPlace(tasks []model.Task, id string, fn func(*model.Task)) (out []model.Task, changed, present bool) {
	for i := range tasks {
		if tasks[i].ID != id {
			continue
		}
		updated := tasks[i]
		fn(&updated)
		if sameTask(updated, tasks[i]) {
			return tasks, false, true
		}
		out = append([]model.Task(nil), tasks...)
		out[i] = updated
		return out, true, true
	}
	return tasks, false, false
}

func indexOf(tasks []model.Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func removeByID(tasks []model.Task, id string) ([]model.Task, bool) {
	for i := range tasks {
		if tasks[i].ID == id {
			out := make([]model.Task, 0, len(tasks)-1)
			out = append(out, tasks[:i]...)
			return append(out, tasks[i+1:]...), true
		}
	}
	return tasks, false
}

func prepend(tasks []model.Task, t model.Task) []model.Task {
	out := make([]model.Task, 0, len(tasks)+1)
	out = append(out, t)
	return append(out, tasks...)
}

func applyPatch(t *model.Task, p model.TaskPatch) {
	if p.IsCompleted != nil {
		t.IsCompleted = *p.IsCompleted
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.ClearDueDate {
		t.DueDate = nil
	} else if p.DueDate != nil {
		due := *p.DueDate
		t.DueDate = &due
	}
}

func sameTask(a, b model.Task) bool {
	if a.ID != b.ID || a.UserID != b.UserID || a.Description != b.Description ||
		a.IsCompleted != b.IsCompleted || a.Priority != b.Priority || !a.CreatedAt.Equal(b.CreatedAt) {
		return false
	}
	switch {
	case a.DueDate == nil && b.DueDate == nil:
		return true
	case a.DueDate == nil || b.DueDate == nil:
		return false
	}
	return a.DueDate.Equal(*b.DueDate)
}

func reduceBatch(lists Lists, batch Batch) (Lists, []Partition) {
	var changed []Partition
	seen := make(map[Partition]bool)
	for _, step := range batch {
		var stepChanged []Partition
		lists, stepChanged = reduce(lists, step)
		for _, p := range stepChanged {
			if !seen[p] {
				seen[p] = true
				changed = append(changed, p)
			}
		}
	}
	return lists, changed
}
