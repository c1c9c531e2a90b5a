package taskstore

import (
	"sort"
	"sync"

	"routinedash/internal/model"
)

type entry struct {
	tasks []model.Task
	stale bool
}

// Store 按用户和分区保存任务列表，所有读写都在同一把锁下完成
type Store struct {
	mu      sync.RWMutex
	entries map[Key]*entry
}

func New() *Store {
	return &Store{entries: make(map[Key]*entry)}
}

// Snapshot holds the pre-mutation contents of the keys a mutation touched.
type Snapshot struct {
	entries map[Key][]model.Task
}

// Keys returns the keys captured by the snapshot.
func (s Snapshot) Keys() []Key {
	keys := make([]Key, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

func (s Snapshot) Empty() bool { return len(s.entries) == 0 }

// Get returns a copy of the partition and whether it is loaded.
func (s *Store) Get(key Key) ([]model.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	return cloneTasks(e.tasks), true
}

// IsStale reports whether key needs a refetch. Unloaded keys are stale.
func (s *Store) IsStale(key Key) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return !ok || e.stale
}

// Replace installs fetched server truth for key.
func (s *Store) Replace(key Key, tasks []model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = &entry{tasks: cloneTasks(tasks)}
}

// Loaded returns the loaded partitions of userID, sorted.
func (s *Store) Loaded(userID string) []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedLocked(userID)
}

func (s *Store) loadedLocked(userID string) []Key {
	var keys []Key
	for k := range s.entries {
		if k.UserID == userID {
			keys = append(keys, k)
		}
	}
	sortKeys(keys)
	return keys
}

// Invalidate marks every loaded partition of userID stale and returns them.
func (s *Store) Invalidate(userID string) []Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := s.loadedLocked(userID)
	for _, k := range keys {
		s.entries[k].stale = true
	}
	return keys
}

// Snapshot copies the given keys. Keys that are not loaded are skipped.
func (s *Store) Snapshot(keys ...Key) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{entries: make(map[Key][]model.Task, len(keys))}
	for _, k := range keys {
		if e, ok := s.entries[k]; ok {
			snap.entries[k] = cloneTasks(e.tasks)
		}
	}
	return snap
}

// Apply runs the reducer over userID's loaded partitions atomically and
// returns a snapshot of exactly the partitions it changed.
func (s *Store) Apply(userID string, m Mutation) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	lists := make(Lists)
	for _, k := range s.loadedLocked(userID) {
		lists[k.Partition] = s.entries[k].tasks
	}

	next, changed := reduce(lists, m)
	snap := Snapshot{entries: make(map[Key][]model.Task, len(changed))}
	for _, p := range changed {
		k := Key{UserID: userID, Partition: p}
		e := s.entries[k]
		snap.entries[k] = cloneTasks(e.tasks)
		e.tasks = next[p]
	}
	return snap
}

// Restore writes back exactly the keys held by snap.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, tasks := range snap.entries {
		e, ok := s.entries[k]
		if !ok {
			e = &entry{}
			s.entries[k] = e
		}
		e.tasks = cloneTasks(tasks)
	}
}

// Rollback reverts taskID inside the keys held by snap and leaves every other
// entry as it is now, so changes to other tasks made since the snapshot survive.
func (s *Store) Rollback(snap Snapshot, taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, before := range snap.entries {
		e, ok := s.entries[k]
		if !ok {
			continue
		}
		e.tasks = revertTask(e.tasks, before, taskID)
	}
}

// revertTask puts id back where it was in before: after its old predecessor,
// else ahead of its old successor, else at its old index.
func revertTask(current, before []model.Task, id string) []model.Task {
	rest, _ := removeByID(current, id)
	idx := indexOf(before, id)
	if idx < 0 {
		return cloneTasks(rest)
	}

	pos := min(idx, len(rest))
	if j := neighbour(rest, before, idx-1); j >= 0 {
		pos = j + 1
	} else if j := neighbour(rest, before, idx+1); j >= 0 {
		pos = j
	}
	out := make([]model.Task, 0, len(rest)+1)
	out = append(out, rest[:pos]...)
	out = append(out, before[idx])
	out = append(out, rest[pos:]...)
	return cloneTasks(out)
}

func neighbour(rest, before []model.Task, i int) int {
	if i < 0 || i >= len(before) {
		return -1
	}
	return indexOf(rest, before[i].ID)
}

// Lists returns a copy of all loaded partitions of userID.
func (s *Store) Lists(userID string) Lists {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(Lists)
	for _, k := range s.loadedLocked(userID) {
		out[k.Partition] = cloneTasks(s.entries[k].tasks)
	}
	return out
}

func cloneTasks(tasks []model.Task) []model.Task {
	if tasks == nil {
		return nil
	}
	out := make([]model.Task, len(tasks))
	copy(out, tasks)
	for i := range out {
		if out[i].DueDate != nil {
			due := *out[i].DueDate
			out[i].DueDate = &due
		}
	}
	return out
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].UserID != keys[j].UserID {
			return keys[i].UserID < keys[j].UserID
		}
		return keys[i].Partition < keys[j].Partition
	})
}
