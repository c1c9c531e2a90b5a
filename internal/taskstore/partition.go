package taskstore

import (
	"fmt"

	"routinedash/internal/model"
)

// Partition 按完成状态划分的任务列表
type Partition string

const (
	PartitionAll        Partition = "all"
	PartitionComplete   Partition = "complete"
	PartitionIncomplete Partition = "incomplete"
)

// ParsePartition accepts the spellings used by the different dashboard
// generations ("completed" is an alias of "complete"); empty means all.
func ParsePartition(s string) (Partition, error) {
	switch s {
	case "", "all":
		return PartitionAll, nil
	case "complete", "completed", "done":
		return PartitionComplete, nil
	case "incomplete", "open", "pending":
		return PartitionIncomplete, nil
	}
	return "", fmt.Errorf("unknown task partition %q", s)
}

// Filter returns the is_completed filter for the backend list call; nil means unfiltered.
func (p Partition) Filter() *bool {
	switch p {
	case PartitionComplete:
		v := true
		return &v
	case PartitionIncomplete:
		v := false
		return &v
	}
	return nil
}

// Accepts reports whether a task with this completion flag belongs in p.
func (p Partition) Accepts(completed bool) bool {
	switch p {
	case PartitionComplete:
		return completed
	case PartitionIncomplete:
		return !completed
	}
	return true
}

type Key struct {
	UserID    string
	Partition Partition
}

func (k Key) String() string {
	return "tasks/" + k.UserID + "/" + string(k.Partition)
}

// Lists holds the loaded partitions of one user.
type Lists map[Partition][]model.Task
