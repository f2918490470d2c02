package board

import "github.com/BuzzLyutic/mission-control/internal/model"

// Board is the three-column view of a task collection.
type Board struct {
	Todo       []model.Task `json:"todo"`
	InProgress []model.Task `json:"in_progress"`
	Done       []model.Task `json:"done"`
}

// Partition splits tasks by status, keeping their relative order. A task with
// an unrecognised status is shown in the todo column so that every task lands
// in exactly one column.
func Partition(tasks []model.Task) Board {
	b := Board{
		Todo:       []model.Task{},
		InProgress: []model.Task{},
		Done:       []model.Task{},
	}
	for _, t := range tasks {
		switch t.Status {
		case model.StatusInProgress:
			b.InProgress = append(b.InProgress, t)
		case model.StatusDone:
			b.Done = append(b.Done, t)
		default:
			b.Todo = append(b.Todo, t)
		}
	}
	return b
}

// Column returns the tasks of one column, or nil for an unknown status.
func (b Board) Column(s model.Status) []model.Task {
	switch s {
	case model.StatusTodo:
		return b.Todo
	case model.StatusInProgress:
		return b.InProgress
	case model.StatusDone:
		return b.Done
	}
	return nil
}

// Counts returns the number of tasks in each column.
func (b Board) Counts() map[model.Status]int {
	return map[model.Status]int{
		model.StatusTodo:       len(b.Todo),
		model.StatusInProgress: len(b.InProgress),
		model.StatusDone:       len(b.Done),
	}
}

func (b Board) Len() int {
	return len(b.Todo) + len(b.InProgress) + len(b.Done)
}
