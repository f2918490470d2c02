package board

import (
	"errors"
	"sync"

	"github.com/BuzzLyutic/mission-control/internal/model"
)

var ErrInvalidColumn = errors.New("invalid column")

// Mover is the part of the task repository the drag controller needs.
type Mover interface {
	Get(id int64) (model.Task, bool)
	Update(id int64, patch model.TaskPatch) bool
}

type DropResult string

const (
	// DropIgnored: no drag was active, or the dragged task is gone.
	DropIgnored DropResult = "ignored"
	// DropUnchanged: the task already sits in the target column.
	DropUnchanged DropResult = "unchanged"
	DropMoved     DropResult = "moved"
)

// DragController tracks the single card being dragged. It is either idle or
// dragging exactly one task; a new Start overwrites the previous one.
type DragController struct {
	mover Mover

	mu       sync.Mutex
	dragging bool
	taskID   int64
}

func NewDragController(m Mover) *DragController {
	return &DragController{mover: m}
}

func (d *DragController) Start(id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dragging = true
	d.taskID = id
}

func (d *DragController) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dragging = false
	d.taskID = 0
}

// Active returns the dragged task id, if any.
func (d *DragController) Active() (int64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.taskID, d.dragging
}

// Drop ends the drag over column. The controller is idle afterwards whatever
// the outcome.
func (d *DragController) Drop(column model.Status) (DropResult, error) {
	d.mu.Lock()
	id, dragging := d.taskID, d.dragging
	d.dragging = false
	d.taskID = 0
	d.mu.Unlock()

	if !column.Valid() {
		return DropIgnored, ErrInvalidColumn
	}
	if !dragging {
		return DropIgnored, nil
	}

	task, ok := d.mover.Get(id)
	if !ok {
		return DropIgnored, nil
	}
	if task.Status == column {
		return DropUnchanged, nil
	}
	if !d.mover.Update(id, model.StatusPatch(column)) {
		return DropIgnored, nil
	}
	return DropMoved, nil
}
