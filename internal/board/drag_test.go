package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BuzzLyutic/mission-control/internal/model"
)

type fakeMover struct {
	tasks   []model.Task
	updates []model.TaskPatch
}

func (f *fakeMover) Get(id int64) (model.Task, bool) {
	for _, t := range f.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

func (f *fakeMover) Update(id int64, patch model.TaskPatch) bool {
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.updates = append(f.updates, patch)
			patch.Apply(&f.tasks[i], f.tasks[i].UpdatedAt)
			return true
		}
	}
	return false
}

func TestDragController_DropMovesTask(t *testing.T) {
	mover := &fakeMover{tasks: []model.Task{
		{ID: 1, Status: model.StatusTodo},
		{ID: 2, Status: model.StatusDone},
	}}
	d := NewDragController(mover)

	d.Start(1)
	id, active := d.Active()
	require.True(t, active)
	assert.Equal(t, int64(1), id)

	res, err := d.Drop(model.StatusDone)
	require.NoError(t, err)
	assert.Equal(t, DropMoved, res)

	require.Len(t, mover.updates, 1)
	assert.Equal(t, model.StatusDone, *mover.updates[0].Status)
	assert.Nil(t, mover.updates[0].Title)

	b := Partition(mover.tasks)
	assert.Empty(t, b.Todo)
	assert.Equal(t, []int64{1, 2}, taskIDs(b.Done))

	_, active = d.Active()
	assert.False(t, active)
}

func TestDragController_SameColumnIsNoop(t *testing.T) {
	mover := &fakeMover{tasks: []model.Task{{ID: 1, Status: model.StatusInProgress}}}
	d := NewDragController(mover)

	d.Start(1)
	res, err := d.Drop(model.StatusInProgress)
	require.NoError(t, err)

	assert.Equal(t, DropUnchanged, res)
	assert.Empty(t, mover.updates)
	assert.Equal(t, model.StatusInProgress, mover.tasks[0].Status)
}

func TestDragController_DropWithoutDrag(t *testing.T) {
	mover := &fakeMover{tasks: []model.Task{{ID: 1, Status: model.StatusTodo}}}
	d := NewDragController(mover)

	res, err := d.Drop(model.StatusDone)
	require.NoError(t, err)
	assert.Equal(t, DropIgnored, res)

	// duplicate drop event after a completed drag
	d.Start(1)
	_, err = d.Drop(model.StatusDone)
	require.NoError(t, err)
	res, err = d.Drop(model.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, DropIgnored, res)
	assert.Len(t, mover.updates, 1)
}

func TestDragController_StartOverwrites(t *testing.T) {
	mover := &fakeMover{tasks: []model.Task{
		{ID: 1, Status: model.StatusTodo},
		{ID: 2, Status: model.StatusTodo},
	}}
	d := NewDragController(mover)

	d.Start(1)
	d.Start(2)
	_, err := d.Drop(model.StatusDone)
	require.NoError(t, err)

	assert.Equal(t, model.StatusTodo, mover.tasks[0].Status)
	assert.Equal(t, model.StatusDone, mover.tasks[1].Status)
}

func TestDragController_Cancel(t *testing.T) {
	mover := &fakeMover{tasks: []model.Task{{ID: 1, Status: model.StatusTodo}}}
	d := NewDragController(mover)

	d.Start(1)
	d.Cancel()
	res, err := d.Drop(model.StatusDone)
	require.NoError(t, err)
	assert.Equal(t, DropIgnored, res)
	assert.Empty(t, mover.updates)
}

func TestDragController_InvalidColumn(t *testing.T) {
	mover := &fakeMover{tasks: []model.Task{{ID: 1, Status: model.StatusTodo}}}
	d := NewDragController(mover)

	d.Start(1)
	res, err := d.Drop("archive")
	assert.ErrorIs(t, err, ErrInvalidColumn)
	assert.Equal(t, DropIgnored, res)

	_, active := d.Active()
	assert.False(t, active, "an invalid drop still ends the drag")
	assert.Empty(t, mover.updates)
}

func TestDragController_TaskGone(t *testing.T) {
	mover := &fakeMover{}
	d := NewDragController(mover)

	d.Start(99)
	res, err := d.Drop(model.StatusDone)
	require.NoError(t, err)
	assert.Equal(t, DropIgnored, res)
}
