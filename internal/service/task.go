package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/BuzzLyutic/mission-control/internal/board"
	"github.com/BuzzLyutic/mission-control/internal/model"
	"github.com/BuzzLyutic/mission-control/internal/repo"
	"github.com/BuzzLyutic/mission-control/internal/store"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
)

// TaskRepository определяет то, что сервис использует из репозитория задач
type TaskRepository interface {
	Load(ctx context.Context) error
	Reconcile(ctx context.Context) error
	Add(ctx context.Context, draft model.TaskDraft) (model.Task, error)
	Update(id int64, patch model.TaskPatch) bool
	Remove(id int64) bool
	Tasks() []model.Task
	Get(id int64) (model.Task, bool)
	LoadErr() error
	Subscribe() (<-chan repo.Event, func())
}

// SyncStatus reports remote calls that have not finished yet.
type SyncStatus interface {
	InFlight() int
}

// BoardView is what the presentation layer renders.
type BoardView struct {
	board.Board
	Counts    map[model.Status]int `json:"counts"`
	LoadError string               `json:"load_error,omitempty"`
	InFlight  int                  `json:"in_flight"`
}

type TaskService struct {
	repo   TaskRepository
	roster store.Store
	sync   SyncStatus
	drag   *board.DragController
}

func NewTaskService(r TaskRepository, roster store.Store, sync SyncStatus) *TaskService {
	return &TaskService{
		repo:   r,
		roster: roster,
		sync:   sync,
		drag:   board.NewDragController(r),
	}
}

// Board recomputes the columns from the current collection.
func (s *TaskService) Board() BoardView {
	b := board.Partition(s.repo.Tasks())
	v := BoardView{Board: b, Counts: b.Counts()}
	if err := s.repo.LoadErr(); err != nil {
		v.LoadError = err.Error()
	}
	if s.sync != nil {
		v.InFlight = s.sync.InFlight()
	}
	return v
}

func (s *TaskService) Tasks() []model.Task {
	return s.repo.Tasks()
}

func (s *TaskService) Get(id int64) (model.Task, error) {
	t, ok := s.repo.Get(id)
	if !ok {
		return t, ErrNotFound
	}
	return t, nil
}

// Reload replaces the board with the store's contents. A failure leaves an
// empty board with the load error set, so the caller can offer a retry.
func (s *TaskService) Reload(ctx context.Context) error {
	return s.repo.Load(ctx)
}

// Reconcile re-fetches the board but keeps the current one if the store is unreachable.
func (s *TaskService) Reconcile(ctx context.Context) error {
	return s.repo.Reconcile(ctx)
}

func (s *TaskService) Create(ctx context.Context, draft model.TaskDraft) (model.Task, error) {
	if err := model.Validate(draft); err != nil {
		return model.Task{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.repo.Add(ctx, draft)
}

func (s *TaskService) Update(id int64, patch model.TaskPatch) (model.Task, error) {
	if patch.IsEmpty() {
		return model.Task{}, fmt.Errorf("%w: empty patch", ErrValidation)
	}
	if err := model.Validate(patch); err != nil {
		return model.Task{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !s.repo.Update(id, patch) {
		return model.Task{}, ErrNotFound
	}
	return s.Get(id)
}

// Move puts a task into column. Moving into the column it already sits in
// does nothing.
func (s *TaskService) Move(id int64, column model.Status) (model.Task, error) {
	if !column.Valid() {
		return model.Task{}, fmt.Errorf("%w: unknown column %q", ErrValidation, column)
	}
	t, ok := s.repo.Get(id)
	if !ok {
		return t, ErrNotFound
	}
	if t.Status == column {
		return t, nil
	}
	return s.Update(id, model.StatusPatch(column))
}

func (s *TaskService) Delete(id int64) error {
	if !s.repo.Remove(id) {
		return ErrNotFound
	}
	return nil
}

func (s *TaskService) StartDrag(id int64) error {
	if _, ok := s.repo.Get(id); !ok {
		return ErrNotFound
	}
	s.drag.Start(id)
	return nil
}

func (s *TaskService) Drop(column model.Status) (board.DropResult, error) {
	res, err := s.drag.Drop(column)
	if errors.Is(err, board.ErrInvalidColumn) {
		return res, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return res, err
}

func (s *TaskService) CancelDrag() {
	s.drag.Cancel()
}

// Dragging returns the id of the card being dragged, if any.
func (s *TaskService) Dragging() (int64, bool) {
	return s.drag.Active()
}

// Agents lists the read-only roster.
func (s *TaskService) Agents(ctx context.Context) ([]model.Agent, error) {
	rows, err := s.roster.List(ctx, store.TableAgents, store.ListOptions{})
	if err != nil {
		return nil, err
	}
	var agents []model.Agent
	if err := store.Decode(rows, &agents); err != nil {
		return nil, err
	}
	if agents == nil {
		agents = []model.Agent{}
	}
	return agents, nil
}

func (s *TaskService) Subscribe() (<-chan repo.Event, func()) {
	return s.repo.Subscribe()
}
