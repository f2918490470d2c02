package repo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/mission-control/internal/model"
	"github.com/BuzzLyutic/mission-control/internal/store"
	"github.com/BuzzLyutic/mission-control/internal/worker"
)

// Syncer runs remote calls without blocking the caller.
type Syncer interface {
	Submit(op worker.Op) bool
}

// Load and Reconcile must see rows changed elsewhere, so they never read a cached list.
var listOrder = store.ListOptions{OrderBy: "created_at", Desc: true, Fresh: true}

// TaskRepo holds the session's tasks. Memory always reflects the last locally
// applied intent; the store may lag behind it or, after a failed sync, diverge.
type TaskRepo struct {
	store  store.Store
	syncer Syncer
	logger *zap.Logger
	now    func() time.Time

	mu      sync.RWMutex
	tasks   []model.Task
	loadErr error

	notifier
}

func NewTaskRepo(s store.Store, syncer Syncer, logger *zap.Logger) *TaskRepo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskRepo{
		store:  s,
		syncer: syncer,
		logger: logger,
		now:    time.Now,
	}
}

// Load replaces the collection with the store's contents. On failure the
// collection is emptied and LoadErr reports the error until the next success.
func (r *TaskRepo) Load(ctx context.Context) error {
	tasks, err := r.fetch(ctx)

	r.mu.Lock()
	if err != nil {
		r.tasks = nil
		r.loadErr = err
	} else {
		r.tasks = tasks
		r.loadErr = nil
	}
	r.mu.Unlock()

	if err != nil {
		r.logger.Error("failed to load tasks", zap.Error(err))
		r.emit(Event{Kind: EventLoadFailed, Err: err.Error()})
		return err
	}
	r.logger.Info("tasks loaded", zap.Int("count", len(tasks)))
	r.emit(Event{Kind: EventLoaded})
	return nil
}

// Reconcile re-fetches the collection and replaces memory with it. Unlike
// Load, a failure leaves the current collection untouched.
func (r *TaskRepo) Reconcile(ctx context.Context) error {
	tasks, err := r.fetch(ctx)
	if err != nil {
		r.logger.Warn("reconcile failed", zap.Error(err))
		return err
	}

	r.mu.Lock()
	r.tasks = tasks
	r.loadErr = nil
	r.mu.Unlock()

	r.emit(Event{Kind: EventLoaded})
	return nil
}

func (r *TaskRepo) fetch(ctx context.Context) ([]model.Task, error) {
	rows, err := r.store.List(ctx, store.TableTasks, listOrder)
	if err != nil {
		return nil, err
	}
	tasks := make([]model.Task, 0, len(rows))
	if err := store.Decode(rows, &tasks); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrStore, err)
	}
	return tasks, nil
}

// Add waits for the store to accept the draft and then prepends the confirmed
// row. Nothing is inserted into memory before the store assigns an id. A
// failure is logged and also returned, so the caller can tell the card was not created.
func (r *TaskRepo) Add(ctx context.Context, draft model.TaskDraft) (model.Task, error) {
	draft = draft.WithDefaults()

	rec, err := r.store.Create(ctx, store.TableTasks, draft.Record())
	if err != nil {
		r.logger.Error("failed to add task", zap.String("title", draft.Title), zap.Error(err))
		return model.Task{}, err
	}

	var task model.Task
	if err := store.Decode(rec, &task); err != nil {
		r.logger.Error("failed to decode created task", zap.Error(err))
		return model.Task{}, fmt.Errorf("%w: %v", store.ErrStore, err)
	}
	if task.ID == 0 {
		r.logger.Error("created task has no id", zap.Any("record", rec))
		return model.Task{}, fmt.Errorf("%w: created row has no id", store.ErrStore)
	}

	r.mu.Lock()
	if i := r.indexOf(task.ID); i >= 0 {
		r.tasks[i] = task
	} else {
		r.tasks = append([]model.Task{task}, r.tasks...)
	}
	r.mu.Unlock()

	r.emit(Event{Kind: EventAdded, TaskID: task.ID})
	return task.Clone(), nil
}

// Update applies patch to the task in memory right away and syncs it to the
// store in the background. It reports false for an unknown id.
func (r *TaskRepo) Update(id int64, patch model.TaskPatch) bool {
	now := r.now()

	r.mu.Lock()
	i := r.indexOf(id)
	if i < 0 {
		r.mu.Unlock()
		r.logger.Debug("update for unknown task ignored", zap.Int64("task_id", id))
		return false
	}
	patch.Apply(&r.tasks[i], now)
	// queued under the lock so the store sees updates in the order they were applied
	rec := store.Record(patch.Record(now))
	r.submit(id, "update", func(ctx context.Context) error {
		return r.store.Update(ctx, store.TableTasks, id, rec)
	})
	r.mu.Unlock()

	r.emit(Event{Kind: EventUpdated, TaskID: id})
	return true
}

// Remove drops the task from memory right away and deletes it from the store
// in the background. It reports false for an unknown id.
func (r *TaskRepo) Remove(id int64) bool {
	r.mu.Lock()
	i := r.indexOf(id)
	if i < 0 {
		r.mu.Unlock()
		r.logger.Debug("remove for unknown task ignored", zap.Int64("task_id", id))
		return false
	}
	r.tasks = append(r.tasks[:i:i], r.tasks[i+1:]...)
	r.submit(id, "delete", func(ctx context.Context) error {
		return r.store.Delete(ctx, store.TableTasks, id)
	})
	r.mu.Unlock()

	r.emit(Event{Kind: EventRemoved, TaskID: id})
	return true
}

// submit hands the remote call to the syncer. Failures are logged and
// announced; the in-memory change is never rolled back.
func (r *TaskRepo) submit(id int64, kind string, run func(ctx context.Context) error) {
	op := worker.Op{
		TaskID: id,
		Kind:   kind,
		Run:    run,
		OnError: func(err error) {
			r.emit(Event{Kind: EventSyncFailed, TaskID: id, Op: kind, Err: err.Error()})
		},
	}
	if !r.syncer.Submit(op) {
		r.logger.Warn("remote sync not queued", zap.String("kind", kind), zap.Int64("task_id", id))
	}
}

// Tasks returns a copy of the collection in repository order.
func (r *TaskRepo) Tasks() []model.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Task, len(r.tasks))
	for i, t := range r.tasks {
		out[i] = t.Clone()
	}
	return out
}

func (r *TaskRepo) Get(id int64) (model.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i := r.indexOf(id); i >= 0 {
		return r.tasks[i].Clone(), true
	}
	return model.Task{}, false
}

// LoadErr returns the error of the last failed Load, or nil.
func (r *TaskRepo) LoadErr() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loadErr
}

func (r *TaskRepo) indexOf(id int64) int {
	for i := range r.tasks {
		if r.tasks[i].ID == id {
			return i
		}
	}
	return -1
}
