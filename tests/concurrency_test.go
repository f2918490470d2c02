package tests

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/mission-control/internal/board"
	"github.com/BuzzLyutic/mission-control/internal/model"
	"github.com/BuzzLyutic/mission-control/internal/repo"
	"github.com/BuzzLyutic/mission-control/internal/service"
	"github.com/BuzzLyutic/mission-control/internal/store"
	"github.com/BuzzLyutic/mission-control/internal/worker"
)

func setupMemService(t *testing.T, workers int) (*service.TaskService, *store.MemStore, *worker.Pool) {
	t.Helper()
	mem := store.NewMemStore()
	pool := worker.NewPool(zap.NewNop(), workers, 0)
	pool.Start(context.Background())
	t.Cleanup(pool.Stop)

	taskRepo := repo.NewTaskRepo(mem, pool, zap.NewNop())
	svc := service.NewTaskService(taskRepo, mem, pool)
	require.NoError(t, svc.Reload(context.Background()))
	return svc, mem, pool
}

func flushPool(t *testing.T, pool *worker.Pool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, pool.Flush(ctx))
}

func TestConcurrent_CreateNoDuplicates(t *testing.T) {
	svc, mem, pool := setupMemService(t, 4)
	ctx := context.Background()

	const goroutines = 10
	const perGoroutine = 5

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				_, err := svc.Create(ctx, model.TaskDraft{Title: fmt.Sprintf("Task %d-%d", idx, j)})
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()
	flushPool(t, pool)

	tasks := svc.Tasks()
	require.Len(t, tasks, goroutines*perGoroutine)
	seen := make(map[int64]bool, len(tasks))
	for _, task := range tasks {
		assert.False(t, seen[task.ID], "id %d appears twice", task.ID)
		seen[task.ID] = true
	}

	rows, err := mem.List(ctx, store.TableTasks, store.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, rows, goroutines*perGoroutine)
}

func TestConcurrent_UpdatesReachStoreInOrder(t *testing.T) {
	svc, mem, pool := setupMemService(t, 3)
	ctx := context.Background()

	const cards = 6
	const edits = 20

	ids := make([]int64, 0, cards)
	for i := 0; i < cards; i++ {
		task, err := svc.Create(ctx, model.TaskDraft{Title: fmt.Sprintf("Card %d", i)})
		require.NoError(t, err)
		ids = append(ids, task.ID)
	}

	// each card gets its own editor; edits to one card are sequential
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			for j := 0; j < edits; j++ {
				_, err := svc.Update(id, model.TitlePatch(fmt.Sprintf("edit %d", j)))
				assert.NoError(t, err)
			}
		}(id)
	}
	wg.Wait()
	flushPool(t, pool)

	rows, err := mem.List(ctx, store.TableTasks, store.ListOptions{})
	require.NoError(t, err)
	for _, row := range rows {
		assert.Equal(t, fmt.Sprintf("edit %d", edits-1), row["title"], "card %v", row["id"])
	}
}

func TestConcurrent_DropsSettleOnce(t *testing.T) {
	svc, _, pool := setupMemService(t, 2)
	ctx := context.Background()

	task, err := svc.Create(ctx, model.TaskDraft{})
	require.NoError(t, err)
	require.NoError(t, svc.StartDrag(task.ID))

	const goroutines = 20
	results := make([]board.DropResult, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			res, err := svc.Drop(model.StatusDone)
			assert.NoError(t, err)
			results[idx] = res
		}(i)
	}
	wg.Wait()
	flushPool(t, pool)

	moved := 0
	for _, res := range results {
		if res == board.DropMoved {
			moved++
		}
	}
	assert.Equal(t, 1, moved, "only the first drop moves the card")

	got, err := svc.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, got.Status)
}

func TestConcurrent_ReadsDuringWrites(t *testing.T) {
	svc, _, pool := setupMemService(t, 2)
	ctx := context.Background()

	var wg sync.WaitGroup
	const creators = 5
	const readers = 5

	for i := 0; i < creators; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				task, err := svc.Create(ctx, model.TaskDraft{Title: fmt.Sprintf("Task %d-%d", idx, j)})
				if assert.NoError(t, err) && j%2 == 0 {
					_, _ = svc.Move(task.ID, model.StatusInProgress)
				}
			}
		}(i)
	}

	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				view := svc.Board()
				assert.Equal(t, len(view.Todo)+len(view.InProgress)+len(view.Done), view.Len())
				time.Sleep(time.Millisecond)
			}
		}()
	}

	wg.Wait()
	flushPool(t, pool)

	view := svc.Board()
	assert.Equal(t, creators*5, view.Len())
	assert.Equal(t, creators*3, len(view.InProgress))
}
