package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestPool_PerTaskOrdering(t *testing.T) {
	p := NewPool(zap.NewNop(), 4, 0)
	p.Start(context.Background())
	defer p.Stop()

	var mu sync.Mutex
	seen := map[int64][]int{}

	for i := 0; i < 50; i++ {
		for _, id := range []int64{1, 2, 3} {
			id, seq := id, i
			p.Submit(Op{TaskID: id, Kind: "update", Run: func(ctx context.Context) error {
				// jitter so unordered execution would show up
				time.Sleep(time.Duration(seq%3) * time.Millisecond)
				mu.Lock()
				seen[id] = append(seen[id], seq)
				mu.Unlock()
				return nil
			}})
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, p.Flush(ctx))

	for _, id := range []int64{1, 2, 3} {
		require.Len(t, seen[id], 50)
		for i, seq := range seen[id] {
			assert.Equal(t, i, seq, "task %d ops out of order", id)
		}
	}
	assert.Equal(t, 0, p.InFlight())
}

func TestPool_FailureIsLoggedAndReported(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	p := NewPool(zap.New(core), 2, 0)
	p.Start(context.Background())
	defer p.Stop()

	boom := errors.New("boom")
	reported := make(chan error, 1)
	p.Submit(Op{
		TaskID:  9,
		Kind:    "delete",
		Run:     func(ctx context.Context) error { return boom },
		OnError: func(err error) { reported <- err },
	})

	select {
	case err := <-reported:
		assert.ErrorIs(t, err, boom)
	case <-time.After(5 * time.Second):
		t.Fatal("failure was not reported")
	}

	require.NoError(t, p.Flush(context.Background()))
	entries := logs.FilterMessage("remote sync failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "delete", entries[0].ContextMap()["kind"])
	assert.Equal(t, int64(9), entries[0].ContextMap()["task_id"])
}

func TestPool_PanicDoesNotKillWorker(t *testing.T) {
	p := NewPool(zap.NewNop(), 1, 0)
	p.Start(context.Background())
	defer p.Stop()

	ran := make(chan struct{})
	p.Submit(Op{TaskID: 1, Kind: "update", Run: func(ctx context.Context) error { panic("bad op") }})
	p.Submit(Op{TaskID: 1, Kind: "update", Run: func(ctx context.Context) error { close(ran); return nil }})

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not survive panic")
	}
}

func TestPool_Timeout(t *testing.T) {
	p := NewPool(zap.NewNop(), 1, 20*time.Millisecond)
	p.Start(context.Background())
	defer p.Stop()

	errs := make(chan error, 1)
	p.Submit(Op{
		TaskID: 1,
		Kind:   "update",
		Run: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
		OnError: func(err error) { errs <- err },
	})

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(5 * time.Second):
		t.Fatal("op was not timed out")
	}
}

func TestPool_FlushHonoursContext(t *testing.T) {
	p := NewPool(zap.NewNop(), 1, 0)
	p.Start(context.Background())

	release := make(chan struct{})
	p.Submit(Op{TaskID: 1, Kind: "update", Run: func(ctx context.Context) error {
		<-release
		return nil
	}})
	assert.Equal(t, 1, p.InFlight())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Flush(ctx), context.DeadlineExceeded)

	close(release)
	p.Stop()
	assert.Equal(t, 0, p.InFlight())
}

func TestPool_GracefulShutdown(t *testing.T) {
	p := NewPool(zap.NewNop(), 2, 0)
	p.Start(context.Background())

	var mu sync.Mutex
	var ran int
	for i := 0; i < 10; i++ {
		p.Submit(Op{TaskID: int64(i), Kind: "update", Run: func(ctx context.Context) error {
			time.Sleep(time.Millisecond)
			mu.Lock()
			ran++
			mu.Unlock()
			return nil
		}})
	}

	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("sync pool did not stop gracefully within 10 seconds")
	}

	assert.Equal(t, 10, ran, "queued ops drain before stop returns")
	assert.False(t, p.Submit(Op{TaskID: 1, Kind: "update", Run: func(ctx context.Context) error { return nil }}))
}

func TestPool_SubmitNeverBlocksOnStuckStore(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	p := NewPool(zap.New(core), 1, 0)
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	const ops = 1000
	submitted := make(chan struct{})
	go func() {
		defer close(submitted)
		for i := 0; i < ops; i++ {
			p.Submit(Op{TaskID: 1, Kind: "update", Run: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			}})
		}
	}()

	select {
	case <-submitted:
	case <-time.After(5 * time.Second):
		t.Fatal("Submit blocked behind a stuck store")
	}
	assert.Equal(t, ops, p.InFlight())
	assert.Len(t, logs.FilterMessage("sync backlog growing, store is slow or unreachable").All(), 1)

	cancel()
	p.Stop()
	assert.Equal(t, 0, p.InFlight())
}

func TestPool_SubmitBeforeStart(t *testing.T) {
	p := NewPool(zap.NewNop(), 2, 0)

	var mu sync.Mutex
	var order []int
	for i := 0; i < 500; i++ {
		seq := i
		require.True(t, p.Submit(Op{TaskID: 4, Kind: "update", Run: func(ctx context.Context) error {
			mu.Lock()
			order = append(order, seq)
			mu.Unlock()
			return nil
		}}))
	}

	p.Start(context.Background())
	defer p.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Flush(ctx))

	require.Len(t, order, 500)
	for i, seq := range order {
		assert.Equal(t, i, seq)
	}
}
