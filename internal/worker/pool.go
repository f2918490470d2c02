package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// backlogWarn is the queue length at which a worker reports that the store is falling behind.
const backlogWarn = 256

// Op is one remote call fired after the in-memory change was already applied.
type Op struct {
	TaskID int64
	Kind   string
	Run    func(ctx context.Context) error
	// OnError is called from the worker goroutine when Run fails.
	OnError func(err error)

	id string
}

// queue is an unbounded FIFO, so Submit never waits on a slow store.
type queue struct {
	mu     sync.Mutex
	ops    []Op
	closed bool
	ready  chan struct{}
}

func newQueue() *queue {
	return &queue{ready: make(chan struct{}, 1)}
}

func (q *queue) push(op Op) int {
	q.mu.Lock()
	q.ops = append(q.ops, op)
	n := len(q.ops)
	q.mu.Unlock()
	q.wake()
	return n
}

func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}

func (q *queue) wake() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// next blocks until an op is available. It reports false once the queue is
// closed and drained.
func (q *queue) next() (Op, bool) {
	for {
		q.mu.Lock()
		if len(q.ops) > 0 {
			op := q.ops[0]
			q.ops[0] = Op{}
			q.ops = q.ops[1:]
			q.mu.Unlock()
			return op, true
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return Op{}, false
		}
		<-q.ready
	}
}

// Pool executes ops fire-and-forget. Ops sharing a TaskID always land on the
// same worker, so remote calls for one task reach the store in submission order.
type Pool struct {
	logger  *zap.Logger
	count   int
	timeout time.Duration
	queues  []*queue
	wg      sync.WaitGroup

	mu      sync.RWMutex
	started bool
	closed  bool

	pendMu   sync.Mutex
	inFlight int
	idle     chan struct{}
}

// NewPool creates a pool of count workers. A zero timeout leaves remote calls unbounded.
func NewPool(logger *zap.Logger, count int, timeout time.Duration) *Pool {
	if count < 1 {
		count = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	queues := make([]*queue, count)
	for i := range queues {
		queues[i] = newQueue()
	}
	idle := make(chan struct{})
	close(idle)
	return &Pool{
		logger:  logger,
		count:   count,
		timeout: timeout,
		queues:  queues,
		idle:    idle,
	}
}

func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	p.logger.Info("Starting sync pool", zap.Int("workers", p.count))
	for i := 0; i < p.count; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop lets the workers drain what is queued, then returns.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for _, q := range p.queues {
		q.close()
	}
	p.mu.Unlock()

	p.logger.Info("Stopping sync pool...")
	p.wg.Wait()
	p.logger.Info("Sync pool stopped")
}

// Submit queues op and returns without waiting for it, even when the store is
// stuck or the pool has not been started. It reports false when the pool is
// already stopped.
func (p *Pool) Submit(op Op) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.logger.Warn("sync pool stopped, dropping op",
			zap.String("kind", op.Kind), zap.Int64("task_id", op.TaskID))
		return false
	}

	op.id = uuid.NewString()
	p.begin()
	slot := p.slot(op.TaskID)
	if n := p.queues[slot].push(op); n == backlogWarn {
		p.logger.Warn("sync backlog growing, store is slow or unreachable",
			zap.Int("worker", slot), zap.Int("queued", n))
	}
	return true
}

// InFlight returns the number of submitted ops that have not finished yet.
func (p *Pool) InFlight() int {
	p.pendMu.Lock()
	defer p.pendMu.Unlock()
	return p.inFlight
}

// Flush blocks until every op submitted so far has finished or ctx is done.
func (p *Pool) Flush(ctx context.Context) error {
	p.pendMu.Lock()
	idle := p.idle
	p.pendMu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) slot(taskID int64) int {
	if taskID < 0 {
		taskID = -taskID
	}
	return int(taskID % int64(p.count))
}

func (p *Pool) begin() {
	p.pendMu.Lock()
	defer p.pendMu.Unlock()
	if p.inFlight == 0 {
		p.idle = make(chan struct{})
	}
	p.inFlight++
}

func (p *Pool) done() {
	p.pendMu.Lock()
	defer p.pendMu.Unlock()
	p.inFlight--
	if p.inFlight == 0 {
		close(p.idle)
	}
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	q := p.queues[id]
	for {
		op, ok := q.next()
		if !ok {
			return
		}
		p.run(ctx, id, op)
	}
}

func (p *Pool) run(ctx context.Context, workerID int, op Op) {
	defer p.done()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("remote sync panicked",
				zap.String("op_id", op.id),
				zap.String("kind", op.Kind),
				zap.Int64("task_id", op.TaskID),
				zap.Any("panic", r),
			)
		}
	}()

	runCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	err := op.Run(runCtx)
	if err != nil {
		p.logger.Error("remote sync failed",
			zap.Int("worker", workerID),
			zap.String("op_id", op.id),
			zap.String("kind", op.Kind),
			zap.Int64("task_id", op.TaskID),
			zap.Error(err),
		)
		if op.OnError != nil {
			op.OnError(err)
		}
		return
	}

	p.logger.Debug("remote sync done",
		zap.Int("worker", workerID),
		zap.String("op_id", op.id),
		zap.String("kind", op.Kind),
		zap.Int64("task_id", op.TaskID),
		zap.Duration("took", time.Since(start)),
	)
}
