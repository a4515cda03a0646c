// Package dispatch runs best-effort side effects (audit writes, push
// notifications) off the request path. Tasks are never retried: a failed
// or dropped task is logged and forgotten.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Alijeyrad/destek_backend/config"
)

var ErrClosed = errors.New("dispatcher closed")

// Task is one unit of background work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

type Config struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{Workers: 4, QueueSize: 256, TaskTimeout: 10 * time.Second}
}

func FromCentralConfig(c config.DispatchConfig) Config {
	d := DefaultConfig()
	if c.Workers > 0 {
		d.Workers = c.Workers
	}
	if c.QueueSize > 0 {
		d.QueueSize = c.QueueSize
	}
	if c.TaskTimeoutSeconds > 0 {
		d.TaskTimeout = time.Duration(c.TaskTimeoutSeconds) * time.Second
	}
	return d
}

// Dispatcher is a fixed pool of workers draining a bounded queue.
type Dispatcher struct {
	cfg    Config
	queue  chan Task
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool

	dropped atomic.Int64
	failed  atomic.Int64
}

func New(cfg Config) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	d := &Dispatcher{cfg: cfg, queue: make(chan Task, cfg.QueueSize)}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for task := range d.queue {
		d.run(task)
	}
}

func (d *Dispatcher) run(task Task) {
	ctx := context.Background()
	if d.cfg.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.TaskTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			d.failed.Add(1)
			slog.Error("dispatch: task panicked", "task", task.Name, "panic", r)
		}
	}()

	if err := task.Run(ctx); err != nil {
		d.failed.Add(1)
		slog.Warn("dispatch: task failed", "task", task.Name, "err", err)
	}
}

// Submit enqueues a task without blocking. It returns false when the task
// was dropped because the queue is full or the dispatcher is closed.
func (d *Dispatcher) Submit(name string, fn func(ctx context.Context) error) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.dropped.Add(1)
		slog.Warn("dispatch: dropped task after close", "task", name)
		return false
	}
	select {
	case d.queue <- Task{Name: name, Run: fn}:
		return true
	default:
		d.dropped.Add(1)
		slog.Warn("dispatch: queue full, task dropped", "task", name, "queue_size", d.cfg.QueueSize)
		return false
	}
}

// Dropped and Failed count tasks lost since start.
func (d *Dispatcher) Dropped() int64 { return d.dropped.Load() }
func (d *Dispatcher) Failed() int64  { return d.failed.Load() }

// Close stops intake and waits for queued tasks to finish or ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submitter is what services depend on; *Dispatcher and Inline satisfy it.
type Submitter interface {
	Submit(name string, fn func(ctx context.Context) error) bool
}

// Inline runs each task synchronously on the caller's goroutine with the
// same swallow-and-log semantics. The CLI and tests use it.
type Inline struct{}

func (Inline) Submit(name string, fn func(ctx context.Context) error) bool {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("dispatch: task panicked", "task", name, "panic", r)
		}
	}()
	if err := fn(context.Background()); err != nil {
		slog.Warn("dispatch: task failed", "task", name, "err", err)
	}
	return true
}
