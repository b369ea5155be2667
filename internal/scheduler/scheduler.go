package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Scheduler runs deferred actions grouped by key. Cancelling a key stops its
// pending timers and cancels the context handed to actions already running.
type Scheduler struct {
	logger *slog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	groups map[string]*group
	nextID uint64
	closed bool
	wg     sync.WaitGroup
}

type group struct {
	ctx    context.Context
	cancel context.CancelFunc
	timers map[uint64]*time.Timer
}

func New(logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		logger: logger.With("component", "scheduler"),
		ctx:    ctx,
		cancel: cancel,
		groups: make(map[string]*group),
	}
}

// After schedules action to run once delay elapses. It reports false when
// the scheduler is closed.
func (that *Scheduler) After(key string, delay time.Duration, action func(ctx context.Context)) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return false
	}

	g, ok := that.groups[key]
	if !ok {
		ctx, cancel := context.WithCancel(that.ctx)
		g = &group{ctx: ctx, cancel: cancel, timers: make(map[uint64]*time.Timer)}
		that.groups[key] = g
	}

	that.nextID++
	id := that.nextID

	that.wg.Add(1)
	g.timers[id] = time.AfterFunc(delay, func() {
		defer that.wg.Done()

		if g.ctx.Err() == nil {
			that.run(g.ctx, key, action)
		}

		that.mu.Lock()
		defer that.mu.Unlock()

		delete(g.timers, id)
		if len(g.timers) == 0 && that.groups[key] == g {
			delete(that.groups, key)
			g.cancel()
		}
	})

	return true
}

// Cancel drops every pending action for key.
func (that *Scheduler) Cancel(key string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	g, ok := that.groups[key]
	if !ok {
		return
	}

	delete(that.groups, key)
	that.stop(g)
}

// Pending returns the number of actions scheduled for key that have not finished.
func (that *Scheduler) Pending(key string) int {
	that.mu.Lock()
	defer that.mu.Unlock()

	if g, ok := that.groups[key]; ok {
		return len(g.timers)
	}

	return 0
}

// Close cancels everything and waits for running actions to return.
func (that *Scheduler) Close() {
	that.mu.Lock()
	if that.closed {
		that.mu.Unlock()
		return
	}

	that.closed = true
	for key, g := range that.groups {
		delete(that.groups, key)
		that.stop(g)
	}
	that.cancel()
	that.mu.Unlock()

	that.wg.Wait()
}

func (that *Scheduler) stop(g *group) {
	g.cancel()
	for id, timer := range g.timers {
		if timer.Stop() {
			delete(g.timers, id)
			that.wg.Done()
		}
	}
}

func (that *Scheduler) run(ctx context.Context, key string, action func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			that.logger.Error("deferred action panicked", "key", key, "panic", r)
		}
	}()

	action(ctx)
}
