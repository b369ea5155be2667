package gamesync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/fourrace-backend/internal/apperror"
	"github.com/rocketscienceinc/fourrace-backend/internal/entity"
)

// fanout is the notification queue of one game. States are queued in write
// order while the store lock is held.
type fanout struct {
	pending []*entity.Game
	running bool
}

// Memory is a process-local Store. Listeners run synchronously inside the
// writing call. A write to a game whose fan-out is already running (a write
// made from inside one of its listeners) is applied at once and its
// notification is delivered once the running fan-out completes. Fan-outs of
// different games never wait on each other.
type Memory struct {
	logger *slog.Logger

	mu        sync.Mutex
	games     map[string]*entity.Game
	joinCodes map[string]string
	listeners map[string]map[uint64]Listener
	fanouts   map[string]*fanout
	nextID    uint64
}

func NewMemory(logger *slog.Logger) *Memory {
	return &Memory{
		logger:    logger.With("component", "memory-store"),
		games:     make(map[string]*entity.Game),
		joinCodes: make(map[string]string),
		listeners: make(map[string]map[uint64]Listener),
		fanouts:   make(map[string]*fanout),
	}
}

func (that *Memory) Put(_ context.Context, game *entity.Game) (*entity.Game, error) {
	stored := game.Clone()

	that.mu.Lock()
	if current, ok := that.games[stored.ID]; ok {
		stored.Version = current.Version + 1
		if current.JoinCode != stored.JoinCode {
			delete(that.joinCodes, current.JoinCode)
		}
	} else {
		stored.Version = 1
	}

	that.games[stored.ID] = stored
	if stored.JoinCode != "" {
		that.joinCodes[stored.JoinCode] = stored.ID
	}
	f, drain := that.enqueue(stored.ID, stored)
	that.mu.Unlock()

	if drain {
		that.drain(stored.ID, f)
	}

	return stored.Clone(), nil
}

func (that *Memory) Get(_ context.Context, id string) (*entity.Game, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	game, ok := that.games[id]
	if !ok {
		return nil, fmt.Errorf("failed to get game %s: %w", id, apperror.ErrGameNotFound)
	}

	return game.Clone(), nil
}

func (that *Memory) GetByJoinCode(ctx context.Context, code string) (*entity.Game, error) {
	that.mu.Lock()
	id, ok := that.joinCodes[code]
	that.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("failed to resolve join code %s: %w", code, apperror.ErrGameNotFound)
	}

	return that.Get(ctx, id)
}

func (that *Memory) Merge(_ context.Context, id string, patch *entity.GamePatch) (*entity.Game, error) {
	that.mu.Lock()
	current, ok := that.games[id]
	if !ok {
		that.mu.Unlock()
		return nil, fmt.Errorf("failed to merge game %s: %w", id, apperror.ErrGameNotFound)
	}

	merged := current.Clone()
	merged.Apply(patch)
	merged.Version = current.Version + 1
	that.games[id] = merged
	f, drain := that.enqueue(id, merged)
	that.mu.Unlock()

	if drain {
		that.drain(id, f)
	}

	return merged.Clone(), nil
}

func (that *Memory) Subscribe(_ context.Context, id string, listener Listener) (func(), error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.nextID++
	key := that.nextID

	if that.listeners[id] == nil {
		that.listeners[id] = make(map[uint64]Listener)
	}
	that.listeners[id][key] = listener

	var once sync.Once

	return func() {
		once.Do(func() {
			that.mu.Lock()
			defer that.mu.Unlock()

			delete(that.listeners[id], key)
			if len(that.listeners[id]) == 0 {
				delete(that.listeners, id)
			}
		})
	}, nil
}

func (that *Memory) Delete(_ context.Context, id string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if game, ok := that.games[id]; ok {
		delete(that.joinCodes, game.JoinCode)
	}

	delete(that.games, id)
	delete(that.listeners, id)

	return nil
}

// enqueue queues the state on the game's fan-out and reports whether the
// caller has to drain it. Callers hold mu.
func (that *Memory) enqueue(id string, game *entity.Game) (*fanout, bool) {
	f, ok := that.fanouts[id]
	if !ok {
		f = &fanout{}
		that.fanouts[id] = f
	}

	f.pending = append(f.pending, game)
	if f.running {
		return f, false
	}
	f.running = true

	return f, true
}

func (that *Memory) drain(id string, f *fanout) {
	that.mu.Lock()
	for len(f.pending) > 0 {
		next := f.pending[0]
		f.pending = f.pending[1:]

		listeners := make([]Listener, 0, len(that.listeners[id]))
		for _, listener := range that.listeners[id] {
			listeners = append(listeners, listener)
		}
		that.mu.Unlock()

		for _, listener := range listeners {
			that.deliver(id, next, listener)
		}

		that.mu.Lock()
	}

	f.running = false
	if that.fanouts[id] == f {
		delete(that.fanouts, id)
	}
	that.mu.Unlock()
}

func (that *Memory) deliver(id string, game *entity.Game, listener Listener) {
	defer func() {
		if r := recover(); r != nil {
			that.logger.Error("listener panicked", "game_id", id, "panic", r)
		}
	}()

	listener(game.Clone())
}
