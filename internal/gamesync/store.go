package gamesync

import (
	"context"

	"github.com/rocketscienceinc/fourrace-backend/internal/entity"
)

// Listener receives the full state after every successful write. Each
// listener gets its own copy.
type Listener func(game *entity.Game)

// Store holds authoritative game states and fans updates out to subscribers.
// Every successful write increments the game's Version.
type Store interface {
	Put(ctx context.Context, game *entity.Game) (*entity.Game, error)
	Get(ctx context.Context, id string) (*entity.Game, error)
	GetByJoinCode(ctx context.Context, code string) (*entity.Game, error)
	Merge(ctx context.Context, id string, patch *entity.GamePatch) (*entity.Game, error)
	Subscribe(ctx context.Context, id string, listener Listener) (func(), error)
	Delete(ctx context.Context, id string) error
}
