package gamesync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/fourrace-backend/internal/apperror"
	"github.com/rocketscienceinc/fourrace-backend/internal/entity"
)

const (
	gameKeyPrefix        = "game:"
	joinCodeKeyPrefix    = "joincode:"
	updatesChannelPrefix = "game-updates:"

	maxMergeAttempts = 5
)

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// Redis keeps game states as JSON and publishes every write on a per-game
// channel. Listeners are called from a pub/sub goroutine.
type Redis struct {
	logger *slog.Logger
	client *redis.Client
}

func NewRedis(logger *slog.Logger, client *redis.Client) *Redis {
	return &Redis{
		logger: logger.With("component", "redis-store"),
		client: client,
	}
}

func (that *Redis) Put(ctx context.Context, game *entity.Game) (*entity.Game, error) {
	stored, err := that.update(ctx, game.ID, func(current *entity.Game) (*entity.Game, error) {
		next := game.Clone()
		next.Version = 1
		if current != nil {
			next.Version = current.Version + 1
		}

		return next, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to put game: %w", err)
	}

	return stored, nil
}

func (that *Redis) Get(ctx context.Context, id string) (*entity.Game, error) {
	game, err := that.load(ctx, that.client, id)
	if err != nil {
		return nil, err
	}

	if game == nil {
		return nil, fmt.Errorf("failed to get game %s: %w", id, apperror.ErrGameNotFound)
	}

	return game, nil
}

func (that *Redis) GetByJoinCode(ctx context.Context, code string) (*entity.Game, error) {
	id, err := that.client.Get(ctx, joinCodeKeyPrefix+code).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to resolve join code %s: %w", code, apperror.ErrGameNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to resolve join code: %w", err)
	}

	return that.Get(ctx, id)
}

func (that *Redis) Merge(ctx context.Context, id string, patch *entity.GamePatch) (*entity.Game, error) {
	merged, err := that.update(ctx, id, func(current *entity.Game) (*entity.Game, error) {
		if current == nil {
			return nil, fmt.Errorf("failed to merge game %s: %w", id, apperror.ErrGameNotFound)
		}

		current.Apply(patch)
		current.Version++

		return current, nil
	})
	if err != nil {
		return nil, err
	}

	return merged, nil
}

func (that *Redis) Subscribe(ctx context.Context, id string, listener Listener) (func(), error) {
	log := that.logger.With("method", "Subscribe", "game_id", id)

	pubsub := that.client.Subscribe(ctx, updatesChannelPrefix+id)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to game updates: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)

		for message := range pubsub.Channel() {
			var game entity.Game
			if err := json.Unmarshal([]byte(message.Payload), &game); err != nil {
				log.Error("failed to unmarshal game update", "error", err)
				continue
			}

			listener(&game)
		}
	}()

	var once sync.Once

	return func() {
		once.Do(func() {
			if err := pubsub.Close(); err != nil {
				log.Error("failed to close subscription", "error", err)
			}
			<-done
		})
	}, nil
}

func (that *Redis) Delete(ctx context.Context, id string) error {
	game, err := that.load(ctx, that.client, id)
	if err != nil {
		return err
	}

	keys := []string{gameKeyPrefix + id}
	if game != nil && game.JoinCode != "" {
		keys = append(keys, joinCodeKeyPrefix+game.JoinCode)
	}

	if err = that.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}

	return nil
}

// update runs an optimistic read-modify-write of one game key and publishes
// the result in the same transaction.
func (that *Redis) update(
	ctx context.Context,
	id string,
	mutate func(current *entity.Game) (*entity.Game, error),
) (*entity.Game, error) {
	key := gameKeyPrefix + id

	var result *entity.Game
	txf := func(tx *redis.Tx) error {
		current, err := that.load(ctx, tx, id)
		if err != nil {
			return err
		}

		next, err := mutate(current)
		if err != nil {
			return err
		}

		payload, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("could not marshal game: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			if next.JoinCode != "" {
				pipe.Set(ctx, joinCodeKeyPrefix+next.JoinCode, next.ID, 0)
			}
			pipe.Publish(ctx, updatesChannelPrefix+id, payload)

			return nil
		})
		if err != nil {
			return err //nolint: wrapcheck // redis.TxFailedErr is matched by the caller
		}

		result = next

		return nil
	}

	for range maxMergeAttempts {
		err := that.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}

		if errors.Is(err, redis.TxFailedErr) {
			that.logger.Debug("optimistic write conflict, retrying", "game_id", id)
			continue
		}

		return nil, fmt.Errorf("failed to write game: %w", err)
	}

	return nil, fmt.Errorf("failed to write game %s: %w", id, apperror.ErrMergeConflict)
}

// load returns nil without error when the key does not exist.
func (that *Redis) load(ctx context.Context, client getter, id string) (*entity.Game, error) {
	response, err := client.Get(ctx, gameKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil //nolint: nilnil // absence is not an error here
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get game by id: %w", err)
	}

	var game entity.Game
	if err = json.Unmarshal([]byte(response), &game); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game: %w", err)
	}

	return &game, nil
}
