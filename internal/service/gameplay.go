package service

import (
	"context"
	"fmt"

	"github.com/rocketscienceinc/fourrace-backend/internal/entity"
)

func (that *gameService) StartGame(ctx context.Context, gameID string) (*entity.Game, bool, error) {
	game, applied, err := that.mutate(ctx, gameID, that.controller.StartGame)
	if applied {
		that.logger.Info("game started", "game_id", gameID, "players", len(game.Players))
	}

	return game, applied, err
}

// PassChit begins a pass and settles it after the pass delay.
func (that *gameService) PassChit(ctx context.Context, gameID, playerID, chitID string) (*entity.Game, bool, error) {
	return that.beginPass(ctx, gameID, func(game *entity.Game) (*entity.Pass, bool) {
		return that.controller.BeginPass(game, playerID, chitID)
	})
}

func (that *gameService) ClaimRank(ctx context.Context, gameID, playerID string, rank int) (*entity.Game, bool, error) {
	game, applied, err := that.mutate(ctx, gameID, func(game *entity.Game) bool {
		return that.controller.SetPlayerRank(game, playerID, rank)
	})
	if err != nil || !applied {
		return game, applied, err
	}

	that.recordIfComplete(ctx, game)

	return game, true, nil
}

// ResetGame drops pending follow-ups and returns the game to the lobby. The
// cancel runs under the game lock so nothing a settling pass scheduled
// survives the reset.
func (that *gameService) ResetGame(ctx context.Context, gameID string) (*entity.Game, bool, error) {
	return that.mutate(ctx, gameID, func(game *entity.Game) bool {
		that.scheduler.Cancel(gameID)
		that.clearPending(gameID)
		that.controller.ResetGame(game)

		return true
	})
}

func (that *gameService) Pending(gameID string) *entity.Pass {
	that.pendingMu.Lock()
	defer that.pendingMu.Unlock()

	if pass, ok := that.pending[gameID]; ok {
		clone := *pass
		return &clone
	}

	return nil
}

// mutate loads the authoritative state, applies action and merges the result
// back. The returned game is the merged state, or the loaded one when the
// action was rejected.
func (that *gameService) mutate(
	ctx context.Context,
	gameID string,
	action func(game *entity.Game) bool,
) (*entity.Game, bool, error) {
	unlock := that.lock(gameID)
	defer unlock()

	game, err := that.store.Get(ctx, gameID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get game: %w", err)
	}

	if !action(game) {
		return game, false, nil
	}

	merged, err := that.store.Merge(ctx, gameID, entity.PatchFrom(game))
	if err != nil {
		return nil, false, fmt.Errorf("failed to sync game state: %w", err)
	}

	that.scheduleBotTurn(merged)

	return merged, true, nil
}

func (that *gameService) beginPass(
	ctx context.Context,
	gameID string,
	begin func(game *entity.Game) (*entity.Pass, bool),
) (*entity.Game, bool, error) {
	var pass *entity.Pass

	game, applied, err := that.mutate(ctx, gameID, func(game *entity.Game) bool {
		var ok bool
		if pass, ok = begin(game); ok {
			that.setPending(gameID, pass)
		}

		return ok
	})
	if err != nil {
		if pass != nil {
			that.clearPendingIf(gameID, pass)
		}

		return game, applied, err
	}

	if !applied {
		return game, false, nil
	}

	that.scheduler.After(gameID, that.delays.Pass, func(ctx context.Context) {
		that.settlePass(ctx, gameID, pass)
	})

	return game, true, nil
}

// settlePass completes the pass if its guards still hold; otherwise a game
// left in passing goes back to playing.
func (that *gameService) settlePass(ctx context.Context, gameID string, pass *entity.Pass) {
	log := that.logger.With("method", "settlePass", "game_id", gameID)

	game, applied, err := that.mutate(ctx, gameID, func(game *entity.Game) bool {
		if that.controller.CompletePass(game, pass) {
			return true
		}

		return that.controller.AbortPass(game)
	})

	that.clearPendingIf(gameID, pass)

	if err != nil {
		log.Error("failed to complete pass", "error", err)
		return
	}

	if !applied {
		log.Debug("stale pass dropped", "chit_id", pass.ChitID)
		return
	}

	if game.IsFinished() {
		log.Info("game finished", "winner_id", game.WinnerID)
		that.scheduleRankClaims(game)
	}
}

// recordIfComplete appends the game to history once every player holds a rank.
func (that *gameService) recordIfComplete(ctx context.Context, game *entity.Game) {
	if that.history == nil || !game.RankingsComplete() {
		return
	}

	entry := entity.NewHistoryEntry(game, that.now().UTC())
	if err := that.history.Append(ctx, entry); err != nil {
		that.logger.Error("failed to record game history", "game_id", game.ID, "error", err)
		return
	}

	that.logger.Info("game recorded", "game_id", game.ID, "rankings", len(entry.Rankings))
}

func (that *gameService) setPending(gameID string, pass *entity.Pass) {
	that.pendingMu.Lock()
	defer that.pendingMu.Unlock()

	that.pending[gameID] = pass
}

func (that *gameService) clearPending(gameID string) {
	that.pendingMu.Lock()
	defer that.pendingMu.Unlock()

	delete(that.pending, gameID)
}

// clearPendingIf keeps a newer pass begun after the settling one.
func (that *gameService) clearPendingIf(gameID string, pass *entity.Pass) {
	that.pendingMu.Lock()
	defer that.pendingMu.Unlock()

	if that.pending[gameID] == pass {
		delete(that.pending, gameID)
	}
}

