package service

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rocketscienceinc/fourrace-backend/internal/entity"
	"github.com/rocketscienceinc/fourrace-backend/internal/fourrace"
)

// scheduleBotTurn queues a move when a bot holds the turn of a game in play.
func (that *gameService) scheduleBotTurn(game *entity.Game) {
	if !game.IsPlaying() {
		return
	}

	bot := game.PlayerAt(game.CurrentTurn)
	if bot == nil || !bot.IsBot() {
		return
	}

	gameID, botID := game.ID, bot.ID
	that.scheduler.After(gameID, that.botThinkDelay(), func(ctx context.Context) {
		that.playBotTurn(ctx, gameID, botID)
	})
}

func (that *gameService) playBotTurn(ctx context.Context, gameID, botID string) {
	_, applied, err := that.beginPass(ctx, gameID, func(game *entity.Game) (*entity.Pass, bool) {
		return that.controller.BotMove(game, botID)
	})
	if err != nil {
		that.logger.Error("bot failed to make turn", "game_id", gameID, "bot_id", botID, "error", err)
		return
	}

	if applied {
		that.logger.Debug("bot passed a chit", "game_id", gameID, "bot_id", botID)
	}
}

// scheduleRankClaims lets each unranked bot take the lowest free rank,
// staggered so claims land one after another.
func (that *gameService) scheduleRankClaims(game *entity.Game) {
	claims := 0
	for _, player := range game.Players {
		if !player.IsBot() || game.HasRanking(player.ID) {
			continue
		}

		claims++
		gameID, botID := game.ID, player.ID
		delay := that.delays.RankClaim + time.Duration(claims)*that.delays.RankClaimStagger

		that.scheduler.After(gameID, delay, func(ctx context.Context) {
			that.claimBotRank(ctx, gameID, botID)
		})
	}
}

func (that *gameService) claimBotRank(ctx context.Context, gameID, botID string) {
	game, applied, err := that.mutate(ctx, gameID, func(game *entity.Game) bool {
		ranks := fourrace.AvailableRanks(game)
		if len(ranks) == 0 {
			return false
		}

		return that.controller.SetPlayerRank(game, botID, ranks[0])
	})
	if err != nil {
		that.logger.Error("bot failed to claim rank", "game_id", gameID, "bot_id", botID, "error", err)
		return
	}

	if applied {
		that.recordIfComplete(ctx, game)
	}
}

func (that *gameService) botThinkDelay() time.Duration {
	if that.delays.BotThinkJitter <= 0 {
		return that.delays.BotThink
	}

	return that.delays.BotThink + rand.N(that.delays.BotThinkJitter) //nolint: gosec // timing jitter
}
