package fourrace

import "github.com/rocketscienceinc/fourrace-backend/internal/entity"

var BotNames = []string{"Bot Alice", "Bot Bob", "Bot Charlie"}

// ChooseBotChit picks the first chit of the category the hand holds fewest
// of. Ties go to the category encountered first in the hand.
func ChooseBotChit(hand []entity.Chit) (entity.Chit, bool) {
	if len(hand) == 0 {
		return entity.Chit{}, false
	}

	counts := make(map[entity.Category]int, len(entity.Categories))
	order := make([]entity.Category, 0, len(entity.Categories))
	for _, chit := range hand {
		if counts[chit.Category] == 0 {
			order = append(order, chit.Category)
		}
		counts[chit.Category]++
	}

	minority := order[0]
	for _, category := range order[1:] {
		if counts[category] < counts[minority] {
			minority = category
		}
	}

	for _, chit := range hand {
		if chit.Category == minority {
			return chit, true
		}
	}

	return entity.Chit{}, false
}

// BotMove begins a pass for the bot when it holds the turn.
func (that *GameController) BotMove(gameInstance *entity.Game, botID string) (*entity.Pass, bool) {
	bot := gameInstance.PlayerByID(botID)
	if bot == nil || !bot.IsBot() || !gameInstance.IsPlaying() || bot.Position != gameInstance.CurrentTurn {
		return nil, false
	}

	chit, ok := ChooseBotChit(bot.Chits)
	if !ok {
		return nil, false
	}

	return that.BeginPass(gameInstance, bot.ID, chit.ID)
}

func nextBotName(gameInstance *entity.Game) (string, bool) {
	taken := make(map[string]struct{}, len(gameInstance.Players))
	for _, player := range gameInstance.Players {
		taken[player.Name] = struct{}{}
	}

	for _, name := range BotNames {
		if _, ok := taken[name]; !ok {
			return name, true
		}
	}

	return "", false
}
