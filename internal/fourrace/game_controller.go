package fourrace

import (
	"math/rand/v2"

	"github.com/rocketscienceinc/fourrace-backend/internal/entity"
)

// GameController applies state transitions to a game. Every mutation reports
// whether it was applied; a rejected action leaves the game unchanged.
type GameController struct {
	intn func(n int) int
}

// NewGameController - intn drives the deal shuffle; nil means math/rand.
func NewGameController(intn func(n int) int) *GameController {
	if intn == nil {
		intn = rand.IntN //nolint: gosec // dealing does not need a CSPRNG
	}

	return &GameController{intn: intn}
}

// NextPosition returns the seat after current in a table of count players.
func NextPosition(current, count int) int {
	if count <= 0 {
		return 0
	}

	return (current + 1) % count
}

// AddPlayer seats the player at the next position, unready.
func (that *GameController) AddPlayer(gameInstance *entity.Game, player *entity.Player) bool {
	if !gameInstance.IsLobby() || gameInstance.IsFull() || gameInstance.PlayerByID(player.ID) != nil {
		return false
	}

	player.Position = len(gameInstance.Players)
	player.IsReady = player.IsBot()
	player.Chits = []entity.Chit{}
	player.Rank = 0
	gameInstance.Players = append(gameInstance.Players, player)

	return true
}

// AddBot seats a bot named after the first unused bot name.
func (that *GameController) AddBot(gameInstance *entity.Game, botID string) (*entity.Player, bool) {
	name, ok := nextBotName(gameInstance)
	if !ok {
		return nil, false
	}

	bot := entity.NewBotPlayer(botID, name)
	if !that.AddPlayer(gameInstance, bot) {
		return nil, false
	}

	return bot, true
}

// RemovePlayer drops a player from the lobby and compacts seat positions.
func (that *GameController) RemovePlayer(gameInstance *entity.Game, playerID string) bool {
	if !gameInstance.IsLobby() || gameInstance.PlayerByID(playerID) == nil {
		return false
	}

	remaining := make([]*entity.Player, 0, len(gameInstance.Players)-1)
	for _, player := range gameInstance.Players {
		if player.ID == playerID {
			continue
		}

		player.Position = len(remaining)
		remaining = append(remaining, player)
	}

	gameInstance.Players = remaining

	return true
}

func (that *GameController) SetReady(gameInstance *entity.Game, playerID string, ready bool) bool {
	if !gameInstance.IsLobby() {
		return false
	}

	player := gameInstance.PlayerByID(playerID)
	if player == nil {
		return false
	}

	player.IsReady = ready

	return true
}

// StartGame deals the shuffled universe in blocks of four by seat position.
func (that *GameController) StartGame(gameInstance *entity.Game) bool {
	count := len(gameInstance.Players)
	if !gameInstance.IsLobby() || count < entity.MinPlayers || count > entity.MaxPlayers || !gameInstance.AllReady() {
		return false
	}

	deck := entity.AllChits()
	that.shuffle(deck)

	for _, player := range gameInstance.Players {
		offset := player.Position * entity.HandSize
		player.Chits = append(make([]entity.Chit, 0, entity.HandSize), deck[offset:offset+entity.HandSize]...)
		player.Rank = 0
	}

	gameInstance.CurrentTurn = 0
	gameInstance.Phase = entity.PhasePlaying
	gameInstance.WinnerID = ""
	gameInstance.Rankings = []entity.Ranking{}

	return true
}

// BeginPass starts moving a chit from the player on turn to the next seat.
func (that *GameController) BeginPass(gameInstance *entity.Game, playerID, chitID string) (*entity.Pass, bool) {
	if !gameInstance.IsPlaying() {
		return nil, false
	}

	from := gameInstance.PlayerByID(playerID)
	if from == nil || from.Position != gameInstance.CurrentTurn || !from.HasChit(chitID) {
		return nil, false
	}

	to := gameInstance.PlayerAt(NextPosition(gameInstance.CurrentTurn, len(gameInstance.Players)))
	if to == nil || to.ID == from.ID {
		return nil, false
	}

	gameInstance.Phase = entity.PhasePassing

	return &entity.Pass{
		FromPlayerID: from.ID,
		ToPlayerID:   to.ID,
		ChitID:       chitID,
		IsAnimating:  true,
	}, true
}

// CompletePass re-validates the pass against the current state, moves the
// chit and either finishes the game or hands the turn to the recipient.
func (that *GameController) CompletePass(gameInstance *entity.Game, pass *entity.Pass) bool {
	if pass == nil || !gameInstance.IsPassing() {
		return false
	}

	from := gameInstance.PlayerByID(pass.FromPlayerID)
	to := gameInstance.PlayerByID(pass.ToPlayerID)
	if from == nil || to == nil || from.Position != gameInstance.CurrentTurn {
		return false
	}

	if to.Position != NextPosition(gameInstance.CurrentTurn, len(gameInstance.Players)) {
		return false
	}

	index := from.ChitIndex(pass.ChitID)
	if index == -1 {
		return false
	}

	chit := from.Chits[index]
	from.Chits = append(from.Chits[:index:index], from.Chits[index+1:]...)
	to.Chits = append(to.Chits, chit)

	if winner := findWinner(gameInstance); winner != nil {
		winner.Rank = 1
		gameInstance.WinnerID = winner.ID
		gameInstance.Phase = entity.PhaseFinished
		gameInstance.Rankings = []entity.Ranking{{PlayerID: winner.ID, Name: winner.Name, Rank: 1}}

		return true
	}

	gameInstance.CurrentTurn = to.Position
	gameInstance.Phase = entity.PhasePlaying

	return true
}

// AbortPass returns a game stuck in passing to playing with the same turn.
func (that *GameController) AbortPass(gameInstance *entity.Game) bool {
	if !gameInstance.IsPassing() {
		return false
	}

	gameInstance.Phase = entity.PhasePlaying

	return true
}

// SetPlayerRank records a self-declared rank from {2, 3, 4}.
func (that *GameController) SetPlayerRank(gameInstance *entity.Game, playerID string, rank int) bool {
	if !gameInstance.IsFinished() || rank < 2 || rank > entity.MaxPlayers {
		return false
	}

	player := gameInstance.PlayerByID(playerID)
	if player == nil || gameInstance.HasRanking(playerID) || gameInstance.RankTaken(rank) {
		return false
	}

	player.Rank = rank
	gameInstance.Rankings = append(gameInstance.Rankings, entity.Ranking{
		PlayerID: player.ID,
		Name:     player.Name,
		Rank:     rank,
	})

	return true
}

// ResetGame returns the game to the lobby keeping id, join code and roster.
func (that *GameController) ResetGame(gameInstance *entity.Game) {
	for _, player := range gameInstance.Players {
		player.Chits = []entity.Chit{}
		player.Rank = 0
		player.IsReady = player.IsBot()
	}

	gameInstance.CurrentTurn = 0
	gameInstance.Phase = entity.PhaseLobby
	gameInstance.WinnerID = ""
	gameInstance.Rankings = []entity.Ranking{}
}

// IsWinningHand - exactly four chits of one category.
func IsWinningHand(hand []entity.Chit) bool {
	if len(hand) != entity.HandSize {
		return false
	}

	for _, chit := range hand[1:] {
		if chit.Category != hand[0].Category {
			return false
		}
	}

	return true
}

// AvailableRanks returns the unclaimed ranks of {2, 3, 4}, ascending.
func AvailableRanks(gameInstance *entity.Game) []int {
	ranks := make([]int, 0, entity.MaxPlayers-1)
	for rank := 2; rank <= entity.MaxPlayers; rank++ {
		if !gameInstance.RankTaken(rank) {
			ranks = append(ranks, rank)
		}
	}

	return ranks
}

// findWinner scans seats in position order, so the lowest seat wins ties.
func findWinner(gameInstance *entity.Game) *entity.Player {
	for position := range gameInstance.Players {
		if player := gameInstance.PlayerAt(position); player != nil && IsWinningHand(player.Chits) {
			return player
		}
	}

	return nil
}

// shuffle - Fisher-Yates.
func (that *GameController) shuffle(deck []entity.Chit) {
	for i := len(deck) - 1; i > 0; i-- {
		j := that.intn(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
}
