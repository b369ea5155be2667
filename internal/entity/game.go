package entity

import (
	"sort"
	"time"
)

type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhasePlaying  Phase = "playing"
	PhasePassing  Phase = "passing"
	PhaseFinished Phase = "finished"
)

const (
	MinPlayers     = 2
	MaxPlayers     = 4
	JoinCodeLength = 6
)

// Ranking records one rank claim. Rankings are kept in claim order.
type Ranking struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Rank     int    `json:"rank"`
}

// Game is the full state of one game. Players are kept ordered by seat position.
type Game struct {
	ID          string    `json:"id"`
	JoinCode    string    `json:"join_code"`
	Players     []*Player `json:"players"`
	CurrentTurn int       `json:"current_turn"`
	Phase       Phase     `json:"phase"`
	WinnerID    string    `json:"winner_id,omitempty"`
	Rankings    []Ranking `json:"rankings"`
	CreatedAt   time.Time `json:"created_at"`
	Version     int64     `json:"version"`
}

func NewGame(id, joinCode string, creator *Player, createdAt time.Time) *Game {
	creator.Position = 0

	return &Game{
		ID:        id,
		JoinCode:  joinCode,
		Players:   []*Player{creator},
		Phase:     PhaseLobby,
		Rankings:  []Ranking{},
		CreatedAt: createdAt,
	}
}

func (that *Game) IsLobby() bool {
	return that.Phase == PhaseLobby
}

func (that *Game) IsPlaying() bool {
	return that.Phase == PhasePlaying
}

func (that *Game) IsPassing() bool {
	return that.Phase == PhasePassing
}

func (that *Game) IsFinished() bool {
	return that.Phase == PhaseFinished
}

func (that *Game) IsFull() bool {
	return len(that.Players) >= MaxPlayers
}

func (that *Game) PlayerByID(id string) *Player {
	for _, player := range that.Players {
		if player.ID == id {
			return player
		}
	}

	return nil
}

func (that *Game) PlayerAt(position int) *Player {
	for _, player := range that.Players {
		if player.Position == position {
			return player
		}
	}

	return nil
}

func (that *Game) Winner() *Player {
	if that.WinnerID == "" {
		return nil
	}

	return that.PlayerByID(that.WinnerID)
}

func (that *Game) AllReady() bool {
	for _, player := range that.Players {
		if !player.IsReady {
			return false
		}
	}

	return true
}

func (that *Game) HasRanking(playerID string) bool {
	for _, ranking := range that.Rankings {
		if ranking.PlayerID == playerID {
			return true
		}
	}

	return false
}

func (that *Game) RankTaken(rank int) bool {
	for _, ranking := range that.Rankings {
		if ranking.Rank == rank {
			return true
		}
	}

	return false
}

// RankingsComplete reports whether every seated player holds a rank.
func (that *Game) RankingsComplete() bool {
	if len(that.Players) == 0 {
		return false
	}

	for _, player := range that.Players {
		if !that.HasRanking(player.ID) {
			return false
		}
	}

	return true
}

// SortedRankings returns a copy of the rankings ordered by rank value.
func (that *Game) SortedRankings() []Ranking {
	sorted := append(make([]Ranking, 0, len(that.Rankings)), that.Rankings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Rank < sorted[j].Rank
	})

	return sorted
}

// Clone returns a deep copy; replicas never share hands or rosters.
func (that *Game) Clone() *Game {
	clone := *that
	clone.Players = clonePlayers(that.Players)
	clone.Rankings = append(make([]Ranking, 0, len(that.Rankings)), that.Rankings...)

	return &clone
}

func clonePlayers(players []*Player) []*Player {
	cloned := make([]*Player, 0, len(players))
	for _, player := range players {
		cloned = append(cloned, player.Clone())
	}

	return cloned
}
