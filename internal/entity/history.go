package entity

import "time"

// HistoryEntry is a snapshot of a finished game's rankings.
type HistoryEntry struct {
	GameID     string    `json:"game_id"`
	Rankings   []Ranking `json:"rankings"`
	FinishedAt time.Time `json:"finished_at"`
}

// PlayerStats aggregates history per display name.
type PlayerStats struct {
	Name    string  `json:"name"`
	Wins    int     `json:"wins"`
	Games   int     `json:"games"`
	WinRate float64 `json:"win_rate"`
	AvgRank float64 `json:"avg_rank"`
}

func NewHistoryEntry(game *Game, finishedAt time.Time) *HistoryEntry {
	return &HistoryEntry{
		GameID:     game.ID,
		Rankings:   game.SortedRankings(),
		FinishedAt: finishedAt,
	}
}
