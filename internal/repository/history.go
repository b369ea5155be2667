package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/rocketscienceinc/fourrace-backend/internal/entity"
)

// unrankedPenalty is the rank counted for a player who never claimed one.
const unrankedPenalty = 4

type HistoryRepository interface {
	Append(ctx context.Context, entry *entity.HistoryEntry) error
	List(ctx context.Context) ([]*entity.HistoryEntry, error)
	Stats(ctx context.Context) ([]*entity.PlayerStats, error)
	Clear(ctx context.Context) error
}

type dbHistory struct {
	conn *sql.DB
}

func NewHistoryRepository(conn *sql.DB) HistoryRepository {
	return &dbHistory{
		conn: conn,
	}
}

func (that *dbHistory) Append(ctx context.Context, entry *entity.HistoryEntry) error {
	tx, err := that.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("can't begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO games (game_id, finished_at) VALUES (?, ?)`,
		entry.GameID, entry.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("can't save game: %w", err)
	}

	historyID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("can't read history id: %w", err)
	}

	for _, ranking := range entry.Rankings {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO game_rankings (history_id, player_id, name, rank) VALUES (?, ?, ?, ?)`,
			historyID, ranking.PlayerID, ranking.Name, ranking.Rank); err != nil {
			return fmt.Errorf("can't save ranking: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("can't commit history entry: %w", err)
	}

	return nil
}

// List returns finished games newest first with rankings sorted by rank.
func (that *dbHistory) List(ctx context.Context) ([]*entity.HistoryEntry, error) {
	query := `
		SELECT g.id, g.game_id, g.finished_at, r.player_id, r.name, r.rank
		FROM games g
		JOIN game_rankings r ON r.history_id = g.id
		ORDER BY g.id DESC, r.rank ASC`

	rows, err := that.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("can't list history: %w", err)
	}
	defer rows.Close()

	entries := make([]*entity.HistoryEntry, 0)
	var (
		current   *entity.HistoryEntry
		currentID int64 = -1
	)

	for rows.Next() {
		var (
			historyID int64
			entry     entity.HistoryEntry
			ranking   entity.Ranking
		)

		if err = rows.Scan(&historyID, &entry.GameID, &entry.FinishedAt,
			&ranking.PlayerID, &ranking.Name, &ranking.Rank); err != nil {
			return nil, fmt.Errorf("can't scan history row: %w", err)
		}

		if historyID != currentID {
			currentID = historyID
			current = &entity.HistoryEntry{GameID: entry.GameID, FinishedAt: entry.FinishedAt}
			entries = append(entries, current)
		}

		current.Rankings = append(current.Rankings, ranking)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("can't iterate history: %w", err)
	}

	return entries, nil
}

// Stats aggregates per display name. Sorted by win rate desc, then average
// rank asc.
func (that *dbHistory) Stats(ctx context.Context) ([]*entity.PlayerStats, error) {
	query := `
		SELECT name,
			SUM(CASE WHEN rank = 1 THEN 1 ELSE 0 END),
			COUNT(*),
			SUM(CASE WHEN rank BETWEEN 1 AND 4 THEN rank ELSE ? END)
		FROM game_rankings
		GROUP BY name`

	rows, err := that.conn.QueryContext(ctx, query, unrankedPenalty)
	if err != nil {
		return nil, fmt.Errorf("can't aggregate stats: %w", err)
	}
	defer rows.Close()

	stats := make([]*entity.PlayerStats, 0)
	for rows.Next() {
		var (
			player    entity.PlayerStats
			totalRank int
		)

		if err = rows.Scan(&player.Name, &player.Wins, &player.Games, &totalRank); err != nil {
			return nil, fmt.Errorf("can't scan stats row: %w", err)
		}

		if player.Games > 0 {
			player.WinRate = float64(player.Wins) / float64(player.Games) * 100
			player.AvgRank = float64(totalRank) / float64(player.Games)
		}

		stats = append(stats, &player)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("can't iterate stats: %w", err)
	}

	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].WinRate != stats[j].WinRate {
			return stats[i].WinRate > stats[j].WinRate
		}
		if stats[i].AvgRank != stats[j].AvgRank {
			return stats[i].AvgRank < stats[j].AvgRank
		}

		return stats[i].Name < stats[j].Name
	})

	return stats, nil
}

func (that *dbHistory) Clear(ctx context.Context) error {
	tx, err := that.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("can't begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, query := range []string{`DELETE FROM game_rankings`, `DELETE FROM games`} {
		if _, err = tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("can't clear history: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("can't commit history clear: %w", err)
	}

	return nil
}
