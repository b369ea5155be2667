package repository

import (
	"testing"
	"time"

	"github.com/rocketscienceinc/fourrace-backend/internal/entity"
	"github.com/rocketscienceinc/fourrace-backend/testing/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(gameID string, finishedAt time.Time, names ...string) *entity.HistoryEntry {
	rankings := make([]entity.Ranking, 0, len(names))
	for i, name := range names {
		rankings = append(rankings, entity.Ranking{PlayerID: "id-" + name, Name: name, Rank: i + 1})
	}

	return &entity.HistoryEntry{GameID: gameID, Rankings: rankings, FinishedAt: finishedAt}
}

func TestHistoryRepository_AppendAndList(t *testing.T) {
	t.Run("Lists entries newest first with rankings by rank", func(t *testing.T) {
		ctx, st := suite.NewSQLite(t)
		repo := NewHistoryRepository(st.Storage.Connection)

		// Given: two finished games
		first := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
		require.NoError(t, repo.Append(ctx, entry("game-1", first, "Ava", "Bot Alice")))
		require.NoError(t, repo.Append(ctx, entry("game-1", first.Add(time.Hour), "Bot Alice", "Ava", "Ben")))

		// When: listing
		entries, err := repo.List(ctx)

		// Then: the replay of game-1 comes first
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Len(t, entries[0].Rankings, 3)
		assert.Equal(t, "Bot Alice", entries[0].Rankings[0].Name)
		assert.True(t, entries[1].FinishedAt.Equal(first))
		assert.Equal(t, []entity.Ranking{
			{PlayerID: "id-Ava", Name: "Ava", Rank: 1},
			{PlayerID: "id-Bot Alice", Name: "Bot Alice", Rank: 2},
		}, entries[1].Rankings)
	})

	t.Run("Empty history lists nothing", func(t *testing.T) {
		ctx, st := suite.NewSQLite(t)
		repo := NewHistoryRepository(st.Storage.Connection)

		// When: listing an empty history
		entries, err := repo.List(ctx)

		// Then: no entries and no error
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestHistoryRepository_Stats(t *testing.T) {
	t.Run("Aggregates per name sorted by win rate then average rank", func(t *testing.T) {
		ctx, st := suite.NewSQLite(t)
		repo := NewHistoryRepository(st.Storage.Connection)

		// Given: three games where Ben and Eve never win but Ben places better
		now := time.Now()
		require.NoError(t, repo.Append(ctx, entry("g1", now, "Ava", "Ben", "Cy")))
		require.NoError(t, repo.Append(ctx, entry("g2", now, "Cy", "Ben", "Ava")))
		require.NoError(t, repo.Append(ctx, entry("g3", now, "Dee", "Cy", "Eve")))

		// When: aggregating
		stats, err := repo.Stats(ctx)
		require.NoError(t, err)

		// Then: win rate orders first, average rank splits the winless players
		require.Len(t, stats, 5)
		names := make([]string, 0, len(stats))
		for _, player := range stats {
			names = append(names, player.Name)
		}
		assert.Equal(t, []string{"Dee", "Ava", "Cy", "Ben", "Eve"}, names)

		assert.InDelta(t, 100.0, stats[0].WinRate, 0.001)
		assert.Equal(t, 2, stats[1].Games)
		assert.Equal(t, 1, stats[1].Wins)
		assert.InDelta(t, 50.0, stats[1].WinRate, 0.001)
		assert.InDelta(t, 2.0, stats[1].AvgRank, 0.001)
		assert.Equal(t, 3, stats[2].Games)
		assert.InDelta(t, 100.0/3, stats[2].WinRate, 0.001)
		assert.InDelta(t, 2.0, stats[3].AvgRank, 0.001)
		assert.InDelta(t, 3.0, stats[4].AvgRank, 0.001)
	})
}

func TestHistoryRepository_Clear(t *testing.T) {
	ctx, st := suite.NewSQLite(t)
	repo := NewHistoryRepository(st.Storage.Connection)

	// Given: a recorded game
	require.NoError(t, repo.Append(ctx, entry("g1", time.Now(), "Ava", "Ben")))

	// When: history is cleared
	require.NoError(t, repo.Clear(ctx))

	// Then: nothing is listed and no stats remain
	entries, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Empty(t, stats)
}
