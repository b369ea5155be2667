package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/rocketscienceinc/fourrace-backend/internal/apperror"
	"github.com/rocketscienceinc/fourrace-backend/internal/entity"
	"github.com/rocketscienceinc/fourrace-backend/internal/fourrace"
	"github.com/rocketscienceinc/fourrace-backend/internal/gamesync"
	"github.com/rocketscienceinc/fourrace-backend/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

type historyMock struct {
	mock.Mock
}

func (that *historyMock) Append(ctx context.Context, entry *entity.HistoryEntry) error {
	args := that.Called(ctx, entry)
	return args.Error(0)
}

var fastDelays = Delays{
	Pass:             10 * time.Millisecond,
	BotThink:         10 * time.Millisecond,
	RankClaim:        10 * time.Millisecond,
	RankClaimStagger: 5 * time.Millisecond,
}

// newTestService deals without shuffling, so seat 0 gets the fruits and
// seat 1 the cars.
func newTestService(t *testing.T, history historyRepo, delays Delays) GameService {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	s := scheduler.New(logger)
	t.Cleanup(s.Close)

	controller := fourrace.NewGameController(func(n int) int { return n - 1 })

	return NewGameService(logger, gamesync.NewMemory(logger), history, s, controller, delays)
}

func createStarted(t *testing.T, svc GameService, withBot bool) (*entity.Game, string, string) {
	t.Helper()
	ctx := context.Background()

	game, ava, err := svc.CreateGame(ctx, "Ava")
	require.NoError(t, err)

	var secondID string
	if withBot {
		game, _, err = svc.AddBot(ctx, game.ID)
		require.NoError(t, err)
		secondID = game.Players[1].ID
	} else {
		var ben *entity.Player
		_, ben, err = svc.JoinGame(ctx, game.JoinCode, "Ben")
		require.NoError(t, err)
		secondID = ben.ID
		_, _, err = svc.SetReady(ctx, game.ID, ben.ID, true)
		require.NoError(t, err)
	}

	_, _, err = svc.SetReady(ctx, game.ID, ava.ID, true)
	require.NoError(t, err)

	game, applied, err := svc.StartGame(ctx, game.ID)
	require.NoError(t, err)
	require.True(t, applied)

	return game, ava.ID, secondID
}

func TestGameService_CreateGame(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil, fastDelays)

	t.Run("Creates a lobby with a trimmed creator name and a join code", func(t *testing.T) {
		// When: creating a game
		game, player, err := svc.CreateGame(ctx, "  Ava  ")

		// Then: the creator sits at seat 0 of a new lobby
		require.NoError(t, err)
		assert.True(t, game.IsLobby())
		assert.Equal(t, "Ava", player.Name)
		assert.Equal(t, 0, player.Position)
		assert.Len(t, game.JoinCode, entity.JoinCodeLength)
		assert.Equal(t, int64(1), game.Version)
	})

	t.Run("Rejects empty and overlong names", func(t *testing.T) {
		for _, name := range []string{"", "   ", strings.Repeat("a", 21)} {
			// When: creating with an invalid name
			_, _, err := svc.CreateGame(ctx, name)

			// Then: ErrInvalidPlayerName
			require.ErrorIs(t, err, apperror.ErrInvalidPlayerName, "name %q", name)
		}
	})
}

func TestGameService_JoinGame(t *testing.T) {
	ctx := context.Background()

	t.Run("Join code is matched after trimming and upper-casing", func(t *testing.T) {
		// Given: a lobby
		svc := newTestService(t, nil, fastDelays)
		game, _, err := svc.CreateGame(ctx, "Ava")
		require.NoError(t, err)

		// When: joining with a lower-cased padded code
		joined, player, err := svc.JoinGame(ctx, "  "+strings.ToLower(game.JoinCode)+" ", "Ben")

		// Then: the player sits at seat 1 unready
		require.NoError(t, err)
		assert.Equal(t, game.ID, joined.ID)
		assert.Equal(t, 1, player.Position)
		assert.False(t, player.IsReady)
		assert.Len(t, joined.Players, 2)
	})

	t.Run("Rejects malformed and unknown codes", func(t *testing.T) {
		svc := newTestService(t, nil, fastDelays)

		_, _, err := svc.JoinGame(ctx, "AB-12", "Ben")
		require.ErrorIs(t, err, apperror.ErrInvalidJoinCode)

		_, _, err = svc.JoinGame(ctx, "ZZZZZZ", "Ben")
		require.ErrorIs(t, err, apperror.ErrGameNotFound)
	})

	t.Run("Rejects a fifth player", func(t *testing.T) {
		// Given: a full lobby
		svc := newTestService(t, nil, fastDelays)
		game, _, err := svc.CreateGame(ctx, "Ava")
		require.NoError(t, err)
		for _, name := range []string{"Ben", "Cy", "Dee"} {
			_, _, err = svc.JoinGame(ctx, game.JoinCode, name)
			require.NoError(t, err)
		}

		// When: one more joins
		_, _, err = svc.JoinGame(ctx, game.JoinCode, "Eve")

		// Then: ErrGameFull
		require.ErrorIs(t, err, apperror.ErrGameFull)
	})

	t.Run("Rejects joining a started game", func(t *testing.T) {
		// Given: a started game
		svc := newTestService(t, nil, Delays{Pass: time.Hour, BotThink: time.Hour})
		game, _, _ := createStarted(t, svc, false)

		// When: someone joins
		_, _, err := svc.JoinGame(ctx, game.JoinCode, "Late")

		// Then: ErrGameAlreadyStarted
		require.ErrorIs(t, err, apperror.ErrGameAlreadyStarted)
	})
}

func TestGameService_Subscribe(t *testing.T) {
	t.Run("Subscribers receive every merged state", func(t *testing.T) {
		ctx := context.Background()

		// Given: a lobby with a subscriber
		svc := newTestService(t, nil, fastDelays)
		game, ava, err := svc.CreateGame(ctx, "Ava")
		require.NoError(t, err)

		var seen []*entity.Game
		unsubscribe, err := svc.Subscribe(ctx, game.ID, func(game *entity.Game) { seen = append(seen, game) })
		require.NoError(t, err)
		defer unsubscribe()

		// When: the creator readies up
		_, applied, err := svc.SetReady(ctx, game.ID, ava.ID, true)

		// Then: the subscriber saw the ready flag with a new version
		require.NoError(t, err)
		require.True(t, applied)
		require.Len(t, seen, 1)
		assert.True(t, seen[0].Players[0].IsReady)
		assert.Equal(t, game.Version+1, seen[0].Version)
	})
}

func TestGameService_PassChit(t *testing.T) {
	ctx := context.Background()

	t.Run("Out of turn passes are ignored", func(t *testing.T) {
		// Given: a started game with Ava on turn
		svc := newTestService(t, nil, fastDelays)
		game, _, benID := createStarted(t, svc, false)

		// When: Ben tries to pass
		after, applied, err := svc.PassChit(ctx, game.ID, benID, "Cars-0")

		// Then: nothing is applied
		require.NoError(t, err)
		assert.False(t, applied)
		assert.True(t, after.IsPlaying())
		assert.Nil(t, svc.Pending(game.ID))
	})

	t.Run("A pass settles after the delay and hands over the turn", func(t *testing.T) {
		// Given: a started game with Ava on turn
		svc := newTestService(t, nil, fastDelays)
		game, avaID, benID := createStarted(t, svc, false)

		// When: Ava passes a fruit
		after, applied, err := svc.PassChit(ctx, game.ID, avaID, "Fruits-0")

		// Then: the game is passing with the pass exposed
		require.NoError(t, err)
		require.True(t, applied)
		assert.True(t, after.IsPassing())
		pending := svc.Pending(game.ID)
		require.NotNil(t, pending)
		assert.Equal(t, benID, pending.ToPlayerID)

		// Then: Ben eventually holds the fruit and the turn
		assert.Eventually(t, func() bool {
			current, getErr := svc.GetGame(ctx, game.ID)
			return getErr == nil && current.IsPlaying() && current.CurrentTurn == 1 &&
				current.PlayerByID(benID).HasChit("Fruits-0")
		}, waitFor, 5*time.Millisecond)
		assert.Eventually(t, func() bool { return svc.Pending(game.ID) == nil }, waitFor, 5*time.Millisecond)
	})

	t.Run("Reset cancels a pass in flight", func(t *testing.T) {
		// Given: a pass in flight with a long settle delay
		svc := newTestService(t, nil, Delays{Pass: 50 * time.Millisecond, BotThink: time.Hour})
		game, avaID, _ := createStarted(t, svc, false)
		_, applied, err := svc.PassChit(ctx, game.ID, avaID, "Fruits-0")
		require.NoError(t, err)
		require.True(t, applied)

		// When: the game is reset before the pass settles
		reset, applied, err := svc.ResetGame(ctx, game.ID)
		require.NoError(t, err)
		require.True(t, applied)

		// Then: the stale pass never lands
		time.Sleep(100 * time.Millisecond)
		current, err := svc.GetGame(ctx, game.ID)
		require.NoError(t, err)
		assert.True(t, current.IsLobby())
		assert.Equal(t, reset.Version, current.Version)
		assert.Empty(t, current.Players[0].Chits)
		assert.Nil(t, svc.Pending(game.ID))
	})
}

func TestGameService_ZeroPassDelay(t *testing.T) {
	t.Run("A pass settling at once leaves no pending pass behind", func(t *testing.T) {
		ctx := context.Background()

		// Given: a started game that settles passes without delay
		svc := newTestService(t, nil, Delays{BotThink: time.Hour})
		game, avaID, benID := createStarted(t, svc, false)

		// When: Ava passes
		_, applied, err := svc.PassChit(ctx, game.ID, avaID, "Fruits-0")
		require.NoError(t, err)
		require.True(t, applied)

		// Then: the pass lands and the pending pass is cleared for good
		assert.Eventually(t, func() bool {
			current, getErr := svc.GetGame(ctx, game.ID)
			return getErr == nil && current.PlayerByID(benID).HasChit("Fruits-0")
		}, waitFor, 5*time.Millisecond)
		assert.Eventually(t, func() bool { return svc.Pending(game.ID) == nil }, waitFor, 5*time.Millisecond)
		assert.Never(t, func() bool { return svc.Pending(game.ID) != nil }, 50*time.Millisecond, 5*time.Millisecond)
	})
}

type cancelSpy struct {
	*scheduler.Scheduler
	onCancel func(key string)
}

func (that *cancelSpy) Cancel(key string) {
	that.onCancel(key)
	that.Scheduler.Cancel(key)
}

func (that *gameService) lockCount() int {
	that.locksMu.Lock()
	defer that.locksMu.Unlock()

	return len(that.locks)
}

func TestGameService_ResetGame(t *testing.T) {
	t.Run("Deferred actions are cancelled while the game is locked", func(t *testing.T) {
		ctx := context.Background()

		// Given: a service whose scheduler reports the lock state on cancel
		logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
		s := scheduler.New(logger)
		t.Cleanup(s.Close)

		var heldOnCancel []bool
		spy := &cancelSpy{Scheduler: s}
		svc := NewGameService(logger, gamesync.NewMemory(logger), nil, spy,
			fourrace.NewGameController(func(n int) int { return n - 1 }), Delays{Pass: time.Hour, BotThink: time.Hour})
		impl := svc.(*gameService)
		spy.onCancel = func(string) { heldOnCancel = append(heldOnCancel, impl.lockCount() == 1) }

		game, avaID, _ := createStarted(t, svc, false)
		_, applied, err := svc.PassChit(ctx, game.ID, avaID, "Fruits-0")
		require.NoError(t, err)
		require.True(t, applied)

		// When: the game is reset
		_, applied, err = svc.ResetGame(ctx, game.ID)
		require.NoError(t, err)
		require.True(t, applied)

		// Then: the cancel ran under the game lock and nothing is left scheduled
		assert.Equal(t, []bool{true}, heldOnCancel)
		assert.Zero(t, s.Pending(game.ID))
		assert.Nil(t, svc.Pending(game.ID))
	})
}

func TestGameService_AvaAgainstBotAlice(t *testing.T) {
	t.Run("Bot answers, loses and claims second place", func(t *testing.T) {
		ctx := context.Background()

		// Given: Ava with four fruits against Bot Alice with four cars
		history := &historyMock{}
		recorded := make(chan *entity.HistoryEntry, 1)
		history.On("Append", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { recorded <- args.Get(1).(*entity.HistoryEntry) }).
			Return(nil).Once()

		svc := newTestService(t, history, fastDelays)
		game, avaID, botID := createStarted(t, svc, true)
		assert.True(t, fourrace.IsWinningHand(game.Players[0].Chits))

		// When: Ava gives up a fruit, which the bot hands straight back
		_, applied, err := svc.PassChit(ctx, game.ID, avaID, "Fruits-0")
		require.NoError(t, err)
		require.True(t, applied)

		// Then: Ava wins, the bot ranks second and the game is recorded once
		select {
		case entry := <-recorded:
			assert.Equal(t, game.ID, entry.GameID)
			assert.Equal(t, []entity.Ranking{
				{PlayerID: avaID, Name: "Ava", Rank: 1},
				{PlayerID: botID, Name: "Bot Alice", Rank: 2},
			}, entry.Rankings)
		case <-time.After(waitFor):
			t.Fatal("game was not recorded")
		}

		final, err := svc.GetGame(ctx, game.ID)
		require.NoError(t, err)
		assert.True(t, final.IsFinished())
		assert.Equal(t, avaID, final.WinnerID)
		assert.True(t, final.RankingsComplete())
		history.AssertExpectations(t)
	})
}

func TestGameService_ClaimRank(t *testing.T) {
	t.Run("Last human claim completes rankings and records history", func(t *testing.T) {
		ctx := context.Background()

		// Given: Ava and Ben trade a fruit back and forth so Ava wins
		history := &historyMock{}
		history.On("Append", mock.Anything, mock.MatchedBy(func(entry *entity.HistoryEntry) bool {
			return len(entry.Rankings) == 2
		})).Return(nil).Once()

		svc := newTestService(t, history, fastDelays)
		game, avaID, benID := createStarted(t, svc, false)

		_, applied, err := svc.PassChit(ctx, game.ID, avaID, "Fruits-0")
		require.NoError(t, err)
		require.True(t, applied)
		require.Eventually(t, func() bool {
			current, _ := svc.GetGame(ctx, game.ID)
			return current.IsPlaying() && current.CurrentTurn == 1
		}, waitFor, 5*time.Millisecond)

		_, applied, err = svc.PassChit(ctx, game.ID, benID, "Fruits-0")
		require.NoError(t, err)
		require.True(t, applied)
		require.Eventually(t, func() bool {
			current, _ := svc.GetGame(ctx, game.ID)
			return current.IsFinished()
		}, waitFor, 5*time.Millisecond)

		// When: Ben tries rank 1 and then claims rank 3
		_, applied, err = svc.ClaimRank(ctx, game.ID, benID, 1)
		require.NoError(t, err)
		assert.False(t, applied)

		final, applied, err := svc.ClaimRank(ctx, game.ID, benID, 3)

		// Then: rankings are complete and history got one entry
		require.NoError(t, err)
		require.True(t, applied)
		assert.True(t, final.RankingsComplete())
		assert.Equal(t, 3, final.PlayerByID(benID).Rank)
		history.AssertExpectations(t)
	})
}

func TestGameService_EndGame(t *testing.T) {
	t.Run("Ended games are gone", func(t *testing.T) {
		ctx := context.Background()

		// Given: a lobby
		svc := newTestService(t, nil, fastDelays)
		game, _, err := svc.CreateGame(ctx, "Ava")
		require.NoError(t, err)

		// When: it is ended
		require.NoError(t, svc.EndGame(ctx, game.ID))

		// Then: reads and actions fail with ErrGameNotFound
		_, err = svc.GetGame(ctx, game.ID)
		require.ErrorIs(t, err, apperror.ErrGameNotFound)
		_, _, err = svc.AddBot(ctx, game.ID)
		require.ErrorIs(t, err, apperror.ErrGameNotFound)
	})

	t.Run("Per-game locks are released with the game", func(t *testing.T) {
		ctx := context.Background()

		// Given: a game that went through a few actions
		svc := newTestService(t, nil, Delays{Pass: time.Hour, BotThink: time.Hour})
		game, _, _ := createStarted(t, svc, false)
		impl := svc.(*gameService)

		// When: it is ended
		require.NoError(t, svc.EndGame(ctx, game.ID))

		// Then: no lock entry is kept for it
		assert.Zero(t, impl.lockCount())
	})
}
