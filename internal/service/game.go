package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rocketscienceinc/fourrace-backend/internal/apperror"
	"github.com/rocketscienceinc/fourrace-backend/internal/entity"
	"github.com/rocketscienceinc/fourrace-backend/internal/fourrace"
	"github.com/rocketscienceinc/fourrace-backend/internal/gamesync"
	"github.com/rocketscienceinc/fourrace-backend/internal/pkg"
)

const (
	maxPlayerNameLength = 20
	joinCodeAttempts    = 5
)

// GameService is the acting client of the sync store: every action loads the
// authoritative state, applies one engine mutation and merges the result back.
// Actions rejected by the engine return applied=false without an error.
type GameService interface {
	CreateGame(ctx context.Context, name string) (*entity.Game, *entity.Player, error)
	JoinGame(ctx context.Context, joinCode, name string) (*entity.Game, *entity.Player, error)
	GetGame(ctx context.Context, gameID string) (*entity.Game, error)
	EndGame(ctx context.Context, gameID string) error

	AddBot(ctx context.Context, gameID string) (*entity.Game, bool, error)
	RemovePlayer(ctx context.Context, gameID, playerID string) (*entity.Game, bool, error)
	SetReady(ctx context.Context, gameID, playerID string, ready bool) (*entity.Game, bool, error)
	StartGame(ctx context.Context, gameID string) (*entity.Game, bool, error)
	PassChit(ctx context.Context, gameID, playerID, chitID string) (*entity.Game, bool, error)
	ClaimRank(ctx context.Context, gameID, playerID string, rank int) (*entity.Game, bool, error)
	ResetGame(ctx context.Context, gameID string) (*entity.Game, bool, error)

	Pending(gameID string) *entity.Pass
	Subscribe(ctx context.Context, gameID string, listener gamesync.Listener) (func(), error)
}

type historyRepo interface {
	Append(ctx context.Context, entry *entity.HistoryEntry) error
}

type deferrer interface {
	After(key string, delay time.Duration, action func(ctx context.Context)) bool
	Cancel(key string)
}

// Delays between an action and its automatic follow-up.
type Delays struct {
	Pass             time.Duration
	BotThink         time.Duration
	BotThinkJitter   time.Duration
	RankClaim        time.Duration
	RankClaimStagger time.Duration
}

type gameService struct {
	logger     *slog.Logger
	store      gamesync.Store
	history    historyRepo
	scheduler  deferrer
	controller *fourrace.GameController
	delays     Delays
	now        func() time.Time

	locksMu sync.Mutex
	locks   map[string]*gameLock

	pendingMu sync.Mutex
	pending   map[string]*entity.Pass
}

func NewGameService(
	logger *slog.Logger,
	store gamesync.Store,
	history historyRepo,
	scheduler deferrer,
	controller *fourrace.GameController,
	delays Delays,
) GameService {
	return &gameService{
		logger:     logger.With("component", "game-service"),
		store:      store,
		history:    history,
		scheduler:  scheduler,
		controller: controller,
		delays:     delays,
		now:        time.Now,
		locks:      make(map[string]*gameLock),
		pending:    make(map[string]*entity.Pass),
	}
}

func (that *gameService) CreateGame(ctx context.Context, name string) (*entity.Game, *entity.Player, error) {
	name, err := normalizePlayerName(name)
	if err != nil {
		return nil, nil, err
	}

	joinCode, err := that.newJoinCode(ctx)
	if err != nil {
		return nil, nil, err
	}

	player := entity.NewPlayer(pkg.GeneratePlayerID(), name)
	game := entity.NewGame(pkg.GenerateGameID(), joinCode, player, that.now().UTC())

	stored, err := that.store.Put(ctx, game)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create game: %w", err)
	}

	that.logger.Info("game created", "game_id", stored.ID, "join_code", stored.JoinCode)

	return stored, stored.PlayerByID(player.ID), nil
}

func (that *gameService) JoinGame(ctx context.Context, joinCode, name string) (*entity.Game, *entity.Player, error) {
	log := that.logger.With("method", "JoinGame")

	joinCode, err := normalizeJoinCode(joinCode)
	if err != nil {
		return nil, nil, err
	}

	name, err = normalizePlayerName(name)
	if err != nil {
		return nil, nil, err
	}

	game, err := that.store.GetByJoinCode(ctx, joinCode)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find game by join code: %w", err)
	}

	player := entity.NewPlayer(pkg.GeneratePlayerID(), name)

	var rejection error
	joined, applied, err := that.mutate(ctx, game.ID, func(current *entity.Game) bool {
		switch {
		case !current.IsLobby():
			rejection = apperror.ErrGameAlreadyStarted
		case current.IsFull():
			rejection = apperror.ErrGameFull
		default:
			return that.controller.AddPlayer(current, player)
		}

		return false
	})
	if err != nil {
		return nil, nil, err
	}

	if !applied {
		if rejection == nil {
			rejection = apperror.ErrGameFull
		}

		return nil, nil, rejection
	}

	log.Info("player joined", "game_id", joined.ID, "player_id", player.ID)

	return joined, joined.PlayerByID(player.ID), nil
}

func (that *gameService) GetGame(ctx context.Context, gameID string) (*entity.Game, error) {
	game, err := that.store.Get(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve game from storage: %w", err)
	}

	return game, nil
}

// EndGame cancels the game's deferred actions and removes its state.
func (that *gameService) EndGame(ctx context.Context, gameID string) error {
	unlock := that.lock(gameID)
	defer unlock()

	that.scheduler.Cancel(gameID)
	that.clearPending(gameID)

	if err := that.store.Delete(ctx, gameID); err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}

	that.logger.Info("game ended", "game_id", gameID)

	return nil
}

func (that *gameService) AddBot(ctx context.Context, gameID string) (*entity.Game, bool, error) {
	return that.mutate(ctx, gameID, func(game *entity.Game) bool {
		_, ok := that.controller.AddBot(game, pkg.GenerateBotID())
		return ok
	})
}

func (that *gameService) RemovePlayer(ctx context.Context, gameID, playerID string) (*entity.Game, bool, error) {
	return that.mutate(ctx, gameID, func(game *entity.Game) bool {
		return that.controller.RemovePlayer(game, playerID)
	})
}

func (that *gameService) SetReady(ctx context.Context, gameID, playerID string, ready bool) (*entity.Game, bool, error) {
	return that.mutate(ctx, gameID, func(game *entity.Game) bool {
		return that.controller.SetReady(game, playerID, ready)
	})
}

func (that *gameService) Subscribe(ctx context.Context, gameID string, listener gamesync.Listener) (func(), error) {
	unsubscribe, err := that.store.Subscribe(ctx, gameID, listener)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to game: %w", err)
	}

	return unsubscribe, nil
}

// newJoinCode draws codes until one is not in use.
func (that *gameService) newJoinCode(ctx context.Context) (string, error) {
	for range joinCodeAttempts {
		code, err := pkg.GenerateJoinCode(entity.JoinCodeLength)
		if err != nil {
			return "", fmt.Errorf("error generating join code: %w", err)
		}

		_, err = that.store.GetByJoinCode(ctx, code)
		if errors.Is(err, apperror.ErrGameNotFound) {
			return code, nil
		}

		if err != nil {
			return "", fmt.Errorf("failed to check join code: %w", err)
		}
	}

	return "", fmt.Errorf("error generating join code: no free code after %d attempts", joinCodeAttempts)
}

type gameLock struct {
	mu   sync.Mutex
	refs int
}

// lock serializes read-modify-write cycles on one game. The entry is dropped
// once no caller holds or waits for it.
func (that *gameService) lock(gameID string) func() {
	that.locksMu.Lock()
	l, ok := that.locks[gameID]
	if !ok {
		l = &gameLock{}
		that.locks[gameID] = l
	}
	l.refs++
	that.locksMu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		that.locksMu.Lock()
		defer that.locksMu.Unlock()

		l.refs--
		if l.refs == 0 {
			delete(that.locks, gameID)
		}
	}
}

func normalizePlayerName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxPlayerNameLength {
		return "", apperror.ErrInvalidPlayerName
	}

	return name, nil
}

func normalizeJoinCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != entity.JoinCodeLength {
		return "", apperror.ErrInvalidJoinCode
	}

	for _, r := range code {
		if !pkg.IsJoinCodeChar(r) {
			return "", apperror.ErrInvalidJoinCode
		}
	}

	return code, nil
}
