package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/handlers"
	"github.com/rocketscienceinc/fourrace-backend/internal/entity"
)

const (
	handlerTimeout  = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

type gameService interface {
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
}

type historyRepo interface {
	List(ctx context.Context) ([]*entity.HistoryEntry, error)
	Stats(ctx context.Context) ([]*entity.PlayerStats, error)
	Clear(ctx context.Context) error
}

type Server struct {
	logger  *slog.Logger
	games   gameService
	history historyRepo
	router  chi.Router
	origins []string
}

func New(logger *slog.Logger, games gameService, history historyRepo, origins []string) *Server {
	that := &Server{
		logger:  logger.With("component", "rest"),
		games:   games,
		history: history,
		router:  chi.NewRouter(),
		origins: origins,
	}

	that.router.Use(middleware.RequestID)
	that.router.Use(middleware.RealIP)
	that.router.Use(middleware.Recoverer)
	that.router.Use(middleware.Timeout(handlerTimeout))

	that.router.Get("/ping", pingHandler)
	that.router.Get("/health", healthHandler)

	that.router.Route("/games", func(r chi.Router) {
		r.Post("/", that.createGame)
		r.Post("/join", that.joinGame)

		r.Route("/{gameID}", func(r chi.Router) {
			r.Get("/", that.getGame)
			r.Delete("/", that.endGame)
			r.Post("/bots", that.addBot)
			r.Delete("/players/{playerID}", that.removePlayer)
			r.Post("/players/{playerID}/ready", that.setReady)
			r.Post("/start", that.startGame)
			r.Post("/pass", that.passChit)
			r.Post("/rank", that.claimRank)
			r.Post("/reset", that.resetGame)
		})
	})

	that.router.Get("/history", that.listHistory)
	that.router.Delete("/history", that.clearHistory)
	that.router.Get("/stats", that.stats)

	that.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	return that
}

// Handler returns the router wrapped in CORS handling.
func (that *Server) Handler() http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins(that.origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(that.router)
}

// Start serves until ctx is cancelled.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
