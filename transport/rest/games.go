package rest

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rocketscienceinc/fourrace-backend/internal/entity"
)

type createGameRequest struct {
	Name string `json:"name"`
}

type createGameResponse struct {
	GameID   string `json:"game_id"`
	JoinCode string `json:"join_code"`
	PlayerID string `json:"player_id"`
}

type joinGameRequest struct {
	JoinCode string `json:"join_code"`
	Name     string `json:"name"`
}

type joinGameResponse struct {
	GameID   string `json:"game_id"`
	PlayerID string `json:"player_id"`
}

type readyRequest struct {
	Ready bool `json:"ready"`
}

type passRequest struct {
	PlayerID string `json:"player_id"`
	ChitID   string `json:"chit_id"`
}

type rankRequest struct {
	PlayerID string `json:"player_id"`
	Rank     int    `json:"rank"`
}

type action func(ctx context.Context, gameID string) (*entity.Game, bool, error)

func (that *Server) createGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	game, player, err := that.games.CreateGame(r.Context(), req.Name)
	if err != nil {
		that.fail(w, r, "CreateGame", err)
		return
	}

	writeJSON(w, http.StatusCreated, createGameResponse{
		GameID:   game.ID,
		JoinCode: game.JoinCode,
		PlayerID: player.ID,
	})
}

func (that *Server) joinGame(w http.ResponseWriter, r *http.Request) {
	var req joinGameRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	game, player, err := that.games.JoinGame(r.Context(), req.JoinCode, req.Name)
	if err != nil {
		that.fail(w, r, "JoinGame", err)
		return
	}

	writeJSON(w, http.StatusOK, joinGameResponse{GameID: game.ID, PlayerID: player.ID})
}

func (that *Server) getGame(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")

	game, err := that.games.GetGame(r.Context(), gameID)
	if err != nil {
		that.fail(w, r, "GetGame", err)
		return
	}

	writeJSON(w, http.StatusOK, stateResponse{Game: game, Passing: that.games.Pending(gameID)})
}

func (that *Server) endGame(w http.ResponseWriter, r *http.Request) {
	if err := that.games.EndGame(r.Context(), chi.URLParam(r, "gameID")); err != nil {
		that.fail(w, r, "EndGame", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (that *Server) addBot(w http.ResponseWriter, r *http.Request) {
	that.act(w, r, "AddBot", that.games.AddBot)
}

func (that *Server) startGame(w http.ResponseWriter, r *http.Request) {
	that.act(w, r, "StartGame", that.games.StartGame)
}

func (that *Server) resetGame(w http.ResponseWriter, r *http.Request) {
	that.act(w, r, "ResetGame", that.games.ResetGame)
}

func (that *Server) removePlayer(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	that.act(w, r, "RemovePlayer", func(ctx context.Context, gameID string) (*entity.Game, bool, error) {
		return that.games.RemovePlayer(ctx, gameID, playerID)
	})
}

func (that *Server) setReady(w http.ResponseWriter, r *http.Request) {
	var req readyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	playerID := chi.URLParam(r, "playerID")

	that.act(w, r, "SetReady", func(ctx context.Context, gameID string) (*entity.Game, bool, error) {
		return that.games.SetReady(ctx, gameID, playerID, req.Ready)
	})
}

func (that *Server) passChit(w http.ResponseWriter, r *http.Request) {
	var req passRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	that.act(w, r, "PassChit", func(ctx context.Context, gameID string) (*entity.Game, bool, error) {
		return that.games.PassChit(ctx, gameID, req.PlayerID, req.ChitID)
	})
}

func (that *Server) claimRank(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	that.act(w, r, "ClaimRank", func(ctx context.Context, gameID string) (*entity.Game, bool, error) {
		return that.games.ClaimRank(ctx, gameID, req.PlayerID, req.Rank)
	})
}

// act runs a game action and reports whether it was applied.
func (that *Server) act(w http.ResponseWriter, r *http.Request, method string, run action) {
	game, applied, err := run(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		that.fail(w, r, method, err)
		return
	}

	writeJSON(w, http.StatusOK, actionResponse{Game: game, Applied: applied})
}

func (that *Server) fail(w http.ResponseWriter, r *http.Request, method string, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		that.logger.Error("request failed", "method", method, "request_id", middleware.GetReqID(r.Context()), "error", err)
	} else {
		that.logger.Debug("request rejected", "method", method, "error", err)
	}

	writeError(w, status, message)
}
