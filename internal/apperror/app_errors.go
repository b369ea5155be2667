package apperror

import "errors"

var (
	ErrGameNotFound       = errors.New("game not found")
	ErrGameFull           = errors.New("game is full")
	ErrGameAlreadyStarted = errors.New("game has already started")
	ErrInvalidPlayerName  = errors.New("player name must be between 1 and 20 characters")
	ErrInvalidJoinCode    = errors.New("join code must be 6 letters or digits")
	ErrMergeConflict      = errors.New("game state changed concurrently, retry")
)
