package entity

// GamePatch is a partial game state for shallow merges. A nil field is left
// untouched; a non-nil empty slice replaces the field with an empty one.
type GamePatch struct {
	Players     []*Player
	CurrentTurn *int
	Phase       *Phase
	WinnerID    *string
	Rankings    []Ranking
}

// PatchFrom builds a patch carrying every mutable field of the game.
func PatchFrom(game *Game) *GamePatch {
	turn := game.CurrentTurn
	phase := game.Phase
	winnerID := game.WinnerID

	return &GamePatch{
		Players:     clonePlayers(game.Players),
		CurrentTurn: &turn,
		Phase:       &phase,
		WinnerID:    &winnerID,
		Rankings:    append(make([]Ranking, 0, len(game.Rankings)), game.Rankings...),
	}
}

// Apply overwrites the fields present in the patch.
func (that *Game) Apply(patch *GamePatch) {
	if patch == nil {
		return
	}

	if patch.Players != nil {
		that.Players = clonePlayers(patch.Players)
	}

	if patch.CurrentTurn != nil {
		that.CurrentTurn = *patch.CurrentTurn
	}

	if patch.Phase != nil {
		that.Phase = *patch.Phase
	}

	if patch.WinnerID != nil {
		that.WinnerID = *patch.WinnerID
	}

	if patch.Rankings != nil {
		that.Rankings = append(make([]Ranking, 0, len(patch.Rankings)), patch.Rankings...)
	}
}
