package entity

// Pass is an in-flight chit transfer. It is never persisted.
type Pass struct {
	FromPlayerID string `json:"from_player_id"`
	ToPlayerID   string `json:"to_player_id"`
	ChitID       string `json:"chit_id"`
	IsAnimating  bool   `json:"is_animating"`
}
