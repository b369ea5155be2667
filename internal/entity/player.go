package entity

type Player struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Chits    []Chit `json:"chits"`
	Position int    `json:"position"`
	IsReady  bool   `json:"is_ready"`
	Rank     int    `json:"rank,omitempty"`
	Bot      bool   `json:"bot,omitempty"`
}

func NewPlayer(id, name string) *Player {
	return &Player{
		ID:    id,
		Name:  name,
		Chits: []Chit{},
	}
}

// NewBotPlayer - bots are always ready.
func NewBotPlayer(id, name string) *Player {
	return &Player{
		ID:      id,
		Name:    name,
		Chits:   []Chit{},
		IsReady: true,
		Bot:     true,
	}
}

func (that *Player) IsBot() bool {
	return that.Bot
}

func (that *Player) IsRanked() bool {
	return that.Rank != 0
}

// ChitIndex returns the index of the chit in the hand, or -1.
func (that *Player) ChitIndex(chitID string) int {
	for i, chit := range that.Chits {
		if chit.ID == chitID {
			return i
		}
	}

	return -1
}

func (that *Player) HasChit(chitID string) bool {
	return that.ChitIndex(chitID) != -1
}

func (that *Player) Clone() *Player {
	clone := *that
	clone.Chits = append(make([]Chit, 0, len(that.Chits)), that.Chits...)

	return &clone
}
