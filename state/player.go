package state

// Direction is the side a player faces.
type Direction string

const (
	Left  Direction = "left"
	Right Direction = "right"
)

func (d Direction) Valid() bool { return d == Left || d == Right }

// AnimationState is what the renderer plays for a player.
type AnimationState string

const (
	Idle      AnimationState = "idle"
	Moving    AnimationState = "move"
	Attacking AnimationState = "attack"
	Hurt      AnimationState = "hit"
	Dead      AnimationState = "die"
)

// Position is a player's top-left corner in world pixels.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Player is the replicated state of one connected participant.
type Player struct {
	ID             string         `json:"id"`
	Color          int            `json:"color"`
	Direction      Direction      `json:"direction"`
	Position       Position       `json:"position"`
	AnimationState AnimationState `json:"animationState"`
}

// NewPlayer returns a freshly joined player with default placement.
func NewPlayer(id string, color int) Player {
	return Player{
		ID:             id,
		Color:          color,
		Direction:      Right,
		AnimationState: Idle,
	}
}

// World is the authoritative mapping from identity to player.
type World struct {
	Players map[string]Player `json:"players"`
}

// NewWorld returns an empty world.
func NewWorld() World {
	return World{Players: make(map[string]Player)}
}

// Clone returns a deep copy so the result shares nothing with w.
func (w World) Clone() World {
	out := World{Players: make(map[string]Player, len(w.Players))}
	for id, p := range w.Players {
		out.Players[id] = p
	}
	return out
}

// Player looks up a player by identity.
func (w World) Player(id string) (Player, bool) {
	p, ok := w.Players[id]
	return p, ok
}

// Len returns the number of players in the world.
func (w World) Len() int { return len(w.Players) }
