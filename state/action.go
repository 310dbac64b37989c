package state

import (
	"encoding/json"
	"fmt"
)

// Kind is the wire tag carried in every action's "type" field.
type Kind string

const (
	KindID              Kind = "id"
	KindInit            Kind = "init"
	KindJoin            Kind = "join"
	KindLeave           Kind = "leave"
	KindMove            Kind = "move"
	KindChangeDirection Kind = "change-direction"
	KindAttack          Kind = "attack"
	KindHit             Kind = "hit"
	KindDie             Kind = "die"
)

var kinds = map[Kind]bool{
	KindID:              true,
	KindInit:            true,
	KindJoin:            true,
	KindLeave:           true,
	KindMove:            false,
	KindChangeDirection: false,
	KindAttack:          false,
	KindHit:             true,
	KindDie:             true,
}

// Known reports whether k is a recognised action tag.
func (k Kind) Known() bool {
	_, ok := kinds[k]
	return ok
}

// ServerOnly reports whether only the authoritative side may originate k.
// Unknown kinds are not server-only; callers check Known first.
func (k Kind) ServerOnly() bool {
	return kinds[k]
}

// Action is one state transition. The set of implementations is closed:
// IDAction, Init, Join, Leave, Move, ChangeDirection, Attack, Hit and Die.
type Action interface {
	Kind() Kind
	apply(players map[string]Player) map[string]Player
}

// IDAction tells the receiving connection which identity it was given.
type IDAction struct{ ID string }

// Init replaces the whole world. Used for full resync.
type Init struct{ State World }

// Join adds a player.
type Join struct {
	ID    string
	Color int
}

// Leave removes a player.
type Leave struct{ ID string }

// Move sets a player's position.
type Move struct {
	ID       string
	Position Position
}

// ChangeDirection sets the side a player faces.
type ChangeDirection struct {
	ID        string
	Direction Direction
}

// Attack starts a player's attack animation. Hits are decided later by ResolveHit.
type Attack struct{ ID string }

// Hit marks a player as struck.
type Hit struct{ ID string }

// Die marks a player as dead.
type Die struct{ ID string }

func (IDAction) Kind() Kind        { return KindID }
func (Init) Kind() Kind            { return KindInit }
func (Join) Kind() Kind            { return KindJoin }
func (Leave) Kind() Kind           { return KindLeave }
func (Move) Kind() Kind            { return KindMove }
func (ChangeDirection) Kind() Kind { return KindChangeDirection }
func (Attack) Kind() Kind          { return KindAttack }
func (Hit) Kind() Kind             { return KindHit }
func (Die) Kind() Kind             { return KindDie }

// wireAction is the flat JSON shape shared by every action kind.
type wireAction struct {
	Type      Kind       `json:"type"`
	ID        *string    `json:"id,omitempty"`
	Color     *int       `json:"color,omitempty"`
	Position  *Position  `json:"position,omitempty"`
	Direction *Direction `json:"direction,omitempty"`
	State     *World     `json:"state,omitempty"`
}

func toWire(a Action) wireAction {
	w := wireAction{Type: a.Kind()}
	switch a := a.(type) {
	case IDAction:
		w.ID = &a.ID
	case Init:
		s := a.State
		if s.Players == nil {
			s = NewWorld()
		}
		w.State = &s
	case Join:
		w.ID, w.Color = &a.ID, &a.Color
	case Leave:
		w.ID = &a.ID
	case Move:
		w.ID, w.Position = &a.ID, &a.Position
	case ChangeDirection:
		w.ID, w.Direction = &a.ID, &a.Direction
	case Attack:
		w.ID = &a.ID
	case Hit:
		w.ID = &a.ID
	case Die:
		w.ID = &a.ID
	}
	return w
}

func (a IDAction) MarshalJSON() ([]byte, error)        { return json.Marshal(toWire(a)) }
func (a Init) MarshalJSON() ([]byte, error)            { return json.Marshal(toWire(a)) }
func (a Join) MarshalJSON() ([]byte, error)            { return json.Marshal(toWire(a)) }
func (a Leave) MarshalJSON() ([]byte, error)           { return json.Marshal(toWire(a)) }
func (a Move) MarshalJSON() ([]byte, error)            { return json.Marshal(toWire(a)) }
func (a ChangeDirection) MarshalJSON() ([]byte, error) { return json.Marshal(toWire(a)) }
func (a Attack) MarshalJSON() ([]byte, error)          { return json.Marshal(toWire(a)) }
func (a Hit) MarshalJSON() ([]byte, error)             { return json.Marshal(toWire(a)) }
func (a Die) MarshalJSON() ([]byte, error)             { return json.Marshal(toWire(a)) }

// Encode renders one action as a JSON object, or several as a JSON array.
func Encode(actions ...Action) ([]byte, error) {
	if len(actions) == 1 {
		return json.Marshal(toWire(actions[0]))
	}
	out := make([]wireAction, 0, len(actions))
	for _, a := range actions {
		out = append(out, toWire(a))
	}
	return json.Marshal(out)
}

// Describe renders a short label such as "move(3)" for logs.
func Describe(a Action) string {
	w := toWire(a)
	if w.ID != nil {
		return fmt.Sprintf("%s(%s)", w.Type, *w.ID)
	}
	return string(w.Type)
}
