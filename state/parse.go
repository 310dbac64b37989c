package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"
)

// Violation classifies why an inbound message was refused.
type Violation int

const (
	InvalidMessage Violation = iota + 1
	NotAllowedAction
	UnknownAction
)

func (v Violation) String() string {
	switch v {
	case InvalidMessage:
		return "INVALID_MESSAGE"
	case NotAllowedAction:
		return "NOT_ALLOWED_ACTION"
	case UnknownAction:
		return "UNKNOWN_ACTION"
	}
	return "UNKNOWN"
}

// ParseError reports the first element of a message that failed validation.
// Index is -1 when the message as a whole could not be read.
type ParseError struct {
	Violation Violation
	Index     int
	Reason    string
}

func (e *ParseError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s", e.Violation, e.Reason)
	}
	return fmt.Sprintf("%s: action %d: %s", e.Violation, e.Index, e.Reason)
}

// AsParseError unwraps err into a *ParseError.
func AsParseError(err error) (*ParseError, bool) {
	var pe *ParseError
	ok := errors.As(err, &pe)
	return pe, ok
}

// ParseClient decodes a message sent by a connection. It accepts a single
// action object or an array of them, and either returns every action or a
// *ParseError for the first element that is malformed, unknown, or
// server-only. Nothing is returned for a partially valid batch.
func ParseClient(raw []byte) ([]Action, error) {
	return parse(raw, false)
}

// Decode reads any message the server may emit, including server-only kinds.
func Decode(raw []byte) ([]Action, error) {
	return parse(raw, true)
}

func parse(raw []byte, trusted bool) ([]Action, error) {
	elems, err := split(raw)
	if err != nil {
		return nil, err
	}
	out := make([]Action, 0, len(elems))
	for i, elem := range elems {
		a, err := parseOne(elem, trusted)
		if err != nil {
			err.Index = i
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func split(raw []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if !utf8.Valid(trimmed) {
		return nil, &ParseError{Violation: InvalidMessage, Index: -1, Reason: "not valid UTF-8"}
	}
	if !json.Valid(trimmed) {
		return nil, &ParseError{Violation: InvalidMessage, Index: -1, Reason: "not valid JSON"}
	}
	switch {
	case len(trimmed) > 0 && trimmed[0] == '{':
		return []json.RawMessage{trimmed}, nil
	case len(trimmed) > 0 && trimmed[0] == '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return nil, &ParseError{Violation: InvalidMessage, Index: -1, Reason: err.Error()}
		}
		return elems, nil
	}
	return nil, &ParseError{Violation: InvalidMessage, Index: -1, Reason: "expected an action object or an array of actions"}
}

type fields struct {
	Type      *string `json:"type"`
	ID        *string `json:"id"`
	Color     *int    `json:"color"`
	Direction *string `json:"direction"`
	Position  *struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
	} `json:"position"`
	State *struct {
		Players map[string]Player `json:"players"`
	} `json:"state"`
}

func invalid(format string, args ...any) *ParseError {
	return &ParseError{Violation: InvalidMessage, Reason: fmt.Sprintf(format, args...)}
}

func parseOne(elem json.RawMessage, trusted bool) (Action, *ParseError) {
	elem = bytes.TrimSpace(elem)
	if len(elem) == 0 || elem[0] != '{' {
		return nil, invalid("action is not an object")
	}

	var head struct {
		Type json.RawMessage `json:"type"`
	}
	if err := json.Unmarshal(elem, &head); err != nil {
		return nil, invalid("%v", err)
	}
	var tag string
	if len(head.Type) == 0 || json.Unmarshal(head.Type, &tag) != nil || tag == "" {
		return nil, invalid("missing type tag")
	}
	kind := Kind(tag)
	if !kind.Known() {
		return nil, &ParseError{Violation: UnknownAction, Reason: fmt.Sprintf("unknown action %q", tag)}
	}
	if kind.ServerOnly() && !trusted {
		return nil, &ParseError{Violation: NotAllowedAction, Reason: fmt.Sprintf("action %q is server-only", tag)}
	}

	var f fields
	if err := json.Unmarshal(elem, &f); err != nil {
		return nil, invalid("%s: %v", kind, err)
	}

	if kind == KindInit {
		if f.State == nil {
			return nil, invalid("init: missing state")
		}
		w := NewWorld()
		for id, p := range f.State.Players {
			w.Players[id] = p
		}
		return Init{State: w}, nil
	}

	if f.ID == nil || *f.ID == "" {
		return nil, invalid("%s: missing id", kind)
	}
	id := *f.ID

	switch kind {
	case KindID:
		return IDAction{ID: id}, nil
	case KindJoin:
		if f.Color == nil {
			return nil, invalid("join: missing color")
		}
		return Join{ID: id, Color: *f.Color}, nil
	case KindLeave:
		return Leave{ID: id}, nil
	case KindMove:
		if f.Position == nil || f.Position.X == nil || f.Position.Y == nil {
			return nil, invalid("move: missing position")
		}
		x, y := *f.Position.X, *f.Position.Y
		if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
			return nil, invalid("move: position is not finite")
		}
		return Move{ID: id, Position: Position{X: x, Y: y}}, nil
	case KindChangeDirection:
		if f.Direction == nil || !Direction(*f.Direction).Valid() {
			return nil, invalid("change-direction: direction must be %q or %q", Left, Right)
		}
		return ChangeDirection{ID: id, Direction: Direction(*f.Direction)}, nil
	case KindAttack:
		return Attack{ID: id}, nil
	case KindHit:
		return Hit{ID: id}, nil
	case KindDie:
		return Die{ID: id}, nil
	}
	return nil, &ParseError{Violation: UnknownAction, Reason: fmt.Sprintf("unknown action %q", tag)}
}
