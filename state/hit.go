package state

import "sort"

const (
	// PlayerSize is the side of every player's square bounding box.
	PlayerSize = 50
	// AttackWidth and AttackHeight size the box placed beside an attacker.
	AttackWidth  = 50
	AttackHeight = 50
)

// Bounds returns p's bounding box.
func Bounds(p Player) Rect {
	return Rect{X: p.Position.X, Y: p.Position.Y, Width: PlayerSize, Height: PlayerSize}
}

// AttackRect returns the box p strikes, adjacent to the side p faces.
func AttackRect(p Player) Rect {
	x := p.Position.X + PlayerSize
	if p.Direction == Left {
		x = p.Position.X - AttackWidth
	}
	return Rect{X: x, Y: p.Position.Y, Width: AttackWidth, Height: AttackHeight}
}

// HitOutcome is the result kind of ResolveHit.
type HitOutcome int

const (
	AttackerGone HitOutcome = iota
	NoVictim
	Resolved
)

func (o HitOutcome) String() string {
	switch o {
	case AttackerGone:
		return "attacker-gone"
	case NoVictim:
		return "no-victim"
	case Resolved:
		return "resolved"
	}
	return "unknown"
}

// HitResult names the victim when Outcome is Resolved.
type HitResult struct {
	Outcome HitOutcome
	Victim  string
}

// ResolveHit decides who attacker strikes in w. It reads the attacker's
// current position and facing. When several players overlap the attack box,
// the one whose position is closest to the attacker's wins; equal distances
// go to the lowest identity.
func ResolveHit(w World, attacker string) HitResult {
	a, ok := w.Players[attacker]
	if !ok {
		return HitResult{Outcome: AttackerGone}
	}
	box := AttackRect(a)

	type candidate struct {
		id   string
		dist float64
	}
	var hits []candidate
	for id, p := range w.Players {
		if id == attacker || !Intersects(box, Bounds(p)) {
			continue
		}
		dx := p.Position.X - a.Position.X
		dy := p.Position.Y - a.Position.Y
		hits = append(hits, candidate{id: id, dist: dx*dx + dy*dy})
	}
	if len(hits) == 0 {
		return HitResult{Outcome: NoVictim}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].dist != hits[j].dist {
			return hits[i].dist < hits[j].dist
		}
		return hits[i].id < hits[j].id
	})
	return HitResult{Outcome: Resolved, Victim: hits[0].id}
}

// Consequences returns the actions that apply r to the world, in order.
func (r HitResult) Consequences() []Action {
	if r.Outcome != Resolved {
		return nil
	}
	return []Action{Hit{ID: r.Victim}, Die{ID: r.Victim}}
}
