package state

import (
	"reflect"
	"testing"
)

func worldOf(players ...Player) World {
	w := NewWorld()
	for _, p := range players {
		w.Players[p.ID] = p
	}
	return w
}

func TestReduceJoinFromEmpty(t *testing.T) {
	got := Reduce(NewWorld(), Join{ID: "A", Color: 5})

	if got.Len() != 1 {
		t.Fatalf("expected 1 player, got %d", got.Len())
	}
	want := Player{ID: "A", Color: 5, Direction: Right, Position: Position{0, 0}, AnimationState: Idle}
	if p := got.Players["A"]; p != want {
		t.Fatalf("player = %+v, want %+v", p, want)
	}
}

func TestReduceMoveKeepsDirection(t *testing.T) {
	start := worldOf(Player{ID: "A", Color: 1, Direction: Right, Position: Position{10, 10}, AnimationState: Idle})

	got := Reduce(start, Move{ID: "A", Position: Position{15, 10}})

	p := got.Players["A"]
	if p.Position != (Position{15, 10}) {
		t.Fatalf("position = %+v, want {15 10}", p.Position)
	}
	if p.Direction != Right || p.Color != 1 || p.AnimationState != Idle {
		t.Fatalf("move changed other fields: %+v", p)
	}
	if start.Players["A"].Position != (Position{10, 10}) {
		t.Fatalf("reduce mutated its input: %+v", start.Players["A"])
	}
}

func TestReduceSingleFieldActions(t *testing.T) {
	base := NewPlayer("A", 3)
	tests := []struct {
		action Action
		check  func(Player) bool
	}{
		{ChangeDirection{ID: "A", Direction: Left}, func(p Player) bool { return p.Direction == Left }},
		{Attack{ID: "A"}, func(p Player) bool { return p.AnimationState == Attacking }},
		{Hit{ID: "A"}, func(p Player) bool { return p.AnimationState == Hurt }},
		{Die{ID: "A"}, func(p Player) bool { return p.AnimationState == Dead }},
		{IDAction{ID: "A"}, func(p Player) bool { return p == base }},
	}

	for _, tt := range tests {
		got := Reduce(worldOf(base), tt.action)
		if !tt.check(got.Players["A"]) {
			t.Errorf("%s: unexpected player %+v", Describe(tt.action), got.Players["A"])
		}
	}
}

func TestReduceIgnoresAbsentPlayer(t *testing.T) {
	start := worldOf(NewPlayer("A", 1))
	for _, a := range []Action{
		Move{ID: "ghost", Position: Position{1, 2}},
		ChangeDirection{ID: "ghost", Direction: Left},
		Attack{ID: "ghost"},
		Hit{ID: "ghost"},
		Die{ID: "ghost"},
		Leave{ID: "ghost"},
	} {
		got := Reduce(start, a)
		if !reflect.DeepEqual(got, start) {
			t.Errorf("%s changed the world: %+v", Describe(a), got)
		}
	}
}

func TestReduceLeaveIsIdempotent(t *testing.T) {
	start := worldOf(NewPlayer("A", 1), NewPlayer("B", 2))

	once := Reduce(start, Leave{ID: "A"})
	twice := Reduce(start, Leave{ID: "A"}, Leave{ID: "A"})

	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("leave twice = %+v, leave once = %+v", twice, once)
	}
	if _, ok := once.Players["A"]; ok {
		t.Fatalf("A still present after leave")
	}
}

func TestReduceJoinOverwrites(t *testing.T) {
	start := worldOf(Player{ID: "A", Color: 1, Direction: Left, Position: Position{7, 7}, AnimationState: Dead})

	got := Reduce(start, Join{ID: "A", Color: 9})

	if got.Len() != 1 {
		t.Fatalf("expected 1 player, got %d", got.Len())
	}
	if p := got.Players["A"]; p != NewPlayer("A", 9) {
		t.Fatalf("player = %+v, want fresh join", p)
	}
}

func TestReduceInitReplacesState(t *testing.T) {
	snapshot := worldOf(
		Player{ID: "X", Color: 4, Direction: Left, Position: Position{3, 4}, AnimationState: Moving},
		NewPlayer("Y", 8),
	)
	priors := []World{
		NewWorld(),
		worldOf(NewPlayer("A", 1)),
		worldOf(NewPlayer("X", 0), NewPlayer("Z", 2)),
	}

	for _, prior := range priors {
		got := Reduce(prior, Init{State: snapshot})
		if !reflect.DeepEqual(got, snapshot) {
			t.Errorf("init from %+v = %+v, want %+v", prior, got, snapshot)
		}
	}

	got := Reduce(NewWorld(), Init{State: snapshot})
	got.Players["X"] = NewPlayer("X", 0)
	if snapshot.Players["X"].Color != 4 {
		t.Fatalf("init aliased the snapshot")
	}
}

func TestReduceBatchEqualsSequential(t *testing.T) {
	batches := [][]Action{
		{Join{ID: "A", Color: 1}, Join{ID: "B", Color: 2}, Move{ID: "A", Position: Position{5, 6}}},
		{Join{ID: "A", Color: 1}, Leave{ID: "A"}, Move{ID: "A", Position: Position{1, 1}}},
		{Join{ID: "A", Color: 1}, ChangeDirection{ID: "A", Direction: Left}, Attack{ID: "A"}, Hit{ID: "A"}, Die{ID: "A"}},
		{Join{ID: "A", Color: 1}, Init{State: worldOf(NewPlayer("Q", 3))}, Join{ID: "R", Color: 4}},
	}

	for i, batch := range batches {
		atOnce := Reduce(NewWorld(), batch...)
		stepwise := NewWorld()
		for _, a := range batch {
			stepwise = Reduce(stepwise, a)
		}
		if !reflect.DeepEqual(atOnce, stepwise) {
			t.Errorf("batch %d: at once %+v, stepwise %+v", i, atOnce, stepwise)
		}
	}
}
