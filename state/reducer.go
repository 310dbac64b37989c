package state

// Reduce folds actions left to right over w and returns the resulting world.
// w is never modified. Reduce has no failure case: callers validate actions
// before they get here. Actions that name a player absent from the world,
// other than join and leave, leave the world unchanged.
func Reduce(w World, actions ...Action) World {
	players := make(map[string]Player, len(w.Players)+1)
	for id, p := range w.Players {
		players[id] = p
	}
	for _, a := range actions {
		players = a.apply(players)
	}
	return World{Players: players}
}

func (IDAction) apply(players map[string]Player) map[string]Player { return players }

func (a Init) apply(map[string]Player) map[string]Player {
	players := make(map[string]Player, len(a.State.Players))
	for id, p := range a.State.Players {
		players[id] = p
	}
	return players
}

func (a Join) apply(players map[string]Player) map[string]Player {
	players[a.ID] = NewPlayer(a.ID, a.Color)
	return players
}

func (a Leave) apply(players map[string]Player) map[string]Player {
	delete(players, a.ID)
	return players
}

func (a Move) apply(players map[string]Player) map[string]Player {
	return update(players, a.ID, func(p *Player) { p.Position = a.Position })
}

func (a ChangeDirection) apply(players map[string]Player) map[string]Player {
	return update(players, a.ID, func(p *Player) { p.Direction = a.Direction })
}

func (a Attack) apply(players map[string]Player) map[string]Player {
	return update(players, a.ID, func(p *Player) { p.AnimationState = Attacking })
}

func (a Hit) apply(players map[string]Player) map[string]Player {
	return update(players, a.ID, func(p *Player) { p.AnimationState = Hurt })
}

func (a Die) apply(players map[string]Player) map[string]Player {
	return update(players, a.ID, func(p *Player) { p.AnimationState = Dead })
}

func update(players map[string]Player, id string, fn func(*Player)) map[string]Player {
	p, ok := players[id]
	if !ok {
		return players
	}
	fn(&p)
	players[id] = p
	return players
}
