// Package game implements the arena model: spatial truth, movement and attack legality.
package game

import (
	"errors"
	"fmt"
)

var (
	ErrArenaFull         = errors.New("arena is full")
	ErrDuplicateIdentity = errors.New("name or avatar already taken")
	ErrDuplicateConn     = errors.New("connection already enrolled")
	ErrInvalidBounds     = errors.New("arena too small")
)

// Arena owns every entrant and enforces occupancy rules. It is not safe for
// concurrent use; the turn resolver is its only owner.
type Arena struct {
	width    int
	height   int
	entrants []*Entrant
	byConn   map[ConnID]int
}

// NewArena creates an empty arena with the given outer dimensions.
func NewArena(width, height int) (*Arena, error) {
	if width < MinWidth || height < MinHeight {
		return nil, fmt.Errorf("%w: %dx%d (minimum %dx%d)", ErrInvalidBounds, width, height, MinWidth, MinHeight)
	}
	return &Arena{
		width:    width,
		height:   height,
		entrants: make([]*Entrant, 0, MaxEntrants),
		byConn:   make(map[ConnID]int, MaxEntrants),
	}, nil
}

// Width returns the outer width including the border.
func (a *Arena) Width() int { return a.width }

// Height returns the outer height including the border.
func (a *Arena) Height() int { return a.height }

// StartingPositions returns the four corner spawn cells in slot order.
func (a *Arena) StartingPositions() [MaxEntrants]Position {
	return [MaxEntrants]Position{
		{X: 2, Y: 2},
		{X: a.width - 2, Y: 2},
		{X: 2, Y: a.height - 2},
		{X: a.width - 2, Y: a.height - 2},
	}
}

// InBounds reports whether p is an interior cell.
func (a *Arena) InBounds(p Position) bool {
	return p.X > 1 && p.X < a.width-1 && p.Y > 1 && p.Y < a.height-1
}

// IsTaken reports whether name or avatar is already used by any entrant,
// eliminated or not.
func (a *Arena) IsTaken(name string, avatar rune) bool {
	for _, e := range a.entrants {
		if e.Name == name || e.Avatar == avatar {
			return true
		}
	}
	return false
}

// Full reports whether every slot is filled.
func (a *Arena) Full() bool {
	return len(a.entrants) >= MaxEntrants
}

// Enroll registers a new entrant in the next free slot and corner.
func (a *Arena) Enroll(id ConnID, name string, avatar rune) (*Entrant, error) {
	if a.Full() {
		return nil, ErrArenaFull
	}
	if _, exists := a.byConn[id]; exists {
		return nil, ErrDuplicateConn
	}
	if a.IsTaken(name, avatar) {
		return nil, ErrDuplicateIdentity
	}

	idx := len(a.entrants)
	e := &Entrant{
		ID:     id,
		Name:   name,
		Avatar: avatar,
		Pos:    a.StartingPositions()[idx],
		Slot:   idx + 1,
	}
	a.entrants = append(a.entrants, e)
	a.byConn[id] = idx
	return e, nil
}

// Entrants returns the roster in slot order. The slice must not be modified.
func (a *Arena) Entrants() []*Entrant {
	return a.entrants
}

// Lookup returns the entrant enrolled on connection id.
func (a *Arena) Lookup(id ConnID) (*Entrant, bool) {
	idx, ok := a.byConn[id]
	if !ok {
		return nil, false
	}
	return a.entrants[idx], true
}

// occupant returns the live entrant standing on p, ignoring except.
func (a *Arena) occupant(p Position, except *Entrant) *Entrant {
	for _, e := range a.entrants {
		if e == except || e.Eliminated {
			continue
		}
		if e.Pos == p {
			return e
		}
	}
	return nil
}

// TryMove moves e one cell in dir if the target is inside the interior and
// free of other live entrants. It reports whether the move was applied.
func (a *Arena) TryMove(e *Entrant, dir Direction) bool {
	if !e.Alive() || !dir.Valid() {
		return false
	}
	target := e.Pos.Add(dir.Delta())
	if !a.InBounds(target) {
		return false
	}
	if a.occupant(target, e) != nil {
		return false
	}
	e.Pos = target
	return true
}

// ResolveAttack eliminates the first live entrant in roster order standing on
// the cell at off relative to attacker. At most one entrant is eliminated.
func (a *Arena) ResolveAttack(attacker *Entrant, off Offset) *Entrant {
	if !attacker.Alive() || !off.Valid() {
		return nil
	}
	target := a.occupant(attacker.Pos.Add(off.Delta()), attacker)
	if target == nil {
		return nil
	}
	target.Eliminated = true
	return target
}

// Eliminate removes e from play, e.g. after a lost connection. It reports
// whether e was alive before the call.
func (a *Arena) Eliminate(e *Entrant) bool {
	if !e.Alive() {
		return false
	}
	e.Eliminated = true
	return true
}

// MarkActed records that e has used its action for the current turn.
func (a *Arena) MarkActed(e *Entrant, raw string) {
	e.Acted = true
	e.LastCommand = raw
	e.MissedTurns = 0
}

// RemainingCount returns the number of live entrants.
func (a *Arena) RemainingCount() int {
	n := 0
	for _, e := range a.entrants {
		if !e.Eliminated {
			n++
		}
	}
	return n
}

// Survivors returns the live entrants in roster order.
func (a *Arena) Survivors() []*Entrant {
	out := make([]*Entrant, 0, len(a.entrants))
	for _, e := range a.entrants {
		if !e.Eliminated {
			out = append(out, e)
		}
	}
	return out
}

// Pending returns the live entrants that have not acted this turn.
func (a *Arena) Pending() []*Entrant {
	out := make([]*Entrant, 0, len(a.entrants))
	for _, e := range a.entrants {
		if !e.Eliminated && !e.Acted {
			out = append(out, e)
		}
	}
	return out
}

// BarrierComplete reports whether every live entrant has acted. Eliminated
// entrants are ignored regardless of their Acted flag.
func (a *Arena) BarrierComplete() bool {
	for _, e := range a.entrants {
		if !e.Eliminated && !e.Acted {
			return false
		}
	}
	return true
}

// ResetTurn clears the Acted flag of every entrant for the next turn.
func (a *Arena) ResetTurn() {
	for _, e := range a.entrants {
		e.Acted = false
	}
}

// Release drops every entrant. Used at shutdown.
func (a *Arena) Release() {
	for i := range a.entrants {
		a.entrants[i] = nil
	}
	a.entrants = a.entrants[:0]
	clear(a.byConn)
}
