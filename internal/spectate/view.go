// Package spectate fans read-only arena views out to spectators.
package spectate

import (
	"time"

	"arena-battle/internal/game"
)

// Phase is the session phase shown to spectators
type Phase string

const (
	PhaseEnrolling Phase = "enrolling"
	PhasePlaying   Phase = "playing"
	PhaseFinished  Phase = "finished"
)

// EntrantView is one roster slot as spectators see it.
type EntrantView struct {
	Name       string `json:"name"`
	Avatar     string `json:"avatar"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	Slot       int    `json:"slot"`
	Acted      bool   `json:"acted"`
	Eliminated bool   `json:"eliminated"`
}

// View is an immutable copy of the arena, safe to hand to other goroutines.
type View struct {
	Session   string        `json:"session"`
	Phase     Phase         `json:"phase"`
	Turn      int           `json:"turn"`
	Width     int           `json:"width"`
	Height    int           `json:"height"`
	Entrants  []EntrantView `json:"entrants"`
	Outcome   string        `json:"outcome,omitempty"`
	Winner    string        `json:"winner,omitempty"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewView copies the arena state into a View.
func NewView(session string, phase Phase, turn int, a *game.Arena, out game.Outcome) View {
	v := View{
		Session:   session,
		Phase:     phase,
		Turn:      turn,
		Width:     a.Width(),
		Height:    a.Height(),
		Entrants:  make([]EntrantView, 0, len(a.Entrants())),
		UpdatedAt: time.Now(),
	}
	for _, e := range a.Entrants() {
		v.Entrants = append(v.Entrants, EntrantView{
			Name:       e.Name,
			Avatar:     string(e.Avatar),
			X:          e.Pos.X,
			Y:          e.Pos.Y,
			Slot:       e.Slot,
			Acted:      e.Acted,
			Eliminated: e.Eliminated,
		})
	}
	if out.Over() {
		v.Outcome = out.Kind.String()
		if out.Winner != nil {
			v.Winner = out.Winner.Name
		}
	}
	return v
}
