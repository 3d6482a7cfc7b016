package server

import (
	"time"

	"arena-battle/internal/game"
)

// Settings tunes the enrollment and turn loops.
type Settings struct {
	Width  int
	Height int

	// Tick bounds how long the resolver waits for input before re-checking
	// deadlines and resync.
	Tick time.Duration
	// ReadGrace is the deadline used to drain a socket reported readable.
	ReadGrace    time.Duration
	WriteTimeout time.Duration

	HandshakeTimeout time.Duration
	// JoinRate limits accepted connections per second during enrollment.
	JoinRate float64

	// TurnTimeout forfeits the turn of every pending entrant once exceeded.
	// Zero waits forever.
	TurnTimeout time.Duration
	// IdleTurns eliminates an entrant after that many consecutive forfeits.
	// Zero never eliminates.
	IdleTurns int

	// ResyncInterval re-broadcasts the positions frame. Zero disables it.
	ResyncInterval time.Duration
}

// DefaultSettings returns the settings used when no flag overrides them.
func DefaultSettings() Settings {
	return Settings{
		Width:            game.DefaultWidth,
		Height:           game.DefaultHeight,
		Tick:             100 * time.Millisecond,
		ReadGrace:        5 * time.Millisecond,
		WriteTimeout:     2 * time.Second,
		HandshakeTimeout: 30 * time.Second,
		JoinRate:         10,
		TurnTimeout:      60 * time.Second,
		IdleTurns:        3,
		ResyncInterval:   5 * time.Second,
	}
}
