package game

// ConnID identifies the connection an entrant arrived on.
type ConnID string

// Position is a cell in arena coordinates. The origin is the top-left corner of the border.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns p shifted by d.
func (p Position) Add(d Position) Position {
	return Position{X: p.X + d.X, Y: p.Y + d.Y}
}

// Direction is one of the four movement directions
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

var directionDeltas = [...]Position{
	Up:    {X: 0, Y: -1},
	Down:  {X: 0, Y: 1},
	Left:  {X: -1, Y: 0},
	Right: {X: 1, Y: 0},
}

var directionNames = [...]string{
	Up:    "UP",
	Down:  "DOWN",
	Left:  "LEFT",
	Right: "RIGHT",
}

// Valid reports whether d is one of the four directions.
func (d Direction) Valid() bool {
	return d >= Up && d <= Right
}

// Delta returns the unit step for d.
func (d Direction) Delta() Position {
	if !d.Valid() {
		return Position{}
	}
	return directionDeltas[d]
}

func (d Direction) String() string {
	if !d.Valid() {
		return "INVALID"
	}
	return directionNames[d]
}

// Offset is one of the eight cells adjacent to an attacker
type Offset int

const (
	TopLeft Offset = iota
	Top
	TopRight
	West
	East
	BottomLeft
	Bottom
	BottomRight
)

var offsetDeltas = [...]Position{
	TopLeft:     {X: -1, Y: -1},
	Top:         {X: 0, Y: -1},
	TopRight:    {X: 1, Y: -1},
	West:        {X: -1, Y: 0},
	East:        {X: 1, Y: 0},
	BottomLeft:  {X: -1, Y: 1},
	Bottom:      {X: 0, Y: 1},
	BottomRight: {X: 1, Y: 1},
}

var offsetNames = [...]string{
	TopLeft:     "top-left",
	Top:         "top",
	TopRight:    "top-right",
	West:        "left",
	East:        "right",
	BottomLeft:  "bottom-left",
	Bottom:      "bottom",
	BottomRight: "bottom-right",
}

// Valid reports whether o is one of the eight offsets.
func (o Offset) Valid() bool {
	return o >= TopLeft && o <= BottomRight
}

// Delta returns the relative cell targeted by o.
func (o Offset) Delta() Position {
	if !o.Valid() {
		return Position{}
	}
	return offsetDeltas[o]
}

func (o Offset) String() string {
	if !o.Valid() {
		return "invalid"
	}
	return offsetNames[o]
}

// Entrant is one enrolled player and its game state.
type Entrant struct {
	ID          ConnID   `json:"-"`
	Name        string   `json:"name"`
	Avatar      rune     `json:"avatar"`
	Pos         Position `json:"pos"`
	Slot        int      `json:"slot"` // 1-4, used by clients for color
	Acted       bool     `json:"acted"`
	Eliminated  bool     `json:"eliminated"`
	LastCommand string   `json:"last_command,omitempty"`
	MissedTurns int      `json:"-"`
}

// Alive reports whether the entrant still takes part in resolution.
func (e *Entrant) Alive() bool {
	return e != nil && !e.Eliminated
}

// Game constants
const (
	MaxEntrants = 4

	// Arena size including the border, as drawn by the terminal client.
	DefaultWidth  = 25
	DefaultHeight = 11

	// Smallest arena whose four corners are distinct interior cells.
	MinWidth  = 5
	MinHeight = 5
)
