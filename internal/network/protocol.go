// Package network implements the textual wire protocol spoken between the
// arena server and its clients.
package network

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"arena-battle/internal/game"
)

var ErrMalformedInput = errors.New("malformed input")

// NoticeType is the leading byte of a pipe-delimited server notice segment
type NoticeType byte

const (
	NoticeActed      NoticeType = 'L' // payload: avatar
	NoticeReset      NoticeType = 'R' // no payload
	NoticePositions  NoticeType = 'P' // payload: positions list
	NoticeEliminated NoticeType = 'E' // payload: avatar
	NoticeVictory    NoticeType = 'W' // payload: name,avatar
	NoticeDraw       NoticeType = 'D' // no payload
)

// Protocol tokens and separators
const (
	ShutdownSentinel = "VLPDR_DRTBRT"
	TakenResponse    = "taken"

	SegmentSep = '|'
	EntrySep   = ';'
	FieldSep   = ','
	Terminator = '\n'

	// Marker appended to the avatar of an eliminated entrant in a positions list.
	EliminatedMarker = 'X'

	// Largest frame accepted from a client; longer input is discarded.
	MaxFrameSize = 1024
)

var moveTokens = map[string]game.Direction{
	"UP":    game.Up,
	"DOWN":  game.Down,
	"LEFT":  game.Left,
	"RIGHT": game.Right,
}

// attackKeys maps the lower-case attack letter to its offset.
var attackKeys = map[byte]game.Offset{
	'e': game.TopLeft,
	't': game.Top,
	'y': game.TopRight,
	'f': game.West,
	'h': game.East,
	'c': game.BottomLeft,
	'g': game.Bottom,
	'b': game.BottomRight,
}

// Command is a decoded turn command. The concrete types are Move, Attack,
// Shutdown and Unknown.
type Command interface{ isCommand() }

// Move steps one cell in Direction.
type Move struct{ Direction game.Direction }

// Attack strikes the cell at Offset from the attacker.
type Attack struct{ Offset game.Offset }

// Shutdown is the sentinel that ends the session for everyone.
type Shutdown struct{}

// Unknown is any token the server does not recognize.
type Unknown struct{ Raw string }

func (Move) isCommand()     {}
func (Attack) isCommand()   {}
func (Shutdown) isCommand() {}
func (Unknown) isCommand()  {}

// Enrollment is a decoded join request.
type Enrollment struct {
	Name   string
	Avatar rune
}

func hasReserved(s string) bool {
	return strings.ContainsAny(s, ",;|\n\r")
}

// DecodeEnrollment parses "<name>,<avatar>". The avatar is the first rune of
// the second field.
func DecodeEnrollment(b []byte) (Enrollment, error) {
	s := strings.TrimRight(string(b), "\r\n")
	name, rest, found := strings.Cut(s, string(FieldSep))
	if !found || rest == "" {
		return Enrollment{}, ErrMalformedInput
	}
	name = strings.TrimSpace(name)
	avatar, size := utf8.DecodeRuneInString(rest)
	if avatar == utf8.RuneError && size <= 1 {
		return Enrollment{}, ErrMalformedInput
	}
	if name == "" || hasReserved(name) || hasReserved(string(avatar)) || avatar == ' ' {
		return Enrollment{}, ErrMalformedInput
	}
	return Enrollment{Name: name, Avatar: avatar}, nil
}

// DecodeTurnCommand classifies a single command token.
func DecodeTurnCommand(b []byte) Command {
	tok := strings.TrimSpace(string(b))
	if tok == ShutdownSentinel {
		return Shutdown{}
	}
	if dir, ok := moveTokens[tok]; ok {
		return Move{Direction: dir}
	}
	if len(tok) == 1 {
		c := tok[0]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if off, ok := attackKeys[c]; ok {
			return Attack{Offset: off}
		}
	}
	return Unknown{Raw: tok}
}

// EncodeRoster formats the four roster slots, filled or not.
func EncodeRoster(entrants []*game.Entrant) []byte {
	var sb strings.Builder
	for i := 0; i < game.MaxEntrants; i++ {
		if i < len(entrants) && entrants[i] != nil {
			sb.WriteString(entrants[i].Name)
			sb.WriteString(", ")
			sb.WriteRune(entrants[i].Avatar)
		} else {
			sb.WriteString("Player ")
			sb.WriteString(strconv.Itoa(i + 1))
		}
		sb.WriteByte(EntrySep)
	}
	return []byte(sb.String())
}

func avatarNotice(t NoticeType, avatar rune) []byte {
	b := make([]byte, 0, 2+utf8.UTFMax)
	b = append(b, byte(t))
	b = utf8.AppendRune(b, avatar)
	return append(b, SegmentSep)
}

// EncodeMoveNotice announces that the entrant with avatar has acted this turn.
func EncodeMoveNotice(avatar rune) []byte {
	return avatarNotice(NoticeActed, avatar)
}

// EncodeEliminationNotice announces an elimination.
func EncodeEliminationNotice(avatar rune) []byte {
	return avatarNotice(NoticeEliminated, avatar)
}

// EncodeReset tells clients to clear their move-status display.
func EncodeReset() []byte {
	return []byte{byte(NoticeReset), SegmentSep}
}

// EncodePositions formats the canonical positions segment.
func EncodePositions(entrants []*game.Entrant) []byte {
	var sb strings.Builder
	sb.WriteByte(byte(NoticePositions))
	for _, e := range entrants {
		if e.Eliminated {
			sb.WriteRune(e.Avatar)
			sb.WriteByte(EliminatedMarker)
			sb.WriteByte(EntrySep)
			continue
		}
		sb.WriteString(strconv.Itoa(e.Pos.X))
		sb.WriteByte(FieldSep)
		sb.WriteString(strconv.Itoa(e.Pos.Y))
		sb.WriteByte(FieldSep)
		sb.WriteRune(e.Avatar)
		sb.WriteByte(FieldSep)
		sb.WriteString(strconv.Itoa(e.Slot))
		sb.WriteByte(EntrySep)
	}
	sb.WriteByte(SegmentSep)
	return []byte(sb.String())
}

// EncodeSnapshot is the end-of-turn broadcast: a reset followed by positions.
func EncodeSnapshot(entrants []*game.Entrant) []byte {
	return append(EncodeReset(), EncodePositions(entrants)...)
}

// EncodeVictory names the sole survivor.
func EncodeVictory(name string, avatar rune) []byte {
	b := []byte{byte(NoticeVictory)}
	b = append(b, name...)
	b = append(b, FieldSep)
	b = utf8.AppendRune(b, avatar)
	return append(b, SegmentSep)
}

// EncodeDraw announces that nobody survived.
func EncodeDraw() []byte {
	return []byte{byte(NoticeDraw), SegmentSep}
}

// Rejection is the response sent to a refused enrollment.
func Rejection() []byte {
	return []byte(TakenResponse)
}
