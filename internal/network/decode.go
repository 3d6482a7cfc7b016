package network

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"arena-battle/internal/game"
)

// Notice is one decoded segment of a server broadcast.
type Notice struct {
	Type    NoticeType
	Payload string
}

// RosterSlot is one decoded roster entry.
type RosterSlot struct {
	Name   string
	Avatar rune
	Filled bool
}

// PositionEntry is one decoded entry of a positions payload.
type PositionEntry struct {
	Avatar     rune
	Pos        game.Position
	Slot       int
	Eliminated bool
}

// IsRoster reports whether a server frame is a roster broadcast rather than
// notices. Roster frames never contain the segment separator.
func IsRoster(b []byte) bool {
	s := strings.TrimRight(string(b), "\r\n")
	return s != "" && !strings.ContainsRune(s, SegmentSep) && strings.HasSuffix(s, string(EntrySep))
}

// DecodeRoster parses a roster frame.
func DecodeRoster(b []byte) ([]RosterSlot, error) {
	s := strings.TrimRight(string(b), "\r\n")
	entries := strings.Split(strings.TrimSuffix(s, string(EntrySep)), string(EntrySep))
	if len(entries) != game.MaxEntrants {
		return nil, fmt.Errorf("%w: roster has %d entries", ErrMalformedInput, len(entries))
	}

	out := make([]RosterSlot, 0, len(entries))
	for _, entry := range entries {
		name, avatar, found := strings.Cut(entry, ", ")
		if !found {
			out = append(out, RosterSlot{Name: entry})
			continue
		}
		r, _ := utf8.DecodeRuneInString(avatar)
		out = append(out, RosterSlot{Name: name, Avatar: r, Filled: true})
	}
	return out, nil
}

// DecodeNotices splits a server frame into its segments.
func DecodeNotices(b []byte) ([]Notice, error) {
	s := strings.TrimRight(string(b), "\r\n")
	var out []Notice
	for _, seg := range strings.Split(s, string(SegmentSep)) {
		if seg == "" {
			continue
		}
		t := NoticeType(seg[0])
		switch t {
		case NoticeActed, NoticeReset, NoticePositions, NoticeEliminated, NoticeVictory, NoticeDraw:
		default:
			return out, fmt.Errorf("%w: unknown notice %q", ErrMalformedInput, seg)
		}
		out = append(out, Notice{Type: t, Payload: seg[1:]})
	}
	return out, nil
}

// Avatar returns the avatar carried by an L or E notice.
func (n Notice) Avatar() rune {
	r, _ := utf8.DecodeRuneInString(n.Payload)
	return r
}

// DecodePositions parses the payload of a P notice.
func DecodePositions(payload string) ([]PositionEntry, error) {
	payload = strings.TrimPrefix(payload, string(NoticePositions))
	var out []PositionEntry
	for _, entry := range strings.Split(payload, string(EntrySep)) {
		if entry == "" {
			continue
		}
		fields := strings.Split(entry, string(FieldSep))
		if len(fields) == 1 {
			avatar, size := utf8.DecodeRuneInString(entry)
			if size == 0 || entry[size:] != string(EliminatedMarker) {
				return nil, fmt.Errorf("%w: positions entry %q", ErrMalformedInput, entry)
			}
			out = append(out, PositionEntry{Avatar: avatar, Eliminated: true})
			continue
		}
		if len(fields) != 4 {
			return nil, fmt.Errorf("%w: positions entry %q", ErrMalformedInput, entry)
		}
		x, errX := strconv.Atoi(fields[0])
		y, errY := strconv.Atoi(fields[1])
		slot, errS := strconv.Atoi(fields[3])
		if errX != nil || errY != nil || errS != nil || fields[2] == "" {
			return nil, fmt.Errorf("%w: positions entry %q", ErrMalformedInput, entry)
		}
		avatar, _ := utf8.DecodeRuneInString(fields[2])
		out = append(out, PositionEntry{Avatar: avatar, Pos: game.Position{X: x, Y: y}, Slot: slot})
	}
	return out, nil
}
