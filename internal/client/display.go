// Package client implements the line-oriented reference client.
package client

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"arena-battle/internal/network"
)

// Display renders server frames as colored text lines.
type Display struct {
	out          io.Writer
	serverColor  *color.Color
	gameColor    *color.Color
	attackColor  *color.Color
	winColor     *color.Color
	loseColor    *color.Color
	warningColor *color.Color
	infoColor    *color.Color
	slotColors   [4]*color.Color
	now          func() time.Time
}

// NewDisplay creates a display writing to stdout.
func NewDisplay() *Display {
	return NewDisplayTo(os.Stdout)
}

// NewDisplayTo creates a display writing to out.
func NewDisplayTo(out io.Writer) *Display {
	return &Display{
		out:          out,
		serverColor:  color.New(color.FgCyan, color.Bold),
		gameColor:    color.New(color.FgYellow, color.Bold),
		attackColor:  color.New(color.FgRed),
		winColor:     color.New(color.FgGreen, color.Bold, color.BgBlack),
		loseColor:    color.New(color.FgRed, color.Bold, color.BgBlack),
		warningColor: color.New(color.FgYellow),
		infoColor:    color.New(color.FgWhite),
		slotColors: [4]*color.Color{
			color.New(color.FgRed, color.Bold),
			color.New(color.FgGreen, color.Bold),
			color.New(color.FgBlue, color.Bold),
			color.New(color.FgMagenta, color.Bold),
		},
		now: time.Now,
	}
}

func (d *Display) stamp() string {
	return d.now().Format("15:04:05")
}

// slotColor returns the color for a 1-based slot.
func (d *Display) slotColor(slot int) *color.Color {
	if slot < 1 || slot > len(d.slotColors) {
		return d.infoColor
	}
	return d.slotColors[slot-1]
}

// PrintBanner displays the client banner
func (d *Display) PrintBanner() {
	banner := `
╔═══════════════════════════════════════╗
║          ARENA BATTLE CLIENT          ║
╚═══════════════════════════════════════╝
`
	d.gameColor.Fprintln(d.out, banner)
}

// PrintHelp lists the command tokens.
func (d *Display) PrintHelp() {
	d.infoColor.Fprintln(d.out, "Move:   UP DOWN LEFT RIGHT (or w a s d)")
	d.infoColor.Fprintln(d.out, "Attack: E T Y / F H / C G B  (the 8 cells around you)")
	d.infoColor.Fprintln(d.out, "Other:  help, quit")
}

// PrintRoster shows the four slots, filled or waiting.
func (d *Display) PrintRoster(slots []network.RosterSlot) {
	d.serverColor.Fprintf(d.out, "[%s] [ROSTER]\n", d.stamp())
	for i, s := range slots {
		if s.Filled {
			d.slotColor(i+1).Fprintf(d.out, "  %d. %s (%c)\n", i+1, s.Name, s.Avatar)
		} else {
			d.infoColor.Fprintf(d.out, "  %d. waiting for %s\n", i+1, s.Name)
		}
	}
}

// PrintActed announces that a player used its turn.
func (d *Display) PrintActed(name string, avatar rune, slot int) {
	d.slotColor(slot).Fprintf(d.out, "[%s] %s (%c) has moved\n", d.stamp(), name, avatar)
}

// PrintEliminated announces an elimination.
func (d *Display) PrintEliminated(name string, avatar rune, isMe bool) {
	if isMe {
		d.loseColor.Fprintf(d.out, "[%s] You have been eliminated!\n", d.stamp())
		return
	}
	d.attackColor.Fprintf(d.out, "[%s] %s (%c) was eliminated\n", d.stamp(), name, avatar)
}

// PrintTurnEnd marks the start of a new turn.
func (d *Display) PrintTurnEnd(turn int) {
	d.gameColor.Fprintf(d.out, "[%s] --- turn %d ---\n", d.stamp(), turn)
}

// PrintPositions draws one line per player with its cell.
func (d *Display) PrintPositions(entries []network.PositionEntry, names map[rune]string) {
	var sb strings.Builder
	for _, e := range entries {
		if e.Eliminated {
			fmt.Fprintf(&sb, "  %c %-12s out\n", e.Avatar, names[e.Avatar])
			continue
		}
		fmt.Fprintf(&sb, "  %c %-12s (%d,%d)\n", e.Avatar, names[e.Avatar], e.Pos.X, e.Pos.Y)
	}
	d.infoColor.Fprint(d.out, sb.String())
}

// PrintVictory shows the winner.
func (d *Display) PrintVictory(name string, avatar rune, isMe bool) {
	if isMe {
		d.winColor.Fprintf(d.out, "[%s] VICTORY! You are the last one standing.\n", d.stamp())
		return
	}
	d.loseColor.Fprintf(d.out, "[%s] %s (%c) wins the game.\n", d.stamp(), name, avatar)
}

// PrintDraw shows a game without survivors.
func (d *Display) PrintDraw() {
	d.gameColor.Fprintf(d.out, "[%s] DRAW. Nobody survived.\n", d.stamp())
}

// PrintRejected explains a refused enrollment.
func (d *Display) PrintRejected() {
	d.loseColor.Fprintln(d.out, "Username or character already taken.")
}

func (d *Display) PrintError(message string) {
	d.attackColor.Fprintf(d.out, "ERROR: %s\n", message)
}

func (d *Display) PrintWarning(message string) {
	d.warningColor.Fprintf(d.out, "WARNING: %s\n", message)
}

func (d *Display) PrintInfo(message string) {
	d.infoColor.Fprintf(d.out, "%s\n", message)
}
