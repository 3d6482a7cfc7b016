package client

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"arena-battle/internal/network"
)

var (
	ErrQuit        = errors.New("quit requested")
	ErrHelp        = errors.New("help requested")
	ErrUnknownKey  = errors.New("unknown command")
	ErrEmptyInput  = errors.New("empty input")
	ErrInputClosed = errors.New("input closed")
)

// keyAliases maps the keyboard-style shortcuts to move tokens.
var keyAliases = map[string]string{
	"w": "UP",
	"s": "DOWN",
	"a": "LEFT",
	"d": "RIGHT",
}

// InputHandler turns typed lines into command tokens.
type InputHandler struct {
	scanner *bufio.Scanner
}

func NewInputHandler(in io.Reader) *InputHandler {
	return &InputHandler{scanner: bufio.NewScanner(in)}
}

// Next blocks for the next line and returns the token to send.
func (ih *InputHandler) Next() (string, error) {
	if !ih.scanner.Scan() {
		if err := ih.scanner.Err(); err != nil {
			return "", err
		}
		return "", ErrInputClosed
	}
	return ParseCommand(ih.scanner.Text())
}

// ParseCommand validates one typed line. Move words are accepted in any case
// and normalized to the upper-case tokens the server expects.
func ParseCommand(line string) (string, error) {
	tok := strings.TrimSpace(line)
	switch strings.ToLower(tok) {
	case "":
		return "", ErrEmptyInput
	case "quit", "exit":
		return "", ErrQuit
	case "help", "?":
		return "", ErrHelp
	case "/shutdown":
		return network.ShutdownSentinel, nil
	}
	if alias, ok := keyAliases[tok]; ok {
		tok = alias
	}
	if upper := strings.ToUpper(tok); len(upper) > 1 {
		tok = upper
	}
	switch network.DecodeTurnCommand([]byte(tok)).(type) {
	case network.Move, network.Attack:
		return tok, nil
	default:
		return "", ErrUnknownKey
	}
}
