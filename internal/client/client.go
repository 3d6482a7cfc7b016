package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"arena-battle/internal/network"
	"arena-battle/pkg/logger"
)

var (
	ErrRejected     = errors.New("enrollment rejected")
	ErrDisconnected = errors.New("disconnected from server")
)

const dialTimeout = 5 * time.Second

// Client represents the game client
type Client struct {
	serverAddr string
	name       string
	avatar     rune
	display    *Display
	input      *InputHandler
	logger     *logger.Logger

	mu       sync.Mutex
	conn     net.Conn
	names    map[rune]string
	slots    map[rune]int
	turn     int
	finished bool
}

// NewClient creates a client that will join as name/avatar.
func NewClient(serverAddr, name string, avatar rune, display *Display, input *InputHandler) *Client {
	return &Client{
		serverAddr: serverAddr,
		name:       name,
		avatar:     avatar,
		display:    display,
		input:      input,
		logger:     logger.Client,
		names:      make(map[rune]string),
		slots:      make(map[rune]int),
		turn:       1,
	}
}

// Start connects, enrolls and runs until the game ends, the server goes
// away or the user quits.
func (c *Client) Start(ctx context.Context) error {
	c.display.PrintBanner()
	c.logger.Info("Connecting to %s as %s (%c)", c.serverAddr, c.name, c.avatar)

	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", c.serverAddr)
	if err != nil {
		c.display.PrintError(fmt.Sprintf("Failed to connect to server: %v", err))
		return err
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer c.Close()

	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	if err := c.send(c.name + "," + string(c.avatar)); err != nil {
		return err
	}
	c.display.PrintHelp()

	readErr := make(chan error, 1)
	go func() { readErr <- c.readLoop(conn) }()

	inputErr := make(chan error, 1)
	go func() { inputErr <- c.inputLoop() }()

	select {
	case err := <-readErr:
		return err
	case err := <-inputErr:
		return err
	}
}

// readLoop consumes server frames until the connection closes.
func (c *Client) readLoop(conn net.Conn) error {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, network.MaxFrameSize), network.MaxFrameSize*4)
	for scanner.Scan() {
		frame := scanner.Bytes()
		c.logger.Debug("Received: %s", frame)
		if err := c.HandleFrame(frame); err != nil {
			return err
		}
	}
	c.mu.Lock()
	finished := c.finished
	c.mu.Unlock()
	if finished {
		return nil
	}
	c.display.PrintError("Lost connection to server")
	return ErrDisconnected
}

func (c *Client) inputLoop() error {
	for {
		tok, err := c.input.Next()
		switch {
		case errors.Is(err, ErrQuit), errors.Is(err, ErrInputClosed):
			return nil
		case errors.Is(err, ErrHelp):
			c.display.PrintHelp()
			continue
		case errors.Is(err, ErrEmptyInput):
			continue
		case errors.Is(err, ErrUnknownKey):
			c.display.PrintWarning("Unknown command, type help")
			continue
		case err != nil:
			return err
		}
		if err := c.send(tok); err != nil {
			return err
		}
	}
}

// HandleFrame renders one server frame. It returns ErrRejected when the
// enrollment was refused.
func (c *Client) HandleFrame(frame []byte) error {
	s := strings.TrimRight(string(frame), "\r\n")
	if s == network.TakenResponse {
		c.display.PrintRejected()
		c.markFinished()
		return ErrRejected
	}

	if network.IsRoster(frame) {
		slots, err := network.DecodeRoster(frame)
		if err != nil {
			c.logger.Warn("bad roster %q: %v", s, err)
			return nil
		}
		c.mu.Lock()
		for i, slot := range slots {
			if slot.Filled {
				c.names[slot.Avatar] = slot.Name
				c.slots[slot.Avatar] = i + 1
			}
		}
		c.mu.Unlock()
		c.display.PrintRoster(slots)
		return nil
	}

	notices, err := network.DecodeNotices(frame)
	if err != nil {
		c.logger.Warn("bad notice %q: %v", s, err)
	}
	for _, n := range notices {
		c.handleNotice(n)
	}
	return nil
}

func (c *Client) handleNotice(n network.Notice) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch n.Type {
	case network.NoticeActed:
		a := n.Avatar()
		c.display.PrintActed(c.names[a], a, c.slots[a])
	case network.NoticeEliminated:
		a := n.Avatar()
		c.display.PrintEliminated(c.names[a], a, a == c.avatar)
	case network.NoticeReset:
		c.turn++
		c.display.PrintTurnEnd(c.turn)
	case network.NoticePositions:
		entries, err := network.DecodePositions(n.Payload)
		if err != nil {
			c.logger.Warn("bad positions %q: %v", n.Payload, err)
			return
		}
		c.display.PrintPositions(entries, c.names)
	case network.NoticeVictory:
		name, avatar := splitVictory(n.Payload)
		c.finished = true
		c.display.PrintVictory(name, avatar, avatar == c.avatar)
	case network.NoticeDraw:
		c.finished = true
		c.display.PrintDraw()
	}
}

func splitVictory(payload string) (string, rune) {
	i := strings.LastIndexByte(payload, network.FieldSep)
	if i < 0 {
		return payload, utf8.RuneError
	}
	r, _ := utf8.DecodeRuneInString(payload[i+1:])
	return payload[:i], r
}

func (c *Client) markFinished() {
	c.mu.Lock()
	c.finished = true
	c.mu.Unlock()
}

// Finished reports whether a final notice or a rejection was received.
func (c *Client) Finished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finished
}

func (c *Client) send(tok string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrDisconnected
	}
	if _, err := conn.Write(network.Frame([]byte(tok))); err != nil {
		return fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	c.logger.Debug("Sent: %s", tok)
	return nil
}

// Close disconnects from the server.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
