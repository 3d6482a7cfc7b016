package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"time"

	"arena-battle/internal/game"
	"arena-battle/internal/network"
)

var (
	ErrConnectionLost   = errors.New("connection lost")
	ErrHandshakeTimeout = errors.New("handshake timed out")
)

const (
	readChunk = 512
	// drainLimit bounds the bytes taken from one peer per Drain call.
	drainLimit = network.MaxFrameSize * 4
)

// Peer is one accepted TCP connection and its reassembly buffer.
type Peer struct {
	ID           game.ConnID
	conn         net.Conn
	framer       network.Framer
	buf          []byte
	writeTimeout time.Duration
	closed       bool
	dropped      int
}

func newPeer(id game.ConnID, conn net.Conn, writeTimeout time.Duration) *Peer {
	return &Peer{
		ID:           id,
		conn:         conn,
		buf:          make([]byte, readChunk),
		writeTimeout: writeTimeout,
	}
}

// RemoteAddr returns the client address for logging.
func (p *Peer) RemoteAddr() string {
	if p.conn == nil || p.conn.RemoteAddr() == nil {
		return "unknown"
	}
	return p.conn.RemoteAddr().String()
}

// Send writes one framed message.
func (p *Peer) Send(msg []byte) error {
	if p.closed {
		return ErrConnectionLost
	}
	if p.writeTimeout > 0 {
		_ = p.conn.SetWriteDeadline(time.Now().Add(p.writeTimeout))
	}
	if _, err := p.conn.Write(network.Frame(msg)); err != nil {
		return fmt.Errorf("%w: write: %v", ErrConnectionLost, err)
	}
	return nil
}

// ReadFrame blocks until one complete frame arrives or timeout elapses.
// Used only during enrollment.
func (p *Peer) ReadFrame(timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	for {
		if frame, ok := p.framer.Next(); ok {
			return frame, nil
		}
		if timeout > 0 {
			_ = p.conn.SetReadDeadline(deadline)
		}
		n, err := p.conn.Read(p.buf)
		if n > 0 {
			p.framer.Feed(p.buf[:n])
			continue
		}
		if isTimeout(err) {
			return nil, ErrHandshakeTimeout
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read: %v", ErrConnectionLost, err)
		}
	}
}

// Drain reads whatever the socket has buffered, up to drainLimit bytes,
// without waiting longer than grace. An empty socket is not an error.
func (p *Peer) Drain(grace time.Duration) error {
	if p.closed {
		return ErrConnectionLost
	}
	total := 0
	for {
		_ = p.conn.SetReadDeadline(time.Now().Add(grace))
		n, err := p.conn.Read(p.buf)
		if n > 0 {
			p.framer.Feed(p.buf[:n])
			total += n
		}
		switch {
		case err == nil && n == len(p.buf) && total < drainLimit:
			continue
		case err == nil, isTimeout(err):
			return nil
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: closed by peer", ErrConnectionLost)
		default:
			return fmt.Errorf("%w: read: %v", ErrConnectionLost, err)
		}
	}
}

// newlyDropped returns how many oversized frames were discarded since the
// previous call.
func (p *Peer) newlyDropped() int {
	n := p.framer.Dropped() - p.dropped
	p.dropped = p.framer.Dropped()
	return n
}

// NextFrame pops the oldest complete frame received so far.
func (p *Peer) NextFrame() ([]byte, bool) {
	return p.framer.Next()
}

// HasFrame reports whether a complete frame is already buffered.
func (p *Peer) HasFrame() bool {
	return p.framer.HasFrame()
}

// fd returns the socket descriptor when the connection exposes one.
func (p *Peer) fd() (int, bool) {
	sc, ok := p.conn.(syscall.Conn)
	if !ok {
		return 0, false
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return 0, false
	}
	fd := -1
	if err := rc.Control(func(s uintptr) { fd = int(s) }); err != nil || fd < 0 {
		return 0, false
	}
	return fd, true
}

// Close closes the connection. Calling it twice is harmless.
func (p *Peer) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	return p.conn.Close()
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
