package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"arena-battle/internal/game"
	"arena-battle/internal/network"
	"arena-battle/pkg/logger"
)

// EnrollState is the state of the enrollment phase
type EnrollState int

const (
	Listening EnrollState = iota
	Registering
	Full
)

func (s EnrollState) String() string {
	switch s {
	case Listening:
		return "listening"
	case Registering:
		return "registering"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("EnrollState(%d)", int(s))
	}
}

// Enroller accepts connections one at a time until the arena is full.
type Enroller struct {
	listener  net.Listener
	arena     *game.Arena
	publisher *Publisher
	settings  Settings
	limiter   *rate.Limiter
	state     atomic.Int32
	peers     map[game.ConnID]*Peer
	onJoin    func()
	logger    *logger.Logger

	mu       sync.Mutex
	inflight net.Conn
	canceled bool
}

// NewEnroller creates the enrollment phase for listener. JoinRate of zero
// accepts connections without throttling.
func NewEnroller(listener net.Listener, arena *game.Arena, pub *Publisher, settings Settings, log *logger.Logger) *Enroller {
	limit := rate.Inf
	if settings.JoinRate > 0 {
		limit = rate.Limit(settings.JoinRate)
	}
	return &Enroller{
		listener:  listener,
		arena:     arena,
		publisher: pub,
		settings:  settings,
		limiter:   rate.NewLimiter(limit, game.MaxEntrants),
		peers:     make(map[game.ConnID]*Peer, game.MaxEntrants),
		logger:    log,
	}
}

// State returns the current enrollment state.
func (en *Enroller) State() EnrollState {
	return EnrollState(en.state.Load())
}

// Run blocks until four entrants are registered, then closes the listener
// and returns the registered connections keyed by connection id.
func (en *Enroller) Run(ctx context.Context) (map[game.ConnID]*Peer, error) {
	stop := context.AfterFunc(ctx, en.abort)
	defer stop()

	en.state.Store(int32(Registering))
	en.logger.Info("Waiting for %d players on %s", game.MaxEntrants, en.listener.Addr())

	for !en.arena.Full() {
		if err := en.limiter.Wait(ctx); err != nil {
			return en.peers, err
		}
		conn, err := en.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return en.peers, ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return en.peers, err
			}
			en.logger.Error("Failed to accept connection: %v", err)
			continue
		}
		if !en.track(conn) {
			conn.Close()
			return en.peers, ctx.Err()
		}
		en.handshake(conn)
		en.track(nil)
		if ctx.Err() != nil {
			return en.peers, ctx.Err()
		}
	}

	en.state.Store(int32(Full))
	if err := en.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		en.logger.Warn("close listener: %v", err)
	}
	en.logger.Info("Arena full, enrollment closed")
	return en.peers, nil
}

// abort closes the listener and any connection still in its handshake.
func (en *Enroller) abort() {
	en.mu.Lock()
	en.canceled = true
	if en.inflight != nil {
		en.inflight.Close()
	}
	en.mu.Unlock()
	en.listener.Close()
}

// track records the connection being handshaken. It returns false once the
// enrollment was aborted.
func (en *Enroller) track(conn net.Conn) bool {
	en.mu.Lock()
	defer en.mu.Unlock()
	if en.canceled {
		return false
	}
	en.inflight = conn
	return true
}

// handshake reads one enrollment frame and either registers or rejects.
func (en *Enroller) handshake(conn net.Conn) {
	peer := newPeer(game.ConnID(uuid.NewString()), conn, en.settings.WriteTimeout)

	frame, err := peer.ReadFrame(en.settings.HandshakeTimeout)
	if err != nil {
		en.logger.Warn("Dropping %s before enrollment: %v", peer.RemoteAddr(), err)
		peer.Close()
		return
	}

	req, err := network.DecodeEnrollment(frame)
	if err != nil {
		en.reject(peer, fmt.Sprintf("%v: %q", err, frame))
		return
	}

	entrant, err := en.arena.Enroll(peer.ID, req.Name, req.Avatar)
	if err != nil {
		en.reject(peer, fmt.Sprintf("%s,%c: %v", req.Name, req.Avatar, err))
		return
	}

	en.peers[peer.ID] = peer
	en.publisher.Add(peer)
	en.logger.Info("New connection: Username = %s, Character = %c, slot %d at (%d,%d) from %s",
		entrant.Name, entrant.Avatar, entrant.Slot, entrant.Pos.X, entrant.Pos.Y, peer.RemoteAddr())
	if en.onJoin != nil {
		en.onJoin()
	}

	en.publisher.Broadcast(network.EncodeRoster(en.arena.Entrants()))
}

func (en *Enroller) reject(peer *Peer, reason string) {
	en.logger.Info("Rejected join from %s: %s", peer.RemoteAddr(), reason)
	if err := peer.Send(network.Rejection()); err != nil {
		en.logger.Debug("send rejection: %v", err)
	}
	peer.Close()
}
