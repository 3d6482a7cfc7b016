// Package server implements the TCP arena server: enrollment, the turn loop
// and the broadcast fan-out.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"

	"arena-battle/internal/game"
	"arena-battle/internal/spectate"
	"arena-battle/pkg/logger"
)

var ErrNotListening = errors.New("server is not listening")

// Server runs one arena session from the first connection to the final
// notice.
type Server struct {
	address  string
	settings Settings
	session  string
	observer Observer

	mu       sync.Mutex
	listener net.Listener
	arena    *game.Arena
	enroller *Enroller
	cancel   context.CancelFunc
	logger   *logger.Logger
	rules    *logger.Logger
}

// Option customizes a Server.
type Option func(*Server)

// WithObserver attaches a spectator sink that receives every arena change.
func WithObserver(o Observer) Option {
	return func(s *Server) { s.observer = o }
}

// WithSession overrides the generated session id.
func WithSession(id string) Option {
	return func(s *Server) { s.session = id }
}

// WithLogger replaces the default server logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithGameLogger replaces the logger used for moves, attacks and outcomes.
func WithGameLogger(l *logger.Logger) Option {
	return func(s *Server) { s.rules = l }
}

// NewServer creates a server for address. Nothing is bound until Listen.
func NewServer(address string, settings Settings, opts ...Option) *Server {
	s := &Server{
		address:  address,
		settings: settings,
		session:  uuid.NewString(),
		logger:   logger.Server,
		rules:    logger.Game,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session", s.session)
	s.rules = s.rules.With("session", s.session)
	return s
}

// Session returns the session id used in logs and spectator views.
func (s *Server) Session() string {
	return s.session
}

// Listen binds the listening socket and builds an empty arena.
func (s *Server) Listen() (net.Addr, error) {
	arena, err := game.NewArena(s.settings.Width, s.settings.Height)
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return nil, fmt.Errorf("failed to start server: %w", err)
	}

	s.mu.Lock()
	s.listener = ln
	s.arena = arena
	s.mu.Unlock()

	s.logger.Info("Server started and listening on %s", ln.Addr())
	return ln.Addr(), nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// EnrollState reports how far enrollment has progressed.
func (s *Server) EnrollState() EnrollState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enroller == nil {
		return Listening
	}
	return s.enroller.State()
}

// Run enrolls four entrants and plays until a stop condition. Canceling ctx
// or calling Stop ends the session early.
func (s *Server) Run(ctx context.Context) (Result, error) {
	s.mu.Lock()
	if s.listener == nil {
		s.mu.Unlock()
		return Result{}, ErrNotListening
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	pub := NewPublisher(s.observer, s.logger)
	enroller := NewEnroller(s.listener, s.arena, pub, s.settings, s.logger)
	enroller.onJoin = func() {
		pub.Observe(spectate.NewView(s.session, spectate.PhaseEnrolling, 0, s.arena, game.Outcome{}))
	}
	s.enroller = enroller
	arena := s.arena
	s.mu.Unlock()
	defer cancel()

	pub.Observe(spectate.NewView(s.session, spectate.PhaseEnrolling, 0, arena, game.Outcome{}))

	peers, err := enroller.Run(ctx)
	if err != nil {
		pub.CloseAll()
		arena.Release()
		if ctx.Err() != nil {
			s.logger.Info("Enrollment canceled")
			return Result{Reason: StopCanceled}, nil
		}
		return Result{}, fmt.Errorf("enrollment: %w", err)
	}

	resolver := NewResolver(arena, peers, pub, s.settings, s.session, s.logger, s.rules)
	return resolver.Run(ctx)
}

// Stop cancels a running session.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	} else if s.listener != nil {
		s.listener.Close()
	}
	s.logger.Info("Server stopped")
}
