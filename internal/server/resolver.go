package server

import (
	"context"
	"fmt"
	"time"

	"arena-battle/internal/game"
	"arena-battle/internal/network"
	"arena-battle/internal/spectate"
	"arena-battle/pkg/logger"
)

// StopReason explains why the turn loop ended
type StopReason int

const (
	StopSentinel StopReason = iota
	StopVictory
	StopDraw
	StopCanceled
)

func (r StopReason) String() string {
	switch r {
	case StopSentinel:
		return "shutdown requested"
	case StopVictory:
		return "victory"
	case StopDraw:
		return "draw"
	case StopCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("StopReason(%d)", int(r))
	}
}

// Result summarizes a finished session.
type Result struct {
	Reason  StopReason
	Outcome game.Outcome
	Winner  string // name of the sole survivor, if any
	Turns   int
}

// Resolver runs the turn loop. It owns the arena and every peer; nothing
// else may touch them while Run is active.
type Resolver struct {
	arena     *game.Arena
	peers     map[game.ConnID]*Peer
	publisher *Publisher
	poller    poller
	settings  Settings
	session   string
	logger    *logger.Logger
	rules     *logger.Logger

	turn        int
	turnStarted time.Time
	lastSync    time.Time
	lost        []*Peer
	now         func() time.Time
}

// NewResolver creates the turn loop for an arena whose enrollment is complete.
// Connection events go to log and rule decisions to rules.
func NewResolver(arena *game.Arena, peers map[game.ConnID]*Peer, pub *Publisher, settings Settings, session string, log, rules *logger.Logger) *Resolver {
	return &Resolver{
		arena:     arena,
		peers:     peers,
		publisher: pub,
		poller:    newPoller(),
		settings:  settings,
		session:   session,
		logger:    log,
		rules:     rules,
		turn:      1,
		now:       time.Now,
	}
}

// Run polls, resolves and broadcasts until a stop condition is reached. All
// connections are closed and the arena released before it returns.
func (r *Resolver) Run(ctx context.Context) (Result, error) {
	r.turnStarted = r.now()
	r.lastSync = r.turnStarted
	r.observe(spectate.PhasePlaying, game.Outcome{})
	r.logger.Info("Game started with %d entrants", len(r.arena.Entrants()))

	for {
		if ctx.Err() != nil {
			return r.shutdown(Result{Reason: StopCanceled}), nil
		}

		pending := r.pendingPeers()
		ready, err := r.poller.Wait(pending, r.settings.Tick)
		if err != nil {
			r.logger.Error("poll: %v", err)
			time.Sleep(r.settings.Tick)
		}

		if res, done := r.step(ready); done {
			return res, nil
		}
	}
}

// step runs one tick: the per-connection pass, the barrier check and the
// deadline/resync housekeeping.
func (r *Resolver) step(ready []*Peer) (Result, bool) {
	readySet := make(map[*Peer]bool, len(ready))
	for _, p := range ready {
		readySet[p] = true
	}

	if res, done := r.pass(readySet); done {
		return res, true
	}
	if res, done := r.reap(); done {
		return res, true
	}

	now := r.now()
	if !r.arena.BarrierComplete() && r.settings.TurnTimeout > 0 && now.Sub(r.turnStarted) >= r.settings.TurnTimeout {
		r.forfeitPending()
		if res, done := r.reap(); done {
			return res, true
		}
	}

	if r.arena.BarrierComplete() {
		if res, done := r.completeTurn(); done {
			return res, true
		}
	}

	if r.settings.ResyncInterval > 0 && now.Sub(r.lastSync) >= r.settings.ResyncInterval {
		r.broadcast(network.EncodePositions(r.arena.Entrants()))
		r.lastSync = now
		return r.reap()
	}
	return Result{}, false
}

// pass visits every live entrant that has not acted, in roster order, and
// applies at most one action each.
func (r *Resolver) pass(ready map[*Peer]bool) (Result, bool) {
	for _, e := range r.arena.Entrants() {
		// Entrants eliminated earlier in this pass are skipped here.
		if !e.Alive() || e.Acted {
			continue
		}
		peer, ok := r.peers[e.ID]
		if !ok {
			continue
		}
		if ready[peer] {
			err := peer.Drain(r.settings.ReadGrace)
			if n := peer.newlyDropped(); n > 0 {
				r.logger.Warn("Discarded %d oversized frame(s) from %s", n, e.Name)
			}
			if err != nil {
				r.markLost(peer, err)
				continue
			}
		}

		for !e.Acted {
			frame, ok := peer.NextFrame()
			if !ok {
				break
			}
			if stop := r.apply(e, frame); stop {
				return r.shutdown(Result{Reason: StopSentinel}), true
			}
		}
	}
	return Result{}, false
}

// apply executes one decoded command for e. It reports whether the shutdown
// sentinel was received.
func (r *Resolver) apply(e *game.Entrant, frame []byte) bool {
	raw := string(frame)
	switch cmd := network.DecodeTurnCommand(frame).(type) {
	case network.Shutdown:
		r.rules.Info("Shutdown requested by %s", e.Name)
		return true

	case network.Move:
		moved := r.arena.TryMove(e, cmd.Direction)
		r.arena.MarkActed(e, raw)
		r.rules.Info("Direction received: Username = %s, Direction = %s, applied = %t, now at (%d,%d)",
			e.Name, cmd.Direction, moved, e.Pos.X, e.Pos.Y)
		r.broadcast(network.EncodeMoveNotice(e.Avatar))

	case network.Attack:
		victim := r.arena.ResolveAttack(e, cmd.Offset)
		r.arena.MarkActed(e, raw)
		r.broadcast(network.EncodeMoveNotice(e.Avatar))
		if victim != nil {
			r.rules.Info("%s attacked %s and eliminated %s", e.Name, cmd.Offset, victim.Name)
			r.broadcast(network.EncodeEliminationNotice(victim.Avatar))
		} else {
			r.rules.Info("%s attacked %s and missed", e.Name, cmd.Offset)
		}

	case network.Unknown:
		r.rules.Debug("Ignoring unknown command %q from %s", cmd.Raw, e.Name)
	}
	r.observe(spectate.PhasePlaying, game.Outcome{})
	return false
}

// completeTurn broadcasts the canonical snapshot, resets the barrier and runs
// the termination detector.
func (r *Resolver) completeTurn() (Result, bool) {
	snapshot := network.EncodeSnapshot(r.arena.Entrants())
	r.rules.Info("Position update: turn %d %s", r.turn, snapshot)
	r.broadcast(snapshot)

	r.arena.ResetTurn()
	r.turn++
	now := r.now()
	r.turnStarted = now
	r.lastSync = now

	if res, done := r.reap(); done {
		return res, true
	}
	return r.checkOutcome()
}

// checkOutcome ends the session when at most one entrant is left.
func (r *Resolver) checkOutcome() (Result, bool) {
	out := game.Evaluate(r.arena)
	if !out.Over() {
		r.observe(spectate.PhasePlaying, out)
		return Result{}, false
	}
	return r.finish(out), true
}

func (r *Resolver) finish(out game.Outcome) Result {
	res := Result{Outcome: out}
	switch out.Kind {
	case game.Victory:
		res.Reason = StopVictory
		res.Winner = out.Winner.Name
		r.rules.Info("%s (%c) wins after %d turns", out.Winner.Name, out.Winner.Avatar, r.turn-1)
		r.broadcast(network.EncodeVictory(out.Winner.Name, out.Winner.Avatar))
	case game.Draw:
		res.Reason = StopDraw
		r.rules.Info("No entrant left after %d turns, draw", r.turn-1)
		r.broadcast(network.EncodeDraw())
	}
	r.observe(spectate.PhaseFinished, out)
	return r.shutdown(res)
}

// forfeitPending closes the current turn for entrants that did not answer in
// time and eliminates those idle for too many turns.
func (r *Resolver) forfeitPending() {
	for _, e := range r.arena.Pending() {
		e.Acted = true
		e.MissedTurns++
		r.rules.Warn("%s did not act within %s (missed %d)", e.Name, r.settings.TurnTimeout, e.MissedTurns)
		if r.settings.IdleTurns > 0 && e.MissedTurns >= r.settings.IdleTurns {
			r.arena.Eliminate(e)
			r.rules.Warn("%s eliminated for inactivity", e.Name)
			r.broadcast(network.EncodeEliminationNotice(e.Avatar))
		}
	}
}

// markLost queues peer for removal after a read or write failure.
func (r *Resolver) markLost(peer *Peer, err error) {
	for _, p := range r.lost {
		if p == peer {
			return
		}
	}
	r.logger.Warn("Connection %s lost: %v", peer.ID, err)
	r.lost = append(r.lost, peer)
}

// reap eliminates the entrants whose connections failed. A lost connection
// counts as an elimination; the remaining entrants are told with an E notice.
func (r *Resolver) reap() (Result, bool) {
	if len(r.lost) == 0 {
		return Result{}, false
	}
	eliminated := false
	for len(r.lost) > 0 {
		peer := r.lost[0]
		r.lost = r.lost[1:]

		r.publisher.Remove(peer)
		peer.Close()
		delete(r.peers, peer.ID)

		e, ok := r.arena.Lookup(peer.ID)
		if !ok || !r.arena.Eliminate(e) {
			continue
		}
		eliminated = true
		r.logger.Info("%s eliminated after disconnect", e.Name)
		r.broadcast(network.EncodeEliminationNotice(e.Avatar))
	}
	if !eliminated {
		return Result{}, false
	}

	// The turn may now be decided without waiting for anybody.
	out := game.Evaluate(r.arena)
	if !out.Over() {
		r.observe(spectate.PhasePlaying, out)
		return Result{}, false
	}
	r.broadcast(network.EncodeSnapshot(r.arena.Entrants()))
	r.lost = nil
	return r.finish(out), true
}

func (r *Resolver) broadcast(msg []byte) {
	for _, p := range r.publisher.Broadcast(msg) {
		r.markLost(p, ErrConnectionLost)
	}
}

func (r *Resolver) pendingPeers() []*Peer {
	out := make([]*Peer, 0, game.MaxEntrants)
	for _, e := range r.arena.Pending() {
		if p, ok := r.peers[e.ID]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (r *Resolver) observe(phase spectate.Phase, out game.Outcome) {
	r.publisher.Observe(spectate.NewView(r.session, phase, r.turn, r.arena, out))
}

// shutdown closes every connection and releases the arena.
func (r *Resolver) shutdown(res Result) Result {
	res.Turns = r.turn - 1
	r.publisher.CloseAll()
	for id, p := range r.peers {
		p.Close()
		delete(r.peers, id)
	}
	r.arena.Release()
	r.logger.Info("Session closed: %s", res.Reason)
	return res
}
