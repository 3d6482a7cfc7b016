package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena-battle/internal/game"
	"arena-battle/internal/spectate"
)

func TestServer_EnrollsFourAndRefusesFifth(t *testing.T) {
	srv, addr, _ := startServer(t, testSettings())
	enrollAll(t, addr, fourEntrants)

	assert.Eventually(t, func() bool { return srv.EnrollState() == Full }, ioWait, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err != nil {
			return true
		}
		conn.Close()
		return false
	}, ioWait, 20*time.Millisecond)
}

func TestServer_BarrierAndQueuedCommands(t *testing.T) {
	_, addr, done := startServer(t, testSettings())
	c := enrollAll(t, addr, fourEntrants)

	// The second command stays queued until the next turn.
	c[0].send(t, "RIGHT", "LEFT")
	expectAll(t, c, "L@|")

	c[1].send(t, "LEFT")
	expectAll(t, c, "L#|")
	c[2].send(t, "UP")
	expectAll(t, c, "L$|")
	// Out of bounds: consumes the turn without moving.
	c[3].send(t, "DOWN")
	expectAll(t, c,
		"L%|",
		"R|P3,2,@,1;22,2,#,2;2,8,$,3;23,9,%,4;|",
		"L@|",
	)

	c[1].send(t, "VLPDR_DRTBRT")
	for _, cl := range c {
		cl.expectClosed(t)
	}
	res := waitResult(t, done)
	assert.Equal(t, StopSentinel, res.Reason)
	assert.Equal(t, 1, res.Turns)
}

func TestServer_UnknownCommandDoesNotConsumeTurn(t *testing.T) {
	_, addr, done := startServer(t, testSettings())
	c := enrollAll(t, addr, fourEntrants)

	c[0].send(t, "JUMP", "x", "up", "DOWN")
	expectAll(t, c, "L@|")

	c[0].send(t, "VLPDR_DRTBRT")
	res := waitResult(t, done)
	assert.Equal(t, StopSentinel, res.Reason)
	assert.Equal(t, 0, res.Turns)
}

func TestServer_AttacksToVictory(t *testing.T) {
	settings := testSettings()
	settings.Width, settings.Height = 5, 5
	_, addr, done := startServer(t, settings)
	c := enrollAll(t, addr, fourEntrants)

	// @ (2,2) hits # at (3,2).
	c[0].send(t, "h")
	expectAll(t, c, "L@|", "E#|")
	// $ (2,3) hits % at (3,3) and closes the turn.
	c[2].send(t, "H")
	expectAll(t, c, "L$|", "E%|", "R|P2,2,@,1;#X;2,3,$,3;%X;|")

	c[0].send(t, "g")
	expectAll(t, c, "L@|", "E$|", "R|P2,2,@,1;#X;$X;%X;|", "Wp1,@|")
	for _, cl := range c {
		cl.expectClosed(t)
	}

	res := waitResult(t, done)
	assert.Equal(t, StopVictory, res.Reason)
	assert.Equal(t, "p1", res.Winner)
	assert.Equal(t, game.Victory, res.Outcome.Kind)
	assert.Equal(t, 2, res.Turns)
}

func TestServer_AttackOnEmptyCellStillActs(t *testing.T) {
	_, addr, done := startServer(t, testSettings())
	c := enrollAll(t, addr, fourEntrants)

	c[0].send(t, "b")
	expectAll(t, c, "L@|")

	c[0].send(t, "VLPDR_DRTBRT")
	waitResult(t, done)
}

func TestServer_ConnectionLossEliminates(t *testing.T) {
	_, addr, done := startServer(t, testSettings())
	c := enrollAll(t, addr, fourEntrants)

	require.NoError(t, c[1].conn.Close())
	others := []*testClient{c[0], c[2], c[3]}
	expectAll(t, others, "E#|")

	c[0].send(t, "DOWN")
	expectAll(t, others, "L@|")
	c[2].send(t, "RIGHT")
	expectAll(t, others, "L$|")
	c[3].send(t, "LEFT")
	expectAll(t, others, "L%|", "R|P2,3,@,1;#X;3,9,$,3;22,9,%,4;|")

	c[0].send(t, "VLPDR_DRTBRT")
	res := waitResult(t, done)
	assert.Equal(t, StopSentinel, res.Reason)
}

func TestServer_LastDisconnectDecidesGame(t *testing.T) {
	_, addr, done := startServer(t, testSettings())
	c := enrollAll(t, addr, fourEntrants)

	require.NoError(t, c[1].conn.Close())
	expectAll(t, []*testClient{c[0], c[2], c[3]}, "E#|")
	require.NoError(t, c[2].conn.Close())
	expectAll(t, []*testClient{c[0], c[3]}, "E$|")
	require.NoError(t, c[3].conn.Close())
	c[0].expect(t, "E%|", "R|P2,2,@,1;#X;$X;%X;|", "Wp1,@|")
	c[0].expectClosed(t)

	res := waitResult(t, done)
	assert.Equal(t, StopVictory, res.Reason)
	assert.Equal(t, "p1", res.Winner)
}

func TestServer_TurnTimeoutEliminatesIdleEntrants(t *testing.T) {
	settings := testSettings()
	settings.TurnTimeout = 300 * time.Millisecond
	settings.IdleTurns = 1
	_, addr, done := startServer(t, settings)
	c := enrollAll(t, addr, fourEntrants)

	c[0].send(t, "UP")
	expectAll(t, c, "L@|", "E#|", "E$|", "E%|", "R|P2,2,@,1;#X;$X;%X;|", "Wp1,@|")

	res := waitResult(t, done)
	assert.Equal(t, StopVictory, res.Reason)
	assert.Equal(t, 1, res.Turns)
}

func TestServer_EveryoneIdleIsADraw(t *testing.T) {
	settings := testSettings()
	settings.TurnTimeout = 100 * time.Millisecond
	settings.IdleTurns = 1
	_, addr, done := startServer(t, settings)
	c := enrollAll(t, addr, fourEntrants)

	expectAll(t, c, "E@|", "E#|", "E$|", "E%|", "R|P@X;#X;$X;%X;|", "D|")

	res := waitResult(t, done)
	assert.Equal(t, StopDraw, res.Reason)
	assert.Equal(t, game.Draw, res.Outcome.Kind)
	assert.Empty(t, res.Winner)
}

func TestServer_TurnTimeoutForfeitsWithoutEliminating(t *testing.T) {
	settings := testSettings()
	settings.TurnTimeout = 200 * time.Millisecond
	settings.IdleTurns = 3
	_, addr, done := startServer(t, settings)
	c := enrollAll(t, addr, fourEntrants)

	c[0].send(t, "RIGHT")
	expectAll(t, c, "L@|", "R|P3,2,@,1;23,2,#,2;2,9,$,3;23,9,%,4;|")

	c[0].send(t, "VLPDR_DRTBRT")
	res := waitResult(t, done)
	assert.Equal(t, StopSentinel, res.Reason)
}

func TestServer_PeriodicResync(t *testing.T) {
	settings := testSettings()
	settings.ResyncInterval = 50 * time.Millisecond
	_, addr, done := startServer(t, settings)
	c := enrollAll(t, addr, fourEntrants)

	expectAll(t, c, "P2,2,@,1;23,2,#,2;2,9,$,3;23,9,%,4;|")

	c[0].send(t, "VLPDR_DRTBRT")
	waitResult(t, done)
}

func TestServer_StopDuringEnrollment(t *testing.T) {
	srv, addr, done := startServer(t, testSettings())
	c := dial(t, addr)
	c.send(t, "p1,@")
	c.expect(t, rosterLine(fourEntrants, 1))

	srv.Stop()
	c.expectClosed(t)
	res := waitResult(t, done)
	assert.Equal(t, StopCanceled, res.Reason)
}

func TestServer_RunWithoutListen(t *testing.T) {
	srv := NewServer("127.0.0.1:0", testSettings())
	_, err := srv.Run(context.Background())
	assert.ErrorIs(t, err, ErrNotListening)
}

func TestServer_ListenRejectsTinyArena(t *testing.T) {
	settings := testSettings()
	settings.Width = 3
	srv := NewServer("127.0.0.1:0", settings)
	_, err := srv.Listen()
	assert.ErrorIs(t, err, game.ErrInvalidBounds)
}

type recordingObserver struct {
	views chan spectate.View
}

func (o *recordingObserver) Observe(v spectate.View) {
	select {
	case o.views <- v:
	default:
	}
}

func TestServer_ObserverSeesPhases(t *testing.T) {
	obs := &recordingObserver{views: make(chan spectate.View, 256)}
	settings := testSettings()
	settings.Width, settings.Height = 5, 5
	_, addr, done := startServer(t, settings, WithObserver(obs), WithSession("s-1"))
	c := enrollAll(t, addr, fourEntrants)

	c[0].send(t, "h")
	expectAll(t, c, "L@|", "E#|")
	c[0].send(t, "VLPDR_DRTBRT")
	waitResult(t, done)

	phases := map[spectate.Phase]bool{}
	var last spectate.View
	for len(obs.views) > 0 {
		last = <-obs.views
		assert.Equal(t, "s-1", last.Session)
		phases[last.Phase] = true
	}
	assert.True(t, phases[spectate.PhaseEnrolling])
	assert.True(t, phases[spectate.PhasePlaying])
	require.Len(t, last.Entrants, 4)
	assert.True(t, last.Entrants[1].Eliminated)
}

func TestStopReason_String(t *testing.T) {
	assert.Equal(t, "shutdown requested", StopSentinel.String())
	assert.Equal(t, "victory", StopVictory.String())
	assert.Equal(t, "draw", StopDraw.String())
	assert.Equal(t, "canceled", StopCanceled.String())
	assert.Equal(t, "StopReason(7)", StopReason(7).String())
}
