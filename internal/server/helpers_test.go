package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"arena-battle/pkg/logger"
)

const ioWait = 2 * time.Second

// testSettings keeps every background timer off unless a test turns it on.
func testSettings() Settings {
	s := DefaultSettings()
	s.Tick = 10 * time.Millisecond
	s.ReadGrace = 2 * time.Millisecond
	s.WriteTimeout = time.Second
	s.HandshakeTimeout = ioWait
	s.JoinRate = 0
	s.TurnTimeout = 0
	s.IdleTurns = 0
	s.ResyncInterval = 0
	return s
}

type runResult struct {
	res Result
	err error
}

// startServer listens on an ephemeral port and runs the session in the
// background.
func startServer(t *testing.T, settings Settings, opts ...Option) (*Server, string, <-chan runResult) {
	t.Helper()
	opts = append([]Option{WithLogger(logger.NewNop()), WithGameLogger(logger.NewNop())}, opts...)
	srv := NewServer("127.0.0.1:0", settings, opts...)
	addr, err := srv.Listen()
	require.NoError(t, err)

	done := make(chan runResult, 1)
	go func() {
		res, err := srv.Run(context.Background())
		done <- runResult{res, err}
	}()
	t.Cleanup(srv.Stop)
	return srv, addr.String(), done
}

func waitResult(t *testing.T, done <-chan runResult) Result {
	t.Helper()
	select {
	case r := <-done:
		require.NoError(t, r.err)
		return r.res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the session to end")
		return Result{}
	}
}

// testClient speaks the wire protocol over a real TCP connection.
type testClient struct {
	conn net.Conn
	r    *bufio.Reader
}

func dial(t *testing.T, addr string) *testClient {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, ioWait)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &testClient{conn: conn, r: bufio.NewReader(conn)}
}

func (c *testClient) send(t *testing.T, lines ...string) {
	t.Helper()
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	_, err := c.conn.Write([]byte(sb.String()))
	require.NoError(t, err)
}

func (c *testClient) read(t *testing.T) string {
	t.Helper()
	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(ioWait)))
	line, err := c.r.ReadString('\n')
	require.NoError(t, err, "partial frame %q", line)
	return strings.TrimSuffix(line, "\n")
}

func (c *testClient) expect(t *testing.T, want ...string) {
	t.Helper()
	for _, w := range want {
		require.Equal(t, w, c.read(t))
	}
}

// expectClosed reads until the server closes the connection.
func (c *testClient) expectClosed(t *testing.T) {
	t.Helper()
	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(ioWait)))
	_, err := io.Copy(io.Discard, c.r)
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		t.Fatal("connection still open")
	}
}

type identity struct {
	name   string
	avatar string
}

var fourEntrants = []identity{
	{"p1", "@"},
	{"p2", "#"},
	{"p3", "$"},
	{"p4", "%"},
}

func rosterLine(ids []identity, n int) string {
	var sb strings.Builder
	for i := 0; i < 4; i++ {
		if i < n {
			fmt.Fprintf(&sb, "%s, %s;", ids[i].name, ids[i].avatar)
		} else {
			fmt.Fprintf(&sb, "Player %d;", i+1)
		}
	}
	return sb.String()
}

// enrollAll joins the four identities in order and consumes every roster
// broadcast along the way.
func enrollAll(t *testing.T, addr string, ids []identity) []*testClient {
	t.Helper()
	clients := make([]*testClient, 0, len(ids))
	for i, id := range ids {
		c := dial(t, addr)
		c.send(t, id.name+","+id.avatar)
		clients = append(clients, c)
		want := rosterLine(ids, i+1)
		for _, other := range clients {
			other.expect(t, want)
		}
	}
	return clients
}

// expectAll asserts every client receives the same frames.
func expectAll(t *testing.T, clients []*testClient, want ...string) {
	t.Helper()
	for _, c := range clients {
		c.expect(t, want...)
	}
}

// tcpPair returns both ends of a loopback TCP connection.
func tcpPair(t *testing.T) (server net.Conn, client net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- conn
	}()

	client, err = net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	server, ok := <-accepted
	require.True(t, ok)
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return server, client
}
