package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena-battle/internal/spectate"
	"arena-battle/pkg/logger"
)

func newTestServer(t *testing.T) (*spectate.Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := spectate.NewHub(ctx)
	srv := httptest.NewServer(SetupRoutes(h, logger.NewNop()))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return h, srv
}

func TestHealthz(t *testing.T) {
	_, srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestState_ReturnsLatestView(t *testing.T) {
	h, srv := newTestServer(t)
	h.Observe(spectate.View{Session: "s-1", Phase: spectate.PhasePlaying, Turn: 4})

	var body map[string]any
	require.Eventually(t, func() bool {
		resp, err := http.Get(srv.URL + "/state")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return false
		}
		body = nil
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return false
		}
		return body["turn"] == float64(4)
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "s-1", body["session"])
	assert.Equal(t, "playing", body["phase"])
	assert.Equal(t, float64(0), body["spectators"])
}

func TestState_HubStopped(t *testing.T) {
	h, srv := newTestServer(t)
	h.Inbox() <- spectate.Shutdown{}
	<-h.Done()

	resp, err := http.Get(srv.URL + "/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestStream_PushesViews(t *testing.T) {
	h, srv := newTestServer(t)
	h.Observe(spectate.View{Session: "s-1", Turn: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	readView := func() spectate.View {
		typ, data, err := conn.Read(ctx)
		require.NoError(t, err)
		require.Equal(t, websocket.MessageText, typ)
		var v spectate.View
		require.NoError(t, json.Unmarshal(data, &v))
		return v
	}

	// The current view arrives on join, before any new publish.
	first := readView()
	assert.Equal(t, "s-1", first.Session)

	h.Observe(spectate.View{Session: "s-1", Turn: 2, Phase: spectate.PhaseFinished, Outcome: "draw"})
	v := first
	for v.Turn != 2 {
		v = readView()
	}
	assert.Equal(t, "draw", v.Outcome)
}

func TestStream_ClosesWhenHubStops(t *testing.T) {
	h, srv := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	_, _, err = conn.Read(ctx)
	require.NoError(t, err)

	h.Inbox() <- spectate.Shutdown{}
	_, _, err = conn.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
}
