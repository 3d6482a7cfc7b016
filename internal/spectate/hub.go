package spectate

import (
	"context"
)

// Msg is any message the hub accepts on its inbox.
type Msg interface{ isHubMsg() }

// Join subscribes Outbox to every published view. The current view is sent
// immediately.
type Join struct {
	ClientID string
	Outbox   chan View
}

// Leave unsubscribes a client and closes its outbox.
type Leave struct{ ClientID string }

// Publish replaces the current view and fans it out.
type Publish struct{ View View }

// GetState replies with the latest view and subscriber count.
type GetState struct {
	Reply chan State
}

// Shutdown stops the hub and closes every outbox.
type Shutdown struct{}

func (Join) isHubMsg()     {}
func (Leave) isHubMsg()    {}
func (Publish) isHubMsg()  {}
func (GetState) isHubMsg() {}
func (Shutdown) isHubMsg() {}

type State struct {
	View       View
	NumClients int
}

// Hub owns the subscriber set on its own goroutine.
type Hub struct {
	inbox   chan Msg
	current View
	clients map[string]chan View
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewHub starts a hub that stops when parent is canceled.
func NewHub(parent context.Context) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan Msg, 64),
		clients: make(map[string]chan View),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go h.loop()
	return h
}

// Inbox exposes the message channel to the HTTP layer and tests.
func (h *Hub) Inbox() chan<- Msg { return h.inbox }

// Done is closed once the hub has stopped.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Observe publishes v. Intermediate views are dropped when the inbox is
// full; the finished view waits for room until the hub stops.
func (h *Hub) Observe(v View) {
	msg := Publish{View: v}
	if v.Phase == PhaseFinished {
		select {
		case h.inbox <- msg:
		case <-h.ctx.Done():
		}
		return
	}
	select {
	case h.inbox <- msg:
	case <-h.ctx.Done():
	default:
	}
}

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Join:
				h.clients[msg.ClientID] = msg.Outbox
				select {
				case msg.Outbox <- h.current:
				default:
				}

			case Leave:
				if ch, ok := h.clients[msg.ClientID]; ok {
					close(ch)
					delete(h.clients, msg.ClientID)
				}

			case Publish:
				h.current = msg.View
				h.broadcast(msg.View)

			case GetState:
				msg.Reply <- State{View: h.current, NumClients: len(h.clients)}

			case Shutdown:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) broadcast(v View) {
	for id, ch := range h.clients {
		select {
		case ch <- v:
		default:
			// Slow spectator; drop it.
			close(ch)
			delete(h.clients, id)
		}
	}
}

func (h *Hub) shutdown() {
	for id, ch := range h.clients {
		close(ch)
		delete(h.clients, id)
	}
	h.cancel()
}
