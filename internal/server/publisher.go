package server

import (
	"arena-battle/internal/spectate"
	"arena-battle/pkg/logger"
)

// Observer receives a copy of the arena after every state change.
type Observer interface {
	Observe(v spectate.View)
}

// Publisher fans messages out to every open connection in roster order.
type Publisher struct {
	peers    []*Peer
	observer Observer
	logger   *logger.Logger
}

// NewPublisher creates an empty publisher. observer may be nil.
func NewPublisher(observer Observer, log *logger.Logger) *Publisher {
	return &Publisher{observer: observer, logger: log}
}

// Add registers a connection for future broadcasts.
func (p *Publisher) Add(peer *Peer) {
	p.peers = append(p.peers, peer)
}

// Remove stops broadcasting to peer.
func (p *Publisher) Remove(peer *Peer) {
	for i, other := range p.peers {
		if other == peer {
			p.peers = append(p.peers[:i], p.peers[i+1:]...)
			return
		}
	}
}

// Broadcast sends msg to every connection and returns those whose write failed.
func (p *Publisher) Broadcast(msg []byte) []*Peer {
	var failed []*Peer
	for _, peer := range p.peers {
		if err := peer.Send(msg); err != nil {
			p.logger.Warn("broadcast to %s failed: %v", peer.ID, err)
			failed = append(failed, peer)
		}
	}
	p.logger.Debug("broadcast %q to %d peers", msg, len(p.peers))
	return failed
}

// Observe forwards a view to the observer, if one is attached.
func (p *Publisher) Observe(v spectate.View) {
	if p.observer != nil {
		p.observer.Observe(v)
	}
}

// CloseAll closes every connection and forgets them.
func (p *Publisher) CloseAll() {
	for _, peer := range p.peers {
		if err := peer.Close(); err != nil {
			p.logger.Debug("close %s: %v", peer.ID, err)
		}
	}
	p.peers = nil
}
