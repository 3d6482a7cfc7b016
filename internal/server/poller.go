package server

import "time"

// poller reports which peers have input waiting. Wait blocks for at most
// timeout and returns a subset of peers; order is not significant.
type poller interface {
	Wait(peers []*Peer, timeout time.Duration) ([]*Peer, error)
}
