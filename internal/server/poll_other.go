//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package server

import "time"

// sweepPoller is the fallback without poll(2): wait one tick, then let the
// resolver try a short read on every pending peer.
type sweepPoller struct{}

func newPoller() poller { return sweepPoller{} }

func (sweepPoller) Wait(peers []*Peer, timeout time.Duration) ([]*Peer, error) {
	for _, p := range peers {
		if p.HasFrame() {
			return peers, nil
		}
	}
	time.Sleep(timeout)
	return peers, nil
}
