//go:build linux || darwin || freebsd || netbsd || openbsd

package server

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"
)

// fdPoller waits for readability with poll(2) on the peers' descriptors.
type fdPoller struct{}

func newPoller() poller { return fdPoller{} }

func (fdPoller) Wait(peers []*Peer, timeout time.Duration) ([]*Peer, error) {
	var (
		ready  []*Peer
		fds    = make([]unix.PollFd, 0, len(peers))
		polled = make([]*Peer, 0, len(peers))
	)
	for _, p := range peers {
		if p.HasFrame() {
			ready = append(ready, p)
			continue
		}
		fd, ok := p.fd()
		if !ok {
			// No descriptor to watch; let the resolver try a short read.
			ready = append(ready, p)
			continue
		}
		fds = append(fds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
		polled = append(polled, p)
	}

	if len(fds) == 0 {
		if len(ready) == 0 {
			time.Sleep(timeout)
		}
		return ready, nil
	}

	ms := int(timeout / time.Millisecond)
	if len(ready) > 0 {
		ms = 0
	}
	n, err := unix.Poll(fds, ms)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return ready, nil
		}
		return ready, err
	}
	if n == 0 {
		return ready, nil
	}
	for i, pfd := range fds {
		if pfd.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			ready = append(ready, polled[i])
		}
	}
	return ready, nil
}
