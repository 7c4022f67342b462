//go:build linux

package poller

import (
	"golang.org/x/sys/unix"
)

// Epoll is an epoll-backed readiness poller.
type Epoll struct {
	epfd   int
	events []unix.EpollEvent
}

// NewPoller creates the platform poller (Linux: epoll).
func NewPoller() (Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}

	return &Epoll{
		epfd:   epfd,
		events: make([]unix.EpollEvent, 1024),
	}, nil
}

// Read interest also arms EPOLLRDHUP so a peer shutdown wakes the read
// path. Write-only registrations leave it out; a parked writer learns
// of a dead peer from its write error instead.
func epollMask(interest Interest) uint32 {
	var ev uint32
	if interest&Read != 0 {
		ev |= uint32(unix.EPOLLIN | unix.EPOLLRDHUP)
	}
	if interest&Write != 0 {
		ev |= uint32(unix.EPOLLOUT)
	}
	return ev
}

// Add registers fd with the given interest. Level-triggered.
func (p *Epoll) Add(fd int, interest Interest) error {
	ev := unix.EpollEvent{Events: epollMask(interest), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

// Modify replaces the interest set of an already registered fd.
func (p *Epoll) Modify(fd int, interest Interest) error {
	ev := unix.EpollEvent{Events: epollMask(interest), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

// Remove removes fd from the watch list.
func (p *Epoll) Remove(fd int) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// Wait blocks until readiness or timeout (in milliseconds; negative
// blocks indefinitely). An interrupted wait reports no events instead
// of an error so the caller's loop proceeds to its bookkeeping pass.
func (p *Epoll) Wait(timeoutMillis int) ([]Ready, error) {
	n, err := unix.EpollWait(p.epfd, p.events, timeoutMillis)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}

	if n <= 0 {
		return nil, nil
	}

	ready := make([]Ready, 0, n)
	for i := 0; i < n; i++ {
		e := p.events[i]
		ready = append(ready, Ready{
			FD:       int(e.Fd),
			Readable: e.Events&uint32(unix.EPOLLIN|unix.EPOLLRDHUP|unix.EPOLLHUP|unix.EPOLLERR) != 0,
			Writable: e.Events&uint32(unix.EPOLLOUT) != 0,
		})
	}

	return ready, nil
}

// Close releases the epoll descriptor.
func (p *Epoll) Close() error {
	return unix.Close(p.epfd)
}
