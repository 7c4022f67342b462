//go:build darwin

package poller

import (
	"golang.org/x/sys/unix"
)

// Kqueue is a kqueue-backed readiness poller.
type Kqueue struct {
	kqfd   int
	events []unix.Kevent_t
}

// NewPoller creates the platform poller (macOS: kqueue).
func NewPoller() (Poller, error) {
	kqfd, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}

	return &Kqueue{
		kqfd:   kqfd,
		events: make([]unix.Kevent_t, 1024),
	}, nil
}

// apply arms or disarms one filter for fd. Disarming a filter that was
// never armed reports ENOENT, which is not an error for our callers.
func (p *Kqueue) apply(fd int, filter int16, arm bool) error {
	ev := unix.Kevent_t{
		Ident:  uint64(fd),
		Filter: filter,
		// EV_CLEAR deliberately absent; registrations stay level-triggered.
		Flags: unix.EV_ADD | unix.EV_ENABLE,
	}
	if !arm {
		ev.Flags = unix.EV_DELETE
	}

	_, err := unix.Kevent(p.kqfd, []unix.Kevent_t{ev}, nil, nil)
	if !arm && err == unix.ENOENT {
		err = nil
	}
	return err
}

func (p *Kqueue) set(fd int, interest Interest) error {
	if err := p.apply(fd, unix.EVFILT_READ, interest&Read != 0); err != nil {
		return err
	}
	return p.apply(fd, unix.EVFILT_WRITE, interest&Write != 0)
}

// Add registers fd with the given interest.
func (p *Kqueue) Add(fd int, interest Interest) error {
	return p.set(fd, interest)
}

// Modify replaces the interest set of an already registered fd.
func (p *Kqueue) Modify(fd int, interest Interest) error {
	return p.set(fd, interest)
}

// Remove removes fd from the watch list.
func (p *Kqueue) Remove(fd int) error {
	return p.set(fd, 0)
}

// Wait blocks until readiness or timeout (in milliseconds; negative
// blocks indefinitely).
func (p *Kqueue) Wait(timeoutMillis int) ([]Ready, error) {
	var ts *unix.Timespec
	if timeoutMillis >= 0 {
		t := unix.NsecToTimespec(int64(timeoutMillis) * 1e6)
		ts = &t
	}

	n, err := unix.Kevent(p.kqfd, nil, p.events, ts)
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
		r := Ready{FD: int(e.Ident)}
		switch e.Filter {
		case unix.EVFILT_READ:
			r.Readable = true
		case unix.EVFILT_WRITE:
			r.Writable = true
		}
		if e.Flags&unix.EV_EOF != 0 {
			r.Readable = true
		}
		ready = append(ready, r)
	}

	return ready, nil
}

// Close releases the kqueue descriptor.
func (p *Kqueue) Close() error {
	return unix.Close(p.kqfd)
}
