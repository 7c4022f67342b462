package poller

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newPipe(t *testing.T) (rfd, wfd int) {
	t.Helper()

	fds := make([]int, 2)
	require.NoError(t, unix.Pipe(fds))
	rfd, wfd = fds[0], fds[1]
	require.NoError(t, unix.SetNonblock(rfd, true))
	require.NoError(t, unix.SetNonblock(wfd, true))
	t.Cleanup(func() {
		unix.Close(rfd)
		unix.Close(wfd)
	})
	return rfd, wfd
}

// readiness merges every entry reported for fd. Some platforms deliver
// one entry per condition.
func readiness(events []Ready, fd int) (found bool, r Ready) {
	r.FD = fd
	for _, ev := range events {
		if ev.FD == fd {
			found = true
			r.Readable = r.Readable || ev.Readable
			r.Writable = r.Writable || ev.Writable
		}
	}
	return found, r
}

func TestPollerReadReadiness(t *testing.T) {
	p, err := NewPoller()
	require.NoError(t, err)
	defer p.Close()

	rfd, wfd := newPipe(t)
	require.NoError(t, p.Add(rfd, Read))

	events, err := p.Wait(50)
	require.NoError(t, err)
	found, _ := readiness(events, rfd)
	require.False(t, found, "no data written yet")

	_, err = unix.Write(wfd, []byte("x"))
	require.NoError(t, err)

	events, err = p.Wait(1000)
	require.NoError(t, err)
	found, r := readiness(events, rfd)
	require.True(t, found)
	require.True(t, r.Readable)
}

func TestPollerLevelTriggeredUntilDrained(t *testing.T) {
	p, err := NewPoller()
	require.NoError(t, err)
	defer p.Close()

	rfd, wfd := newPipe(t)
	require.NoError(t, p.Add(rfd, Read))

	_, err = unix.Write(wfd, []byte("xyz"))
	require.NoError(t, err)

	// Undrained data keeps the fd hot across rounds.
	for i := 0; i < 2; i++ {
		events, err := p.Wait(1000)
		require.NoError(t, err)
		found, r := readiness(events, rfd)
		require.True(t, found, "round %d", i)
		require.True(t, r.Readable, "round %d", i)
	}

	buf := make([]byte, 16)
	_, err = unix.Read(rfd, buf)
	require.NoError(t, err)

	events, err := p.Wait(50)
	require.NoError(t, err)
	found, _ := readiness(events, rfd)
	require.False(t, found, "drained fd must go quiet")
}

func TestPollerWriteReadiness(t *testing.T) {
	p, err := NewPoller()
	require.NoError(t, err)
	defer p.Close()

	_, wfd := newPipe(t)
	require.NoError(t, p.Add(wfd, Write))

	events, err := p.Wait(1000)
	require.NoError(t, err)
	found, r := readiness(events, wfd)
	require.True(t, found)
	require.True(t, r.Writable, "empty pipe must accept writes")
}

func TestPollerModifySwitchesInterest(t *testing.T) {
	p, err := NewPoller()
	require.NoError(t, err)
	defer p.Close()

	_, wfd := newPipe(t)
	require.NoError(t, p.Add(wfd, Write))

	require.NoError(t, p.Modify(wfd, Read))

	// Write interest is gone; a writable-only fd reports nothing now.
	events, err := p.Wait(50)
	require.NoError(t, err)
	found, _ := readiness(events, wfd)
	require.False(t, found)
}

func TestPollerRemove(t *testing.T) {
	p, err := NewPoller()
	require.NoError(t, err)
	defer p.Close()

	rfd, wfd := newPipe(t)
	require.NoError(t, p.Add(rfd, Read))
	require.NoError(t, p.Remove(rfd))

	_, err = unix.Write(wfd, []byte("x"))
	require.NoError(t, err)

	events, err := p.Wait(50)
	require.NoError(t, err)
	found, _ := readiness(events, rfd)
	require.False(t, found, "removed fd must not report")
}

func TestPollerHangupReportsReadable(t *testing.T) {
	p, err := NewPoller()
	require.NoError(t, err)
	defer p.Close()

	rfd, wfd := newPipe(t)
	require.NoError(t, p.Add(rfd, Read))

	require.NoError(t, unix.Close(wfd))

	events, err := p.Wait(1000)
	require.NoError(t, err)
	found, r := readiness(events, rfd)
	require.True(t, found)
	require.True(t, r.Readable, "hangup surfaces as readable so the owner reads EOF")
}

// newFullSocketpair returns a connected socket whose send buffer has
// been written full, plus its peer.
func newFullSocketpair(t *testing.T) (fd, peer int) {
	t.Helper()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	fd, peer = fds[0], fds[1]
	require.NoError(t, unix.SetNonblock(fd, true))
	t.Cleanup(func() {
		unix.Close(fd)
		unix.Close(peer)
	})

	junk := make([]byte, 32<<10)
	for {
		_, err := unix.Write(fd, junk)
		if err == unix.EAGAIN {
			return fd, peer
		}
		if err == unix.EINTR {
			continue
		}
		require.NoError(t, err)
	}
}

func TestPollerWriteOnlyIgnoresPeerShutdown(t *testing.T) {
	p, err := NewPoller()
	require.NoError(t, err)
	defer p.Close()

	fd, peer := newFullSocketpair(t)
	require.NoError(t, p.Add(fd, Write))

	events, err := p.Wait(50)
	require.NoError(t, err)
	found, _ := readiness(events, fd)
	require.False(t, found, "full send buffer must not report")

	// The peer half-closes without draining. The socket still cannot
	// take a byte, so a write-only registration must stay quiet rather
	// than wake every round with nothing to do.
	require.NoError(t, unix.Shutdown(peer, unix.SHUT_WR))

	for i := 0; i < 3; i++ {
		events, err = p.Wait(50)
		require.NoError(t, err)
		found, _ = readiness(events, fd)
		require.False(t, found, "round %d", i)
	}

	_, werr := unix.Write(fd, []byte("x"))
	require.ErrorIs(t, werr, unix.EAGAIN, "socket is still write-blocked")
}
