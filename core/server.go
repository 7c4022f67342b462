// Package core implements the worker's serving machinery: one reactor
// loop multiplexing a reuseport listener and every connection accepted
// from it over readiness events, with no goroutine per connection and
// no blocking network calls.
package core

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/biblaevnikita/dunno/core/fs"
	"github.com/biblaevnikita/dunno/core/http"
	"github.com/biblaevnikita/dunno/core/poller"
	"github.com/biblaevnikita/dunno/core/pools"
)

// Options configure a Server. Zero values fall back to the defaults
// below.
type Options struct {
	// Addr is the host:port to bind. Every worker binds the same
	// address; the kernel spreads connections across them.
	Addr string
	// DocRoot is the directory files are served from.
	DocRoot string
	// PollInterval bounds each readiness wait, which is also the
	// resolution of the idle sweep.
	PollInterval time.Duration
	// ReadTimeout is how long a connection may sit idle before its
	// request completes. Zero picks the default; negative disables the
	// sweep.
	ReadTimeout time.Duration
	// MaxHeaderBytes caps the request line plus header section.
	MaxHeaderBytes int
}

const (
	defaultPollInterval   = 5 * time.Second
	defaultReadTimeout    = 30 * time.Second
	defaultMaxHeaderBytes = 8 << 10

	// readChunkSize is the per-read scratch size; fileChunkSize is the
	// fixed slice of a file body written per step, small enough that no
	// single callback monopolizes the loop.
	readChunkSize = 4096
	fileChunkSize = 512
	headBufSize   = 512
)

// Server owns one listening socket, one poller and every connection
// accepted from them: the reactor a worker process runs. All of it is
// driven by a single goroutine inside Serve.
type Server struct {
	opts  Options
	log   *zap.Logger
	stats Stats

	resolver *fs.Resolver
	poller   poller.Poller

	ln     net.Listener
	lnFile *os.File
	lfd    int

	conns    map[int]*conn
	bufs     *pools.BytePool
	connPool sync.Pool
}

// NewServer prepares a server; Run or Listen+Serve make it live.
func NewServer(opts Options, log *zap.Logger) *Server {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = defaultReadTimeout
	}
	if opts.MaxHeaderBytes <= 0 {
		opts.MaxHeaderBytes = defaultMaxHeaderBytes
	}

	s := &Server{
		opts:     opts,
		log:      log,
		resolver: fs.NewResolver(opts.DocRoot),
		conns:    make(map[int]*conn, 64),
		bufs:     pools.NewBytePool(),
	}
	s.connPool.New = func() any { return &conn{} }
	return s
}

// Stats exposes the worker's counters.
func (s *Server) Stats() *Stats { return &s.stats }

// Addr returns the bound address. Valid once Listen has returned, which
// is how tests bind port 0 and find out what they got.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Listen binds the reuseport listening socket, switches it to
// non-blocking mode and registers it with a fresh poller.
func (s *Server) Listen() error {
	lc := net.ListenConfig{Control: controlReusePort}
	ln, err := lc.Listen(context.Background(), "tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.opts.Addr, err)
	}

	f, err := ln.(*net.TCPListener).File()
	if err != nil {
		ln.Close()
		return fmt.Errorf("dup listener: %w", err)
	}
	lfd := int(f.Fd())
	if err := unix.SetNonblock(lfd, true); err != nil {
		f.Close()
		ln.Close()
		return fmt.Errorf("set nonblock: %w", err)
	}

	p, err := poller.NewPoller()
	if err != nil {
		f.Close()
		ln.Close()
		return err
	}
	if err := p.Add(lfd, poller.Read); err != nil {
		p.Close()
		f.Close()
		ln.Close()
		return fmt.Errorf("register listener: %w", err)
	}

	s.ln = ln
	s.lnFile = f
	s.lfd = lfd
	s.poller = p
	return nil
}

// Serve runs the reactor until ctx is cancelled. Each pass waits for
// readiness with a bounded timeout, services whatever fired, then
// checks for shutdown and sweeps idle connections.
func (s *Server) Serve(ctx context.Context) error {
	defer s.teardown()

	interval := int(s.opts.PollInterval / time.Millisecond)
	for {
		if ctx.Err() != nil {
			s.log.Info("reactor stopping", zap.Int("open_conns", len(s.conns)))
			return nil
		}

		ready, err := s.poller.Wait(interval)
		if err != nil {
			return fmt.Errorf("poller wait: %w", err)
		}

		for _, ev := range ready {
			if ev.FD == s.lfd {
				s.acceptReady()
				continue
			}
			s.connEvent(ev)
		}

		s.sweepIdle(time.Now())
	}
}

// Run binds and serves.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// acceptReady drains the accept queue. EAGAIN ends the drain; transient
// accept errors are skipped, anything else is logged and left for the
// next readiness event.
func (s *Server) acceptReady() {
	for {
		nfd, sa, err := acceptConn(s.lfd)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			if err == unix.ECONNABORTED || err == unix.EINTR {
				continue
			}
			s.log.Warn("accept failed", zap.Error(err))
			return
		}

		// Writes are a short head plus 512-byte chunks; send each one
		// without waiting for a full segment.
		unix.SetsockoptInt(nfd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)

		c := newConn(s, nfd, formatPeer(sa))
		if err := s.poller.Add(nfd, poller.Read); err != nil {
			s.log.Warn("register failed", zap.Int("fd", nfd), zap.Error(err))
			c.closed = true
			c.destroy()
			continue
		}
		s.conns[nfd] = c
		s.stats.Accepted.Add(1)
		s.log.Debug("connection accepted", zap.Int("fd", nfd), zap.String("peer", c.peer))
	}
}

// connEvent services one connection's readiness under a recover
// barrier: a panic tears down that connection only, never the loop.
func (s *Server) connEvent(ev poller.Ready) {
	c, ok := s.conns[ev.FD]
	if !ok {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic servicing connection",
				zap.Int("fd", ev.FD),
				zap.String("peer", c.peer),
				zap.Any("panic", r))
			func() {
				// A second panic here would take the whole loop down
				// with it.
				defer func() { recover() }()
				c.fail(http.StatusInternalServerError)
			}()
		}
	}()

	c.handle(ev)
}

// sweepIdle tears down connections that sat in the read phase past the
// read timeout. Resolution is the poll interval.
func (s *Server) sweepIdle(now time.Time) {
	if s.opts.ReadTimeout <= 0 {
		return
	}
	for fd, c := range s.conns {
		if c.reading() && now.Sub(c.lastActive) > s.opts.ReadTimeout {
			s.stats.Timeouts.Add(1)
			s.log.Warn("read timeout",
				zap.Int("fd", fd),
				zap.String("peer", c.peer),
				zap.Duration("idle", now.Sub(c.lastActive)))
			s.closeConn(c)
		}
	}
}

// closeConn unregisters and fully releases a connection. Safe to call
// more than once per connection; only the first call acts.
func (s *Server) closeConn(c *conn) {
	if c.closed {
		return
	}
	c.closed = true
	delete(s.conns, c.fd)
	s.poller.Remove(c.fd)
	c.destroy()
}

func (s *Server) teardown() {
	for _, c := range s.conns {
		s.closeConn(c)
	}
	if s.poller != nil {
		s.poller.Close()
	}
	if s.lnFile != nil {
		s.lnFile.Close()
	}
	if s.ln != nil {
		s.ln.Close()
	}
}

// controlReusePort marks the socket shareable before bind so every
// worker process can own the same address and the kernel spreads
// accepted connections among them.
func controlReusePort(network, address string, c syscall.RawConn) error {
	var serr error
	err := c.Control(func(fd uintptr) {
		serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	})
	if err != nil {
		return err
	}
	return serr
}

func formatPeer(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return net.JoinHostPort(net.IP(a.Addr[:]).String(), strconv.Itoa(a.Port))
	case *unix.SockaddrInet6:
		return net.JoinHostPort(net.IP(a.Addr[:]).String(), strconv.Itoa(a.Port))
	default:
		return "unknown"
	}
}
