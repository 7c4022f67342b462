package core

import (
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/biblaevnikita/dunno/core/fs"
	"github.com/biblaevnikita/dunno/core/http"
	"github.com/biblaevnikita/dunno/core/poller"
)

// conn carries one socket through exactly one request/response cycle.
// Inbound bytes feed the parser; the outbound cursor survives partial
// writes so streaming resumes where it stopped on the next writable
// event. Nothing here blocks on the network.
type conn struct {
	srv  *Server
	fd   int
	peer string

	req    *http.Request
	parser *http.Parser

	lastActive time.Time

	// Outbound cursor. head holds the serialized header block plus any
	// in-memory body; pending holds the unwritten tail of the last file
	// chunk, aliasing chunk's backing array.
	head      []byte
	headOff   int
	pending   []byte
	pendOff   int
	file      *os.File
	remaining int64

	chunk   []byte
	scratch []byte

	status   int
	sent     int64
	writing  bool
	headOnly bool
	closed   bool
}

func newConn(s *Server, fd int, peer string) *conn {
	c := s.connPool.Get().(*conn)
	c.srv = s
	c.fd = fd
	c.peer = peer
	c.lastActive = time.Now()
	if c.req == nil {
		c.req = http.NewRequest()
		c.parser = http.NewParser(c.req, s.opts.MaxHeaderBytes)
	}
	c.scratch = s.bufs.Get(readChunkSize)
	c.chunk = s.bufs.Get(fileChunkSize)
	return c
}

// reading reports whether the connection is still waiting on request
// bytes, which is the only phase the idle sweep applies to.
func (c *conn) reading() bool { return !c.writing }

// handle services one readiness event.
func (c *conn) handle(ev poller.Ready) {
	c.lastActive = time.Now()

	if c.writing {
		// Writable resumes the cursor; readable in this phase means the
		// peer hung up and the next write will surface it.
		c.flush()
		return
	}
	if ev.Readable {
		c.readAndParse()
	}
}

// readAndParse drains the socket into the parser until the request
// completes, the kernel runs dry, the peer disconnects, or the bytes
// turn out to be garbage.
func (c *conn) readAndParse() {
	for {
		n, err := unix.Read(c.fd, c.scratch)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			if err == unix.EINTR {
				continue
			}
			c.srv.log.Debug("read failed", zap.Int("fd", c.fd), zap.Error(err))
			c.srv.stats.TornDown.Add(1)
			c.srv.closeConn(c)
			return
		}
		if n == 0 {
			// EOF before a complete request. Nothing to answer.
			c.srv.stats.TornDown.Add(1)
			c.srv.closeConn(c)
			return
		}

		done, perr := c.parser.Feed(c.scratch[:n])
		if perr != nil {
			c.srv.stats.ParseErrors.Add(1)
			c.srv.log.Warn("bad request",
				zap.Int("fd", c.fd),
				zap.String("peer", c.peer),
				zap.Error(perr))
			c.fail(http.StatusBadRequest)
			return
		}
		if done {
			c.dispatch()
			return
		}
	}
}

// dispatch routes the parsed request: version gate, method table, then
// resource resolution. Order matters; an unsupported version is
// reported before an unsupported method.
func (c *conn) dispatch() {
	c.parser.MarkDispatched()
	req := c.req
	c.headOnly = req.Method == http.HEAD

	if !http.ProtoSupported(req.Proto) {
		c.fail(http.StatusVersionNotSupported)
		return
	}

	switch req.Method {
	case http.GET, http.HEAD:
		c.serveResource()
	default:
		c.fail(http.StatusMethodNotAllowed)
	}
}

// serveResource normalizes the target, resolves it under the document
// root and frames the reply.
func (c *conn) serveResource() {
	req := c.req

	rel, err := http.CleanPath(req.Target)
	if err != nil {
		c.srv.log.Warn("rejected target",
			zap.String("peer", c.peer),
			zap.String("target", req.Target),
			zap.Error(err))
		c.fail(http.StatusBadRequest)
		return
	}
	req.Path = rel

	res, err := c.srv.resolver.Resolve(rel)
	if err != nil {
		c.srv.log.Error("resolve failed", zap.String("path", rel), zap.Error(err))
		c.fail(http.StatusInternalServerError)
		return
	}

	switch res.Kind {
	case fs.File:
		resp := http.NewResponse(req.Proto, http.StatusOK)
		resp.SetFile(res.File, res.Size, res.ContentType)
		c.start(resp)
	case fs.ListingDenied:
		c.fail(http.StatusForbidden)
	default:
		c.fail(http.StatusNotFound)
	}
}

// fail answers with a canned error reply, unless the head already hit
// the wire, in which case closing is all that remains.
func (c *conn) fail(code int) {
	if c.closed {
		return
	}
	if c.writing {
		c.srv.stats.TornDown.Add(1)
		c.srv.closeConn(c)
		return
	}
	c.start(http.NewErrorResponse(c.req.Proto, code))
}

// start frames the head and begins streaming. In-memory bodies ride in
// the same buffer as the head; file bodies stream in fixed chunks. HEAD
// keeps the exact headers and drops the body.
func (c *conn) start(resp *http.Response) {
	c.status = resp.Code

	buf := c.srv.bufs.Get(headBufSize)[:0]
	buf = resp.AppendHead(buf, time.Now())
	if !c.headOnly && len(resp.Body) > 0 {
		buf = append(buf, resp.Body...)
	}
	c.head = buf
	c.headOff = 0

	if resp.File != nil {
		if c.headOnly {
			resp.File.Close()
		} else {
			c.file = resp.File
			c.remaining = resp.Size
		}
	}

	c.writing = true
	c.flush()
}

// flush pushes head bytes, then the carried-over chunk tail, then fresh
// file chunks, until everything is out or the socket pushes back. A
// full socket arms write interest and parks the cursor; the next
// writable event lands back here.
func (c *conn) flush() {
	for {
		if c.headOff < len(c.head) {
			n, ok := c.write(c.head[c.headOff:])
			if !ok {
				return
			}
			c.headOff += n
			continue
		}

		if c.pendOff < len(c.pending) {
			n, ok := c.write(c.pending[c.pendOff:])
			if !ok {
				return
			}
			c.pendOff += n
			continue
		}

		if c.file == nil || c.remaining == 0 {
			c.finish()
			return
		}

		want := len(c.chunk)
		if int64(want) > c.remaining {
			want = int(c.remaining)
		}
		n, err := c.file.Read(c.chunk[:want])
		if n > 0 {
			c.remaining -= int64(n)
			c.pending = c.chunk[:n]
			c.pendOff = 0
			continue
		}
		// The file ended short of the advertised Content-Length. The
		// header block is already on the wire, so all we can do is cut
		// the stream.
		c.srv.log.Warn("file truncated mid-stream",
			zap.Int("fd", c.fd),
			zap.Int64("missing", c.remaining),
			zap.Error(err))
		c.srv.stats.TornDown.Add(1)
		c.srv.closeConn(c)
		return
	}
}

// write pushes p and reports how much the kernel took. A full socket
// arms write interest and reports ok=false; a dead peer closes the
// connection and also reports ok=false. Callers must return without
// touching c after ok=false.
func (c *conn) write(p []byte) (int, bool) {
	for {
		n, err := unix.Write(c.fd, p)
		if err == nil {
			c.sent += int64(n)
			return n, true
		}
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			if perr := c.srv.poller.Modify(c.fd, poller.Write); perr != nil {
				c.srv.log.Warn("rearm failed", zap.Int("fd", c.fd), zap.Error(perr))
				c.srv.stats.TornDown.Add(1)
				c.srv.closeConn(c)
			}
			return 0, false
		}
		c.srv.log.Debug("write failed", zap.Int("fd", c.fd), zap.Error(err))
		c.srv.stats.TornDown.Add(1)
		c.srv.closeConn(c)
		return 0, false
	}
}

// finish completes the cycle: log the access line, count the response,
// close. Connections never serve a second request.
func (c *conn) finish() {
	s := c.srv
	s.stats.CountResponse(c.status)
	s.log.Info("request served",
		zap.String("peer", c.peer),
		zap.String("method", c.req.Method.String()),
		zap.String("target", c.req.Target),
		zap.String("proto", c.req.Proto),
		zap.Int("status", c.status),
		zap.Int64("bytes", c.sent))
	s.closeConn(c)
}

// destroy releases everything the connection holds and returns it to
// the pool. The socket is closed here and nowhere else.
func (c *conn) destroy() {
	s := c.srv

	unix.Close(c.fd)
	if c.file != nil {
		c.file.Close()
	}
	if c.scratch != nil {
		s.bufs.Put(c.scratch)
	}
	if c.chunk != nil {
		s.bufs.Put(c.chunk)
	}
	if c.head != nil {
		s.bufs.Put(c.head)
	}

	c.reset()
	s.connPool.Put(c)
}

// reset clears per-connection state, keeping the request and parser
// allocations for the next accept.
func (c *conn) reset() {
	c.srv = nil
	c.fd = -1
	c.peer = ""
	c.req.Reset()
	c.parser.Reset(c.req)
	c.lastActive = time.Time{}
	c.head = nil
	c.headOff = 0
	c.pending = nil
	c.pendOff = 0
	c.file = nil
	c.remaining = 0
	c.chunk = nil
	c.scratch = nil
	c.status = 0
	c.sent = 0
	c.writing = false
	c.headOnly = false
	c.closed = false
}
