package http

import (
	"bytes"
	"errors"
	"strings"

	"github.com/indigo-web/utils/buffer"
	"github.com/indigo-web/utils/uf"
	"golang.org/x/net/http/httpguts"
)

// State tags how far a connection has advanced through its single
// request. States only ever move forward.
type State uint8

const (
	StateStatusLine State = iota + 1
	StateHeaders
	StateBodyReady
	StateDispatched
)

func (s State) String() string {
	switch s {
	case StateStatusLine:
		return "status-line"
	case StateHeaders:
		return "headers"
	case StateBodyReady:
		return "body-ready"
	case StateDispatched:
		return "dispatched"
	}
	return "invalid"
}

// Parse failures, mapped to response codes at the dispatch boundary.
var (
	ErrBadStatusLine   = errors.New("malformed status line")
	ErrBadHeaderLine   = errors.New("malformed header line")
	ErrHeadersTooLarge = errors.New("header section exceeds limit")
)

// Parser assembles one request from arbitrarily fragmented reads. Bytes
// are fed as they arrive off the socket; the current line is buffered
// across feeds and the state advances whenever a terminator completes a
// line, so the outcome never depends on how the stream was split.
type Parser struct {
	state State
	req   *Request
	// line accumulates the status line and every header line. Its hard
	// cap is the header-section size limit.
	line *buffer.Buffer
}

// NewParser returns a parser assembling into req. maxHeaderBytes bounds
// the status line plus the entire header section.
func NewParser(req *Request, maxHeaderBytes int) *Parser {
	initial := maxHeaderBytes
	if initial > 1024 {
		initial = 1024
	}

	return &Parser{
		state: StateStatusLine,
		req:   req,
		line:  buffer.New(initial, maxHeaderBytes),
	}
}

// State returns the current state tag.
func (p *Parser) State() State {
	return p.state
}

// Feed consumes one read's worth of bytes, advancing the state machine.
// It reports done once the header terminator has been seen; any bytes
// after the terminator in the same feed are retained verbatim as body.
func (p *Parser) Feed(data []byte) (done bool, err error) {
	for len(data) > 0 {
		if p.state >= StateBodyReady {
			p.req.Body = append(p.req.Body, data...)
			return true, nil
		}

		lf := bytes.IndexByte(data, '\n')
		if lf == -1 {
			if !p.line.Append(data) {
				return false, ErrHeadersTooLarge
			}
			return false, nil
		}

		if !p.line.Append(data[:lf]) {
			return false, ErrHeadersTooLarge
		}
		line := trimCR(p.line.Finish())
		data = data[lf+1:]

		switch p.state {
		case StateStatusLine:
			if err := p.statusLine(line); err != nil {
				return false, err
			}
			p.state = StateHeaders

		case StateHeaders:
			if len(line) == 0 {
				p.state = StateBodyReady
				if len(data) > 0 {
					p.req.Body = append(p.req.Body[:0], data...)
				}
				return true, nil
			}
			if err := p.headerLine(line); err != nil {
				return false, err
			}
		}
	}

	return p.state >= StateBodyReady, nil
}

// MarkDispatched advances past BodyReady once the request is handed to
// its method handler. Like every other transition it is one-way.
func (p *Parser) MarkDispatched() {
	if p.state == StateBodyReady {
		p.state = StateDispatched
	}
}

// Reset rewinds the parser to the start state for a fresh request.
func (p *Parser) Reset(req *Request) {
	p.state = StateStatusLine
	p.req = req
	p.line.Clear()
}

// statusLine splits the first line on single spaces into exactly three
// tokens: method, request-target, protocol version. Anything else is a
// malformed request.
func (p *Parser) statusLine(line []byte) error {
	tokens := strings.Split(uf.B2S(line), " ")
	if len(tokens) != 3 {
		return ErrBadStatusLine
	}

	p.req.Method = ParseMethod(tokens[0])
	p.req.Target = strings.Clone(tokens[1])
	p.req.Proto = internProto(tokens[2])
	return nil
}

// headerLine splits on the first colon; only the value is trimmed. The
// field name and value must survive httpguts validation, which rejects
// empty and whitespace-damaged names among other oddities.
func (p *Parser) headerLine(line []byte) error {
	colon := bytes.IndexByte(line, ':')
	if colon == -1 {
		return ErrBadHeaderLine
	}

	name := uf.B2S(line[:colon])
	value := strings.TrimSpace(uf.B2S(line[colon+1:]))
	if !httpguts.ValidHeaderFieldName(name) || !httpguts.ValidHeaderFieldValue(value) {
		return ErrBadHeaderLine
	}

	p.req.Headers.Set(strings.Clone(name), strings.Clone(value))
	return nil
}

// internProto returns the canonical constant for supported versions so
// the stored token does not alias parser memory; unsupported tokens are
// copied out for the 505 path and the logs.
func internProto(token string) string {
	switch token {
	case ProtoHTTP11:
		return ProtoHTTP11
	case ProtoHTTP10:
		return ProtoHTTP10
	}
	return strings.Clone(token)
}

func trimCR(line []byte) []byte {
	if n := len(line); n > 0 && line[n-1] == '\r' {
		return line[:n-1]
	}
	return line
}
