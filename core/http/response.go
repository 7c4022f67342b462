package http

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ServerName is the fixed Server header value.
const ServerName = "DunnoServer"

const textPlainType = "text/plain; charset=utf-8"

var crlf = []byte("\r\n")

// field is one explicitly set response header.
type field struct {
	name  string
	value string
}

// Response carries everything needed to frame one reply: status line
// pieces, extra header fields, and at most one content source, either
// an in-memory body or an open file.
type Response struct {
	Proto  string
	Code   int
	Reason string

	fields []field

	// Content source. Body serves in-memory replies; File with Size
	// serves streamed files. ContentType applies to either. A response
	// without a source emits no content headers and no body.
	Body        []byte
	File        *os.File
	Size        int64
	ContentType string

	hasContent bool
}

// NewResponse frames a reply mirroring the request's protocol version.
// Unknown or absent versions fall back to HTTP/1.1.
func NewResponse(proto string, code int) *Response {
	if !ProtoSupported(proto) {
		proto = ProtoHTTP11
	}
	return &Response{Proto: proto, Code: code, Reason: ReasonPhrase(code)}
}

// NewErrorResponse frames a canned error reply carrying the generic
// "<code> <reason>" body. Detail stays in the logs, never on the wire.
func NewErrorResponse(proto string, code int) *Response {
	r := NewResponse(proto, code)
	body := make([]byte, 0, 40)
	body = strconv.AppendInt(body, int64(code), 10)
	body = append(body, ' ')
	body = append(body, r.Reason...)
	body = append(body, '\n')
	r.SetBody(textPlainType, body)
	return r
}

// SetHeader records an extra header emitted after the fixed block. A
// repeated name replaces the earlier value in place.
func (r *Response) SetHeader(name, value string) {
	for i := range r.fields {
		if strings.EqualFold(r.fields[i].name, name) {
			r.fields[i].value = value
			return
		}
	}
	r.fields = append(r.fields, field{name: name, value: value})
}

// SetBody attaches an in-memory body.
func (r *Response) SetBody(contentType string, body []byte) {
	r.Body = body
	r.File = nil
	r.Size = int64(len(body))
	r.ContentType = contentType
	r.hasContent = true
}

// SetFile attaches an open file to stream. size must come from fstat on
// that handle; it becomes the exact Content-Length.
func (r *Response) SetFile(f *os.File, size int64, contentType string) {
	r.File = f
	r.Body = nil
	r.Size = size
	r.ContentType = contentType
	r.hasContent = true
}

// HasContent reports whether a content source is attached.
func (r *Response) HasContent() bool { return r.hasContent }

// AppendHead serializes the status line and header block into dst,
// terminated by the blank line. Emission order is fixed: status line,
// Server, Date, Connection, extra fields in insertion order, then
// Content-Type and Content-Length when a source is attached.
func (r *Response) AppendHead(dst []byte, now time.Time) []byte {
	dst = append(dst, r.Proto...)
	dst = append(dst, ' ')
	dst = strconv.AppendInt(dst, int64(r.Code), 10)
	dst = append(dst, ' ')
	dst = append(dst, r.Reason...)
	dst = append(dst, crlf...)

	dst = appendField(dst, HeaderServer, ServerName)
	dst = appendDate(dst, now)
	dst = appendField(dst, HeaderConnection, "close")
	for _, f := range r.fields {
		dst = appendField(dst, f.name, f.value)
	}
	if r.hasContent {
		if r.ContentType != "" {
			dst = appendField(dst, HeaderContentType, r.ContentType)
		}
		dst = appendField(dst, HeaderContentLength, strconv.FormatInt(r.Size, 10))
	}

	return append(dst, crlf...)
}

func appendField(dst []byte, name, value string) []byte {
	dst = append(dst, name...)
	dst = append(dst, ": "...)
	dst = append(dst, value...)
	return append(dst, crlf...)
}

var (
	weekdays = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	months   = [...]string{
		"Jan", "Feb", "Mar", "Apr", "May", "Jun",
		"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
	}
)

// appendDate emits the Date header for t in RFC 1123 form, always GMT.
func appendDate(dst []byte, t time.Time) []byte {
	t = t.UTC()
	year, month, day := t.Date()
	hour, minute, second := t.Clock()

	dst = append(dst, HeaderDate...)
	dst = append(dst, ": "...)
	dst = append(dst, weekdays[t.Weekday()]...)
	dst = append(dst, ", "...)
	dst = appendPadded(dst, day)
	dst = append(dst, ' ')
	dst = append(dst, months[month-1]...)
	dst = append(dst, ' ')
	dst = strconv.AppendInt(dst, int64(year), 10)
	dst = append(dst, ' ')
	dst = appendPadded(dst, hour)
	dst = append(dst, ':')
	dst = appendPadded(dst, minute)
	dst = append(dst, ':')
	dst = appendPadded(dst, second)
	return append(dst, " GMT\r\n"...)
}

func appendPadded(dst []byte, v int) []byte {
	if v < 10 {
		dst = append(dst, '0')
	}
	return strconv.AppendInt(dst, int64(v), 10)
}
