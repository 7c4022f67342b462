package http

import "strings"

// Header names emitted or consulted by the server.
const (
	HeaderServer        = "Server"
	HeaderDate          = "Date"
	HeaderConnection    = "Connection"
	HeaderContentType   = "Content-Type"
	HeaderContentLength = "Content-Length"
)

// Headers holds request header fields keyed by lowercased name, so
// lookups are case-insensitive and a repeated name keeps only the last
// value seen.
type Headers map[string]string

// Set stores value under name, replacing any earlier value.
func (h Headers) Set(name, value string) {
	h[strings.ToLower(name)] = value
}

// Get returns the value stored for name, or "".
func (h Headers) Get(name string) string {
	return h[strings.ToLower(name)]
}

// Request is one parsed HTTP request.
type Request struct {
	Method Method
	// Target is the raw request-target as received; Path is its decoded
	// root-relative form, filled in at dispatch.
	Target  string
	Path    string
	Proto   string
	Headers Headers
	Body    []byte
}

// NewRequest returns an empty request ready for parsing.
func NewRequest() *Request {
	return &Request{Headers: make(Headers, 8)}
}

// Reset clears the request for reuse, keeping allocated capacity.
func (r *Request) Reset() {
	r.Method = Unknown
	r.Target = ""
	r.Path = ""
	r.Proto = ""
	for k := range r.Headers {
		delete(r.Headers, k)
	}
	r.Body = r.Body[:0]
}
