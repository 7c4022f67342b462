package http

import "strconv"

// Status codes produced by the server.
const (
	StatusOK                  = 200
	StatusBadRequest          = 400
	StatusForbidden           = 403
	StatusNotFound            = 404
	StatusMethodNotAllowed    = 405
	StatusInternalServerError = 500
	StatusVersionNotSupported = 505
)

// reasonPhrases is the fixed code-to-phrase table used whenever a
// response does not carry an explicit reason.
var reasonPhrases = map[int]string{
	StatusOK:                  "OK",
	StatusBadRequest:          "Bad Request",
	StatusForbidden:           "Forbidden",
	StatusNotFound:            "Not Found",
	StatusMethodNotAllowed:    "Method Not Allowed",
	StatusInternalServerError: "Internal Server Error",
	StatusVersionNotSupported: "HTTP Version Not Supported",
}

// ReasonPhrase returns the default reason phrase for code. Codes outside
// the table come back as their decimal form so a status line is never
// left without a third token.
func ReasonPhrase(code int) string {
	if phrase, ok := reasonPhrases[code]; ok {
		return phrase
	}
	return strconv.Itoa(code)
}

// Protocol version tokens the server accepts.
const (
	ProtoHTTP10 = "HTTP/1.0"
	ProtoHTTP11 = "HTTP/1.1"
)

// ProtoSupported reports whether the version token belongs to the
// supported set.
func ProtoSupported(proto string) bool {
	return proto == ProtoHTTP10 || proto == ProtoHTTP11
}
