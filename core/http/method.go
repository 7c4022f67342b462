package http

// Method is a parsed request method token.
type Method uint8

const (
	Unknown Method = iota
	GET
	HEAD
	POST
	PUT
	DELETE
	CONNECT
	OPTIONS
	TRACE
	PATCH
)

// ParseMethod maps a method token to its enum value. Tokens outside the
// known set map to Unknown; dispatch decides how those are answered.
func ParseMethod(token string) Method {
	switch len(token) {
	case 3:
		if token == "GET" {
			return GET
		}
		if token == "PUT" {
			return PUT
		}
	case 4:
		if token == "HEAD" {
			return HEAD
		}
		if token == "POST" {
			return POST
		}
	case 5:
		if token == "PATCH" {
			return PATCH
		}
		if token == "TRACE" {
			return TRACE
		}
	case 6:
		if token == "DELETE" {
			return DELETE
		}
	case 7:
		if token == "CONNECT" {
			return CONNECT
		}
		if token == "OPTIONS" {
			return OPTIONS
		}
	}

	return Unknown
}

func (m Method) String() string {
	switch m {
	case GET:
		return "GET"
	case HEAD:
		return "HEAD"
	case POST:
		return "POST"
	case PUT:
		return "PUT"
	case DELETE:
		return "DELETE"
	case CONNECT:
		return "CONNECT"
	case OPTIONS:
		return "OPTIONS"
	case TRACE:
		return "TRACE"
	case PATCH:
		return "PATCH"
	}
	return "UNKNOWN"
}
