package http

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMethodKnownTokens(t *testing.T) {
	known := []Method{GET, HEAD, POST, PUT, DELETE, CONNECT, OPTIONS, TRACE, PATCH}

	for _, m := range known {
		require.Equal(t, m, ParseMethod(m.String()), "token %s", m)
	}
}

func TestParseMethodRejectsOddTokens(t *testing.T) {
	for _, token := range []string{"", "get", "Get", "GETT", "G", "BREW", "HEAD "} {
		require.Equal(t, Unknown, ParseMethod(token), "token %q", token)
	}
}

func TestMethodStringUnknown(t *testing.T) {
	require.Equal(t, "UNKNOWN", Unknown.String())
	require.Equal(t, "UNKNOWN", Method(250).String())
}
