package http

import (
	"errors"
	"net/url"
	"path"
	"strings"
)

var (
	// ErrBadTarget marks a request-target whose percent-encoding does
	// not decode.
	ErrBadTarget = errors.New("malformed request target")
	// ErrPathTraversal marks a decoded path that would climb above the
	// document root.
	ErrPathTraversal = errors.New("request path escapes document root")
)

// CleanPath turns a raw request-target into a decoded, root-relative
// path: percent-escapes are decoded, the query string and fragment are
// dropped, leading slashes are stripped and dot segments collapsed. The
// empty result addresses the document root itself. A path whose parent
// segments would climb above the root is rejected outright rather than
// resolved.
func CleanPath(target string) (string, error) {
	decoded, err := url.PathUnescape(target)
	if err != nil {
		return "", ErrBadTarget
	}

	if i := strings.IndexByte(decoded, '?'); i != -1 {
		decoded = decoded[:i]
	}
	if i := strings.IndexByte(decoded, '#'); i != -1 {
		decoded = decoded[:i]
	}

	rel := strings.TrimLeft(decoded, "/")
	if rel == "" {
		return "", nil
	}

	cleaned := path.Clean(rel)
	if cleaned == "." {
		return "", nil
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrPathTraversal
	}

	return cleaned, nil
}
