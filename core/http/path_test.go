package http

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanPath(t *testing.T) {
	cases := []struct {
		name   string
		target string
		want   string
	}{
		{"root", "/", ""},
		{"plain file", "/index.html", "index.html"},
		{"nested", "/httptest/dir/doc.txt", "httptest/dir/doc.txt"},
		{"encoded space", "/a%20b.txt", "a b.txt"},
		{"encoded letter", "/%66ile.txt", "file.txt"},
		{"query dropped", "/file.txt?version=2", "file.txt"},
		{"fragment dropped", "/file.txt#section", "file.txt"},
		{"query and fragment", "/file.txt?a=1#b", "file.txt"},
		{"encoded question mark acts as query", "/file%3Fname", "file"},
		{"dot segment", "/sub/./pic.png", "sub/pic.png"},
		{"parent inside root", "/a/../b.txt", "b.txt"},
		{"double slashes", "//a//b.txt", "a/b.txt"},
		{"trailing slash kept as dir path", "/dir/", "dir"},
		{"lone dot", "/.", ""},
		{"collapses to root", "/a/..", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CleanPath(tc.target)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestCleanPathTraversal(t *testing.T) {
	targets := []string{
		"/..",
		"/../etc/passwd",
		"/a/../../b",
		"/..%2F..%2Fetc",
		"/a%2F..%2F..%2Fsecret",
	}

	for _, target := range targets {
		_, err := CleanPath(target)
		require.ErrorIs(t, err, ErrPathTraversal, "target %q", target)
	}
}

func TestCleanPathBadEscapes(t *testing.T) {
	for _, target := range []string{"/%", "/%z", "/%zz", "/file%2"} {
		_, err := CleanPath(target)
		require.ErrorIs(t, err, ErrBadTarget, "target %q", target)
	}
}
