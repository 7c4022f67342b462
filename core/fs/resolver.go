// Package fs maps request paths onto the document root and classifies
// what it finds there.
package fs

import (
	"os"
	"path/filepath"
)

// Kind discriminates resolution outcomes.
type Kind uint8

const (
	// File is a servable regular file.
	File Kind = iota + 1
	// ListingDenied is a directory with no index document. Listings are
	// refused by policy, which is distinct from the path not existing.
	ListingDenied
	// NotFound covers everything else: missing paths, special files,
	// unreadable entries.
	NotFound
)

// IndexFile is the document a directory path resolves through.
const IndexFile = "index.html"

// Resource is the outcome of resolving one request path. For Kind ==
// File the handle is open and positioned at the start; the caller owns
// closing it. Size is taken by fstat on the open handle, so the
// advertised length matches what the handle can deliver.
type Resource struct {
	Kind        Kind
	File        *os.File
	Size        int64
	ContentType string
}

// Resolver maps decoded, root-relative request paths onto a document
// root.
type Resolver struct {
	root string
}

// NewResolver returns a resolver rooted at the given directory. The
// path is not validated here; configuration checks it exists before a
// server starts.
func NewResolver(root string) *Resolver {
	return &Resolver{root: root}
}

// Root returns the document root the resolver serves from.
func (rv *Resolver) Root() string { return rv.root }

// Resolve maps relPath, already decoded and checked against traversal,
// to a servable resource. Directories resolve through their index
// document; a directory without one is a deliberate listing denial. A
// non-nil error means the resource was found but could not be prepared
// and the request cannot be answered with a lookup status.
func (rv *Resolver) Resolve(relPath string) (Resource, error) {
	full := filepath.Join(rv.root, filepath.FromSlash(relPath))

	info, err := os.Stat(full)
	if err != nil {
		return Resource{Kind: NotFound}, nil
	}

	if info.IsDir() {
		full = filepath.Join(full, IndexFile)
		info, err = os.Stat(full)
		if err != nil || !info.Mode().IsRegular() {
			return Resource{Kind: ListingDenied}, nil
		}
	} else if !info.Mode().IsRegular() {
		return Resource{Kind: NotFound}, nil
	}

	f, err := os.Open(full)
	if err != nil {
		// Vanished or unreadable between stat and open. Both collapse
		// to a lookup miss, keeping 403 reserved for denied listings.
		return Resource{Kind: NotFound}, nil
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return Resource{}, err
	}

	return Resource{
		Kind:        File,
		File:        f,
		Size:        st.Size(),
		ContentType: TypeByExtension(full),
	}, nil
}
