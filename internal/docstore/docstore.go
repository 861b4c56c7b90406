// Package docstore provides access to the hierarchical document database
// backing goalchat.
//
// Documents live in nested named collections addressed by slash-separated
// paths ("users/u1/conversations/c1/messages/m1"). A path with an even
// number of segments names a document, an odd number names a collection.
//
// Two implementations exist: [Firestore] for production and [Memory] for
// tests and credential-less development. Both provide the same semantics:
// read-then-write transactions are serialized against concurrent
// transactions touching the same documents, and DeleteAll applies as a
// single atomic batch.
package docstore

import (
	"context"
	"crypto/rand"
	"errors"
	"strings"
)

// Sentinel errors returned by DB implementations.
// Callers should check them with errors.Is().
var (
	// ErrNotFound indicates the document does not exist at the given path.
	ErrNotFound = errors.New("docstore: document not found")

	// ErrUnavailable indicates the underlying store could not be reached.
	ErrUnavailable = errors.New("docstore: store unavailable")

	// ErrInvalidPath indicates a malformed document or collection path.
	ErrInvalidPath = errors.New("docstore: invalid path")
)

// Doc is a snapshot of a stored document.
type Doc struct {
	// ID is the final path segment (the document's own identifier).
	ID string

	// Path is the full slash-separated document path.
	Path string

	// Data holds the document fields at read time.
	Data map[string]any
}

// Direction controls the sort order of List results.
type Direction int

const (
	// Ascending sorts from smallest to largest field value.
	Ascending Direction = iota
	// Descending sorts from largest to smallest field value.
	Descending
)

// DB is the document database interface consumed by the repositories.
//
// All methods perform at least one network round trip on the Firestore
// implementation and honor context cancellation.
type DB interface {
	// Get reads the document at path. Returns ErrNotFound if absent.
	Get(ctx context.Context, path string) (Doc, error)

	// Set writes the full document at path, creating it if absent.
	Set(ctx context.Context, path string, data map[string]any) error

	// Update merges the given fields into an existing document.
	// Returns ErrNotFound if the document does not exist.
	Update(ctx context.Context, path string, fields map[string]any) error

	// Delete removes the document at path. Deleting an absent document
	// is not an error.
	Delete(ctx context.Context, path string) error

	// Add creates a document with a store-generated ID in the given
	// collection and returns the new ID.
	Add(ctx context.Context, collection string, data map[string]any) (string, error)

	// List reads every document in the collection ordered by the named
	// field. Ties are broken by document ID ascending, so the order is
	// deterministic within a single call. Returns an empty slice for an
	// empty or absent collection.
	List(ctx context.Context, collection, orderBy string, dir Direction) ([]Doc, error)

	// RunTransaction executes fn inside a read-then-write transaction.
	// Either every write in fn commits or none do. Concurrent
	// transactions touching the same documents are serialized.
	// All reads must happen before the first write.
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error

	// DeleteAll removes every listed document as one atomic batch.
	DeleteAll(ctx context.Context, paths []string) error
}

// Tx is the handle passed to a RunTransaction function.
type Tx interface {
	// Get reads a document inside the transaction.
	Get(path string) (Doc, error)

	// Create stages a new document with a generated ID in the given
	// collection and returns the ID immediately.
	Create(collection string, data map[string]any) (string, error)

	// Update stages a partial merge into an existing document.
	Update(path string, fields map[string]any) error
}

// docIDAlphabet matches the character set Firestore uses for
// auto-generated document IDs.
const docIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

const docIDLength = 20

// NewDocID generates a random 20-character document ID.
// Used by the memory implementation; Firestore generates its own.
func NewDocID() string {
	b := make([]byte, docIDLength)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms
		panic("docstore: rand.Read: " + err.Error())
	}
	for i := range b {
		b[i] = docIDAlphabet[int(b[i])%len(docIDAlphabet)]
	}
	return string(b)
}

// validDocPath reports whether path names a document (non-empty even
// number of non-empty segments).
func validDocPath(path string) bool {
	n, ok := segmentCount(path)
	return ok && n%2 == 0
}

// validCollectionPath reports whether path names a collection.
func validCollectionPath(path string) bool {
	n, ok := segmentCount(path)
	return ok && n%2 == 1
}

func segmentCount(path string) (int, bool) {
	if path == "" {
		return 0, false
	}
	segs := strings.Split(path, "/")
	for _, s := range segs {
		if s == "" {
			return 0, false
		}
	}
	return len(segs), true
}
