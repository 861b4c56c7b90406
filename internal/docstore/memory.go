package docstore

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-memory DB used by tests and by development mode when no
// Firestore project is configured.
//
// A single mutex guards all state. RunTransaction holds it for the whole
// callback, which serializes concurrent transactions — the same guarantee
// Firestore provides through optimistic retry, reached the blunt way.
type Memory struct {
	mu   sync.Mutex
	docs map[string]map[string]any
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]map[string]any)}
}

func (m *Memory) Get(ctx context.Context, path string) (Doc, error) {
	if !validDocPath(path) {
		return Doc{}, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(path)
}

func (m *Memory) getLocked(path string) (Doc, error) {
	data, ok := m.docs[path]
	if !ok {
		return Doc{}, ErrNotFound
	}
	return Doc{ID: docID(path), Path: path, Data: maps.Clone(data)}, nil
}

func (m *Memory) Set(ctx context.Context, path string, data map[string]any) error {
	if !validDocPath(path) {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[path] = maps.Clone(data)
	return nil
}

func (m *Memory) Update(ctx context.Context, path string, fields map[string]any) error {
	if !validDocPath(path) {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[path]
	if !ok {
		return ErrNotFound
	}
	maps.Copy(doc, fields)
	return nil
}

func (m *Memory) Delete(ctx context.Context, path string) error {
	if !validDocPath(path) {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, path)
	return nil
}

func (m *Memory) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	if !validCollectionPath(collection) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, collection)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := NewDocID()
	m.docs[collection+"/"+id] = maps.Clone(data)
	return id, nil
}

func (m *Memory) List(ctx context.Context, collection, orderBy string, dir Direction) ([]Doc, error) {
	if !validCollectionPath(collection) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, collection)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listLocked(collection, orderBy, dir), nil
}

func (m *Memory) listLocked(collection, orderBy string, dir Direction) []Doc {
	prefix := collection + "/"
	var docs []Doc
	for path, data := range m.docs {
		rest, ok := strings.CutPrefix(path, prefix)
		if !ok || strings.Contains(rest, "/") {
			continue
		}
		docs = append(docs, Doc{ID: rest, Path: path, Data: maps.Clone(data)})
	}

	// Order by the named field, ID as tiebreak: deterministic within a
	// single call, matching Firestore's implicit __name__ ordering.
	sort.Slice(docs, func(i, j int) bool {
		c := compareValues(docs[i].Data[orderBy], docs[j].Data[orderBy])
		if c == 0 {
			c = strings.Compare(docs[i].ID, docs[j].ID)
		}
		if dir == Descending {
			return c > 0
		}
		return c < 0
	})
	return docs
}

// RunTransaction executes fn while holding the store lock. Writes staged
// through the Tx handle apply only if fn returns nil.
//
// fn must use the Tx handle exclusively; calling DB methods on the Memory
// store inside fn deadlocks.
func (m *Memory) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{m: m}
	if err := fn(tx); err != nil {
		return err
	}
	for _, apply := range tx.writes {
		apply()
	}
	return nil
}

func (m *Memory) DeleteAll(ctx context.Context, paths []string) error {
	for _, p := range paths {
		if !validDocPath(p) {
			return fmt.Errorf("%w: %q", ErrInvalidPath, p)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range paths {
		delete(m.docs, p)
	}
	return nil
}

// Len reports the number of stored documents. Test helper.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

// memoryTx stages writes until the transaction function returns nil.
// Reads see the committed state; the store lock is held throughout, so no
// other writer can interleave.
type memoryTx struct {
	m      *Memory
	writes []func()
}

func (t *memoryTx) Get(path string) (Doc, error) {
	if !validDocPath(path) {
		return Doc{}, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return t.m.getLocked(path)
}

func (t *memoryTx) Create(collection string, data map[string]any) (string, error) {
	if !validCollectionPath(collection) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, collection)
	}
	id := NewDocID()
	path := collection + "/" + id
	staged := maps.Clone(data)
	t.writes = append(t.writes, func() {
		t.m.docs[path] = staged
	})
	return id, nil
}

func (t *memoryTx) Update(path string, fields map[string]any) error {
	if !validDocPath(path) {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	if _, ok := t.m.docs[path]; !ok {
		return ErrNotFound
	}
	staged := maps.Clone(fields)
	t.writes = append(t.writes, func() {
		maps.Copy(t.m.docs[path], staged)
	})
	return nil
}

func docID(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// compareValues orders field values of the types the repositories store:
// strings (ISO-8601 timestamps, titles) and integers (counters).
func compareValues(a, b any) int {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case int, int64, float64:
		af, aok := toFloat(a)
		bf, bok := toFloat(b)
		if aok && bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	// Mixed or absent values: fall back to nil-first ordering.
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
