package docstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	t.Run("get missing document returns ErrNotFound", func(t *testing.T) {
		_, err := m.Get(ctx, "users/u1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("set then get round-trips", func(t *testing.T) {
		require.NoError(t, m.Set(ctx, "users/u1", map[string]any{"email": "a@example.com"}))

		doc, err := m.Get(ctx, "users/u1")
		require.NoError(t, err)
		assert.Equal(t, "u1", doc.ID)
		assert.Equal(t, "a@example.com", doc.Data["email"])
	})

	t.Run("returned data is a copy", func(t *testing.T) {
		doc, err := m.Get(ctx, "users/u1")
		require.NoError(t, err)
		doc.Data["email"] = "tampered"

		again, err := m.Get(ctx, "users/u1")
		require.NoError(t, err)
		assert.Equal(t, "a@example.com", again.Data["email"])
	})

	t.Run("invalid paths rejected", func(t *testing.T) {
		_, err := m.Get(ctx, "users")
		assert.ErrorIs(t, err, ErrInvalidPath)

		err = m.Set(ctx, "users//u1", nil)
		assert.ErrorIs(t, err, ErrInvalidPath)
	})
}

func TestMemory_Update(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	t.Run("update missing document returns ErrNotFound", func(t *testing.T) {
		err := m.Update(ctx, "users/u1", map[string]any{"name": "x"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("update merges fields", func(t *testing.T) {
		require.NoError(t, m.Set(ctx, "users/u1", map[string]any{"email": "a@example.com", "name": "A"}))
		require.NoError(t, m.Update(ctx, "users/u1", map[string]any{"name": "B"}))

		doc, err := m.Get(ctx, "users/u1")
		require.NoError(t, err)
		assert.Equal(t, "a@example.com", doc.Data["email"])
		assert.Equal(t, "B", doc.Data["name"])
	})
}

func TestMemory_Add(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	id, err := m.Add(ctx, "users/u1/conversations", map[string]any{"title": "t"})
	require.NoError(t, err)
	assert.Len(t, id, 20)

	doc, err := m.Get(ctx, "users/u1/conversations/"+id)
	require.NoError(t, err)
	assert.Equal(t, "t", doc.Data["title"])
}

func TestMemory_List(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "users/u1/conversations/c2", map[string]any{"updatedAt": "2026-01-02T00:00:00Z"}))
	require.NoError(t, m.Set(ctx, "users/u1/conversations/c1", map[string]any{"updatedAt": "2026-01-03T00:00:00Z"}))
	require.NoError(t, m.Set(ctx, "users/u1/conversations/c3", map[string]any{"updatedAt": "2026-01-01T00:00:00Z"}))
	// A nested document must not leak into the parent collection listing.
	require.NoError(t, m.Set(ctx, "users/u1/conversations/c1/messages/m1", map[string]any{"createdAt": "2026-01-01T00:00:00Z"}))

	t.Run("descending order", func(t *testing.T) {
		docs, err := m.List(ctx, "users/u1/conversations", "updatedAt", Descending)
		require.NoError(t, err)
		require.Len(t, docs, 3)
		assert.Equal(t, []string{"c1", "c2", "c3"}, []string{docs[0].ID, docs[1].ID, docs[2].ID})
	})

	t.Run("ascending order", func(t *testing.T) {
		docs, err := m.List(ctx, "users/u1/conversations", "updatedAt", Ascending)
		require.NoError(t, err)
		require.Len(t, docs, 3)
		assert.Equal(t, "c3", docs[0].ID)
	})

	t.Run("ties broken by document ID", func(t *testing.T) {
		tied := NewMemory()
		require.NoError(t, tied.Set(ctx, "c/b", map[string]any{"ts": "same"}))
		require.NoError(t, tied.Set(ctx, "c/a", map[string]any{"ts": "same"}))

		docs, err := tied.List(ctx, "c", "ts", Ascending)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, []string{docs[0].ID, docs[1].ID})
	})

	t.Run("empty collection returns empty slice", func(t *testing.T) {
		docs, err := m.List(ctx, "users/u2/conversations", "updatedAt", Descending)
		require.NoError(t, err)
		assert.Empty(t, docs)
	})
}

func TestMemory_RunTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("writes apply on success", func(t *testing.T) {
		m := NewMemory()
		require.NoError(t, m.Set(ctx, "users/u1/conversations/c1", map[string]any{"messageCount": 0}))

		var msgID string
		err := m.RunTransaction(ctx, func(tx Tx) error {
			doc, err := tx.Get("users/u1/conversations/c1")
			if err != nil {
				return err
			}
			msgID, err = tx.Create("users/u1/conversations/c1/messages", map[string]any{"content": "hi"})
			if err != nil {
				return err
			}
			count, _ := doc.Data["messageCount"].(int)
			return tx.Update("users/u1/conversations/c1", map[string]any{"messageCount": count + 1})
		})
		require.NoError(t, err)

		conv, err := m.Get(ctx, "users/u1/conversations/c1")
		require.NoError(t, err)
		assert.Equal(t, 1, conv.Data["messageCount"])

		_, err = m.Get(ctx, "users/u1/conversations/c1/messages/"+msgID)
		assert.NoError(t, err)
	})

	t.Run("writes discarded on error", func(t *testing.T) {
		m := NewMemory()
		require.NoError(t, m.Set(ctx, "users/u1/conversations/c1", map[string]any{"messageCount": 0}))

		boom := errors.New("boom")
		err := m.RunTransaction(ctx, func(tx Tx) error {
			if _, err := tx.Create("users/u1/conversations/c1/messages", map[string]any{"content": "hi"}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		docs, err := m.List(ctx, "users/u1/conversations/c1/messages", "createdAt", Ascending)
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("canceled context is surfaced as unavailable", func(t *testing.T) {
		m := NewMemory()
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		err := m.RunTransaction(canceled, func(tx Tx) error { return nil })
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("concurrent counter increments serialize", func(t *testing.T) {
		m := NewMemory()
		require.NoError(t, m.Set(ctx, "counters/c", map[string]any{"n": 0}))

		const workers = 32
		var wg sync.WaitGroup
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = m.RunTransaction(ctx, func(tx Tx) error {
					doc, err := tx.Get("counters/c")
					if err != nil {
						return err
					}
					n, _ := doc.Data["n"].(int)
					return tx.Update("counters/c", map[string]any{"n": n + 1})
				})
			}()
		}
		wg.Wait()

		doc, err := m.Get(ctx, "counters/c")
		require.NoError(t, err)
		assert.Equal(t, workers, doc.Data["n"])
	})
}

func TestMemory_DeleteAll(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "users/u1/conversations/c1", map[string]any{"title": "t"}))
	require.NoError(t, m.Set(ctx, "users/u1/conversations/c1/messages/m1", map[string]any{"content": "a"}))
	require.NoError(t, m.Set(ctx, "users/u1/conversations/c1/messages/m2", map[string]any{"content": "b"}))

	err := m.DeleteAll(ctx, []string{
		"users/u1/conversations/c1/messages/m1",
		"users/u1/conversations/c1/messages/m2",
		"users/u1/conversations/c1",
	})
	require.NoError(t, err)
	assert.Zero(t, m.Len())

	t.Run("invalid path rejects whole batch", func(t *testing.T) {
		require.NoError(t, m.Set(ctx, "users/u1/conversations/c2", map[string]any{"title": "t"}))
		err := m.DeleteAll(ctx, []string{"users/u1/conversations/c2", "bad"})
		assert.ErrorIs(t, err, ErrInvalidPath)

		_, err = m.Get(ctx, "users/u1/conversations/c2")
		assert.NoError(t, err, "batch with invalid member must not partially apply")
	})
}

func TestNewDocID(t *testing.T) {
	seen := make(map[string]struct{})
	for range 100 {
		id := NewDocID()
		assert.Len(t, id, 20)
		_, dup := seen[id]
		assert.False(t, dup, "generated IDs must not repeat")
		seen[id] = struct{}{}
	}
}
