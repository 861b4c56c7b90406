//go:build integration

package docstore

import (
	"context"
	"os"
	"sync"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupFirestore connects to the Firestore emulator. Tests are skipped
// unless FIRESTORE_EMULATOR_HOST is set; the client library routes all
// traffic to the emulator automatically when it is.
func setupFirestore(t *testing.T) *Firestore {
	t.Helper()

	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set, skipping Firestore integration tests")
	}

	client, err := firestore.NewClient(context.Background(), "goalchat-test")
	require.NoError(t, err, "connecting to emulator should not fail")
	t.Cleanup(func() { _ = client.Close() })

	return NewFirestore(client)
}

// testCollection returns a unique top-level collection name so parallel
// test runs against a shared emulator cannot collide.
func testCollection() string {
	return "it" + NewDocID()
}

func TestFirestore_SetGetDelete_Integration(t *testing.T) {
	f := setupFirestore(t)
	ctx := context.Background()
	path := testCollection() + "/doc1"

	require.NoError(t, f.Set(ctx, path, map[string]any{"title": "hello", "count": 2}))

	doc, err := f.Get(ctx, path)
	require.NoError(t, err, "Get after Set should succeed")
	assert.Equal(t, "doc1", doc.ID)
	assert.Equal(t, path, doc.Path)
	assert.Equal(t, "hello", doc.Data["title"])
	assert.EqualValues(t, 2, doc.Data["count"])

	require.NoError(t, f.Delete(ctx, path))
	_, err = f.Get(ctx, path)
	assert.ErrorIs(t, err, ErrNotFound, "Get after Delete should be ErrNotFound")

	// Deleting an absent document is not an error.
	assert.NoError(t, f.Delete(ctx, path))
}

func TestFirestore_Get_Missing_Integration(t *testing.T) {
	f := setupFirestore(t)

	_, err := f.Get(context.Background(), testCollection()+"/nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFirestore_Update_Integration(t *testing.T) {
	f := setupFirestore(t)
	ctx := context.Background()
	path := testCollection() + "/doc1"

	require.NoError(t, f.Set(ctx, path, map[string]any{"title": "before", "count": 1}))
	require.NoError(t, f.Update(ctx, path, map[string]any{"count": 2}))

	doc, err := f.Get(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "before", doc.Data["title"], "untouched fields should survive the merge")
	assert.EqualValues(t, 2, doc.Data["count"])

	err = f.Update(ctx, testCollection()+"/missing", map[string]any{"count": 1})
	assert.ErrorIs(t, err, ErrNotFound, "Update of a missing document should be ErrNotFound")
}

func TestFirestore_AddAndList_Integration(t *testing.T) {
	f := setupFirestore(t)
	ctx := context.Background()
	col := testCollection() + "/parent/items"

	for _, n := range []int{3, 1, 2} {
		id, err := f.Add(ctx, col, map[string]any{"order": n})
		require.NoError(t, err)
		require.Len(t, id, 20, "Firestore generates 20-character IDs")
	}

	asc, err := f.List(ctx, col, "order", Ascending)
	require.NoError(t, err)
	require.Len(t, asc, 3)
	assert.EqualValues(t, 1, asc[0].Data["order"])
	assert.EqualValues(t, 3, asc[2].Data["order"])
	assert.Equal(t, col+"/"+asc[0].ID, asc[0].Path)

	desc, err := f.List(ctx, col, "order", Descending)
	require.NoError(t, err)
	require.Len(t, desc, 3)
	assert.EqualValues(t, 3, desc[0].Data["order"])

	empty, err := f.List(ctx, testCollection()+"/parent/items", "order", Ascending)
	require.NoError(t, err)
	assert.Empty(t, empty, "an absent collection lists as empty, not as an error")
}

func TestFirestore_RunTransaction_Integration(t *testing.T) {
	f := setupFirestore(t)
	ctx := context.Background()
	root := testCollection()
	convPath := root + "/conv"

	require.NoError(t, f.Set(ctx, convPath, map[string]any{"messageCount": int64(0)}))

	t.Run("read-create-update commits atomically", func(t *testing.T) {
		err := f.RunTransaction(ctx, func(tx Tx) error {
			doc, err := tx.Get(convPath)
			if err != nil {
				return err
			}
			if _, err := tx.Create(convPath+"/messages", map[string]any{"content": "hi"}); err != nil {
				return err
			}
			return tx.Update(convPath, map[string]any{
				"messageCount": doc.Data["messageCount"].(int64) + 1,
			})
		})
		require.NoError(t, err)

		doc, err := f.Get(ctx, convPath)
		require.NoError(t, err)
		assert.EqualValues(t, 1, doc.Data["messageCount"])

		msgs, err := f.List(ctx, convPath+"/messages", "content", Ascending)
		require.NoError(t, err)
		assert.Len(t, msgs, 1)
	})

	t.Run("callback error rolls back staged writes", func(t *testing.T) {
		wantErr := assert.AnError
		err := f.RunTransaction(ctx, func(tx Tx) error {
			if _, err := tx.Create(convPath+"/messages", map[string]any{"content": "orphan"}); err != nil {
				return err
			}
			return wantErr
		})
		require.ErrorIs(t, err, wantErr)

		msgs, err := f.List(ctx, convPath+"/messages", "content", Ascending)
		require.NoError(t, err)
		assert.Len(t, msgs, 1, "rolled-back create must not be visible")
	})

	t.Run("concurrent increments never drop", func(t *testing.T) {
		const workers = 8
		counterPath := root + "/counter"
		require.NoError(t, f.Set(ctx, counterPath, map[string]any{"n": int64(0)}))

		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- f.RunTransaction(ctx, func(tx Tx) error {
					doc, err := tx.Get(counterPath)
					if err != nil {
						return err
					}
					return tx.Update(counterPath, map[string]any{
						"n": doc.Data["n"].(int64) + 1,
					})
				})
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		doc, err := f.Get(ctx, counterPath)
		require.NoError(t, err)
		assert.EqualValues(t, workers, doc.Data["n"])
	})
}

func TestFirestore_DeleteAll_Integration(t *testing.T) {
	f := setupFirestore(t)
	ctx := context.Background()
	root := testCollection()
	convPath := root + "/conv"

	require.NoError(t, f.Set(ctx, convPath, map[string]any{"title": "doomed"}))
	paths := []string{convPath}
	for i := range 3 {
		id, err := f.Add(ctx, convPath+"/messages", map[string]any{"order": i})
		require.NoError(t, err)
		paths = append(paths, convPath+"/messages/"+id)
	}

	require.NoError(t, f.DeleteAll(ctx, paths))

	_, err := f.Get(ctx, convPath)
	assert.ErrorIs(t, err, ErrNotFound)
	msgs, err := f.List(ctx, convPath+"/messages", "order", Ascending)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
