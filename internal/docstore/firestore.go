package docstore

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore implements DB on top of cloud.google.com/go/firestore.
type Firestore struct {
	client *firestore.Client
}

// The Firestore client is process-wide: constructed once on first Open
// and shared by every request. firestore.Client is safe for concurrent use.
var (
	openOnce     sync.Once
	sharedClient *firestore.Client
	openErr      error
)

// Open returns the shared Firestore-backed store for the given project.
// The underlying client is lazily constructed on the first call; later
// calls reuse it regardless of arguments.
func Open(ctx context.Context, projectID string, opts ...option.ClientOption) (*Firestore, error) {
	openOnce.Do(func() {
		sharedClient, openErr = firestore.NewClient(ctx, projectID, opts...)
	})
	if openErr != nil {
		return nil, fmt.Errorf("connecting to firestore: %w", openErr)
	}
	return &Firestore{client: sharedClient}, nil
}

// NewFirestore wraps an existing client. Callers that need client
// lifecycle control (emulator setups) use this instead of Open.
func NewFirestore(client *firestore.Client) *Firestore {
	return &Firestore{client: client}
}

// Close releases the underlying client connection.
func (f *Firestore) Close() error {
	if err := f.client.Close(); err != nil {
		return fmt.Errorf("closing firestore client: %w", err)
	}
	return nil
}

func (f *Firestore) Get(ctx context.Context, path string) (Doc, error) {
	if !validDocPath(path) {
		return Doc{}, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	snap, err := f.client.Doc(path).Get(ctx)
	if err != nil {
		return Doc{}, mapErr(err)
	}
	return Doc{ID: snap.Ref.ID, Path: path, Data: snap.Data()}, nil
}

func (f *Firestore) Set(ctx context.Context, path string, data map[string]any) error {
	if !validDocPath(path) {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	_, err := f.client.Doc(path).Set(ctx, data)
	return mapErr(err)
}

func (f *Firestore) Update(ctx context.Context, path string, fields map[string]any) error {
	if !validDocPath(path) {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	_, err := f.client.Doc(path).Update(ctx, toUpdates(fields))
	return mapErr(err)
}

func (f *Firestore) Delete(ctx context.Context, path string) error {
	if !validDocPath(path) {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	_, err := f.client.Doc(path).Delete(ctx)
	return mapErr(err)
}

func (f *Firestore) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	if !validCollectionPath(collection) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, collection)
	}
	ref, _, err := f.client.Collection(collection).Add(ctx, data)
	if err != nil {
		return "", mapErr(err)
	}
	return ref.ID, nil
}

func (f *Firestore) List(ctx context.Context, collection, orderBy string, dir Direction) ([]Doc, error) {
	if !validCollectionPath(collection) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, collection)
	}

	fsDir := firestore.Asc
	if dir == Descending {
		fsDir = firestore.Desc
	}

	// Firestore already breaks ordering ties by document ID, so results
	// are deterministic without a secondary OrderBy.
	iter := f.client.Collection(collection).OrderBy(orderBy, fsDir).Documents(ctx)
	defer iter.Stop()

	var docs []Doc
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, mapErr(err)
		}
		docs = append(docs, Doc{
			ID:   snap.Ref.ID,
			Path: collection + "/" + snap.Ref.ID,
			Data: snap.Data(),
		})
	}
	return docs, nil
}

func (f *Firestore) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(&firestoreTx{client: f.client, tx: tx})
	})
	return mapErr(err)
}

func (f *Firestore) DeleteAll(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	// WriteBatch commits all deletes as one atomic unit; BulkWriter does
	// not guarantee atomicity and is unsuitable here.
	batch := f.client.Batch()
	for _, p := range paths {
		if !validDocPath(p) {
			return fmt.Errorf("%w: %q", ErrInvalidPath, p)
		}
		batch.Delete(f.client.Doc(p))
	}
	_, err := batch.Commit(ctx)
	return mapErr(err)
}

// firestoreTx adapts *firestore.Transaction to the Tx interface.
type firestoreTx struct {
	client *firestore.Client
	tx     *firestore.Transaction
}

func (t *firestoreTx) Get(path string) (Doc, error) {
	if !validDocPath(path) {
		return Doc{}, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	snap, err := t.tx.Get(t.client.Doc(path))
	if err != nil {
		return Doc{}, mapErr(err)
	}
	return Doc{ID: snap.Ref.ID, Path: path, Data: snap.Data()}, nil
}

func (t *firestoreTx) Create(collection string, data map[string]any) (string, error) {
	if !validCollectionPath(collection) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, collection)
	}
	ref := t.client.Collection(collection).NewDoc()
	if err := t.tx.Create(ref, data); err != nil {
		return "", mapErr(err)
	}
	return ref.ID, nil
}

func (t *firestoreTx) Update(path string, fields map[string]any) error {
	if !validDocPath(path) {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return mapErr(t.tx.Update(t.client.Doc(path), toUpdates(fields)))
}

func toUpdates(fields map[string]any) []firestore.Update {
	updates := make([]firestore.Update, 0, len(fields))
	for k, v := range fields {
		updates = append(updates, firestore.Update{Path: k, Value: v})
	}
	return updates
}

// mapErr translates gRPC status codes into docstore sentinel errors.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return ErrNotFound
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
