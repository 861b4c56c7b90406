package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goalchat/goalchat/internal/docstore"
	"github.com/goalchat/goalchat/internal/log"
)

// Store owns the lifecycle of conversations and messages.
//
// Store holds no state of its own; all persistence and concurrency control
// is delegated to the document store, so it is safe for concurrent use.
type Store struct {
	db     docstore.DB
	logger log.Logger
	now    func() time.Time
}

// New creates a Store over the given document database.
// A nil logger discards output.
func New(db docstore.DB, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{db: db, logger: logger, now: time.Now}
}

// Create persists a new conversation with zero messages.
// Validation happens before any store access: the user ID must be set and
// the title must be non-empty after trimming.
func (s *Store) Create(ctx context.Context, userID, title string) (*Conversation, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	now := Timestamp(s.now())
	conv := &Conversation{
		UserID:       userID,
		Title:        title,
		CreatedAt:    now,
		UpdatedAt:    now,
		MessageCount: 0,
	}

	id, err := s.db.Add(ctx, conversationsPath(userID), map[string]any{
		fieldUserID:       conv.UserID,
		fieldTitle:        conv.Title,
		fieldCreatedAt:    conv.CreatedAt,
		fieldUpdatedAt:    conv.UpdatedAt,
		fieldMessageCount: conv.MessageCount,
	})
	if err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}
	conv.ID = id

	s.logger.Debug("created conversation", "user_id", userID, "id", id, "title", title)
	return conv, nil
}

// Get retrieves a conversation by ID within the caller's scope.
// Returns ErrNotFound whether the conversation never existed or belongs to
// another user; the scoped path makes the two indistinguishable.
func (s *Store) Get(ctx context.Context, userID, id string) (*Conversation, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	if id == "" {
		return nil, ErrNotFound
	}

	doc, err := s.db.Get(ctx, conversationPath(userID, id))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting conversation %s: %w", id, err)
	}
	return docToConversation(doc), nil
}

// List returns all conversations owned by the user, most recently active
// first. A user with no conversations gets an empty slice, never an error.
func (s *Store) List(ctx context.Context, userID string) ([]*Conversation, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}

	docs, err := s.db.List(ctx, conversationsPath(userID), fieldUpdatedAt, docstore.Descending)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}

	convs := make([]*Conversation, 0, len(docs))
	for _, doc := range docs {
		convs = append(convs, docToConversation(doc))
	}

	s.logger.Debug("listed conversations", "user_id", userID, "count", len(convs))
	return convs, nil
}

// Messages returns the conversation's messages in chronological replay
// order. The conversation must exist; an empty transcript is an empty
// slice, not an error.
func (s *Store) Messages(ctx context.Context, userID, id string) ([]*Message, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	if id == "" {
		return nil, ErrNotFound
	}

	// Existence check first so a missing conversation surfaces as
	// ErrNotFound rather than an empty listing.
	if _, err := s.db.Get(ctx, conversationPath(userID, id)); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("checking conversation %s: %w", id, err)
	}

	docs, err := s.db.List(ctx, messagesPath(userID, id), fieldCreatedAt, docstore.Ascending)
	if err != nil {
		return nil, fmt.Errorf("listing messages for %s: %w", id, err)
	}

	msgs := make([]*Message, 0, len(docs))
	for _, doc := range docs {
		msgs = append(msgs, docToMessage(doc))
	}
	return msgs, nil
}

// Append adds a message to the conversation and bumps the parent's
// updatedAt and messageCount in the same store transaction. No reader can
// observe the new message without the count bump or vice versa; concurrent
// appends to the same conversation serialize on the transaction, so the
// counter never drops an increment.
func (s *Store) Append(ctx context.Context, userID, id string, role Role, content string) (*Message, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	if id == "" {
		return nil, ErrNotFound
	}

	now := Timestamp(s.now())
	msg := &Message{Role: role, Content: content, CreatedAt: now}

	convPath := conversationPath(userID, id)
	err := s.db.RunTransaction(ctx, func(tx docstore.Tx) error {
		conv, err := tx.Get(convPath)
		if err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}

		msgID, err := tx.Create(messagesPath(userID, id), map[string]any{
			fieldRole:      string(msg.Role),
			fieldContent:   msg.Content,
			fieldCreatedAt: msg.CreatedAt,
		})
		if err != nil {
			return err
		}
		msg.ID = msgID

		return tx.Update(convPath, map[string]any{
			fieldUpdatedAt:    now,
			fieldMessageCount: asInt(conv.Data[fieldMessageCount]) + 1,
		})
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appending message to %s: %w", id, err)
	}

	s.logger.Debug("appended message", "user_id", userID, "conversation_id", id, "role", role)
	return msg, nil
}

// Delete removes the conversation and every message it contains as one
// atomic batch. The message set is read once before the batch commits; a
// message appended concurrently after that read is not guaranteed to be
// included.
func (s *Store) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrMissingUser
	}
	if id == "" {
		return ErrNotFound
	}

	convPath := conversationPath(userID, id)
	if _, err := s.db.Get(ctx, convPath); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("checking conversation %s: %w", id, err)
	}

	msgs, err := s.db.List(ctx, messagesPath(userID, id), fieldCreatedAt, docstore.Ascending)
	if err != nil {
		return fmt.Errorf("listing messages for delete of %s: %w", id, err)
	}

	paths := make([]string, 0, len(msgs)+1)
	for _, m := range msgs {
		paths = append(paths, m.Path)
	}
	paths = append(paths, convPath)

	if err := s.db.DeleteAll(ctx, paths); err != nil {
		return fmt.Errorf("deleting conversation %s: %w", id, err)
	}

	s.logger.Debug("deleted conversation", "user_id", userID, "id", id, "messages", len(msgs))
	return nil
}

func conversationsPath(userID string) string {
	return "users/" + userID + "/conversations"
}

func conversationPath(userID, id string) string {
	return conversationsPath(userID) + "/" + id
}

func messagesPath(userID, id string) string {
	return conversationPath(userID, id) + "/messages"
}

func docToConversation(doc docstore.Doc) *Conversation {
	return &Conversation{
		ID:           doc.ID,
		UserID:       asString(doc.Data[fieldUserID]),
		Title:        asString(doc.Data[fieldTitle]),
		CreatedAt:    asString(doc.Data[fieldCreatedAt]),
		UpdatedAt:    asString(doc.Data[fieldUpdatedAt]),
		MessageCount: asInt(doc.Data[fieldMessageCount]),
	}
}

func docToMessage(doc docstore.Doc) *Message {
	return &Message{
		ID:        doc.ID,
		Role:      Role(asString(doc.Data[fieldRole])),
		Content:   asString(doc.Data[fieldContent]),
		CreatedAt: asString(doc.Data[fieldCreatedAt]),
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// asInt handles the integer types the two store backends return:
// the memory store keeps Go ints, Firestore decodes numbers as int64.
func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
