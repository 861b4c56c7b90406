// Package conversation provides persistence for per-user conversations and
// their messages over the document store.
//
// Documents are laid out as a strict containment hierarchy:
//
//	users/{userId}/conversations/{conversationId}/messages/{messageId}
//
// A conversation is scoped under exactly one user, so cross-user access is
// structurally impossible: a caller with the wrong user ID simply finds no
// document. Every conversation carries a denormalized messageCount kept
// consistent with its messages sub-collection by [Store.Append]'s
// transaction.
package conversation

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors. Check with errors.Is().
var (
	// ErrNotFound indicates the conversation does not exist under the
	// caller's scope.
	ErrNotFound = errors.New("conversation not found")

	// ErrValidation is the parent of all input validation failures.
	ErrValidation = errors.New("invalid input")
)

// Specific validation failures. All match ErrValidation via errors.Is().
var (
	ErrMissingUser  = fmt.Errorf("%w: user ID required", ErrValidation)
	ErrEmptyTitle   = fmt.Errorf("%w: title must not be empty", ErrValidation)
	ErrInvalidRole  = fmt.Errorf("%w: role must be user, model, or system", ErrValidation)
	ErrEmptyContent = fmt.Errorf("%w: content must not be empty", ErrValidation)
)

// Role identifies the sender of a message.
type Role string

// Valid message roles.
const (
	RoleUser   Role = "user"
	RoleModel  Role = "model"
	RoleSystem Role = "system"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModel, RoleSystem:
		return true
	}
	return false
}

// Conversation is a chat thread owned by a single user.
//
// MessageCount always equals the number of documents in the messages
// sub-collection; timestamps are ISO-8601 strings so the wire format stays
// stable across store backends.
type Conversation struct {
	ID           string `json:"id"`
	UserID       string `json:"userId"`
	Title        string `json:"title"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
	MessageCount int    `json:"messageCount"`
}

// Message is a single immutable chat message. There is no update or edit
// operation; messages only ever get created and cascade-deleted.
type Message struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

// Document field names.
const (
	fieldUserID       = "userId"
	fieldTitle        = "title"
	fieldCreatedAt    = "createdAt"
	fieldUpdatedAt    = "updatedAt"
	fieldMessageCount = "messageCount"
	fieldRole         = "role"
	fieldContent      = "content"
)

// Timestamp formats a store timestamp: RFC 3339 UTC with sub-second
// precision, which is also valid ISO-8601.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
