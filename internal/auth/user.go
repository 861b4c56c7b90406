package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goalchat/goalchat/internal/docstore"
)

// User is the profile document stored at users/{id}. It is created exactly
// once, on first successful sign-in, and never deleted by this server.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
}

const (
	fieldEmail     = "email"
	fieldName      = "name"
	fieldCreatedAt = "createdAt"
)

// EnsureUser provisions the users/{id} document if it does not already
// exist and returns the stored profile. A returning user's document is
// left untouched, so createdAt keeps its first-sign-in value.
func EnsureUser(ctx context.Context, db docstore.DB, id, email, name string) (*User, error) {
	path := "users/" + id

	doc, err := db.Get(ctx, path)
	if err == nil {
		return &User{
			ID:        id,
			Email:     asString(doc.Data[fieldEmail]),
			Name:      asString(doc.Data[fieldName]),
			CreatedAt: asString(doc.Data[fieldCreatedAt]),
		}, nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return nil, fmt.Errorf("looking up user %s: %w", id, err)
	}

	user := &User{
		ID:        id,
		Email:     email,
		Name:      name,
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err := db.Set(ctx, path, map[string]any{
		fieldEmail:     user.Email,
		fieldName:      user.Name,
		fieldCreatedAt: user.CreatedAt,
	}); err != nil {
		return nil, fmt.Errorf("provisioning user %s: %w", id, err)
	}
	return user, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
