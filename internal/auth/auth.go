// Package auth supplies the authenticated caller's identity and provisions
// user documents on first sign-in.
//
// The OAuth flow itself lives outside this server: the login endpoint
// receives an already-verified provider profile and binds it to an opaque
// user ID — the provider's stable account ID, never the mutable subject
// claim. Identity then travels as an HMAC-signed token so it is
// tamper-evident without server-side session state.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strings"
)

// MinSecretLen is the minimum HMAC secret length in bytes.
const MinSecretLen = 32

// Sentinel errors.
var (
	// ErrTokenInvalid is returned when a token's signature does not
	// verify or its format cannot be parsed.
	ErrTokenInvalid = errors.New("auth: token invalid")

	// ErrShortSecret is returned when the signing secret is too short.
	ErrShortSecret = errors.New("auth: secret must be at least 32 bytes")
)

// userIDKey is the context key for the caller's user ID.
// Unexported struct type prevents collisions with other packages.
type userIDKey struct{}

// WithUserID returns a context carrying the authenticated user's ID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext retrieves the caller's user ID.
// Returns empty string and false for an unauthenticated context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(userIDKey{}).(string)
	return uid, ok && uid != ""
}

// Signer issues and verifies HMAC-SHA256-signed identity tokens of the
// form "uid.base64url(HMAC(secret, uid))".
type Signer struct {
	secret []byte
}

// NewSigner creates a Signer. The secret must be at least MinSecretLen
// bytes.
func NewSigner(secret []byte) (*Signer, error) {
	if len(secret) < MinSecretLen {
		return nil, ErrShortSecret
	}
	return &Signer{secret: secret}, nil
}

// Sign returns the signed token for a user ID.
func (s *Signer) Sign(userID string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(userID))
	sig := base64.URLEncoding.EncodeToString(h.Sum(nil))
	return userID + "." + sig
}

// Verify checks a token's signature and returns the embedded user ID.
func (s *Signer) Verify(token string) (string, error) {
	idx := strings.LastIndexByte(token, '.')
	if idx < 1 {
		return "", ErrTokenInvalid
	}

	uid := token[:idx]
	sig, err := base64.URLEncoding.DecodeString(token[idx+1:])
	if err != nil {
		return "", ErrTokenInvalid
	}

	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(uid))
	expected := h.Sum(nil)

	if subtle.ConstantTimeCompare(sig, expected) != 1 {
		return "", ErrTokenInvalid
	}
	return uid, nil
}
