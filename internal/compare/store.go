package compare

import (
	"context"

	"github.com/noah-isme/cart-calc/internal/session"
)

const sessionKind = "compare"

// Store persists comparison sessions.
type Store struct {
	Sessions *session.Store
}

// Create saves a fresh session holding one blank draft.
func (s Store) Create(ctx context.Context) (string, *Session, error) {
	cs := NewSession()
	id, err := session.Create(ctx, s.Sessions, sessionKind, cs)
	if err != nil {
		return "", nil, err
	}
	return id, cs, nil
}

// Get loads a comparison session.
func (s Store) Get(ctx context.Context, id string) (*Session, error) {
	return session.Load[Session](ctx, s.Sessions, sessionKind, id)
}

// Update applies fn under the session lock.
func (s Store) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	return session.Update(ctx, s.Sessions, sessionKind, id, fn)
}

// Delete drops the session.
func (s Store) Delete(ctx context.Context, id string) error {
	return s.Sessions.Delete(ctx, sessionKind, id)
}
