package cart

import (
	"context"

	"github.com/noah-isme/cart-calc/internal/session"
)

const sessionKind = "cart"

// Store persists carts as session documents.
type Store struct {
	Sessions *session.Store
}

// Create saves an empty cart and returns its session id.
func (s Store) Create(ctx context.Context) (string, *Cart, error) {
	c := New()
	id, err := session.Create(ctx, s.Sessions, sessionKind, c)
	if err != nil {
		return "", nil, err
	}
	return id, c, nil
}

// Get loads the cart stored under id.
func (s Store) Get(ctx context.Context, id string) (*Cart, error) {
	return session.Load[Cart](ctx, s.Sessions, sessionKind, id)
}

// Update applies fn to the stored cart under the session lock and saves it
// unless fn fails.
func (s Store) Update(ctx context.Context, id string, fn func(*Cart) error) (*Cart, error) {
	return session.Update(ctx, s.Sessions, sessionKind, id, fn)
}

// Delete drops the cart session.
func (s Store) Delete(ctx context.Context, id string) error {
	return s.Sessions.Delete(ctx, sessionKind, id)
}
