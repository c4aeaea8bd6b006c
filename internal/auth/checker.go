package auth

import (
	"context"
	"errors"
)

var ErrNotLoggedIn = errors.New("not logged in")

var _ Checker = (*LoginChecker)(nil)
var _ Checker = (*MemoryChecker)(nil)

// Checker resolves an opaque session token to the id of the logged in user.
type Checker interface {
	UserID(ctx context.Context, token string) (int, error)
}
