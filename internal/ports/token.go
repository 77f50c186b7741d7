package ports

import "context"

// TokenProvider supplies the current bearer token for gateway calls. An
// error means there is no usable session; callers abort without retrying.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}
