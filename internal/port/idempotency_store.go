package port

import "context"

type IdempotencyStore interface {
	// SetIdempotency records key, returns false if it already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ClearIdempotency forgets key so a failed request can be retried
	ClearIdempotency(ctx context.Context, key string) error
}
