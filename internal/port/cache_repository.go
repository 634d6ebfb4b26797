package port

import "context"

type CacheRepository interface {
	// SetIdempotency claims a key, returns false if it is already claimed
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ReleaseIdempotency drops a claim so the request can be retried
	ReleaseIdempotency(ctx context.Context, key string) error

	// StoreResult remembers the response of a completed request
	StoreResult(ctx context.Context, key string, payload []byte) error

	// GetResult returns nil if no response has been stored for key
	GetResult(ctx context.Context, key string) ([]byte, error)
}
