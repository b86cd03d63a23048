package fitment

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned by stores that cannot locate a record by id.
var ErrNotFound = errors.New("fitment record not found")

// Store is the record store the synchronizer upserts into.
type Store interface {
	Find(ctx context.Context, key Key) (id string, found bool, err error)
	Insert(ctx context.Context, rec Record) (string, error)
	Update(ctx context.Context, id string, fields Fields) error
}

// Pinger is implemented by stores that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BlobStore writes raw payloads and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// Publisher pushes sync events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes payload digests.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces record and request IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// DeliveryGuard claims webhook delivery ids so repeats can be skipped.
// Release drops a claim so a retried delivery is processed again.
type DeliveryGuard interface {
	Claim(ctx context.Context, deliveryID string) (bool, error)
	Release(ctx context.Context, deliveryID string) error
}
