package domain

import (
	"context"
	"io"
)

// Storage is a single bucket in an object store. Implementations overwrite
// existing keys on Upload and treat Delete of an absent key as success.
type Storage interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64) error
	Download(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, key string) error
}
