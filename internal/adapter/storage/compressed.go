package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/semmidev/cloudvault/internal/domain"
)

// Compressed stores every object compressed in the wrapped backend and
// returns the original bytes on Download. Keys are unchanged.
type Compressed struct {
	inner      domain.Storage
	compressor domain.Compressor
}

func NewCompressed(inner domain.Storage, compressor domain.Compressor) *Compressed {
	return &Compressed{inner: inner, compressor: compressor}
}

// Upload streams the body through the compressor, so the compressed size is
// unknown to the backend.
func (c *Compressed) Upload(ctx context.Context, key string, body io.Reader, size int64) error {
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(c.compressor.Compress(pw, body))
	}()

	err := c.inner.Upload(ctx, key, pr, -1)
	// Unblocks the compressor if the backend stopped reading early.
	pr.Close()
	return err
}

func (c *Compressed) Download(ctx context.Context, key string) ([]byte, error) {
	data, err := c.inner.Download(ctx, key)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := c.compressor.Decompress(&out, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("decompress %s: %w", key, err)
	}
	return out.Bytes(), nil
}

func (c *Compressed) List(ctx context.Context) ([]string, error) {
	return c.inner.List(ctx)
}

func (c *Compressed) Delete(ctx context.Context, key string) error {
	return c.inner.Delete(ctx, key)
}
