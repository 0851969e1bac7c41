// Package storage uploads post images to a blob store and returns their public URLs.
package storage

import (
	"context"
	"io"
)

// ImageStore persists an image and returns a durable URL for it.
type ImageStore interface {
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
}
