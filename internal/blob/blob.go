// Package blob defines the image storage port. The aggregation layer only
// ever reads back the URL string stored on the customer record.
package blob

import (
	"context"
	"io"
	"path"

	"github.com/google/uuid"
)

type Store interface {
	// Save writes the object and returns a durable, retrievable URL.
	Save(ctx context.Context, key, contentType string, r io.Reader) (url string, err error)
}

// CustomerImageKey generates the object key for an uploaded customer image,
// preserving the original file extension.
func CustomerImageKey(originalName string) string {
	return "Customer/" + uuid.NewString() + path.Ext(originalName)
}
