package blobs

import (
	"context"

	"github.com/dmitrijs2005/docvault/internal/client/models"
)

type Repository interface {
	Put(ctx context.Context, id string, buffer []byte, name, mimeType string, lastModified int64) error
	Get(ctx context.Context, id string) (*models.BlobEnvelope, error)
	Delete(ctx context.Context, id string) error
}
