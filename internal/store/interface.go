package store

import (
	"context"
	"errors"

	"qbank/internal/models"
)

// ErrNotFound is returned when no document exists for an id.
var ErrNotFound = errors.New("image not found")

// ImageWriter is the write surface the importer needs.
type ImageWriter interface {
	// UpsertImage inserts the document or replaces the stored one with the same id.
	UpsertImage(ctx context.Context, doc *models.ImageDocument) error
}

// ImageStore abstracts image document backends.
type ImageStore interface {
	ImageWriter
	GetImage(ctx context.Context, id models.ID) (*models.ImageDocument, error)
	CountImages(ctx context.Context) (int64, error)
	Close() error
}

var _ ImageStore = (*Store)(nil)
