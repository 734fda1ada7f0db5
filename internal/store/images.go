package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"qbank/internal/models"
)

// UpsertImage inserts or replaces the image row keyed by (id_kind, id).
func (s *Store) UpsertImage(ctx context.Context, doc *models.ImageDocument) error {
	if doc == nil || doc.ID.IsZero() {
		return fmt.Errorf("image document id is required")
	}
	tags := doc.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	image := doc.Image
	if image == nil {
		image = []byte{}
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO images (id_kind, id, tags, image, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id_kind, id) DO UPDATE SET
  tags = excluded.tags,
  image = excluded.image,
  updated_at = excluded.updated_at`,
		string(doc.ID.Kind), doc.ID.Value, string(tagsJSON), image, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert image %s: %w", doc.ID, err)
	}
	return nil
}

// GetImage returns the stored document or ErrNotFound.
func (s *Store) GetImage(ctx context.Context, id models.ID) (*models.ImageDocument, error) {
	var (
		tagsJSON string
		image    []byte
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT tags, image FROM images WHERE id_kind = ? AND id = ?",
		string(id.Kind), id.Value,
	).Scan(&tagsJSON, &image)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	doc := &models.ImageDocument{ID: id, Tags: []string{}, Image: image}
	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &doc.Tags); err != nil {
			return nil, fmt.Errorf("decode tags for %s: %w", id, err)
		}
	}
	return doc, nil
}

// CountImages returns the number of stored documents.
func (s *Store) CountImages(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM images").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
