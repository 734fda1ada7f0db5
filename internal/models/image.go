package models

import (
	"crypto/sha256"
	"encoding/hex"
)

// Record is one manifest entry describing an image to import.
type Record struct {
	ID   ID       `json:"id"`
	Tags []string `json:"tags"`
	Path string   `json:"path"`
}

// ImageDocument is the stored form of an imported image, keyed by ID.
type ImageDocument struct {
	ID    ID
	Tags  []string
	Image []byte
}

// NewImageDocument builds the document stored for a record.
func NewImageDocument(rec Record, image []byte) *ImageDocument {
	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}
	return &ImageDocument{ID: rec.ID, Tags: tags, Image: image}
}

// SHA256 returns the hex digest of the image payload.
func (d *ImageDocument) SHA256() string {
	sum := sha256.Sum256(d.Image)
	return hex.EncodeToString(sum[:])
}
