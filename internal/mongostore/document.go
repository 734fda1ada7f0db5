package mongostore

import "qbank/internal/models"

// imageRecord is the BSON shape of a stored image: {_id, tags, image}.
// The image payload encodes as binary subtype 0.
type imageRecord struct {
	ID    any      `bson:"_id"`
	Tags  []string `bson:"tags"`
	Image []byte   `bson:"image"`
}

func newImageRecord(doc *models.ImageDocument) imageRecord {
	tags := doc.Tags
	if tags == nil {
		tags = []string{}
	}
	image := doc.Image
	if image == nil {
		image = []byte{}
	}
	return imageRecord{ID: doc.ID.Native(), Tags: tags, Image: image}
}

func (r imageRecord) toModel() (*models.ImageDocument, error) {
	id, err := models.IDFromValue(r.ID)
	if err != nil {
		return nil, err
	}
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return &models.ImageDocument{ID: id, Tags: tags, Image: r.Image}, nil
}
