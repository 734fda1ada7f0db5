// Package mongostore persists image documents in a MongoDB collection.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"qbank/internal/models"
	"qbank/internal/store"
)

const defaultTimeout = 10 * time.Second

// ErrUnavailable wraps connection failures detected while opening the store.
var ErrUnavailable = errors.New("mongo server unavailable")

// Options configures the MongoDB connection.
type Options struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

// Store upserts image documents into one collection.
type Store struct {
	client  *mongo.Client
	coll    *mongo.Collection
	timeout time.Duration
}

var _ store.ImageStore = (*Store)(nil)

// Open connects to MongoDB and verifies the server is reachable.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if strings.TrimSpace(opts.URI) == "" {
		return nil, errors.New("mongo uri is required")
	}
	if strings.TrimSpace(opts.Database) == "" || strings.TrimSpace(opts.Collection) == "" {
		return nil, errors.New("mongo database and collection are required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)
	client, err := mongo.Connect(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w: %w", ErrUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w: %w", ErrUnavailable, err)
	}

	return &Store{
		client:  client,
		coll:    client.Database(opts.Database).Collection(opts.Collection),
		timeout: timeout,
	}, nil
}

// UpsertImage applies {$set: doc} to the document with the same _id,
// inserting it when absent.
func (s *Store) UpsertImage(ctx context.Context, doc *models.ImageDocument) error {
	if doc == nil || doc.ID.IsZero() {
		return errors.New("image document id is required")
	}
	rec := newImageRecord(doc)
	filter := bson.D{{Key: "_id", Value: rec.ID}}
	update := bson.D{{Key: "$set", Value: rec}}
	if _, err := s.coll.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true)); err != nil {
		return fmt.Errorf("upsert image %s: %w", doc.ID, err)
	}
	return nil
}

// GetImage returns the stored document or store.ErrNotFound.
func (s *Store) GetImage(ctx context.Context, id models.ID) (*models.ImageDocument, error) {
	var rec imageRecord
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id.Native()}}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec.toModel()
}

// CountImages returns the number of documents in the collection.
func (s *Store) CountImages(ctx context.Context) (int64, error) {
	return s.coll.CountDocuments(ctx, bson.D{})
}

// Close disconnects the client.
func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
