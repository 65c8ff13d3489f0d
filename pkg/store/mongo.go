package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/soundpatch/patchc/pkg/errors"
)

// MongoConfig configures the MongoDB store backend.
type MongoConfig struct {
	// URI is the MongoDB connection string.
	URI string

	// Database is the database name. Defaults to "patchc".
	Database string

	// Collection is the collection name. Defaults to "patches".
	Collection string
}

// MongoStore is a MongoDB-backed Store for server deployments.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to MongoDB and verifies the connection with a ping.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.Database == "" {
		cfg.Database = "patchc"
	}
	if cfg.Collection == "" {
		cfg.Collection = "patches"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "connect to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "ping mongodb")
	}

	return &MongoStore{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// Save persists a patch, inserting or replacing by ID.
func (s *MongoStore) Save(ctx context.Context, sp StoredPatch) (StoredPatch, error) {
	now := time.Now().UTC()
	if sp.ID == "" {
		sp.ID = NewID()
		sp.CreatedAt = now
	} else if existing, err := s.Get(ctx, sp.ID); err == nil {
		sp.CreatedAt = existing.CreatedAt
	} else if sp.CreatedAt.IsZero() {
		sp.CreatedAt = now
	}
	sp.UpdatedAt = now

	opts := options.Replace().SetUpsert(true)
	if _, err := s.coll.ReplaceOne(ctx, bson.M{"_id": sp.ID}, sp, opts); err != nil {
		return StoredPatch{}, errors.Wrap(errors.ErrCodeStorage, err, "save patch %s", sp.ID)
	}
	return sp, nil
}

// Get retrieves a stored patch by ID.
func (s *MongoStore) Get(ctx context.Context, id string) (StoredPatch, error) {
	var sp StoredPatch
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&sp)
	if err == mongo.ErrNoDocuments {
		return StoredPatch{}, errors.New(errors.ErrCodePatchNotFound, "patch %s not found", id)
	}
	if err != nil {
		return StoredPatch{}, errors.Wrap(errors.ErrCodeStorage, err, "get patch %s", id)
	}
	return sp, nil
}

// List returns all stored patches, most recently updated first.
func (s *MongoStore) List(ctx context.Context) ([]StoredPatch, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list patches")
	}
	defer cur.Close(ctx)

	var out []StoredPatch
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "decode patches")
	}
	return out, nil
}

// Delete removes a stored patch.
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "delete patch %s", id)
	}
	if res.DeletedCount == 0 {
		return errors.New(errors.ErrCodePatchNotFound, "patch %s not found", id)
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
