package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig contains connection settings for the MongoDB world repository.
type MongoConfig struct {
	URI        string // e.g. mongodb://localhost:27017
	Database   string // e.g. blockverse
	Collection string // e.g. worlds
}

// MongoWorldRepo implements WorldRepo on MongoDB backend.
type MongoWorldRepo struct {
	client     *mongo.Client
	collection *mongo.Collection
}

type mongoPosition struct {
	X float64 `bson:"x"`
	Y float64 `bson:"y"`
	Z float64 `bson:"z"`
}

type mongoWorldDoc struct {
	ID             string         `bson:"_id"`
	Seed           int64          `bson:"seed"`
	FOV            float64        `bson:"fov"`
	RenderDistance int            `bson:"render_distance"`
	LastPosition   *mongoPosition `bson:"last_position,omitempty"`
	CreatedAt      time.Time      `bson:"created_at"`
	UpdatedAt      time.Time      `bson:"updated_at"`
}

// NewMongoWorldRepo establishes connection and returns repository.
func NewMongoWorldRepo(ctx context.Context, cfg MongoConfig) (*MongoWorldRepo, error) {
	if cfg.URI == "" {
		cfg.URI = "mongodb://localhost:27017"
	}
	if cfg.Database == "" {
		cfg.Database = "blockverse"
	}
	if cfg.Collection == "" {
		cfg.Collection = "worlds"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	// ping
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	repo := &MongoWorldRepo{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
	}
	if err := repo.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return repo, nil
}

func (m *MongoWorldRepo) ensureIndexes(ctx context.Context) error {
	updatedIdx := mongo.IndexModel{
		Keys:    bson.D{{Key: "updated_at", Value: -1}},
		Options: options.Index().SetName("updated_at_desc"),
	}
	_, err := m.collection.Indexes().CreateOne(ctx, updatedIdx)
	return err
}

func toMongoDoc(meta WorldMetadata) mongoWorldDoc {
	doc := mongoWorldDoc{
		ID:             meta.ID.String(),
		Seed:           meta.Seed,
		FOV:            meta.Settings.FOV,
		RenderDistance: meta.Settings.RenderDistance,
		CreatedAt:      meta.CreatedAt,
		UpdatedAt:      meta.UpdatedAt,
	}
	if p := meta.LastPosition; p != nil {
		doc.LastPosition = &mongoPosition{X: p.X, Y: p.Y, Z: p.Z}
	}
	return doc
}

func (d mongoWorldDoc) metadata() (WorldMetadata, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return WorldMetadata{}, fmt.Errorf("invalid world id %q: %w", d.ID, err)
	}
	meta := WorldMetadata{
		ID:        id,
		Seed:      d.Seed,
		Settings:  Settings{FOV: d.FOV, RenderDistance: d.RenderDistance},
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
	if p := d.LastPosition; p != nil {
		meta.LastPosition = &vec.Vec3Float{X: p.X, Y: p.Y, Z: p.Z}
	}
	return meta, nil
}

// Save upserts the world document.
func (m *MongoWorldRepo) Save(ctx context.Context, meta WorldMetadata) error {
	if err := validate(meta); err != nil {
		return err
	}
	doc := toMongoDoc(meta)
	_, err := m.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo save world %s: %w", meta.ID, err)
	}
	return nil
}

// Load implements WorldRepo.
func (m *MongoWorldRepo) Load(ctx context.Context, id uuid.UUID) (WorldMetadata, error) {
	return m.findOne(ctx, bson.M{"_id": id.String()}, nil)
}

// Latest implements WorldRepo.
func (m *MongoWorldRepo) Latest(ctx context.Context) (WorldMetadata, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: 1}})
	return m.findOne(ctx, bson.M{}, opts)
}

func (m *MongoWorldRepo) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (WorldMetadata, error) {
	var doc mongoWorldDoc
	var err error
	if opts != nil {
		err = m.collection.FindOne(ctx, filter, opts).Decode(&doc)
	} else {
		err = m.collection.FindOne(ctx, filter).Decode(&doc)
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return WorldMetadata{}, ErrWorldNotFound
	}
	if err != nil {
		return WorldMetadata{}, fmt.Errorf("mongo find world: %w", err)
	}
	return doc.metadata()
}

// List implements WorldRepo.
func (m *MongoWorldRepo) List(ctx context.Context) ([]WorldMetadata, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := m.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo list worlds: %w", err)
	}
	defer cur.Close(ctx)

	var worlds []WorldMetadata
	for cur.Next(ctx) {
		var doc mongoWorldDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		meta, err := doc.metadata()
		if err != nil {
			return nil, err
		}
		worlds = append(worlds, meta)
	}
	return worlds, cur.Err()
}

// Delete implements WorldRepo.
func (m *MongoWorldRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := m.collection.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("mongo delete world %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrWorldNotFound
	}
	return nil
}

// Close disconnects the client.
func (m *MongoWorldRepo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
