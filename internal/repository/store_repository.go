package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lrs-tracker/internal/models"
)

var (
	ErrStoreNotFound  = errors.New("lrs not found")
	ErrClientNotFound = errors.New("client not found")
)

// StoreReader looks up LRS instances.
type StoreReader interface {
	FindByID(ctx context.Context, id string) (*models.Store, error)
	List(ctx context.Context) ([]*models.Store, error)
}

// ClientReader looks up API clients by their public id.
type ClientReader interface {
	FindByClientID(ctx context.Context, clientID string) (*models.Client, error)
}

// ClientStore reads and registers API clients.
type ClientStore interface {
	ClientReader
	Create(ctx context.Context, client *models.Client) error
}

type StoreRepository struct {
	collection *mongo.Collection
}

var _ StoreReader = (*StoreRepository)(nil)

func NewStoreRepository(db *mongo.Database) *StoreRepository {
	return &StoreRepository{
		collection: db.Collection("lrs"),
	}
}

func (r *StoreRepository) FindByID(ctx context.Context, id string) (*models.Store, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrStoreNotFound
	}

	var store models.Store
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&store)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrStoreNotFound
	}
	if err != nil {
		return nil, mongoError("find lrs", err)
	}
	return &store, nil
}

// List returns every store ordered by title
func (r *StoreRepository) List(ctx context.Context) ([]*models.Store, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "title", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, mongoError("list lrs", err)
	}
	defer cursor.Close(ctx)

	var stores []*models.Store
	if err = cursor.All(ctx, &stores); err != nil {
		return nil, mongoError("list lrs", err)
	}
	return stores, nil
}

type ClientRepository struct {
	collection *mongo.Collection
}

var _ ClientStore = (*ClientRepository)(nil)

func NewClientRepository(db *mongo.Database) *ClientRepository {
	return &ClientRepository{
		collection: db.Collection("clients"),
	}
}

func (r *ClientRepository) Create(ctx context.Context, client *models.Client) error {
	client.CreatedAt = time.Now()

	if client.ID.IsZero() {
		client.ID = primitive.NewObjectID()
	}

	_, err := r.collection.InsertOne(ctx, client)
	if err != nil {
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

func (r *ClientRepository) FindByClientID(ctx context.Context, clientID string) (*models.Client, error) {
	var client models.Client
	err := r.collection.FindOne(ctx, bson.M{"client_id": clientID}).Decode(&client)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find client: %w", err)
	}
	return &client, nil
}
