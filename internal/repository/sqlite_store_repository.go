package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"lrs-tracker/internal/models"
)

// SQLStoreRepository reads LRS instances from SQLite.
type SQLStoreRepository struct {
	db *sql.DB
}

var _ StoreReader = (*SQLStoreRepository)(nil)

func NewSQLStoreRepository(db *sql.DB) *SQLStoreRepository {
	return &SQLStoreRepository{db: db}
}

func (r *SQLStoreRepository) Create(ctx context.Context, store *models.Store) error {
	if store.ID.IsZero() {
		store.ID = primitive.NewObjectID()
	}
	if store.CreatedAt.IsZero() {
		store.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO lrs (id, title, description, owner, created_at) VALUES (?, ?, ?, ?, ?)",
		store.ID.Hex(), store.Title, store.Description, store.Owner, store.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert lrs: %w", err)
	}
	return nil
}

func (r *SQLStoreRepository) FindByID(ctx context.Context, id string) (*models.Store, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, title, description, owner, created_at FROM lrs WHERE id = ?", id)

	store, err := scanStore(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStoreNotFound
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

func (r *SQLStoreRepository) List(ctx context.Context) ([]*models.Store, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, title, description, owner, created_at FROM lrs ORDER BY title")
	if err != nil {
		return nil, fmt.Errorf("failed to list lrs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stores []*models.Store
	for rows.Next() {
		store, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		stores = append(stores, store)
	}
	return stores, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStore(row rowScanner) (*models.Store, error) {
	var (
		store     models.Store
		id        string
		createdMs int64
	)
	if err := row.Scan(&id, &store.Title, &store.Description, &store.Owner, &createdMs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan lrs: %w", err)
	}

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid lrs id %q: %w", id, err)
	}
	store.ID = oid
	store.CreatedAt = time.UnixMilli(createdMs).UTC()
	return &store, nil
}

// SQLClientRepository reads API clients from SQLite.
type SQLClientRepository struct {
	db *sql.DB
}

var _ ClientStore = (*SQLClientRepository)(nil)

func NewSQLClientRepository(db *sql.DB) *SQLClientRepository {
	return &SQLClientRepository{db: db}
}

func (r *SQLClientRepository) Create(ctx context.Context, client *models.Client) error {
	if client.CreatedAt.IsZero() {
		client.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO clients (client_id, secret_hash, lrs_id, role, created_at) VALUES (?, ?, ?, ?, ?)",
		client.ClientID, client.SecretHash, client.LrsID, client.Role, client.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert client: %w", err)
	}
	return nil
}

func (r *SQLClientRepository) FindByClientID(ctx context.Context, clientID string) (*models.Client, error) {
	var (
		client    models.Client
		createdMs int64
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT client_id, secret_hash, lrs_id, role, created_at FROM clients WHERE client_id = ?", clientID,
	).Scan(&client.ClientID, &client.SecretHash, &client.LrsID, &client.Role, &createdMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find client: %w", err)
	}

	client.CreatedAt = time.UnixMilli(createdMs).UTC()
	return &client, nil
}
