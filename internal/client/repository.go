package client

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates no client matched the lookup.
var ErrNotFound = errors.New("client not found")

// Repository persists clients.
type Repository interface {
	Create(ctx context.Context, client Client) error
	FindByEmail(ctx context.Context, email string) (Client, error)
	FindByID(ctx context.Context, id string) (Client, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed client repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new client.
func (r *PostgresRepository) Create(ctx context.Context, client Client) error {
	clientID, err := uuid.Parse(client.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO clients (id, email, name, surname, password_hash, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		clientID, client.Email, client.Name, client.Surname, client.PasswordHash, client.CreatedAt.UTC())
	return err
}

// FindByEmail fetches a client by email address.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (Client, error) {
	row := r.db.QueryRow(ctx, `SELECT id, email, name, surname, password_hash, created_at
        FROM clients WHERE email = $1`, email)
	return scanClient(row)
}

// FindByID fetches a client by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Client, error) {
	clientID, err := uuid.Parse(id)
	if err != nil {
		return Client{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, email, name, surname, password_hash, created_at
        FROM clients WHERE id = $1`, clientID)
	return scanClient(row)
}

func scanClient(row pgx.Row) (Client, error) {
	var (
		id        uuid.UUID
		createdAt time.Time
		client    Client
	)
	if err := row.Scan(&id, &client.Email, &client.Name, &client.Surname, &client.PasswordHash, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Client{}, ErrNotFound
		}
		return Client{}, err
	}
	client.ID = id.String()
	client.CreatedAt = createdAt.UTC()
	return client, nil
}
