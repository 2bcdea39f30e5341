package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxQuerier is the slice of pgxpool.Pool the service uses; tests swap in
// a pgxmock pool.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresService stores client records in the relational database.
// Schema is managed by cmd/migrate.
type PostgresService struct {
	db pgxQuerier
}

// NewPostgresService initializes a directory backed by pgxpool.
func NewPostgresService(pool *pgxpool.Pool) *PostgresService {
	if pool == nil {
		panic("directory: pgx pool required")
	}
	return &PostgresService{db: pool}
}

// Lookup fetches a client and its interaction history by identifier.
func (s *PostgresService) Lookup(ctx context.Context, identifier string) (*Client, error) {
	identifier = normalizeKey(identifier)
	if identifier == "" {
		return nil, ErrMissingIdentifier
	}

	query := `
		SELECT key, name, dni, email, phone
		FROM clients
		WHERE key = $1 OR dni = $1
	`
	client, err := s.scanClient(s.db.QueryRow(ctx, query, identifier))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("directory: lookup failed: %w", err)
	}

	history, err := s.loadHistory(ctx, client.Key)
	if err != nil {
		return nil, err
	}
	client.History = history
	return client, nil
}

// Create inserts a new client row. The key is the DNI when present,
// otherwise a generated id.
func (s *PostgresService) Create(ctx context.Context, fields map[string]string) (*Client, error) {
	key := normalizeKey(fields["dni"])
	if key == "" {
		key = uuid.NewString()
	}

	query := `
		INSERT INTO clients (key, name, dni, email, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING key, name, dni, email, phone
	`
	now := time.Now().UTC()
	client, err := s.scanClient(s.db.QueryRow(ctx, query,
		key,
		fields["name"],
		normalizeKey(fields["dni"]),
		fields["email"],
		fields["phone"],
		now,
	))
	if err != nil {
		return nil, fmt.Errorf("directory: insert failed: %w", err)
	}
	return client, nil
}

// Update merges non-empty fields into an existing row. NULLIF keeps empty
// values from clobbering stored ones.
func (s *PostgresService) Update(ctx context.Context, identifier string, fields map[string]string) (*Client, error) {
	identifier = normalizeKey(identifier)
	if identifier == "" {
		return nil, ErrMissingIdentifier
	}

	query := `
		UPDATE clients SET
			name = COALESCE(NULLIF($2, ''), name),
			dni = COALESCE(NULLIF($3, ''), dni),
			email = COALESCE(NULLIF($4, ''), email),
			phone = COALESCE(NULLIF($5, ''), phone),
			updated_at = $6
		WHERE key = $1 OR dni = $1
		RETURNING key, name, dni, email, phone
	`
	client, err := s.scanClient(s.db.QueryRow(ctx, query,
		identifier,
		fields["name"],
		normalizeKey(fields["dni"]),
		fields["email"],
		fields["phone"],
		time.Now().UTC(),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("directory: update failed: %w", err)
	}
	return client, nil
}

// AppendHistory records a past-interaction summary for a client.
func (s *PostgresService) AppendHistory(ctx context.Context, key, summary string) error {
	key = normalizeKey(key)
	if key == "" {
		return ErrMissingIdentifier
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO client_history (client_key, summary, occurred_at)
		VALUES ($1, $2, $3)
	`, key, summary, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("directory: append history failed: %w", err)
	}
	return nil
}

func (s *PostgresService) loadHistory(ctx context.Context, key string) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT summary
		FROM client_history
		WHERE client_key = $1
		ORDER BY occurred_at ASC
	`, key)
	if err != nil {
		return nil, fmt.Errorf("directory: load history failed: %w", err)
	}
	defer rows.Close()

	var history []string
	for rows.Next() {
		var summary string
		if err := rows.Scan(&summary); err != nil {
			return nil, fmt.Errorf("directory: scan history failed: %w", err)
		}
		history = append(history, summary)
	}
	return history, rows.Err()
}

func (s *PostgresService) scanClient(row pgx.Row) (*Client, error) {
	var key, name, dni, email, phone string
	if err := row.Scan(&key, &name, &dni, &email, &phone); err != nil {
		return nil, err
	}
	return &Client{
		Key: key,
		Fields: map[string]string{
			"name":  name,
			"dni":   dni,
			"email": email,
			"phone": phone,
		},
	}, nil
}
