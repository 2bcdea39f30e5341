// Package directory is the system of record for caller identity. The
// dialogue engine resolves, creates and updates client records through the
// Service interface; implementations exist for in-memory use (seeded, for
// development and tests) and PostgreSQL.
package directory

import "context"

// Client is one directory record.
type Client struct {
	// Key is the record's primary identifier (the DNI when known,
	// otherwise a generated id).
	Key string `json:"key"`
	// Fields maps field name to stored value.
	Fields map[string]string `json:"fields"`
	// History holds past-interaction summaries, most recent last.
	History []string `json:"history,omitempty"`
}

// Service is the identity resolution contract. Lookup returns (nil, nil)
// when no record matches. Empty field values never overwrite stored
// values, on either Create or Update.
type Service interface {
	Lookup(ctx context.Context, identifier string) (*Client, error)
	Create(ctx context.Context, fields map[string]string) (*Client, error)
	Update(ctx context.Context, identifier string, fields map[string]string) (*Client, error)
}
