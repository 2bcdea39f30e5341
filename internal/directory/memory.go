package directory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// InMemoryService keeps client records in a map. Used in development and
// as the deterministic fake in tests.
type InMemoryService struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewInMemoryService creates an empty in-memory directory.
func NewInMemoryService() *InMemoryService {
	return &InMemoryService{clients: make(map[string]*Client)}
}

// NewSeededService creates an in-memory directory pre-loaded with known
// clients, mirroring a small production directory for local runs.
func NewSeededService() *InMemoryService {
	s := NewInMemoryService()
	s.clients["12345678A"] = &Client{
		Key: "12345678A",
		Fields: map[string]string{
			"name":  "María García",
			"dni":   "12345678A",
			"email": "maria@example.com",
			"phone": "+34600111222",
		},
		History: []string{
			"2025-10-14: consulta inicial, revisión general",
			"2026-01-20: cita de seguimiento, todo correcto",
		},
	}
	s.clients["87654321B"] = &Client{
		Key: "87654321B",
		Fields: map[string]string{
			"name":  "Carlos López",
			"dni":   "87654321B",
			"email": "carlos@example.com",
			"phone": "+34600333444",
		},
		History: []string{
			"2025-12-02: primera visita, presupuesto entregado",
		},
	}
	return s
}

// Lookup returns the client for an identifier, or (nil, nil) on no match.
func (s *InMemoryService) Lookup(ctx context.Context, identifier string) (*Client, error) {
	identifier = normalizeKey(identifier)
	if identifier == "" {
		return nil, ErrMissingIdentifier
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	client, ok := s.clients[identifier]
	if !ok {
		return nil, nil
	}
	return cloneClient(client), nil
}

// Create registers a new client. The key is the primary identifier field
// when present, otherwise a generated id.
func (s *InMemoryService) Create(ctx context.Context, fields map[string]string) (*Client, error) {
	key := normalizeKey(fields["dni"])
	if key == "" {
		key = uuid.NewString()
	}

	client := &Client{Key: key, Fields: make(map[string]string, len(fields))}
	for field, value := range fields {
		if value != "" {
			client.Fields[field] = value
		}
	}

	s.mu.Lock()
	s.clients[key] = client
	s.mu.Unlock()

	return cloneClient(client), nil
}

// Update merges non-empty fields into an existing record. Empty values are
// never allowed to overwrite stored values.
func (s *InMemoryService) Update(ctx context.Context, identifier string, fields map[string]string) (*Client, error) {
	identifier = normalizeKey(identifier)
	if identifier == "" {
		return nil, ErrMissingIdentifier
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	client, ok := s.clients[identifier]
	if !ok {
		return nil, ErrNotFound
	}
	for field, value := range fields {
		if value != "" {
			client.Fields[field] = value
		}
	}
	return cloneClient(client), nil
}

func normalizeKey(identifier string) string {
	return strings.ToUpper(strings.TrimSpace(identifier))
}

func cloneClient(c *Client) *Client {
	out := &Client{Key: c.Key, Fields: make(map[string]string, len(c.Fields))}
	for k, v := range c.Fields {
		out.Fields[k] = v
	}
	out.History = append([]string(nil), c.History...)
	return out
}
