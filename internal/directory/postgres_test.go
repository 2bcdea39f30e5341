package directory

import (
	"context"
	"errors"
	"testing"

	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockService(t *testing.T) (*PostgresService, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresService{db: mock}, mock
}

func clientRows(key, name, dni, email, phone string) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"key", "name", "dni", "email", "phone"}).
		AddRow(key, name, dni, email, phone)
}

func TestPostgresLookup(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("SELECT key, name, dni, email, phone").
		WithArgs("12345678A").
		WillReturnRows(clientRows("12345678A", "María García", "12345678A", "maria@example.com", "+34600111222"))
	mock.ExpectQuery("SELECT summary").
		WithArgs("12345678A").
		WillReturnRows(pgxmock.NewRows([]string{"summary"}).
			AddRow("2025-10-14: consulta inicial").
			AddRow("2026-01-20: seguimiento"))

	client, err := svc.Lookup(context.Background(), "  12345678a ")
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, "12345678A", client.Key)
	assert.Equal(t, "María García", client.Fields["name"])
	assert.Equal(t, []string{"2025-10-14: consulta inicial", "2026-01-20: seguimiento"}, client.History)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLookupNoMatch(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("SELECT key, name, dni, email, phone").
		WithArgs("99999999Z").
		WillReturnError(pgx.ErrNoRows)

	client, err := svc.Lookup(context.Background(), "99999999Z")
	require.NoError(t, err)
	assert.Nil(t, client)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLookupRequiresIdentifier(t *testing.T) {
	svc, _ := newMockService(t)

	_, err := svc.Lookup(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrMissingIdentifier)
}

func TestPostgresCreateUsesDNIAsKey(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("INSERT INTO clients").
		WithArgs("12345678A", "Ana Torres", "12345678A", "", "", pgxmock.AnyArg()).
		WillReturnRows(clientRows("12345678A", "Ana Torres", "12345678A", "", ""))

	client, err := svc.Create(context.Background(), map[string]string{
		"name": "Ana Torres",
		"dni":  "12345678a",
	})
	require.NoError(t, err)
	assert.Equal(t, "12345678A", client.Key)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateGeneratesKeyWithoutDNI(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("INSERT INTO clients").
		WithArgs(pgxmock.AnyArg(), "Ana Torres", "", "", "", pgxmock.AnyArg()).
		WillReturnRows(clientRows("generated-key", "Ana Torres", "", "", ""))

	client, err := svc.Create(context.Background(), map[string]string{"name": "Ana Torres"})
	require.NoError(t, err)
	assert.Equal(t, "generated-key", client.Key)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateMergesFields(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("UPDATE clients SET").
		WithArgs("12345678A", "", "", "ana@example.com", "", pgxmock.AnyArg()).
		WillReturnRows(clientRows("12345678A", "Ana Torres", "12345678A", "ana@example.com", ""))

	client, err := svc.Update(context.Background(), "12345678A", map[string]string{
		"email": "ana@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", client.Fields["email"])
	// Stored values the update did not carry are untouched.
	assert.Equal(t, "Ana Torres", client.Fields["name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateNotFound(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("UPDATE clients SET").
		WithArgs("99999999Z", "", "", "", "", pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.Update(context.Background(), "99999999Z", map[string]string{})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAppendHistory(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectExec("INSERT INTO client_history").
		WithArgs("12345678A", "2026-02-09: cita confirmada", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := svc.AppendHistory(context.Background(), "12345678a", "2026-02-09: cita confirmada")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLookupWrapsErrors(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("SELECT key, name, dni, email, phone").
		WithArgs("12345678A").
		WillReturnError(errors.New("connection refused"))

	_, err := svc.Lookup(context.Background(), "12345678A")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "directory: lookup failed")
}
