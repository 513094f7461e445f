//go:build integration

package bookshelf

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()

	dsn := os.Getenv("BOOKSHELF_TEST_DSN")
	if dsn == "" {
		t.Skip("BOOKSHELF_TEST_DSN not set")
	}

	ctx := context.Background()
	db, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := NewPostgresStore(db)
	require.NoError(t, s.EnsureSchema(ctx))

	_, err = db.ExecContext(ctx, `TRUNCATE books, book_ids RESTART IDENTITY`)
	require.NoError(t, err)
	return s
}

func TestPostgresStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return newPostgresStore(t) })
}

func TestPostgresStore_NeverReusesDeletedIDs(t *testing.T) {
	ctx := context.Background()
	s := newPostgresStore(t)
	s.newID = sequenceIDs("aaaaaaaaaaaaaaaa", "aaaaaaaaaaaaaaaa", "bbbbbbbbbbbbbbbb")

	first := mustCreate(t, s, input("A", 1, 1))
	require.NoError(t, s.Delete(ctx, first))

	second := mustCreate(t, s, input("B", 1, 1))
	assert.Equal(t, "aaaaaaaaaaaaaaaa", first)
	assert.Equal(t, "bbbbbbbbbbbbbbbb", second)
}

func TestPostgresStore_EnsureSchemaIsIdempotent(t *testing.T) {
	s := newPostgresStore(t)
	assert.NoError(t, s.EnsureSchema(context.Background()))
}
