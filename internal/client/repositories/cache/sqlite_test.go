package cache

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

type manualClock struct{ t time.Time }

func (c *manualClock) now() time.Time { return c.t }

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE cache (
  key        TEXT PRIMARY KEY,
  value      BLOB NOT NULL,
  expires_at INTEGER NOT NULL
);`)
	require.NoError(t, err)
	return db
}

func TestSetAndGet_UntilExpiry(t *testing.T) {
	clock := &manualClock{t: time.Unix(1000, 0)}
	r := NewSQLiteRepository(setupDB(t), clock.now)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "stats", []byte(`{"patients":1}`), 5*time.Second))

	v, err := r.Get(ctx, "stats")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"patients":1}`), v)

	clock.t = clock.t.Add(5 * time.Second)
	v, err = r.Get(ctx, "stats")
	require.NoError(t, err)
	assert.Nil(t, v, "expired entries read as absent")
}

func TestGet_Absent(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t), nil)
	v, err := r.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestSet_OverwritesAndExtends(t *testing.T) {
	clock := &manualClock{t: time.Unix(1000, 0)}
	r := NewSQLiteRepository(setupDB(t), clock.now)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k", []byte("old"), time.Second))
	require.NoError(t, r.Set(ctx, "k", []byte("new"), time.Minute))

	clock.t = clock.t.Add(30 * time.Second)
	v, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), v)
}

func TestSet_RejectsNonPositiveTTL(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t), nil)
	require.Error(t, r.Set(context.Background(), "k", []byte("v"), 0))
}

func TestDeleteAndPurge(t *testing.T) {
	clock := &manualClock{t: time.Unix(1000, 0)}
	r := NewSQLiteRepository(setupDB(t), clock.now)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, r.Set(ctx, "long", []byte("2"), time.Hour))
	require.NoError(t, r.Set(ctx, "gone", []byte("3"), time.Hour))

	require.NoError(t, r.Delete(ctx, "gone"))
	require.NoError(t, r.Delete(ctx, "gone"))

	clock.t = clock.t.Add(time.Minute)
	n, err := r.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	v, err := r.Get(ctx, "long")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v)

	v, err = r.Get(ctx, "short")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestDBErrorsWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, nil)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, err := r.Get(ctx, "k")
	require.ErrorContains(t, err, "failed to get cache[k]")
	require.ErrorContains(t, r.Set(ctx, "k", []byte("v"), time.Second), "failed to set cache[k]")
	require.ErrorContains(t, r.Delete(ctx, "k"), "failed to delete cache[k]")
	_, err = r.Purge(ctx)
	require.ErrorContains(t, err, "failed to purge cache")
}
