package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightify/go-authclient/store"
)

func newBunStore(t *testing.T) *store.BunStore {
	t.Helper()

	db, err := store.OpenSQLite("file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})

	s := store.NewBunStore(db, store.WithBunStoreClock(func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}))
	require.NoError(t, s.Init(context.Background()))

	return s
}

func TestBunStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newBunStore(t)

	rec, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec, "empty store should read absent")

	require.NoError(t, s.Write(ctx, &store.Record{AccessToken: "tok1", RefreshToken: "ref1"}))

	rec, err = s.Read(ctx)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "tok1", rec.AccessToken)
	assert.Equal(t, "ref1", rec.RefreshToken)
}

func TestBunStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	s := newBunStore(t)

	require.NoError(t, s.Write(ctx, &store.Record{AccessToken: "tok1"}))
	require.NoError(t, s.Write(ctx, &store.Record{AccessToken: "tok2", RefreshToken: "ref2"}))

	rec, err := s.Read(ctx)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "tok2", rec.AccessToken)
	assert.Equal(t, "ref2", rec.RefreshToken)
}

func TestBunStoreErase(t *testing.T) {
	ctx := context.Background()
	s := newBunStore(t)

	require.NoError(t, s.Write(ctx, &store.Record{AccessToken: "tok1"}))
	require.NoError(t, s.Erase(ctx))

	rec, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec)

	// Erasing an empty store is a no-op.
	require.NoError(t, s.Erase(ctx))
}

func TestBunStoreNilRecordErases(t *testing.T) {
	ctx := context.Background()
	s := newBunStore(t)

	require.NoError(t, s.Write(ctx, &store.Record{AccessToken: "tok1"}))
	require.NoError(t, s.Write(ctx, nil))

	rec, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec)
}
