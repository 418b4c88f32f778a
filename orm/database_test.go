package orm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/tablemap/adapter"
	"github.com/satishbabariya/tablemap/telemetry"
)

func TestDatabase_Open(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown adapter", func(t *testing.T) {
		_, err := Open(ctx, Config{Adapter: "no-such-backend"})
		var unknown *adapter.UnknownAdapterError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "no-such-backend", unknown.Name)
	})

	t.Run("registered adapter", func(t *testing.T) {
		adapter.Register("memory-test", func() adapter.Adapter { return newMusicAdapter() })
		stats := telemetry.NewStats()

		db, err := Open(ctx, Config{Adapter: "memory-test", DSN: "mem", Recorder: stats})
		require.NoError(t, err)
		assert.Equal(t, []string{"album", "artist"}, db.Tables())
		assert.Equal(t, "mem", db.DSN())
		assert.Equal(t, int64(1), stats.Connections("connect"))
		assert.Equal(t, int64(1), stats.Connections("rescan"))

		require.NoError(t, db.Close())
		assert.True(t, db.Adapter().(*memoryAdapter).closed)
	})

	t.Run("connect failure", func(t *testing.T) {
		_, err := New(ctx, newMusicAdapter(), "fail", adapter.Options{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestDatabase_Rescan(t *testing.T) {
	ctx := context.Background()
	db, m := newMusicDB(t)

	before := db.MustTable("artist")
	m.addTable("label", "id", "name")
	delete(m.tables, "album")

	require.NoError(t, db.Rescan(ctx))
	assert.Equal(t, []string{"artist", "label"}, db.Tables())

	after := db.MustTable("artist")
	assert.NotSame(t, before, after)

	_, err := db.Table("album")
	assert.True(t, IsNotFound(err))
	assert.Panics(t, func() { db.MustTable("album") })
}

func TestDatabase_Telemetry(t *testing.T) {
	ctx := context.Background()
	stats := telemetry.NewStats()
	db, m := newMusicDB(t, WithRecorder(stats))
	artist := db.MustTable("artist")

	_, err := artist.All().Execute(ctx)
	require.NoError(t, err)
	_, err = artist.Create(ctx, Fields{"name": "Tinariwen"})
	require.NoError(t, err)

	m.failNext = assert.AnError
	_, err = artist.All().Execute(ctx)
	require.Error(t, err)

	assert.Equal(t, int64(2), stats.Queries("artist", "SELECT"))
	assert.Equal(t, int64(1), stats.Errors("artist", "SELECT"))
	assert.Equal(t, int64(1), stats.Queries("artist", "INSERT"))

	snap := stats.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "artist:INSERT", snap[0].Key)
}
