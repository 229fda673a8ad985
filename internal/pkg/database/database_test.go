package database

import (
	"context"
	"testing"
	"time"

	"github.com/anicoll/winix-integration/internal/pkg/database/migration"
	"github.com/anicoll/winix-integration/internal/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("winix"),
		postgres.WithUsername("winix"),
		postgres.WithPassword("winix"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, migration.Migrate(dsn, "../../../migrations"))
	// a second run finds nothing to do
	require.NoError(t, migration.Migrate(dsn, "../../../migrations"))

	db, err := Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestDatabase(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	t.Run("devices", func(t *testing.T) {
		dev := &model.Device{ID: "dev-1", Name: "Laundry", Slug: "laundry", MAC: "aa:bb", Model: "DXJH"}
		require.NoError(t, db.RegisterDevice(ctx, dev))

		dev.Name = "Laundry Room"
		dev.Slug = "laundry_room"
		require.NoError(t, db.RegisterDevice(ctx, dev))
		require.NoError(t, db.RegisterDevice(ctx, &model.Device{ID: "dev-2", Name: "Basement", Slug: "basement"}))

		devices, err := db.ListDevices(ctx)
		require.NoError(t, err)
		require.Len(t, devices, 2)
		assert.Equal(t, "laundry_room", devices[0].Slug)

		require.NoError(t, db.UnregisterDevice(ctx, &model.Device{ID: "dev-2"}))
		devices, err = db.ListDevices(ctx)
		require.NoError(t, err)
		assert.Len(t, devices, 1)
	})

	t.Run("history", func(t *testing.T) {
		require.NoError(t, db.Write(ctx, []model.Record{
			{TimeStamp: now.Add(-2 * time.Hour), Unit: "%", Value: "60", Identifier: "laundry_room", Slug: "current_humidity"},
			{TimeStamp: now.Add(-time.Hour), Unit: "%", Value: "55", Identifier: "laundry_room", Slug: "current_humidity"},
			{TimeStamp: now.Add(-time.Hour), Value: "on", Identifier: "laundry_room", Slug: "power"},
			{TimeStamp: now.Add(-10 * 24 * time.Hour), Unit: "%", Value: "70", Identifier: "laundry_room", Slug: "current_humidity"},
		}))

		history, err := db.GetHistory(ctx, "laundry_room", "current_humidity", time.Time{}, time.Time{})
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, "55", history[0].Value)
		assert.Equal(t, "%", history[0].Unit)
		assert.True(t, now.Add(-time.Hour).Equal(history[0].TimeStamp))

		history, err = db.GetHistory(ctx, "laundry_room", "current_humidity", now.Add(-30*24*time.Hour), now)
		require.NoError(t, err)
		assert.Len(t, history, 3)

		latest, err := db.GetLatest(ctx)
		require.NoError(t, err)
		require.Len(t, latest, 2)
		assert.Equal(t, "current_humidity", latest[0].Slug)
		assert.Equal(t, "55", latest[0].Value)
		assert.Equal(t, "power", latest[1].Slug)

		deleted, err := db.Cleanup(ctx, 192*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)
	})
}
