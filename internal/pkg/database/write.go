package database

import (
	"context"

	"github.com/anicoll/winix-integration/internal/pkg/model"
)

// Write stores the records of one publish in a single transaction.
func (db *Database) Write(ctx context.Context, data []model.Record) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, record := range data {
		if _, err := tx.Exec(ctx, `
			INSERT INTO property (time_stamp, unit_of_measurement, value, identifier, slug)
			VALUES ($1, $2, $3, $4, $5)
		`, record.TimeStamp, record.Unit, record.Value, record.Identifier, record.Slug); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (db *Database) RegisterDevice(ctx context.Context, device *model.Device) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO device (id, name, slug, mac, model, sw_version)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			slug = EXCLUDED.slug,
			mac = EXCLUDED.mac,
			model = EXCLUDED.model,
			sw_version = EXCLUDED.sw_version,
			updated_at = now();`,
		device.ID, device.Name, device.Slug, device.MAC, device.Model, device.SWVersion)
	return err
}

// UnregisterDevice drops the descriptor; its history ages out through Cleanup.
func (db *Database) UnregisterDevice(ctx context.Context, device *model.Device) error {
	_, err := db.pool.Exec(ctx, `DELETE FROM device WHERE id = $1`, device.ID)
	return err
}
