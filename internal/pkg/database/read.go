package database

import (
	"context"
	"time"

	"github.com/anicoll/winix-integration/internal/pkg/model"
	"github.com/jackc/pgx/v5"
)

const defaultHistoryWindow = 48 * time.Hour

// GetHistory returns the values of one attribute of a device between from and
// to, newest first. Zero bounds default to the last two days.
func (db *Database) GetHistory(ctx context.Context, identifier, attribute string, from, to time.Time) (model.Records, error) {
	if to.IsZero() {
		to = time.Now()
	}
	if from.IsZero() {
		from = to.Add(-defaultHistoryWindow)
	}

	rows, err := db.pool.Query(ctx, `
	SELECT id, time_stamp, unit_of_measurement, value, identifier, slug
	FROM property
	WHERE identifier = $1 AND slug = $2 AND time_stamp BETWEEN $3 AND $4
	ORDER BY time_stamp DESC;
	`, identifier, attribute, from, to)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

// GetLatest returns the newest value of every attribute of every device.
func (db *Database) GetLatest(ctx context.Context) (model.Records, error) {
	rows, err := db.pool.Query(ctx, `
	SELECT DISTINCT ON (identifier, slug) id, time_stamp, unit_of_measurement, value, identifier, slug
	FROM property
	ORDER BY identifier, slug, time_stamp DESC;
	`)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

func (db *Database) ListDevices(ctx context.Context) ([]model.Device, error) {
	rows, err := db.pool.Query(ctx, `
	SELECT id, name, slug, mac, model, sw_version
	FROM device
	ORDER BY id;
	`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Device, error) {
		var d model.Device
		err := row.Scan(&d.ID, &d.Name, &d.Slug, &d.MAC, &d.Model, &d.SWVersion)
		return d, err
	})
}

func scanRecords(rows pgx.Rows) (model.Records, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Record, error) {
		var r model.Record
		err := row.Scan(&r.Id, &r.TimeStamp, &r.Unit, &r.Value, &r.Identifier, &r.Slug)
		return r, err
	})
}
