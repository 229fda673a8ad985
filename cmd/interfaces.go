package cmd

import (
	"context"
	"time"

	"github.com/anicoll/winix-integration/internal/pkg/model"
)

// historyStore is what serve needs from the database.
type historyStore interface {
	GetHistory(ctx context.Context, identifier, attribute string, from, to time.Time) (model.Records, error)
	GetLatest(ctx context.Context) (model.Records, error)
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)
}

type deviceStore interface {
	ListDevices(ctx context.Context) ([]model.Device, error)
}

type deviceRemover interface {
	RemoveDevice(ctx context.Context, device *model.Device) error
}
