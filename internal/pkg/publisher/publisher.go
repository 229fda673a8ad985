package publisher

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/anicoll/winix-integration/internal/pkg/model"
	"github.com/anicoll/winix-integration/internal/pkg/winix"
	"go.uber.org/zap"
)

// AttrIsOn is published alongside the device attributes.
const AttrIsOn = "is_on"

var errAlreadyRegistered = errors.New("publisher already registered")

var units = map[string]string{
	winix.AttrCurrentHumidity: "%",
	winix.AttrTargetHumidity:  "%",
	winix.AttrTimer:           "h",
}

// Sink receives state records and device announcements.
type Sink interface {
	Write(ctx context.Context, data []model.Record) error
	RegisterDevice(ctx context.Context, device *model.Device) error
}

// Unregisterer is implemented by sinks that can withdraw a device.
type Unregisterer interface {
	UnregisterDevice(ctx context.Context, device *model.Device) error
}

// Publisher fans state out to every registered sink, skipping values that
// have not changed since they were last published.
type Publisher struct {
	mu      sync.RWMutex
	sinks   map[string]Sink
	sensors sync.Map
	now     func() time.Time
	logger  *zap.Logger
}

func New(logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.L()
	}
	return &Publisher{
		sinks:  make(map[string]Sink),
		now:    time.Now,
		logger: logger,
	}
}

func (p *Publisher) RegisterPublisher(name string, sink Sink) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.sinks[name]; ok {
		return fmt.Errorf("%s: %w", name, errAlreadyRegistered)
	}
	p.sinks[name] = sink
	return nil
}

func (p *Publisher) forEach(fn func(name string, sink Sink)) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for name, sink := range p.sinks {
		fn(name, sink)
	}
}

// Records converts a device state into one record per attribute plus is_on.
func Records(device *model.Device, state winix.State, isOn bool, ts time.Time) []model.Record {
	records := make([]model.Record, 0, len(state)+1)
	for _, attr := range winix.Attributes() {
		v, ok := state[attr]
		if !ok {
			continue
		}
		records = append(records, model.Record{
			TimeStamp:  ts,
			Unit:       units[attr],
			Value:      formatValue(v),
			Identifier: device.Slug,
			Slug:       attr,
		})
	}
	isOnValue := winix.OffValue
	if isOn {
		isOnValue = winix.OnValue
	}
	return append(records, model.Record{
		TimeStamp:  ts,
		Value:      isOnValue,
		Identifier: device.Slug,
		Slug:       AttrIsOn,
	})
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprint(t)
	}
}

// PublishState writes the changed attributes of one device to every sink. A
// failing sink is logged and does not stop the others.
func (p *Publisher) PublishState(ctx context.Context, device *model.Device, state winix.State, isOn bool) error {
	data := make([]model.Record, 0)
	for _, record := range Records(device, state, isOn, p.now()) {
		if !p.shouldUpdate(device.ID, record.Slug, record.Value) {
			continue
		}
		data = append(data, record)
	}
	if len(data) == 0 {
		return nil
	}
	p.forEach(func(name string, sink Sink) {
		if err := sink.Write(ctx, data); err != nil {
			p.logger.Error("failed to publish data", zap.Error(err), zap.String("publisher", name))
			return
		}
		p.logger.Debug("updated sensors", zap.Int("count", len(data)), zap.String("publisher", name))
	})
	return nil
}

func (p *Publisher) RegisterDevice(ctx context.Context, device *model.Device) error {
	p.forEach(func(name string, sink Sink) {
		if err := sink.RegisterDevice(ctx, device); err != nil {
			p.logger.Error("failed to register device", zap.Error(err), zap.String("publisher", name))
			return
		}
		p.logger.Debug("registered device", zap.String("device", device.Slug), zap.String("publisher", name))
	})
	return nil
}

// RemoveDevice forgets the device's published values and withdraws it from
// the sinks that support it.
func (p *Publisher) RemoveDevice(ctx context.Context, device *model.Device) error {
	p.Forget(device.ID)
	p.forEach(func(name string, sink Sink) {
		u, ok := sink.(Unregisterer)
		if !ok {
			return
		}
		if err := u.UnregisterDevice(ctx, device); err != nil {
			p.logger.Error("failed to unregister device", zap.Error(err), zap.String("publisher", name))
			return
		}
		p.logger.Info("removed stale device", zap.String("device", device.Slug), zap.String("publisher", name))
	})
	return nil
}

// Forget drops the last published values of a device so the next publish
// sends everything again.
func (p *Publisher) Forget(deviceID string) {
	p.sensors.Range(func(key, _ any) bool {
		if key.(sensorKey).deviceID == deviceID {
			p.sensors.Delete(key)
		}
		return true
	})
}

// sensorKey is keyed by device id; slugs come from user aliases.
type sensorKey struct {
	deviceID string
	slug     string
}

func (p *Publisher) shouldUpdate(deviceID, slug, newValue string) bool {
	key := sensorKey{deviceID: deviceID, slug: slug}
	oldValue, exists := p.sensors.Load(key)
	if exists && strings.EqualFold(newValue, oldValue.(string)) {
		return false
	}
	if !exists {
		p.logger.Info("configured sensor", zap.String("device", deviceID), zap.String("sensor", slug), zap.String("value", newValue))
	}
	p.sensors.Store(key, newValue)
	return true
}
