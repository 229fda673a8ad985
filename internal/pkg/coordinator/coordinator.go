package coordinator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/anicoll/winix-integration/internal/pkg/device"
	"github.com/anicoll/winix-integration/internal/pkg/model"
	"github.com/anicoll/winix-integration/internal/pkg/winix"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultSchedule = "@every 30s"

var (
	ErrUnknownService  = errors.New("unknown service")
	ErrUnknownDevice   = errors.New("unknown device")
	ErrInvalidArgument = errors.New("invalid argument")
)

// StateSink receives the state of a device after every poll or service call.
type StateSink interface {
	PublishState(ctx context.Context, device *model.Device, state winix.State, isOn bool) error
}

// Manager polls a fixed set of devices and routes service calls to them.
type Manager struct {
	sessions []device.Session
	index    map[string]device.Session
	sink     StateSink
	logger   *zap.Logger
	now      func() time.Time

	pollSuccess   *prometheus.GaugeVec
	pollTimestamp *prometheus.GaugeVec
}

// NewManager indexes sessions by device id and by slug; the first session
// to claim a key keeps it. sink may be nil.
func NewManager(sessions []device.Session, sink StateSink, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.L()
	}
	index := make(map[string]device.Session, len(sessions)*2)
	for _, s := range sessions {
		for _, key := range []string{s.Stub().ID, s.Stub().Slug()} {
			if other, ok := index[key]; ok && other != s {
				logger.Warn("device key already taken",
					zap.String("key", key),
					zap.String("device", s.Stub().ID),
					zap.String("taken_by", other.Stub().ID))
				continue
			}
			index[key] = s
		}
	}
	return &Manager{
		sessions: sessions,
		index:    index,
		sink:     sink,
		logger:   logger,
		now:      time.Now,
		pollSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "winix_poll_success",
			Help: "Last poll result per device (1=ok, 0=error)",
		}, []string{"device"}),
		pollTimestamp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "winix_poll_timestamp_seconds",
			Help: "Unix time of the last successful poll per device",
		}, []string{"device"}),
	}
}

func (m *Manager) Sessions() []device.Session {
	return slices.Clone(m.sessions)
}

// Lookup finds a session by device id or slug.
func (m *Manager) Lookup(key string) (device.Session, bool) {
	s, ok := m.index[key]
	return s, ok
}

func (m *Manager) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.pollSuccess, m.pollTimestamp}
}

// Refresh polls every device concurrently and publishes the result. A failed
// poll keeps that device's previous state; all failures are returned joined.
func (m *Manager) Refresh(ctx context.Context) error {
	var (
		eg   errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, s := range m.sessions {
		eg.Go(func() error {
			name := s.Stub().Name()
			if err := s.Update(ctx); err != nil {
				m.logger.Error("failed to update device", zap.String("device", name), zap.Error(err))
				m.pollSuccess.WithLabelValues(name).Set(0)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			m.pollSuccess.WithLabelValues(name).Set(1)
			m.pollTimestamp.WithLabelValues(name).Set(float64(m.now().Unix()))
			return nil
		})
	}
	_ = eg.Wait()

	for _, s := range m.sessions {
		m.publish(ctx, s)
	}
	return errors.Join(errs...)
}

// Run refreshes once, then on schedule until ctx is done.
func (m *Manager) Run(ctx context.Context, schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if err := m.Refresh(ctx); err != nil {
		m.logger.Warn("initial refresh incomplete", zap.Error(err))
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, func() {
		if err := m.Refresh(ctx); err != nil {
			m.logger.Error("error refreshing devices", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("poll schedule %q: %w", schedule, err)
	}
	c.Start()
	m.logger.Info("polling devices", zap.Int("devices", len(m.sessions)), zap.String("schedule", schedule))

	<-ctx.Done()
	<-c.Stop().Done()
	return ctx.Err()
}

// Dispatch runs service against the devices named by deviceIDs, or against
// every device when none are given. The state of each targeted device is
// published afterwards whether or not the call succeeded.
func (m *Manager) Dispatch(ctx context.Context, service string, deviceIDs []string, params Params) error {
	call, ok := services[service]
	if !ok {
		return fmt.Errorf("%q: %w", service, ErrUnknownService)
	}
	if err := params.validate(service); err != nil {
		m.logger.Warn("invalid service call", zap.String("service", service), zap.Error(err))
		return err
	}
	params, err := params.withoutInvalidHumidity(service)
	if err != nil {
		m.logger.Warn("ignoring humidity", zap.String("service", service), zap.Error(err))
	}
	targets, err := m.targets(deviceIDs)
	if err != nil {
		return err
	}

	m.logger.Debug("service invoked", zap.String("service", service), zap.Int("devices", len(targets)))
	var errs []error
	for _, s := range targets {
		if err := call(ctx, s, params); err != nil {
			m.logger.Error("service call failed",
				zap.String("service", service),
				zap.String("device", s.Stub().Name()),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s %s: %w", service, s.Stub().Name(), err))
		}
		m.publish(ctx, s)
	}
	return errors.Join(errs...)
}

func (m *Manager) targets(deviceIDs []string) ([]device.Session, error) {
	if len(deviceIDs) == 0 {
		return m.Sessions(), nil
	}
	targets := make([]device.Session, 0, len(deviceIDs))
	for _, id := range lo.Uniq(deviceIDs) {
		s, ok := m.Lookup(id)
		if !ok {
			return nil, fmt.Errorf("%q: %w", id, ErrUnknownDevice)
		}
		if !slices.Contains(targets, s) {
			targets = append(targets, s)
		}
	}
	return targets, nil
}

func (m *Manager) publish(ctx context.Context, s device.Session) {
	if m.sink == nil {
		return
	}
	if err := m.sink.PublishState(ctx, s.Stub().Device(), s.State(), s.IsOn()); err != nil {
		m.logger.Error("failed to publish state", zap.String("device", s.Stub().Name()), zap.Error(err))
	}
}
