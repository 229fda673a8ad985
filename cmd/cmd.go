package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/anicoll/winix-integration/internal/pkg/auth"
	"github.com/anicoll/winix-integration/internal/pkg/config"
	"github.com/anicoll/winix-integration/internal/pkg/coordinator"
	"github.com/anicoll/winix-integration/internal/pkg/database"
	"github.com/anicoll/winix-integration/internal/pkg/database/migration"
	"github.com/anicoll/winix-integration/internal/pkg/device"
	"github.com/anicoll/winix-integration/internal/pkg/devicelist"
	"github.com/anicoll/winix-integration/internal/pkg/metrics"
	"github.com/anicoll/winix-integration/internal/pkg/model"
	"github.com/anicoll/winix-integration/internal/pkg/mqtt"
	"github.com/anicoll/winix-integration/internal/pkg/publisher"
	"github.com/anicoll/winix-integration/internal/pkg/server"
	"github.com/anicoll/winix-integration/internal/pkg/winix"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const cleanupSchedule = "0 3 * * *"

func WinixCommand(ctx *cli.Context) error {
	winixCfg, err := config.LoadWinix()
	if err != nil {
		return err
	}
	cfg := &config.Config{
		WinixCfg: winixCfg,
		MqttCfg: &config.MqttConfig{
			Host:     ctx.String("mqtt-host"),
			Username: ctx.String("mqtt-user"),
			Password: ctx.String("mqtt-pass"),
		},
		LogLevel:         ctx.String("log-level"),
		HTTPAddr:         ctx.String("http-addr"),
		DatabaseURL:      ctx.String("database-url"),
		MigrationsFolder: ctx.String("migrations-folder"),
		APIKeyHash:       ctx.String("api-key-hash"),
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync() // flushes buffer, if any.
	}()
	zap.ReplaceGlobals(logger)

	if err := run(ctx.Context, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	var err error
	logCfg := zap.NewProductionConfig()
	logCfg.Level, err = zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	logCfg.OutputPaths = []string{"stdout"}
	logCfg.ErrorOutputPaths = []string{"stdout"}
	logCfg.Sampling = nil
	return logCfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	stubs, err := devicelist.Load(cfg.WinixCfg.DevicesFile)
	if err != nil {
		return err
	}
	logger.Info("loaded devices", zap.Int("count", len(stubs)))

	auth.WarnIfExpired(logger, cfg.WinixCfg.AccessToken, time.Now())
	client := auth.NewHTTPClient(ctx, cfg.WinixCfg.AccessToken, cfg.WinixCfg.RequestTimeout)

	pub := publisher.New(logger)

	var db *database.Database
	if cfg.DatabaseURL != "" {
		if err := migration.Migrate(cfg.DatabaseURL, cfg.MigrationsFolder); err != nil {
			return err
		}
		db, err = database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := pub.RegisterPublisher("postgres", db); err != nil {
			return err
		}
	}

	var mqttSvc *mqtt.Service
	if cfg.MqttCfg.Enabled() {
		mqttSvc = mqtt.New(mqtt.NewClient(cfg.MqttCfg.Host, cfg.MqttCfg.Username, cfg.MqttCfg.Password))
		if err := mqttSvc.Connect(); err != nil {
			return fmt.Errorf("connect mqtt: %w", err)
		}
		defer mqttSvc.Disconnect()
		if err := pub.RegisterPublisher("mqtt", mqttSvc); err != nil {
			return err
		}
	}

	manager := coordinator.NewManager(newSessions(stubs, client, cfg.WinixCfg.BaseURL, logger), pub, logger)

	if db != nil {
		if err := removeStaleDevices(ctx, db, pub, stubs, logger); err != nil {
			logger.Error("unable to remove stale devices", zap.Error(err))
		}
	}
	for _, stub := range stubs {
		if err := pub.RegisterDevice(ctx, stub.Device()); err != nil {
			return err
		}
	}
	if mqttSvc != nil {
		if err := mqttSvc.Subscribe(ctx, manager.Dispatch); err != nil {
			return fmt.Errorf("subscribe mqtt: %w", err)
		}
	}

	var history historyStore
	if db != nil {
		history = db
	}
	return serve(ctx, cfg, manager, history, logger)
}

func newSessions(stubs []device.Stub, client *http.Client, baseURL string, logger *zap.Logger) []device.Session {
	return lo.Map(stubs, func(stub device.Stub, _ int) device.Session {
		drv := winix.NewDriver(stub.ID, client, winix.WithBaseURL(baseURL), winix.WithLogger(logger))
		return device.NewWrapper(stub, drv, logger)
	})
}

// serve runs the poll loop, the history cleanup and the HTTP API until one
// of them fails or ctx is done.
func serve(ctx context.Context, cfg *config.Config, manager *coordinator.Manager, history historyStore, logger *zap.Logger) error {
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return manager.Run(ctx, cfg.WinixCfg.PollSchedule)
	})

	if history != nil {
		eg.Go(func() error {
			return cronDbCleanup(ctx, history, cfg.WinixCfg.HistoryRetention, logger)
		})
	}

	eg.Go(func() error {
		registry := metrics.Registry(append(manager.Collectors(), metrics.NewCollector(manager))...)
		middlewares := []func(http.Handler) http.Handler{server.LoggingMiddleware}
		if cfg.APIKeyHash != "" {
			middlewares = append(middlewares, server.APIKeyMiddleware(cfg.APIKeyHash))
		}

		srv := &http.Server{
			Handler:      server.New(manager, history, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Handler(middlewares...),
			Addr:         cfg.HTTPAddr,
			WriteTimeout: 15 * time.Second,
			ReadTimeout:  15 * time.Second,
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		logger.Info("serving http", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	return eg.Wait()
}

func cronDbCleanup(ctx context.Context, db historyStore, retention time.Duration, logger *zap.Logger) error {
	cleanup := func() {
		deleted, err := db.Cleanup(ctx, retention)
		if err != nil {
			logger.Error("error cleaning up database", zap.Error(err))
			return
		}
		logger.Info("cleaned up history", zap.Int64("deleted", deleted))
	}
	cleanup()

	c := cron.New()
	if _, err := c.AddFunc(cleanupSchedule, cleanup); err != nil {
		return err
	}
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return ctx.Err()
}

// removeStaleDevices withdraws devices the store knows about that are no
// longer in the device list.
func removeStaleDevices(ctx context.Context, store deviceStore, pub deviceRemover, stubs []device.Stub, logger *zap.Logger) error {
	known, err := store.ListDevices(ctx)
	if err != nil {
		return err
	}
	current := lo.SliceToMap(stubs, func(s device.Stub) (string, struct{}) {
		return s.ID, struct{}{}
	})
	stale := lo.Filter(known, func(d model.Device, _ int) bool {
		_, ok := current[d.ID]
		return !ok
	})
	for _, d := range stale {
		logger.Info("removing stale device", zap.String("device", d.Slug))
		if err := pub.RemoveDevice(ctx, &d); err != nil {
			return err
		}
	}
	return nil
}
