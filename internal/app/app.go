// Package app wires up and runs the application services.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nvgputop/nvgputop-web/internal/config"
	"github.com/nvgputop/nvgputop-web/internal/history"
	"github.com/nvgputop/nvgputop-web/internal/httpserver"
	"github.com/nvgputop/nvgputop-web/internal/monitor"
	"github.com/nvgputop/nvgputop-web/internal/sampler"
	"github.com/nvgputop/nvgputop-web/internal/version"
)

const shutdownTimeout = 10 * time.Second

// Run bootstraps the application lifecycle.
func Run(ctx context.Context, baseLogger *slog.Logger, cfg config.Config) error {
	appLogger := baseLogger.With("component", "app")
	appLogger.Info("starting", "version", version.Current().String())

	var (
		device    *monitor.StaticInfo
		collector *sampler.Manager
	)

	mon, err := monitor.NewNVML(cfg.DeviceIndex, baseLogger.With("component", "monitor"))
	switch {
	case errors.Is(err, monitor.ErrInitFailed):
		// The dashboard still serves; /readyz reports the degraded state.
		appLogger.Warn("gpu driver unavailable, serving without telemetry", "err", err)
	case errors.Is(err, monitor.ErrDeviceNotFound):
		appLogger.Warn("gpu device not found, serving without telemetry", "device_index", cfg.DeviceIndex, "err", err)
	case err != nil:
		return fmt.Errorf("init gpu monitor: %w", err)
	default:
		defer func() {
			if err := mon.Close(); err != nil {
				appLogger.Warn("monitor close", "err", err)
			}
		}()

		info := mon.StaticInfo()
		device = &info
		appLogger.Info("gpu monitor initialised",
			"device", info.Name,
			"uuid", info.UUID,
			"driver", info.DriverVersion,
		)

		policy, err := sampler.ParseSendPolicy(cfg.SendPolicy)
		if err != nil {
			return fmt.Errorf("parse send policy: %w", err)
		}

		loop, err := sampler.NewLoop(mon, cfg.SampleInterval, cfg.ChannelCapacity, policy, baseLogger)
		if err != nil {
			return fmt.Errorf("init sampler loop: %w", err)
		}

		store := history.NewStore(cfg.DisplayDuration.Seconds(), cfg.HistoryMaxSamples)
		procs := history.NewProcTable()

		collector, err = sampler.NewManager(loop, store, procs, cfg.RefreshInterval, baseLogger)
		if err != nil {
			return fmt.Errorf("init collector: %w", err)
		}
	}

	collectorCtx, collectorCancel := context.WithCancel(ctx)
	defer collectorCancel()

	var collectorDone chan struct{}
	if collector != nil {
		collectorDone = make(chan struct{})
		go func() {
			defer close(collectorDone)
			collector.Run(collectorCtx)
		}()
	}

	srv := httpserver.New(cfg, baseLogger.With("component", "http"), device, collector)

	appLogger.Info("starting HTTP server", "listen_addr", cfg.ListenAddr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stopCollector := func() {
		collectorCancel()
		if collectorDone != nil {
			<-collectorDone
		}
	}

	select {
	case err := <-errCh:
		stopCollector()
		return err
	case <-ctx.Done():
		appLogger.Info("shutdown initiated", "reason", context.Cause(ctx))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("http shutdown: %w", err)
		}

		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		stopCollector()

		appLogger.Info("shutdown complete")
		return nil
	}
}
