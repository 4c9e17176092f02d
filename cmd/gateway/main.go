// Command gateway is the ForgeIO OPC UA protocol gateway: it loads a
// config.toml declaration of devices and tags, connects a driver per
// device, polls tags on their configured rate, and exposes the current
// state and discovery operations over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"github.com/forgeio/gateway/internal/api"
	"github.com/forgeio/gateway/internal/app"
	"github.com/forgeio/gateway/internal/config"
	"github.com/forgeio/gateway/internal/drivers"
	"github.com/forgeio/gateway/internal/drivers/opcua"
	"github.com/forgeio/gateway/internal/poll"
	"github.com/forgeio/gateway/internal/tags"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to config.toml")
	addr := flag.String("addr", "127.0.0.1:3000", "HTTP bind address")
	flag.Parse()

	log := hclog.New(&hclog.LoggerOptions{
		Name:  "gateway",
		Level: hclog.Info,
	})

	if err := run(log, *configPath, *addr); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(log hclog.Logger, configPath, addr string) error {
	settings, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration from %s: %w", configPath, err)
	}
	log.Info("configuration loaded", "devices", len(settings.Devices), "tags", len(settings.Tags))

	table := tags.NewTable()
	driverSet := buildDrivers(log, settings.Devices)
	registerTags(log, table, settings.Tags, driverSet)

	store := config.NewStore(settings)
	state := app.New(table, driverSet, store)

	scheduler := poll.New(log, table, driverSet)
	scheduler.Start(context.Background())

	server := api.New(log, state, addr, configPath)
	serverErrCh := make(chan error, 1)
	server.Start(serverErrCh)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErrCh:
		log.Error("http server failed", "error", err)
	}

	return shutdown(log, server, scheduler, driverSet)
}

// buildDrivers constructs and connects one driver per configured device.
// A device whose type or address is malformed is skipped with a warning
// (ConfigError); a device that fails to connect after its retry budget is
// also skipped and never added to the registry, per spec.md §7's
// propagation table.
func buildDrivers(log hclog.Logger, devices []config.DriverConfig) map[string]drivers.Driver {
	out := map[string]drivers.Driver{}
	for _, cfg := range devices {
		if cfg.DriverType() != string(drivers.TypeOPCUA) {
			log.Warn("skipping device with unsupported driver type", "driver_id", cfg.ID, "type", cfg.DriverType())
			continue
		}

		drv := opcua.New(cfg, log)
		if err := drv.Connect(context.Background()); err != nil {
			log.Warn("skipping device that failed to connect", "driver_id", cfg.ID, "error", err)
			continue
		}
		out[cfg.ID] = drv
	}
	return out
}

// registerTags seeds the point table with one Bad-quality entry per
// configured tag whose driver successfully initialized.
func registerTags(log hclog.Logger, table *tags.Table, tagConfigs []config.TagConfig, driverSet map[string]drivers.Driver) {
	for _, t := range tagConfigs {
		if _, ok := driverSet[t.DriverID]; !ok {
			log.Warn("skipping tag with unavailable driver", "path", t.Path, "driver_id", t.DriverID)
			continue
		}
		table.Register(tags.Tag{
			Path:          t.Path,
			DriverID:      t.DriverID,
			DriverAddress: t.Address,
			PollRateMS:    t.PollRateMS,
			Value:         tags.BadTagValue(tags.QualityBad),
		})
	}
}

// shutdown runs the graceful cascade: stop accepting HTTP connections,
// cancel the poll scheduler, disconnect every driver. Failures are
// accumulated rather than aborting the sequence, matching SPEC_FULL.md §9's
// "errors accumulated via go-multierror, logged, never fatal".
func shutdown(log hclog.Logger, server *api.Server, scheduler *poll.Scheduler, driverSet map[string]drivers.Driver) error {
	var result *multierror.Error

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
		result = multierror.Append(result, fmt.Errorf("http shutdown: %w", err))
	}

	scheduler.Stop()

	for id, drv := range driverSet {
		if err := drv.Disconnect(context.Background()); err != nil {
			result = multierror.Append(result, fmt.Errorf("disconnect %s: %w", id, err))
		}
	}

	if result != nil {
		log.Warn("shutdown completed with errors", "error", result)
	} else {
		log.Info("shutdown complete")
	}
	return nil
}
