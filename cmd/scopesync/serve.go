package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	_ "github.com/bcmodular/scopesync-core/migrations"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/bcmodular/scopesync-core/internal/api"
	"github.com/bcmodular/scopesync-core/internal/async"
	"github.com/bcmodular/scopesync-core/internal/bridges/control"
	"github.com/bcmodular/scopesync-core/internal/bridges/midi"
	"github.com/bcmodular/scopesync-core/internal/bridges/osc"
	"github.com/bcmodular/scopesync-core/internal/infrastructure/config"
	"github.com/bcmodular/scopesync-core/internal/infrastructure/database"
	"github.com/bcmodular/scopesync-core/internal/infrastructure/influxdb"
	"github.com/bcmodular/scopesync-core/internal/infrastructure/logging"
	"github.com/bcmodular/scopesync-core/internal/infrastructure/mqtt"
	"github.com/bcmodular/scopesync-core/internal/parameter"
	"github.com/bcmodular/scopesync-core/internal/registry"
	"github.com/bcmodular/scopesync-core/internal/telemetry"
)

// telemetryMinInterval throttles per-parameter InfluxDB writes.
const telemetryMinInterval = 50 * time.Millisecond

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the synchronisation service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(getConfigPath(cmd))
			if err != nil {
				return errors.Wrap(err, "loading config")
			}
			return errors.Wrap(run(cmd.Context(), cfg), "running service")
		},
	}
}

// run is the actual application logic, separated from the command for
// testability. It returns when ctx is cancelled or a component fails.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - cfg: Loaded configuration
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, cfg *config.Config) error { //nolint:gocognit,gocyclo // Startup wiring is linear
	log := logging.New(cfg.Logging, version)
	log.Info("starting ScopeSync",
		"instance", cfg.Instance.Name,
		"instance_id", cfg.Instance.ID,
		"version", version,
		"commit", commit,
		"build_date", date,
		"mode", cfg.Sync.Mode,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)
	repo := registry.NewSQLiteRepository(db.DB)

	// Connect to MQTT broker (optional)
	var (
		mqttClient  *mqtt.Client
		hostAdapter parameter.HostAdapter
	)
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
		mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"topic_prefix", cfg.MQTT.TopicPrefix,
		)

		host := control.NewHostPublisher(mqttClient, mqttClient.Topics())
		host.SetLogger(log.Component("host"))
		hostAdapter = host
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var recorder *telemetry.Recorder
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB, cfg.Instance.ID)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		recorder = telemetry.NewRecorder(influxClient, telemetry.Options{MinInterval: telemetryMinInterval})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Device link
	router := osc.NewRouter(nil)
	router.SetLogger(log.Component("osc"))

	bridge := async.NewBridge()
	bridge.SetScopeInputsEnabled(cfg.Sync.EnableScopeInputs)
	link := async.NewLink(0)
	link.SetScopeSyncListenerPort(cfg.Device.ListenPort)

	// Parameter registry
	var reg *registry.Registry
	reg, err = registry.New(registry.Options{
		Mode:      registry.Mode(cfg.Sync.Mode),
		HostSlots: cfg.Sync.HostSlots,
		Timing: parameter.Timing{
			DeadTime:    cfg.Sync.DeadTime,
			SourceBlock: cfg.Sync.SourceBlock,
			SendMute:    cfg.Sync.SendMute,
		},
		SnapshotStep: cfg.Sync.SnapshotStep,
		PollInterval: cfg.Sync.PollInterval,
		Channel:      router,
		Host:         hostAdapter,
		Bridge:       bridge,
		Link:         link,
		Session:      cfg.Device.Session,
		OnConfigUIDChange: func(uid int) {
			if recorder != nil {
				recorder.ConfigUIDChanged(uid)
			}
			restoreState(ctx, reg, repo, uid, log)
		},
		OnSessionChange: func(session int) {
			if recorder != nil {
				recorder.SessionChanged(session)
			}
		},
		OnSnapshot: func(n int) {
			if recorder != nil {
				recorder.SnapshotSent(n)
			}
		},
		Logger: log.Component("registry"),
	})
	if err != nil {
		return fmt.Errorf("creating parameter registry: %w", err)
	}
	defer reg.Close()

	if cfg.Parameters.File != "" {
		defs, loadErr := parameter.LoadDefinitions(cfg.Parameters.File)
		if loadErr != nil {
			return fmt.Errorf("loading parameter definitions: %w", loadErr)
		}
		if loadErr := reg.Reload(ctx, defs); loadErr != nil {
			return fmt.Errorf("registering parameter definitions: %w", loadErr)
		}
	}
	log.Info("parameter registry ready",
		"parameters", len(reg.Parameters()),
		"host_slots", reg.HostSlots(),
	)

	if recorder != nil {
		removeRecorder := reg.AddObserver(recorder)
		defer removeRecorder()
	}

	var loaded atomic.Bool
	endpoint, err := osc.NewAsyncEndpoint(router, async.NewProcessor(bridge, link, loaded.Load))
	if err != nil {
		return fmt.Errorf("creating async endpoint: %w", err)
	}
	defer endpoint.Close()

	// Control surfaces
	var controlBridge *control.Bridge
	if mqttClient != nil {
		controlBridge, err = control.NewBridge(control.BridgeOptions{
			MQTTClient:     mqttClient,
			Registry:       reg,
			Topics:         mqttClient.Topics(),
			InstanceID:     cfg.Instance.ID,
			Version:        version,
			Mode:           cfg.Sync.Mode,
			HealthInterval: cfg.GetHealthInterval(),
			Checks:         healthChecks(influxClient),
			Logger:         log.Component("control"),
		})
		if err != nil {
			return fmt.Errorf("creating control bridge: %w", err)
		}
		if err := controlBridge.Start(ctx); err != nil {
			return fmt.Errorf("starting control bridge: %w", err)
		}
		defer controlBridge.Stop()
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
			controlBridge.PublishAll()
		})
	}

	apiDeps := api.Deps{
		Config:       cfg.API,
		WS:           cfg.WebSocket,
		Logger:       log.Component("api"),
		Registry:     reg,
		Repository:   repo,
		DB:           db,
		Instance:     cfg.Instance,
		Version:      version,
		DeviceFrames: endpoint.Frames,
	}
	if mqttClient != nil {
		apiDeps.MQTT = mqttClient
	}
	if recorder != nil {
		apiDeps.Telemetry = recorder
	}
	apiServer, err := api.New(apiDeps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	// Restore the configured state before the device link starts
	if uid := cfg.Device.ConfigUID; uid != 0 {
		link.SetConfigUID(uid)
		restoreState(ctx, reg, repo, uid, log)
	}
	loaded.Store(true)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return reg.Run(gctx)
	})

	if cfg.Device.Enabled {
		transport, err := osc.NewTransport(osc.TransportOptions{
			ListenHost: cfg.Device.ListenHost,
			ListenPort: cfg.Device.ListenPort,
			RemoteHost: cfg.Device.RemoteHost,
			RemotePort: cfg.Device.RemotePort,
			Router:     router,
			Logger:     log.Component("osc"),
		})
		if err != nil {
			return fmt.Errorf("creating OSC transport: %w", err)
		}
		g.Go(func() error {
			return transport.Run(gctx)
		})
	} else {
		log.Info("device link disabled")
	}

	if cfg.MIDI.Enabled {
		midiRouter := midi.NewRouter(reg)
		midiRouter.SetLogger(log.Component("midi"))
		g.Go(func() error {
			if err := midiRouter.Listen(gctx, cfg.MIDI.InputPort); err != nil {
				// A missing controller must not stop the service.
				log.Warn("MIDI input unavailable", "port", cfg.MIDI.InputPort, "error", err)
			}
			return nil
		})
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	if err := g.Wait(); err != nil {
		return fmt.Errorf("service stopped: %w", err)
	}

	log.Info("ScopeSync stopped")
	return nil
}

// restoreState loads the values stored for a configuration UID and pushes
// them to the device. Failures are logged; the service keeps running with
// the current values.
func restoreState(ctx context.Context, reg *registry.Registry, repo registry.Repository, uid int, log *logging.Logger) {
	n, err := reg.Load(ctx, repo, uid)
	if err != nil {
		log.Warn("restoring parameter state failed", "config_uid", uid, "error", err)
		return
	}
	log.Info("parameter state restored", "config_uid", uid, "parameters", n)
}

func healthChecks(influxClient *influxdb.Client) []control.HealthCheck {
	if influxClient == nil {
		return nil
	}
	return []control.HealthCheck{{Name: "InfluxDB", Connected: influxClient.IsConnected}}
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
