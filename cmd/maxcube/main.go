// Gray Logic MAX! Cube bridge
//
// This is the main entry point for the bridge between the Gray Logic host
// and eQ-3 MAX! Cube heating gateways. The bridge:
//   - Connects every configured gateway at startup
//   - Serves entity update requests over MQTT, at most one gateway refresh per interval
//   - Exposes gateway status over HTTP
//   - Optionally records poll outcomes in InfluxDB
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/nerrad567/gray-logic-maxcube/internal/api"
	"github.com/nerrad567/gray-logic-maxcube/internal/bridges/maxcube"
	"github.com/nerrad567/gray-logic-maxcube/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-maxcube/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-maxcube/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-maxcube/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting MAX! Cube bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	if err := loadDotEnv(".env"); err != nil {
		return err
	}

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath, "gateways", len(cfg.MaxCube.Gateways))

	log = logging.New(cfg.Logging, version)
	for _, gw := range cfg.MaxCube.Gateways {
		log.Debug("gateway configured", "address", gw.Address())
	}

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
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
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Connect to InfluxDB (optional)
	var metrics maxcube.MetricsWriter
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(ctx, cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
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
		metrics = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Connect gateways and activate platforms
	mqttAdapter := &mqttBridgeAdapter{client: mqttClient}
	registry := maxcube.NewRegistry()
	defer func() {
		log.Info("closing gateway connections")
		if closeErr := registry.Close(); closeErr != nil {
			log.Error("error closing gateways", "error", closeErr)
		}
	}()

	bridgeLog := log.Component("maxcube")
	result, err := maxcube.Setup(ctx, setupOptions(cfg, registry, mqttAdapter, metrics, bridgeLog))
	switch {
	case errors.Is(err, maxcube.ErrPartialSetup):
		log.Warn("some gateways failed setup", "registered", result.Registered, "error", err)
	case errors.Is(err, maxcube.ErrSetupFailed):
		// The notification asks the user to restart; stay up so the
		// status API keeps answering until then.
		log.Error("gateway setup failed, no gateways registered", "error", err)
	case err != nil:
		return fmt.Errorf("setting up gateways: %w", err)
	}
	log.Info("gateways ready", "registered", result.Registered, "platforms", len(result.Activated))

	// Serve entity update requests
	service, err := maxcube.NewService(maxcube.ServiceConfig{
		Registry:      registry,
		Client:        mqttAdapter,
		QoS:           mqttClient.QoS(),
		UpdateTimeout: cfg.GetGatewayReadTimeout() * 3,
		Logger:        bridgeLog,
	})
	if err != nil {
		return fmt.Errorf("creating service: %w", err)
	}
	if err := service.Start(ctx); err != nil {
		return fmt.Errorf("starting service: %w", err)
	}
	defer service.Stop()

	// Start status API (optional)
	if cfg.API.Enabled {
		apiServer, apiErr := api.New(api.Deps{
			Config:   cfg.API,
			Timeouts: apiTimeouts(cfg),
			Logger:   log.Component("api"),
			Registry: registry,
			MQTT:     mqttClient,
			Version:  version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: mqtt: %w", err)
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order: API, service, gateways,
	// InfluxDB, MQTT.
	return nil
}

// setupOptions converts configuration into maxcube.SetupOptions.
func setupOptions(cfg *config.Config, registry *maxcube.Registry, client maxcube.MQTTClient, metrics maxcube.MetricsWriter, log *logging.Logger) maxcube.SetupOptions {
	gateways := make([]maxcube.Gateway, 0, len(cfg.MaxCube.Gateways))
	for _, gw := range cfg.MaxCube.Gateways {
		gateways = append(gateways, maxcube.Gateway{Host: gw.Host, Port: gw.Port})
	}

	qos := byte(cfg.MQTT.QoS) //nolint:gosec // validated to 0-2 by config.Validate

	return maxcube.SetupOptions{
		Gateways: gateways,
		Policy:   maxcube.Policy(cfg.Setup.Policy),
		Dialer: maxcube.TCPDialer{
			ConnectTimeout: cfg.GetConnectTimeout(),
			ReadTimeout:    cfg.GetGatewayReadTimeout(),
		},
		Registry:  registry,
		Notifier:  &maxcube.MQTTNotifier{Client: client, QoS: qos},
		Activator: &maxcube.MQTTActivator{Client: client, QoS: qos},
		Handle: maxcube.HandleOptions{
			Interval:       cfg.GetPollInterval(),
			ImmediateFirst: cfg.Polling.ImmediateFirstPoll,
			Logger:         log,
			Observer:       maxcube.NewPollRecorder(metrics),
		},
		Logger: log,
	}
}

// apiTimeouts converts the API timeout settings into durations.
func apiTimeouts(cfg *config.Config) api.Timeouts {
	return api.Timeouts{
		Read:  cfg.GetReadTimeout(),
		Write: cfg.GetWriteTimeout(),
		Idle:  cfg.GetIdleTimeout(),
	}
}

// loadDotEnv loads environment variables from path if the file exists.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// getConfigPath returns the configuration file path.
// Uses MAXCUBE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("MAXCUBE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// mqttBridgeAdapter adapts the infrastructure MQTT client to the
// maxcube.MQTTClient interface. The only difference is the handler type:
// the infrastructure client takes the named mqtt.MessageHandler.
type mqttBridgeAdapter struct {
	client *mqtt.Client
}

// Publish implements maxcube.MQTTClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements maxcube.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error {
	return a.client.Subscribe(topic, qos, mqtt.MessageHandler(handler))
}

// IsConnected implements maxcube.MQTTClient.
func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}
