package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultGatewayPort is the TCP port a MAX! Cube listens on.
const DefaultGatewayPort = 62910

// Setup policies.
const (
	// SetupPolicyFailFast aborts setup on the first gateway that cannot be reached.
	SetupPolicyFailFast = "fail_fast"

	// SetupPolicyIndependent attempts every gateway and activates the reachable ones.
	SetupPolicyIndependent = "independent"
)

// Config is the root configuration structure for the MAX! Cube bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	MaxCube  MaxCubeConfig  `yaml:"maxcube"`
	Polling  PollingConfig  `yaml:"polling"`
	Setup    SetupConfig    `yaml:"setup"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	API      APIConfig      `yaml:"api"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// MaxCubeConfig lists the gateways to connect to.
type MaxCubeConfig struct {
	Gateways []GatewayConfig `yaml:"gateways"`

	// ConnectTimeout is the initial TCP connect timeout in seconds.
	ConnectTimeout int `yaml:"connect_timeout"`

	// ReadTimeout bounds each read from the gateway in seconds.
	ReadTimeout int `yaml:"read_timeout"`
}

// GatewayConfig identifies a single MAX! Cube on the LAN.
type GatewayConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"` // Default: 62910
}

// Address returns host:port, bracketing IPv6 hosts.
func (g GatewayConfig) Address() string {
	return net.JoinHostPort(g.Host, strconv.Itoa(g.Port))
}

// PollingConfig controls how often gateways are refreshed.
type PollingConfig struct {
	// Interval is the minimum number of seconds between successful refreshes.
	Interval int `yaml:"interval"`

	// ImmediateFirstPoll lets the first update after startup refresh at once
	// instead of waiting out a full interval.
	ImmediateFirstPoll bool `yaml:"immediate_first_poll"`
}

// SetupConfig controls startup behaviour.
type SetupConfig struct {
	// Policy is "fail_fast" (default) or "independent".
	Policy string `yaml:"policy"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP status API settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//  4. Per-gateway defaults (port 62910 when omitted)
//
// Environment variables follow the pattern: MAXCUBE_SECTION_KEY
// For example: MAXCUBE_MQTT_HOST, MAXCUBE_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.applyGatewayDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		MaxCube: MaxCubeConfig{
			ConnectTimeout: 10,
			ReadTimeout:    10,
		},
		Polling: PollingConfig{
			Interval: 60,
		},
		Setup: SetupConfig{
			Policy: SetupPolicyFailFast,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-maxcube",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 90, // covers a refresh held behind the poll lock
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: MAXCUBE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Gateways: comma-separated host or host:port entries
	if v := os.Getenv("MAXCUBE_GATEWAYS"); v != "" {
		cfg.MaxCube.Gateways = parseGatewayList(v)
	}

	// Polling
	if v := os.Getenv("MAXCUBE_POLLING_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Polling.Interval = n
		}
	}

	// Setup
	if v := os.Getenv("MAXCUBE_SETUP_POLICY"); v != "" {
		cfg.Setup.Policy = v
	}

	// MQTT
	if v := os.Getenv("MAXCUBE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("MAXCUBE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("MAXCUBE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("MAXCUBE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("MAXCUBE_API_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = n
		}
	}

	// InfluxDB
	if v := os.Getenv("MAXCUBE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("MAXCUBE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// parseGatewayList parses "host[:port],host[:port]" into gateway configs.
// IPv6 hosts with a port must be bracketed ("[fe80::1]:62910"); a bare IPv6
// address is taken whole. A missing or unparsable port is left as zero and
// defaulted later.
func parseGatewayList(v string) []GatewayConfig {
	var gateways []GatewayConfig
	for _, entry := range strings.Split(v, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		gw := GatewayConfig{Host: strings.Trim(entry, "[]")}
		if host, portStr, err := net.SplitHostPort(entry); err == nil {
			if port, err := strconv.Atoi(portStr); err == nil {
				gw.Host = host
				gw.Port = port
			}
		}
		gateways = append(gateways, gw)
	}
	return gateways
}

// applyGatewayDefaults fills in the default port for gateways that omit it.
func (c *Config) applyGatewayDefaults() {
	for i := range c.MaxCube.Gateways {
		if c.MaxCube.Gateways[i].Port == 0 {
			c.MaxCube.Gateways[i].Port = DefaultGatewayPort
		}
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Gateway validation
	if len(c.MaxCube.Gateways) == 0 {
		errs = append(errs, "maxcube.gateways must list at least one gateway")
	}
	seen := make(map[string]bool, len(c.MaxCube.Gateways))
	for i, gw := range c.MaxCube.Gateways {
		if gw.Host == "" {
			errs = append(errs, fmt.Sprintf("maxcube.gateways[%d].host is required", i))
			continue
		}
		if gw.Port < 1 || gw.Port > 65535 {
			errs = append(errs, fmt.Sprintf("maxcube.gateways[%d].port must be between 1 and 65535", i))
		}
		if seen[gw.Host] {
			errs = append(errs, fmt.Sprintf("maxcube.gateways[%d].host %q is duplicated", i, gw.Host))
		}
		seen[gw.Host] = true
	}

	// Polling validation
	if c.Polling.Interval < 1 {
		errs = append(errs, "polling.interval must be at least 1 second")
	}

	// Setup validation
	switch c.Setup.Policy {
	case SetupPolicyFailFast, SetupPolicyIndependent:
	default:
		errs = append(errs, fmt.Sprintf("setup.policy must be %q or %q", SetupPolicyFailFast, SetupPolicyIndependent))
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API validation
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetPollInterval returns the polling interval as a Duration.
func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.Polling.Interval) * time.Second
}

// GetConnectTimeout returns the gateway connect timeout as a Duration.
func (c *Config) GetConnectTimeout() time.Duration {
	return time.Duration(c.MaxCube.ConnectTimeout) * time.Second
}

// GetGatewayReadTimeout returns the gateway read timeout as a Duration.
func (c *Config) GetGatewayReadTimeout() time.Duration {
	return time.Duration(c.MaxCube.ReadTimeout) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
