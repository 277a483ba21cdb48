package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/fleetlive/tracker/internal/connection"
	"github.com/fleetlive/tracker/internal/otel"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "fleetlive.cfg.json"

// EnvPrefix prefixes environment overrides, e.g. FLEETLIVE_CHANNEL_URL.
const EnvPrefix = "FLEETLIVE"

// APIConfig holds REST collaborator settings
type APIConfig struct {
	ServerURL    string `json:"serverUrl" mapstructure:"serverUrl"`
	Token        string `json:"token" mapstructure:"token"`
	HistoryHours int    `json:"historyHours" mapstructure:"historyHours"`
}

// StoreConfig holds live state store settings
type StoreConfig struct {
	HistoryLimit       int  `json:"historyLimit" mapstructure:"historyLimit"`
	AlertLimit         int  `json:"alertLimit" mapstructure:"alertLimit"`
	RejectStaleSamples bool `json:"rejectStaleSamples" mapstructure:"rejectStaleSamples"`
}

// InfluxConfig holds metrics sink settings
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// SetDefaults registers default values and environment overrides.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./fleetlogs")

	viper.SetDefault("channel.url", "ws://localhost:3001")
	viper.SetDefault("channel.token", "")
	viper.SetDefault("channel.handshakeTimeout", "20s")
	viper.SetDefault("channel.reconnectDelay", "1s")
	viper.SetDefault("channel.reconnectDelayMax", "5s")
	viper.SetDefault("channel.reconnectAttempts", 5)

	viper.SetDefault("api.serverUrl", "http://localhost:3001")
	viper.SetDefault("api.token", "")
	viper.SetDefault("api.historyHours", 24)

	viper.SetDefault("store.historyLimit", 50)
	viper.SetDefault("store.alertLimit", 10)
	viper.SetDefault("store.rejectStaleSamples", false)

	viper.SetDefault("monitor.interval", "5s")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "fleetlive")
	viper.SetDefault("otel.environment", "")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "fleetlive")
	viper.SetDefault("influx.bucket", "fleet_dashboard")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// Watch reloads the config file whenever it changes on disk and calls
// onChange after each reload. Load must have succeeded first.
func Watch(onChange func(e fsnotify.Event)) {
	viper.OnConfigChange(onChange)
	viper.WatchConfig()
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// GetChannelConfig returns the connection manager settings.
func GetChannelConfig() connection.Config {
	return connection.Config{
		URL:               viper.GetString("channel.url"),
		Token:             viper.GetString("channel.token"),
		HandshakeTimeout:  viper.GetDuration("channel.handshakeTimeout"),
		ReconnectDelay:    viper.GetDuration("channel.reconnectDelay"),
		ReconnectDelayMax: viper.GetDuration("channel.reconnectDelayMax"),
		ReconnectAttempts: viper.GetInt("channel.reconnectAttempts"),
	}
}

// GetAPIConfig returns the REST collaborator settings.
func GetAPIConfig() APIConfig {
	return APIConfig{
		ServerURL:    viper.GetString("api.serverUrl"),
		Token:        viper.GetString("api.token"),
		HistoryHours: viper.GetInt("api.historyHours"),
	}
}

// GetStoreConfig returns the live state store settings.
func GetStoreConfig() StoreConfig {
	return StoreConfig{
		HistoryLimit:       viper.GetInt("store.historyLimit"),
		AlertLimit:         viper.GetInt("store.alertLimit"),
		RejectStaleSamples: viper.GetBool("store.rejectStaleSamples"),
	}
}

// GetOTelConfig returns the telemetry provider settings. The log writer is
// left for the caller to fill in.
func GetOTelConfig() otel.Config {
	return otel.Config{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		Environment:  viper.GetString("otel.environment"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetInfluxConfig returns the metrics sink settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}
