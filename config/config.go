package config

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/candlepulse/candle-pusher/candle/exchange"
)

const (
	defaultListenAddr        = "0.0.0.0:8900"
	defaultSrvWriteTimeout   = 15 * time.Second
	defaultSrvReadTimeout    = 15 * time.Second
	defaultAdapterTimeout    = 15 * time.Second
	defaultHeartbeatInterval = 30 * time.Second
	defaultHeartbeatWindow   = 60 * time.Second
	defaultGeckoNetworks     = "gecko-networks.json"
	defaultRedisAddr         = "localhost:6379"
	defaultRedisDB           = 5

	SampleConfigPath = "candle-pusher.example.toml"
)

var (
	validate = validator.New()

	// ErrEmptyConfigPath defines a sentinel error for an empty config path.
	ErrEmptyConfigPath = errors.New("empty configuration file path")
)

type (
	// Config defines all necessary candle-pusher configuration parameters.
	Config struct {
		Server    Server     `mapstructure:"server"`
		Heartbeat Heartbeat  `mapstructure:"heartbeat"`
		Adapter   Adapter    `mapstructure:"adapter"`
		Redis     Redis      `mapstructure:"redis"`
		Endpoints []Endpoint `mapstructure:"exchange_endpoints" validate:"dive"`
	}

	// Server defines the API server configuration.
	Server struct {
		ListenAddr     string   `mapstructure:"listen_addr"`
		WriteTimeout   string   `mapstructure:"write_timeout"`
		ReadTimeout    string   `mapstructure:"read_timeout"`
		VerboseCORS    bool     `mapstructure:"verbose_cors"`
		AllowedOrigins []string `mapstructure:"allowed_origins"`
	}

	// Heartbeat tunes the idle-session eviction loop.
	Heartbeat struct {
		Interval string `mapstructure:"interval"`
		Window   string `mapstructure:"window"`
	}

	// Adapter tunes the upstream candle adapters.
	Adapter struct {
		Timeout       string `mapstructure:"timeout"`
		GeckoNetworks string `mapstructure:"gecko_networks"`
	}

	// Redis configures the optional symbol-catalog cache.
	Redis struct {
		Enabled  bool   `mapstructure:"enabled"`
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	}

	// Endpoint overrides the host for one exchange adapter, for proxying
	// restricted venues.
	Endpoint struct {
		Name string `mapstructure:"name" validate:"required"`
		Host string `mapstructure:"host" validate:"required"`
	}
)

// endpointValidation is custom validation for the Endpoint struct.
func endpointValidation(sl validator.StructLevel) {
	endpoint := sl.Current().Interface().(Endpoint)

	if _, ok := exchange.Lookup(endpoint.Name); !ok {
		sl.ReportError(endpoint.Name, "name", "Name", "unsupportedEndpointExchange", "")
	}
}

// Validate returns an error if the Config object is invalid.
func (c Config) Validate() error {
	for _, field := range []string{
		c.Server.WriteTimeout,
		c.Server.ReadTimeout,
		c.Heartbeat.Interval,
		c.Heartbeat.Window,
		c.Adapter.Timeout,
	} {
		if _, err := time.ParseDuration(field); err != nil {
			return err
		}
	}

	validate.RegisterStructValidation(endpointValidation, Endpoint{})
	return validate.Struct(c)
}

func (c *Config) setDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = defaultListenAddr
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = defaultSrvWriteTimeout.String()
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = defaultSrvReadTimeout.String()
	}
	if c.Heartbeat.Interval == "" {
		c.Heartbeat.Interval = defaultHeartbeatInterval.String()
	}
	if c.Heartbeat.Window == "" {
		c.Heartbeat.Window = defaultHeartbeatWindow.String()
	}
	if c.Adapter.Timeout == "" {
		c.Adapter.Timeout = defaultAdapterTimeout.String()
	}
	if c.Adapter.GeckoNetworks == "" {
		c.Adapter.GeckoNetworks = defaultGeckoNetworks
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = defaultRedisAddr
	}
	if c.Redis.DB == 0 {
		c.Redis.DB = defaultRedisDB
	}
}

// HostOverrides returns the endpoint overrides keyed by exchange id.
func (c Config) HostOverrides() map[string]string {
	hosts := make(map[string]string, len(c.Endpoints))
	for _, e := range c.Endpoints {
		hosts[e.Name] = e.Host
	}
	return hosts
}
