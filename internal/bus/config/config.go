// Package config groups the settings required to build a process-side
// adapter and its bridge backend. Each backend only uses the keys that are
// relevant to it.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v10"
)

// DefaultMaxHistorySize bounds the per-bus history ring when the config does
// not override it.
const DefaultMaxHistorySize = 100

// Config holds adapter and bridge settings.
type Config struct {
	// Side names this process side: "backend" (privileged) or "frontend"
	// (sandboxed). Emissions without an explicit source default to it.
	Side string `env:"CROSSBUS_SIDE" envDefault:"backend"`

	// BridgeSystem selects the bridge backend: "channel", "nats",
	// "jetstream", "http", "rabbitmq", or "kafka". Empty runs the adapter
	// local-only without attempting to build a bridge.
	BridgeSystem string `env:"CROSSBUS_BRIDGE"`

	// MaxHistorySize bounds the event history ring. Zero selects the
	// default; negative disables history.
	MaxHistorySize int `env:"CROSSBUS_MAX_HISTORY"`

	// DisableHistory turns off history recording entirely.
	DisableHistory bool `env:"CROSSBUS_DISABLE_HISTORY"`

	// MetricsEnabled registers the Prometheus collectors for this adapter.
	MetricsEnabled bool `env:"CROSSBUS_METRICS_ENABLED"`

	// AnnounceSubscriptions publishes a best-effort announcement on the
	// bridge whenever a local subscription is created.
	AnnounceSubscriptions bool `env:"CROSSBUS_ANNOUNCE_SUBSCRIPTIONS"`

	// NATS / JetStream configuration.
	NATSURL         string `env:"CROSSBUS_NATS_URL"`
	JetStreamStream string `env:"CROSSBUS_JETSTREAM_STREAM"`

	// HTTP configuration.
	HTTPServerAddress string `env:"CROSSBUS_HTTP_SERVER_ADDRESS"`
	// HTTPPublisherURL is the base URL of the counterpart side.
	HTTPPublisherURL string `env:"CROSSBUS_HTTP_PUBLISHER_URL"`

	// RabbitMQ configuration.
	RabbitMQURL string `env:"CROSSBUS_RABBITMQ_URL"`

	// Kafka configuration.
	KafkaBrokers       []string `env:"CROSSBUS_KAFKA_BROKERS"`
	KafkaConsumerGroup string   `env:"CROSSBUS_KAFKA_CONSUMER_GROUP"`
}

// FromEnv builds a Config from CROSSBUS_* environment variables.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Getter methods to implement the bridge.Config interface.
func (c *Config) GetBridgeSystem() string       { return c.BridgeSystem }
func (c *Config) GetNATSURL() string            { return c.NATSURL }
func (c *Config) GetJetStreamStream() string    { return c.JetStreamStream }
func (c *Config) GetHTTPServerAddress() string  { return c.HTTPServerAddress }
func (c *Config) GetHTTPPublisherURL() string   { return c.HTTPPublisherURL }
func (c *Config) GetRabbitMQURL() string        { return c.RabbitMQURL }
func (c *Config) GetKafkaBrokers() []string     { return c.KafkaBrokers }
func (c *Config) GetKafkaConsumerGroup() string { return c.KafkaConsumerGroup }

// HistorySize resolves the configured history bound.
func (c *Config) HistorySize() int {
	if c.DisableHistory || c.MaxHistorySize < 0 {
		return 0
	}
	if c.MaxHistorySize == 0 {
		return DefaultMaxHistorySize
	}
	return c.MaxHistorySize
}

func (c Config) String() string {
	// Redact credentials that may be embedded in connection URLs.
	copy := c
	if copy.RabbitMQURL != "" {
		copy.RabbitMQURL = redactURLCredentials(copy.RabbitMQURL)
	}
	if copy.NATSURL != "" {
		copy.NATSURL = redactURLCredentials(copy.NATSURL)
	}
	// Type alias avoids infinite recursion when printing.
	type configAlias Config
	return fmt.Sprintf("%+v", configAlias(copy))
}

func redactURLCredentials(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "***REDACTED_URL***"
	}
	if parsed.User != nil {
		if _, hasPassword := parsed.User.Password(); hasPassword {
			parsed.User = url.UserPassword(parsed.User.Username(), "***REDACTED***")
		}
	}
	return parsed.String()
}

// Validate checks that the configuration has all required fields for the
// selected side and bridge backend. Unknown backend names are allowed so
// custom registrations keep working.
func (c *Config) Validate() error {
	var errs []error

	errs = append(errs, c.validateSide()...)
	errs = append(errs, c.validateBridge()...)

	return errors.Join(errs...)
}

func (c *Config) validateSide() []error {
	switch strings.ToLower(c.Side) {
	case "backend", "frontend":
		return nil
	case "":
		return []error{errors.New("side: required (backend or frontend)")}
	}
	return []error{fmt.Errorf("side: must be backend or frontend, got %q", c.Side)}
}

func (c *Config) validateBridge() []error {
	switch strings.ToLower(c.BridgeSystem) {
	case "nats", "jetstream":
		if c.NATSURL == "" {
			return []error{errors.New("nats: URL is required")}
		}
	case "http":
		var errs []error
		if c.HTTPServerAddress == "" {
			errs = append(errs, errors.New("http: server address is required"))
		}
		if c.HTTPPublisherURL == "" {
			errs = append(errs, errors.New("http: publisher URL is required"))
		}
		return errs
	case "rabbitmq":
		if c.RabbitMQURL == "" {
			return []error{errors.New("rabbitmq: URL is required")}
		}
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			return []error{errors.New("kafka: brokers are required")}
		}
	}
	// channel, "", and custom backends have no required config.
	return nil
}

// ValidateConfig is a convenience function to validate a config pointer.
func ValidateConfig(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	return c.Validate()
}
