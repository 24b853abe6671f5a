package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// NATSConfig is the JetStream connection used for catalog events.
type NATSConfig struct {
	Enabled bool          `koanf:"enabled"`
	Url     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

func (c *NATSConfig) String() string {
	return fmt.Sprintf("\n--- NATS ---\n  enabled: %t\n  url: %s\n  timeout: %s\n", c.Enabled, c.Url, c.Timeout)
}

func (c *NATSConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Url == "" {
		return errors.New("NATS URL is not configured")
	}
	if c.Timeout <= 0 {
		return errors.New("nats dial timeout is not configured")
	}
	return nil
}

// SubscriberConfig describes the pull consumer reloading the catalog on remote updates.
// Consumer is a prefix; every replica appends its instance id.
type SubscriberConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Stream   string        `koanf:"stream"`
	Subject  string        `koanf:"subject"`
	Consumer string        `koanf:"consumer"`
	Batch    int           `koanf:"batch"`
	Timeout  time.Duration `koanf:"timeout"`
	Interval time.Duration `koanf:"interval"`
	Workers  int           `koanf:"workers"`
}

// DurableFor returns the consumer name owned by one replica.
func (c *SubscriberConfig) DurableFor(instance string) string {
	if instance == "" {
		return c.Consumer
	}
	return c.Consumer + "-" + instance
}

func (c *SubscriberConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- NATS Subscriber ---\n")
	b.WriteString(fmt.Sprintf("  enabled: %t\n", c.Enabled))
	b.WriteString(fmt.Sprintf("  stream: %s, subject: %s, consumer: %s\n", c.Stream, c.Subject, c.Consumer))
	b.WriteString(fmt.Sprintf("  batch: %d, workers: %d\n", c.Batch, c.Workers))
	b.WriteString(fmt.Sprintf("  fetch timeout: %s, retry interval: %s\n", c.Timeout, c.Interval))
	return b.String()
}

func (c *SubscriberConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch {
	case c.Stream == "":
		return errors.New("subscriber stream is not configured")
	case c.Subject == "":
		return errors.New("subscriber subject is not configured")
	case c.Consumer == "":
		return errors.New("subscriber consumer is not configured")
	case strings.ContainsAny(c.Consumer, ".*> \t"):
		return fmt.Errorf("subscriber consumer %q must not contain '.', '*', '>' or whitespace", c.Consumer)
	case c.Batch <= 0:
		return errors.New("subscriber batch must be greater than zero")
	case c.Timeout <= 0:
		return errors.New("subscriber fetch timeout must be greater than zero")
	case c.Interval <= 0:
		return errors.New("subscriber retry interval must be greater than zero")
	case c.Workers <= 0:
		return errors.New("subscriber workers must be greater than zero")
	}
	return nil
}
