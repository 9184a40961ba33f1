package connector

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"aihealth.app/health-assistant/internal/store"
)

const (
	AuthStatic = "static"
	AuthJWT    = "jwt"
)

type ClickHouseConfig struct {
	Addr     string `yaml:"addr"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type Config struct {
	BaseURL  string `yaml:"base_url"`  // e.g. http://localhost:3001/api/etl
	APIKey   string `yaml:"api_key"`   // the server's ETL_BEARER
	AuthMode string `yaml:"auth_mode"` // static | jwt
	PageSize int    `yaml:"page_size"`
	// Since is the first-run lower bound, RFC 3339 or YYYY-MM-DD. The state
	// file takes over after a successful run.
	Since     string   `yaml:"since"`
	Resources []string `yaml:"resources"`
	StatePath string   `yaml:"state_path"`

	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	Backoff    time.Duration `yaml:"backoff"`
	MaxBackoff time.Duration `yaml:"max_backoff"`

	// Rows go to stdout as JSON lines unless a warehouse is configured.
	ClickHouse *ClickHouseConfig `yaml:"clickhouse"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

func Parse(b []byte) (Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Config{}, fmt.Errorf("failed to parse connector config: %w", err)
	}
	if err := c.normalize(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) normalize() error {
	var missing []string
	if strings.TrimSpace(c.BaseURL) == "" {
		missing = append(missing, "base_url")
	}
	if c.APIKey == "" {
		missing = append(missing, "api_key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing config keys: %s", strings.Join(missing, ", "))
	}
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")

	switch c.AuthMode {
	case "":
		c.AuthMode = AuthStatic
	case AuthStatic, AuthJWT:
	default:
		return fmt.Errorf("unknown auth_mode %q (static or jwt)", c.AuthMode)
	}

	if c.PageSize <= 0 {
		c.PageSize = 200
	}
	if c.PageSize > store.MaxLimit {
		c.PageSize = store.MaxLimit
	}
	if len(c.Resources) == 0 {
		for _, r := range store.Resources {
			c.Resources = append(c.Resources, string(r))
		}
	}
	for _, r := range c.Resources {
		if _, err := store.ParseResource(r); err != nil {
			return err
		}
	}
	if c.StatePath == "" {
		c.StatePath = "connector-state.yml"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.Backoff <= 0 {
		c.Backoff = 500 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 5 * time.Second
	}
	if c.ClickHouse != nil && c.ClickHouse.Addr == "" {
		return errors.New("clickhouse sink needs an addr")
	}
	if c.ClickHouse != nil && c.ClickHouse.Database == "" {
		c.ClickHouse.Database = "ai_health"
	}
	return nil
}

// ResourceList returns the configured resources in sync order.
func (c Config) ResourceList() []store.Resource {
	out := make([]store.Resource, 0, len(c.Resources))
	for _, r := range c.Resources {
		res, _ := store.ParseResource(r)
		out = append(out, res)
	}
	return out
}
