package line

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultAPIBase    = "https://api.line.me"
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 2

	envChannelSecret = "LINE_CHANNEL_SECRET"
	envChannelToken  = "LINE_CHANNEL_ACCESS_TOKEN"
	envAPIBase       = "LINE_API_BASE"
)

// Config holds the messaging channel credentials and client settings.
type Config struct {
	ChannelSecret      string        `yaml:"channel_secret"`
	ChannelAccessToken string        `yaml:"channel_access_token"`
	APIBase            string        `yaml:"api_base"`
	Timeout            time.Duration `yaml:"-"`
	MaxRetries         int           `yaml:"max_retries"`

	timeoutRaw string
}

// LoadConfig reads configuration from disk.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open line config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader constructs a Config from a reader, applying
// defaults and environment overrides before validating.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	var raw struct {
		ChannelSecret      string `yaml:"channel_secret"`
		ChannelAccessToken string `yaml:"channel_access_token"`
		APIBase            string `yaml:"api_base"`
		Timeout            string `yaml:"timeout"`
		MaxRetries         int    `yaml:"max_retries"`
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read line config: %w", err)
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal line config: %w", err)
	}

	cfg := &Config{
		ChannelSecret:      raw.ChannelSecret,
		ChannelAccessToken: raw.ChannelAccessToken,
		APIBase:            raw.APIBase,
		MaxRetries:         raw.MaxRetries,
		timeoutRaw:         raw.Timeout,
	}
	cfg.applyDefaults()
	cfg.applyEnvOverrides()
	if err := cfg.parseTimeout(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigFromEnv builds a Config from environment variables alone, for
// deployments that configure the channel without a section file.
func ConfigFromEnv() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvOverrides()
	cfg.Timeout = defaultTimeout
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the channel credentials are present.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ChannelSecret) == "" {
		return errors.New("line config: channel_secret is required")
	}
	if strings.TrimSpace(c.ChannelAccessToken) == "" {
		return errors.New("line config: channel_access_token is required")
	}
	if strings.TrimSpace(c.APIBase) == "" {
		return errors.New("line config: api_base is required")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.APIBase) == "" {
		c.APIBase = defaultAPIBase
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
}

func (c *Config) applyEnvOverrides() {
	c.ChannelSecret = expandAndOverride(c.ChannelSecret, envChannelSecret)
	c.ChannelAccessToken = expandAndOverride(c.ChannelAccessToken, envChannelToken)
	c.APIBase = expandAndOverride(c.APIBase, envAPIBase)
}

func (c *Config) parseTimeout() error {
	if strings.TrimSpace(c.timeoutRaw) == "" {
		c.Timeout = defaultTimeout
		return nil
	}
	d, err := time.ParseDuration(c.timeoutRaw)
	if err != nil {
		return fmt.Errorf("line config: invalid timeout %q: %w", c.timeoutRaw, err)
	}
	if d <= 0 {
		return fmt.Errorf("line config: timeout must be positive, got %s", d)
	}
	c.Timeout = d
	return nil
}

func expandAndOverride(current, envKey string) string {
	current = os.ExpandEnv(current)
	if envVal := os.Getenv(envKey); envVal != "" {
		return envVal
	}
	return current
}
