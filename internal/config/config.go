package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	envConfigFile     = "SHOPLINE_LAB_CONFIG"
	defaultConfigFile = "/etc/shopline-tw-lab/config/config.yaml"

	defaultAPIBaseURL            = "https://open.shopline.io/v1"
	defaultRequestTimeout        = 10 * time.Second
	defaultMerchantCacheDuration = 5 * time.Minute
)

type Config struct {
	Server     ServerConfig     `yaml:"server" json:"server"`
	Session    SessionConfig    `yaml:"session" json:"session"`
	Merchant   MerchantConfig   `yaml:"merchant" json:"merchant"`
	Storefront StorefrontConfig `yaml:"storefront" json:"storefront"`
	Platform   PlatformConfig   `yaml:"platform" json:"platform"`
	Webhook    WebhookConfig    `yaml:"webhook" json:"webhook"`
}

// PlatformConfig points at the SHOPLINE Open API and bounds every
// outbound call made on behalf of a request.
type PlatformConfig struct {
	APIBaseURL            string        `yaml:"apiBaseURL" json:"apiBaseURL"`
	RequestTimeout        time.Duration `yaml:"requestTimeout" json:"requestTimeout"`
	MerchantCacheDuration time.Duration `yaml:"merchantCacheDuration" json:"merchantCacheDuration"`
}

// Load reads the YAML file named by SHOPLINE_LAB_CONFIG. Environment
// references like ${SHOPLINE_CLIENT_SECRET} are expanded before decoding.
func Load() (*Config, error) {
	fileName := defaultConfigFile
	if fn := os.Getenv(envConfigFile); fn != "" {
		fileName = fn
	}
	b, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(b))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.ValidateAndInitialize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) ValidateAndInitialize() error {
	// Apply defaults.
	c.Server.applyDefaults()
	c.Session.applyDefaults()
	c.Merchant.applyDefaults()
	if c.Storefront.Merchants == nil {
		c.Storefront.Merchants = []*StorefrontAppConfig{}
	}
	if c.Platform.APIBaseURL == "" {
		c.Platform.APIBaseURL = defaultAPIBaseURL
	}
	if c.Platform.RequestTimeout == 0 {
		c.Platform.RequestTimeout = defaultRequestTimeout
	}
	if c.Platform.MerchantCacheDuration == 0 {
		c.Platform.MerchantCacheDuration = defaultMerchantCacheDuration
	}

	// Validate required fields.
	if c.Merchant.ClientID == "" {
		return fmt.Errorf("merchant.clientID must be set")
	}
	if c.Merchant.ClientSecret == "" {
		return fmt.Errorf("merchant.clientSecret must be set")
	}
	if c.Merchant.RedirectURL == "" {
		return fmt.Errorf("merchant.redirectURL must be set")
	}
	if c.Platform.RequestTimeout < 0 {
		return fmt.Errorf("platform.requestTimeout must be positive")
	}
	if c.Session.TTL < 0 {
		return fmt.Errorf("session.ttl must be positive")
	}
	if c.Session.MaxSessions < 1 {
		return fmt.Errorf("session.maxSessions must be at least 1")
	}
	if err := c.Storefront.validate(); err != nil {
		return err
	}

	return nil
}
