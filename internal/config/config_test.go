package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/gomega"
)

func validConfig() Config {
	return Config{
		Merchant: MerchantConfig{
			ClientID:     "merchant-client-id",
			ClientSecret: "merchant-client-secret",
			RedirectURL:  "https://lab.example.com/auth/callback",
		},
	}
}

func TestConfig_ValidateAndInitialize(t *testing.T) {
	tests := []struct {
		name           string
		config         func() Config
		expectedErrMsg string
		check          func(g *WithT, c *Config)
	}{
		{
			name: "missing merchant client id",
			config: func() Config {
				c := validConfig()
				c.Merchant.ClientID = ""
				return c
			},
			expectedErrMsg: "merchant.clientID must be set",
		},
		{
			name: "missing merchant client secret",
			config: func() Config {
				c := validConfig()
				c.Merchant.ClientSecret = ""
				return c
			},
			expectedErrMsg: "merchant.clientSecret must be set",
		},
		{
			name: "missing merchant redirect url",
			config: func() Config {
				c := validConfig()
				c.Merchant.RedirectURL = ""
				return c
			},
			expectedErrMsg: "merchant.redirectURL must be set",
		},
		{
			name: "negative request timeout",
			config: func() Config {
				c := validConfig()
				c.Platform.RequestTimeout = -time.Second
				return c
			},
			expectedErrMsg: "platform.requestTimeout must be positive",
		},
		{
			name: "negative max sessions",
			config: func() Config {
				c := validConfig()
				c.Session.MaxSessions = -1
				return c
			},
			expectedErrMsg: "session.maxSessions must be at least 1",
		},
		{
			name: "storefront merchant without id",
			config: func() Config {
				c := validConfig()
				c.Storefront.Merchants = []*StorefrontAppConfig{{ClientID: "x"}}
				return c
			},
			expectedErrMsg: "merchantID is empty for storefront.merchants[0]",
		},
		{
			name: "duplicate storefront merchant",
			config: func() Config {
				c := validConfig()
				c.Storefront.Merchants = []*StorefrontAppConfig{
					{MerchantID: "M1", ClientID: "a"},
					{MerchantID: "M1", ClientID: "b"},
				}
				return c
			},
			expectedErrMsg: "duplicate storefront.merchants entry for merchant 'M1'",
		},
		{
			name: "storefront merchant without client and no default",
			config: func() Config {
				c := validConfig()
				c.Storefront.Merchants = []*StorefrontAppConfig{{MerchantID: "M1"}}
				return c
			},
			expectedErrMsg: "clientID is empty for storefront.merchants[0] and no default is set",
		},
		{
			name:   "defaults applied",
			config: validConfig,
			check: func(g *WithT, c *Config) {
				g.Expect(c.Server.Addr).To(Equal(":3000"))
				g.Expect(c.Server.AppURL).To(Equal("http://localhost:3000"))
				g.Expect(c.Session.Secret).To(Equal(DevelopmentSessionSecret))
				g.Expect(c.Session.UsesDevelopmentSecret()).To(BeTrue())
				g.Expect(c.Session.TTL).To(Equal(24 * time.Hour))
				g.Expect(c.Session.MaxSessions).To(Equal(10000))
				g.Expect(c.Merchant.Scopes).To(Equal([]string{"read_products", "read_orders"}))
				g.Expect(c.Merchant.AuthorizeURL).To(Equal("https://auth.shoplineapp.com/oauth/authorize"))
				g.Expect(c.Merchant.TokenURL).To(Equal("https://auth.shoplineapp.com/oauth/token"))
				g.Expect(c.Storefront.Merchants).To(BeEmpty())
				g.Expect(c.Platform.APIBaseURL).To(Equal("https://open.shopline.io/v1"))
				g.Expect(c.Platform.RequestTimeout).To(Equal(10 * time.Second))
				g.Expect(c.Platform.MerchantCacheDuration).To(Equal(5 * time.Minute))
				g.Expect(c.Webhook.RequireSignature).To(BeFalse())
			},
		},
		{
			name: "explicit values kept",
			config: func() Config {
				c := validConfig()
				c.Server.Addr = ":9090"
				c.Session.Secret = "s3cret"
				c.Session.TTL = time.Hour
				c.Merchant.Scopes = []string{"read_customers"}
				c.Platform.RequestTimeout = 2 * time.Second
				return c
			},
			check: func(g *WithT, c *Config) {
				g.Expect(c.Server.Addr).To(Equal(":9090"))
				g.Expect(c.Server.AppURL).To(Equal("http://localhost:9090"))
				g.Expect(c.Session.UsesDevelopmentSecret()).To(BeFalse())
				g.Expect(c.Session.TTL).To(Equal(time.Hour))
				g.Expect(c.Merchant.Scopes).To(Equal([]string{"read_customers"}))
				g.Expect(c.Platform.RequestTimeout).To(Equal(2 * time.Second))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)

			c := tt.config()
			err := c.ValidateAndInitialize()

			if tt.expectedErrMsg != "" {
				g.Expect(err).To(MatchError(tt.expectedErrMsg))
				return
			}
			g.Expect(err).ToNot(HaveOccurred())
			tt.check(g, &c)
		})
	}
}

func TestLoad(t *testing.T) {
	const content = `
server:
  addr: ":8443"
session:
  secret: ${TEST_SESSION_SECRET}
  ttl: 2h
  secureCookie: true
merchant:
  clientID: merchant-app
  clientSecret: ${TEST_MERCHANT_SECRET}
  redirectURL: https://lab.example.com/auth/callback
  scopes: [read_products]
storefront:
  default:
    clientID: storefront-app
    clientSecret: storefront-secret
    redirectURL: https://lab.example.com/storefront-oauth/callback
    storefrontURL: https://shop.example.com/
  merchants:
  - merchantID: M2
    storefrontURL: https://other.example.com
platform:
  requestTimeout: 3s
webhook:
  secret: hook-secret
  requireSignature: true
`

	t.Run("file from env", func(t *testing.T) {
		g := NewWithT(t)

		fileName := filepath.Join(t.TempDir(), "config.yaml")
		g.Expect(os.WriteFile(fileName, []byte(content), 0o600)).To(Succeed())
		t.Setenv("SHOPLINE_LAB_CONFIG", fileName)
		t.Setenv("TEST_SESSION_SECRET", "session-secret")
		t.Setenv("TEST_MERCHANT_SECRET", "merchant-secret")

		c, err := Load()
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(c.Server.Addr).To(Equal(":8443"))
		g.Expect(c.Session.Secret).To(Equal("session-secret"))
		g.Expect(c.Session.TTL).To(Equal(2 * time.Hour))
		g.Expect(c.Session.SecureCookie).To(BeTrue())
		g.Expect(c.Merchant.ClientSecret).To(Equal("merchant-secret"))
		g.Expect(c.Merchant.Scopes).To(Equal([]string{"read_products"}))
		g.Expect(c.Storefront.Merchants).To(HaveLen(1))
		g.Expect(c.Platform.RequestTimeout).To(Equal(3 * time.Second))
		g.Expect(c.Webhook.Secret).To(Equal("hook-secret"))
		g.Expect(c.Webhook.RequireSignature).To(BeTrue())
	})

	t.Run("missing file", func(t *testing.T) {
		g := NewWithT(t)
		t.Setenv("SHOPLINE_LAB_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
		_, err := Load()
		g.Expect(err).To(HaveOccurred())
	})

	t.Run("invalid yaml", func(t *testing.T) {
		g := NewWithT(t)
		_, err := Parse([]byte("merchant: [unterminated"))
		g.Expect(err).To(MatchError(ContainSubstring("failed to decode config")))
	})
}

func TestStorefrontConfig_App(t *testing.T) {
	conf := StorefrontConfig{
		Default: StorefrontAppConfig{
			ClientID:      "default-app",
			ClientSecret:  "default-secret",
			RedirectURL:   "https://lab.example.com/storefront-oauth/callback",
			StorefrontURL: "https://shop.example.com/",
		},
		Merchants: []*StorefrontAppConfig{
			{MerchantID: "M2", ClientID: "m2-app", StorefrontURL: "https://m2.example.com"},
			{MerchantID: "M3"},
		},
	}

	tests := []struct {
		name       string
		merchantID string
		expected   StorefrontAppConfig
	}{
		{
			name:       "default app",
			merchantID: "M1",
			expected: StorefrontAppConfig{
				MerchantID:    "M1",
				ClientID:      "default-app",
				ClientSecret:  "default-secret",
				RedirectURL:   "https://lab.example.com/storefront-oauth/callback",
				StorefrontURL: "https://shop.example.com",
			},
		},
		{
			name:       "merchant override inherits missing fields",
			merchantID: "M2",
			expected: StorefrontAppConfig{
				MerchantID:    "M2",
				ClientID:      "m2-app",
				ClientSecret:  "default-secret",
				RedirectURL:   "https://lab.example.com/storefront-oauth/callback",
				StorefrontURL: "https://m2.example.com",
			},
		},
		{
			name:       "merchant without storefront url needs a lookup",
			merchantID: "M3",
			expected: StorefrontAppConfig{
				MerchantID:   "M3",
				ClientID:     "default-app",
				ClientSecret: "default-secret",
				RedirectURL:  "https://lab.example.com/storefront-oauth/callback",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			app, ok := conf.App(tt.merchantID)
			g.Expect(ok).To(BeTrue())
			g.Expect(app).To(Equal(tt.expected))
		})
	}

	t.Run("no default and unknown merchant", func(t *testing.T) {
		g := NewWithT(t)
		var empty StorefrontConfig
		_, ok := empty.App("M1")
		g.Expect(ok).To(BeFalse())
	})
}
