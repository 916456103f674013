package config

import (
	"fmt"
	"strings"
)

// StorefrontConfig holds the storefront OAuth applications known up front.
// Default is used for merchants that have no entry of their own.
type StorefrontConfig struct {
	Default   StorefrontAppConfig    `yaml:"default" json:"default"`
	Merchants []*StorefrontAppConfig `yaml:"merchants" json:"merchants"`
}

type StorefrontAppConfig struct {
	MerchantID    string `yaml:"merchantID" json:"merchantID"`
	ClientID      string `yaml:"clientID" json:"clientID"`
	ClientSecret  string `yaml:"clientSecret" json:"-"`
	RedirectURL   string `yaml:"redirectURL" json:"redirectURL"`
	StorefrontURL string `yaml:"storefrontURL" json:"storefrontURL"`
}

// App returns the application configured for merchantID, falling back to
// the default application. Empty client fields on a merchant entry inherit
// the default's values. StorefrontURL never does: a merchant entry without
// one resolves it through the Open API.
func (s *StorefrontConfig) App(merchantID string) (StorefrontAppConfig, bool) {
	app := s.Default
	found := app.ClientID != ""
	for _, m := range s.Merchants {
		if m.MerchantID != merchantID {
			continue
		}
		found = true
		if m.ClientID != "" {
			app.ClientID = m.ClientID
		}
		if m.ClientSecret != "" {
			app.ClientSecret = m.ClientSecret
		}
		if m.RedirectURL != "" {
			app.RedirectURL = m.RedirectURL
		}
		app.StorefrontURL = m.StorefrontURL
		break
	}
	app.MerchantID = merchantID
	app.StorefrontURL = strings.TrimSuffix(app.StorefrontURL, "/")
	return app, found
}

func (s *StorefrontConfig) validate() error {
	seen := make(map[string]bool, len(s.Merchants))
	for i, m := range s.Merchants {
		if m == nil || m.MerchantID == "" {
			return fmt.Errorf("merchantID is empty for storefront.merchants[%d]", i)
		}
		if seen[m.MerchantID] {
			return fmt.Errorf("duplicate storefront.merchants entry for merchant '%s'", m.MerchantID)
		}
		seen[m.MerchantID] = true
		if m.ClientID == "" && s.Default.ClientID == "" {
			return fmt.Errorf("clientID is empty for storefront.merchants[%d] and no default is set", i)
		}
	}
	return nil
}
