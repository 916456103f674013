package config

const (
	defaultMerchantAuthorizeURL = "https://auth.shoplineapp.com/oauth/authorize"
	defaultMerchantTokenURL     = "https://auth.shoplineapp.com/oauth/token"
)

var defaultMerchantScopes = []string{"read_products", "read_orders"}

// MerchantConfig is the OAuth application used for the app-install flow
// against the central SHOPLINE auth service.
type MerchantConfig struct {
	ClientID     string   `yaml:"clientID" json:"clientID"`
	ClientSecret string   `yaml:"clientSecret" json:"-"`
	RedirectURL  string   `yaml:"redirectURL" json:"redirectURL"`
	Scopes       []string `yaml:"scopes" json:"scopes"`
	AuthorizeURL string   `yaml:"authorizeURL" json:"authorizeURL"`
	TokenURL     string   `yaml:"tokenURL" json:"tokenURL"`
}

func (m *MerchantConfig) applyDefaults() {
	if len(m.Scopes) == 0 {
		m.Scopes = append([]string(nil), defaultMerchantScopes...)
	}
	if m.AuthorizeURL == "" {
		m.AuthorizeURL = defaultMerchantAuthorizeURL
	}
	if m.TokenURL == "" {
		m.TokenURL = defaultMerchantTokenURL
	}
}
