package shopline

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/morris-shopline/shopline-tw-lab/internal/constants"
)

const (
	storefrontAuthorizePath = "/oauth/authorize"
	storefrontTokenPath     = "/oauth/token"
	storefrontTokenInfoPath = "/oauth/token/info"
)

// StorefrontApp is the storefront OAuth application of one merchant.
type StorefrontApp struct {
	MerchantID    string
	ClientID      string
	ClientSecret  string
	RedirectURL   string
	StorefrontURL string
}

func (a *StorefrontApp) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     a.ClientID,
		ClientSecret: a.ClientSecret,
		RedirectURL:  a.RedirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:   a.StorefrontURL + storefrontAuthorizePath,
			TokenURL:  a.StorefrontURL + storefrontTokenPath,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Scopes: []string{constants.StorefrontScope},
	}
}

// TokenInfo is the payload of the storefront token info endpoint.
type TokenInfo struct {
	ResourceOwnerID string `json:"resource_owner_id"`
	Scope           string `json:"scope"`
	ExpiresIn       int64  `json:"expires_in"`
	Application     struct {
		UID string `json:"uid"`
	} `json:"application"`
	User     *Identity `json:"user"`
	Merchant *Identity `json:"merchant"`
}

type Identity struct {
	ID    string `json:"_id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// StorefrontClient runs the customer flow against a merchant's storefront.
type StorefrontClient struct {
	upstream *Upstream
}

func NewStorefrontClient(upstream *Upstream) *StorefrontClient {
	return &StorefrontClient{upstream: upstream}
}

func (s *StorefrontClient) AuthCodeURL(app *StorefrontApp, state string) string {
	return app.oauth2Config().AuthCodeURL(state)
}

func (s *StorefrontClient) Exchange(ctx context.Context, app *StorefrontApp, code string) (*Token, error) {
	ctx, cancel := s.upstream.context(ctx)
	defer cancel()

	t, err := app.oauth2Config().Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	return newToken(t), nil
}

func (s *StorefrontClient) TokenInfo(ctx context.Context, app *StorefrontApp, accessToken string) (*TokenInfo, error) {
	var info TokenInfo
	if err := s.upstream.getJSON(ctx, accessToken, app.StorefrontURL+storefrontTokenInfoPath, &info); err != nil {
		return nil, err
	}
	if info.User == nil || info.User.ID == "" {
		return nil, fmt.Errorf("token info has no user")
	}
	return &info, nil
}
