package oauthflow

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/morris-shopline/shopline-tw-lab/internal/shopline"
)

type mockMerchantClient struct {
	mu        sync.Mutex
	exchanges []string
	expiresIn time.Duration
	err       error
}

func (m *mockMerchantClient) AuthCodeURL(state string) string {
	return "https://auth.example.com/oauth/authorize?state=" + url.QueryEscape(state)
}

func (m *mockMerchantClient) Exchange(ctx context.Context, code string) (*shopline.Token, error) {
	m.mu.Lock()
	m.exchanges = append(m.exchanges, code)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return &shopline.Token{
		AccessToken:  "access-" + code,
		RefreshToken: "refresh-" + code,
		Expiry:       time.Now().Add(m.expiresIn),
		Scope:        "read_products,read_orders",
	}, nil
}

func (m *mockMerchantClient) exchangeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.exchanges)
}

// mockStorefrontClient maps authorization codes to user ids.
type mockStorefrontClient struct {
	mu         sync.Mutex
	users      map[string]string
	exchanges  int
	tokenInfos int
	exchangeFn func(code string) error
	infoErr    error
}

func (m *mockStorefrontClient) AuthCodeURL(app *shopline.StorefrontApp, state string) string {
	return app.StorefrontURL + "/oauth/authorize?state=" + url.QueryEscape(state)
}

func (m *mockStorefrontClient) Exchange(ctx context.Context, app *shopline.StorefrontApp,
	code string) (*shopline.Token, error) {

	m.mu.Lock()
	m.exchanges++
	fn := m.exchangeFn
	m.mu.Unlock()
	if fn != nil {
		if err := fn(code); err != nil {
			return nil, err
		}
	}
	if _, ok := m.users[code]; !ok {
		return nil, &shopline.HTTPError{StatusCode: 400, Body: []byte(`{"error":"invalid_grant"}`)}
	}
	return &shopline.Token{
		AccessToken:  "sf-" + code,
		RefreshToken: "sf-refresh-" + code,
		Expiry:       time.Now().Add(2 * time.Hour),
		Scope:        "shop",
	}, nil
}

func (m *mockStorefrontClient) TokenInfo(ctx context.Context, app *shopline.StorefrontApp,
	accessToken string) (*shopline.TokenInfo, error) {

	m.mu.Lock()
	m.tokenInfos++
	m.mu.Unlock()
	if m.infoErr != nil {
		return nil, m.infoErr
	}
	code := accessToken[len("sf-"):]
	userID := m.users[code]
	return &shopline.TokenInfo{
		ResourceOwnerID: userID,
		Scope:           "shop",
		User:            &shopline.Identity{ID: userID, Email: userID + "@example.com", Name: "User " + userID},
		Merchant:        &shopline.Identity{ID: app.MerchantID, Email: "shop@example.com", Name: "Shop"},
	}, nil
}

func (m *mockStorefrontClient) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exchanges, m.tokenInfos
}

type mockResolver struct{}

func (mockResolver) Resolve(ctx context.Context, merchantID string) (*shopline.StorefrontApp, error) {
	if merchantID == "unknown" {
		return nil, fmt.Errorf("%w: no app", shopline.ErrUnknownMerchant)
	}
	if merchantID == "broken" {
		return nil, errors.New("lookup failed")
	}
	return &shopline.StorefrontApp{
		MerchantID:    merchantID,
		ClientID:      "app-" + merchantID,
		ClientSecret:  "secret",
		RedirectURL:   "https://lab.example.com/storefront-oauth/callback",
		StorefrontURL: "https://" + merchantID + ".example.com",
	}, nil
}

func stateOf(authURL string) string {
	u, err := url.Parse(authURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("state")
}
