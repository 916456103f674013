// Package oauthflow implements the merchant and storefront authorization
// code flows on top of a session.Store.
package oauthflow

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/morris-shopline/shopline-tw-lab/internal/session"
	"github.com/morris-shopline/shopline-tw-lab/internal/shopline"
)

// CallbackParams are the query parameters of an OAuth callback.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

type MerchantClient interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*shopline.Token, error)
}

type StorefrontClient interface {
	AuthCodeURL(app *shopline.StorefrontApp, state string) string
	Exchange(ctx context.Context, app *shopline.StorefrontApp, code string) (*shopline.Token, error)
	TokenInfo(ctx context.Context, app *shopline.StorefrontApp, accessToken string) (*shopline.TokenInfo, error)
}

// AppResolver finds the storefront OAuth application of a merchant.
type AppResolver interface {
	Resolve(ctx context.Context, merchantID string) (*shopline.StorefrontApp, error)
}

// Status is the authentication status of one identity.
type Status struct {
	Authenticated bool       `json:"authenticated"`
	TokenExpired  bool       `json:"token_expired"`
	ExpiresAt     *time.Time `json:"expires_at"`
	Scope         []string   `json:"scope"`
}

func newStatus(hasToken bool, expiresAt time.Time, scopes []string, now time.Time) Status {
	s := Status{Scope: scopes}
	if s.Scope == nil {
		s.Scope = []string{}
	}
	if !expiresAt.IsZero() {
		t := expiresAt
		s.ExpiresAt = &t
		s.TokenExpired = now.After(expiresAt)
	}
	s.Authenticated = hasToken && !s.TokenExpired
	return s
}

func statesEqual(a, b string) bool {
	return a != "" && subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func toIdentity(i *shopline.Identity) *session.Identity {
	if i == nil {
		return nil
	}
	return &session.Identity{ID: i.ID, Email: i.Email, Name: i.Name}
}
