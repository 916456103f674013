package oauthflow

import (
	"context"
	"fmt"
	"time"

	"github.com/morris-shopline/shopline-tw-lab/internal/logging"
	"github.com/morris-shopline/shopline-tw-lab/internal/session"
)

const merchantTokenEndpoint = "merchant token endpoint"

// Merchant is the app install flow. A browser session holds at most one
// merchant identity.
type Merchant struct {
	store   session.Store
	client  MerchantClient
	nowFunc func() time.Time
}

func NewMerchant(store session.Store, client MerchantClient, nowFunc func() time.Time) *Merchant {
	return &Merchant{
		store:   store,
		client:  client,
		nowFunc: nowFunc,
	}
}

// Start issues a new state for the session, replacing any pending one,
// and returns the authorization URL to redirect to.
func (m *Merchant) Start(ctx context.Context, sid string) (string, error) {
	state, err := session.NewState()
	if err != nil {
		return "", err
	}
	if err := m.store.Update(sid, func(d *session.Data) error {
		d.MerchantState = state
		return nil
	}); err != nil {
		return "", fmt.Errorf("failed to store state: %w", err)
	}
	logging.FromContext(ctx).Debug("merchant authorization started")
	return m.client.AuthCodeURL(state), nil
}

// HandleCallback completes the flow. The stored state is consumed before
// it is compared, so a state is accepted at most once.
func (m *Merchant) HandleCallback(ctx context.Context, sid string, p CallbackParams) error {
	if p.Error != "" {
		return &UpstreamOAuthError{Code: p.Error, Description: p.ErrorDescription}
	}
	if sid == "" || p.State == "" {
		return ErrStateMismatch
	}

	var stored string
	if err := m.store.Update(sid, func(d *session.Data) error {
		stored = d.MerchantState
		d.MerchantState = ""
		return nil
	}); err != nil {
		return fmt.Errorf("failed to consume state: %w", err)
	}
	if !statesEqual(stored, p.State) {
		return ErrStateMismatch
	}
	if p.Code == "" {
		return validationError("missing authorization code")
	}

	tok, err := m.client.Exchange(ctx, p.Code)
	if err != nil {
		return newTokenExchangeError(merchantTokenEndpoint, err)
	}

	ms := &session.MerchantSession{
		AccessToken:    tok.AccessToken,
		RefreshToken:   tok.RefreshToken,
		TokenExpiresAt: tok.Expiry,
		Scope:          tok.Scope,
	}
	if err := m.store.Update(sid, func(d *session.Data) error {
		d.Merchant = ms
		return nil
	}); err != nil {
		return fmt.Errorf("failed to store merchant session: %w", err)
	}

	logging.FromContext(ctx).
		WithField("scope", ms.Scope).
		WithField("expiresAt", ms.TokenExpiresAt).
		WithField("hasRefreshToken", ms.RefreshToken != "").
		Info("merchant authenticated")
	return nil
}

func (m *Merchant) Status(sid string) Status {
	now := m.nowFunc()
	d, ok := m.store.Load(sid)
	if !ok || d.Merchant == nil {
		return newStatus(false, time.Time{}, nil, now)
	}
	return newStatus(d.Merchant.AccessToken != "", d.Merchant.TokenExpiresAt, d.Merchant.Scopes(), now)
}

// Session returns the merchant identity of the session if its token is
// usable.
func (m *Merchant) Session(sid string) (*session.MerchantSession, bool) {
	d, ok := m.store.Load(sid)
	if !ok || d.Merchant == nil || d.Merchant.AccessToken == "" || d.Merchant.Expired(m.nowFunc()) {
		return nil, false
	}
	return d.Merchant, true
}

// Logout drops the whole browser session.
func (m *Merchant) Logout(sid string) {
	m.store.Destroy(sid)
}
