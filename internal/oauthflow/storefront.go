package oauthflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/morris-shopline/shopline-tw-lab/internal/logging"
	"github.com/morris-shopline/shopline-tw-lab/internal/session"
	"github.com/morris-shopline/shopline-tw-lab/internal/shopline"
)

const (
	storefrontTokenEndpoint     = "storefront token endpoint"
	storefrontTokenInfoEndpoint = "storefront token info endpoint"

	DefaultStorefrontReturnTo = "/storefront-oauth/success"
)

// StartParams are the inputs of a storefront authorization.
type StartParams struct {
	MerchantID      string
	RequestedUserID string
	// ReturnTo must be a path on this server.
	ReturnTo string
}

// StorefrontStatus is Status plus the identities of the authorization.
type StorefrontStatus struct {
	Status
	UserInfo     *session.Identity `json:"user_info"`
	MerchantInfo *session.Identity `json:"merchant_info"`
}

// Storefront is the customer flow. A browser session may hold many
// storefront identities, one sub-session each.
type Storefront struct {
	store    session.Store
	client   StorefrontClient
	resolver AppResolver
	nowFunc  func() time.Time
}

func NewStorefront(store session.Store, client StorefrontClient, resolver AppResolver,
	nowFunc func() time.Time) *Storefront {

	return &Storefront{
		store:    store,
		client:   client,
		resolver: resolver,
		nowFunc:  nowFunc,
	}
}

// Start appends a pending authorization to the session and returns the
// authorization URL of the merchant's storefront.
func (s *Storefront) Start(ctx context.Context, sid string, p StartParams) (string, error) {
	if p.MerchantID == "" {
		return "", validationError("missing merchant_id parameter")
	}
	if p.ReturnTo != "" && !isLocalPath(p.ReturnTo) {
		return "", validationError("return_to must be a path on this server")
	}

	app, err := s.resolver.Resolve(ctx, p.MerchantID)
	if err != nil {
		if errors.Is(err, shopline.ErrUnknownMerchant) {
			return "", fmt.Errorf("%w: %w", ErrValidation, err)
		}
		return "", fmt.Errorf("failed to resolve storefront application: %w", err)
	}

	state, err := session.NewState()
	if err != nil {
		return "", err
	}
	pending := &session.PendingAuthorization{
		State:               state,
		RequestedMerchantID: p.MerchantID,
		RequestedUserID:     p.RequestedUserID,
		ReturnTo:            p.ReturnTo,
		CreatedAt:           s.nowFunc(),
	}
	if err := s.store.Update(sid, func(d *session.Data) error {
		d.SubSessions = append(d.SubSessions, session.SubSession{Pending: pending})
		return nil
	}); err != nil {
		return "", fmt.Errorf("failed to store pending authorization: %w", err)
	}

	logging.FromContext(ctx).
		WithField("merchantID", p.MerchantID).
		WithField("requestedUserID", p.RequestedUserID).
		WithField("storefrontURL", app.StorefrontURL).
		Info("storefront authorization started")
	return s.client.AuthCodeURL(app, state), nil
}

// HandleCallback completes the pending authorization matching the
// callback state and returns where to send the browser next.
//
// The entry is claimed before any outbound call so a duplicate callback
// cannot match it, and it is replaced by the completed authorization in a
// single store update. A failed exchange drops the entry.
func (s *Storefront) HandleCallback(ctx context.Context, sid string, p CallbackParams) (string, error) {
	if p.Error != "" {
		return "", &UpstreamOAuthError{Code: p.Error, Description: p.ErrorDescription}
	}
	if sid == "" || p.State == "" {
		return "", ErrStateMismatch
	}

	var pending session.PendingAuthorization
	if err := s.store.Update(sid, func(d *session.Data) error {
		if len(d.SubSessions) == 0 {
			return ErrStateMismatch
		}
		i := d.PendingByState(p.State)
		if i < 0 {
			return ErrSessionNotFound
		}
		d.SubSessions[i].Pending.Claimed = true
		pending = *d.SubSessions[i].Pending
		return nil
	}); err != nil {
		return "", err
	}

	completed, err := s.complete(ctx, &pending, p.Code)
	if err != nil {
		s.release(sid, pending.State)
		return "", err
	}

	var replaced int
	if err := s.store.Update(sid, func(d *session.Data) error {
		i := -1
		for j, sub := range d.SubSessions {
			if sub.Pending != nil && sub.Pending.State == pending.State {
				i = j
				break
			}
		}
		if i < 0 {
			return ErrSessionNotFound
		}
		d.SubSessions[i] = session.SubSession{Completed: completed}
		replaced = d.RemoveWhere(func(sub session.SubSession) bool {
			c := sub.Completed
			return c != nil && c != completed &&
				c.MerchantID == completed.MerchantID && c.UserID == completed.UserID
		})
		return nil
	}); err != nil {
		return "", err
	}

	logging.FromContext(ctx).
		WithField("merchantID", completed.MerchantID).
		WithField("userID", completed.UserID).
		WithField("scope", completed.Scope).
		WithField("replaced", replaced).
		Info("storefront customer authenticated")

	if pending.ReturnTo != "" {
		return pending.ReturnTo, nil
	}
	return DefaultStorefrontReturnTo, nil
}

func (s *Storefront) complete(ctx context.Context, pending *session.PendingAuthorization,
	code string) (*session.StorefrontAuthorization, error) {

	if code == "" {
		return nil, validationError("missing authorization code")
	}

	app, err := s.resolver.Resolve(ctx, pending.RequestedMerchantID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storefront application: %w", err)
	}

	tok, err := s.client.Exchange(ctx, app, code)
	if err != nil {
		return nil, newTokenExchangeError(storefrontTokenEndpoint, err)
	}

	info, err := s.client.TokenInfo(ctx, app, tok.AccessToken)
	if err != nil {
		return nil, newTokenExchangeError(storefrontTokenInfoEndpoint, err)
	}

	if pending.RequestedUserID != "" && pending.RequestedUserID != info.User.ID {
		logging.FromContext(ctx).
			WithField("requestedUserID", pending.RequestedUserID).
			WithField("userID", info.User.ID).
			Warn("storefront customer differs from the requested one")
	}

	return &session.StorefrontAuthorization{
		MerchantID:      pending.RequestedMerchantID,
		UserID:          info.User.ID,
		AccessToken:     tok.AccessToken,
		RefreshToken:    tok.RefreshToken,
		TokenExpiresAt:  tok.Expiry,
		Scope:           tok.Scope,
		UserInfo:        toIdentity(info.User),
		MerchantInfo:    toIdentity(info.Merchant),
		AuthenticatedAt: s.nowFunc(),
	}, nil
}

// release drops a claimed entry after a failed completion.
func (s *Storefront) release(sid, state string) {
	_ = s.store.Update(sid, func(d *session.Data) error {
		d.RemoveWhere(func(sub session.SubSession) bool {
			return sub.Pending != nil && sub.Pending.State == state
		})
		return nil
	})
}

// Status reports the completed authorization of the identity pair. Only
// completed entries count as authenticated.
func (s *Storefront) Status(sid, merchantID, userID string) (StorefrontStatus, error) {
	if merchantID == "" || userID == "" {
		return StorefrontStatus{}, validationError("missing requested merchant id or user id")
	}

	now := s.nowFunc()
	var c *session.StorefrontAuthorization
	if d, ok := s.store.Load(sid); ok {
		c = d.CompletedFor(merchantID, userID)
	}
	if c == nil {
		return StorefrontStatus{Status: newStatus(false, time.Time{}, nil, now)}, nil
	}
	return StorefrontStatus{
		Status:       newStatus(c.AccessToken != "", c.TokenExpiresAt, c.Scopes(), now),
		UserInfo:     c.UserInfo,
		MerchantInfo: c.MerchantInfo,
	}, nil
}

// Latest returns the most recently completed authorization of the session.
func (s *Storefront) Latest(sid string) (*session.StorefrontAuthorization, bool) {
	d, ok := s.store.Load(sid)
	if !ok {
		return nil, false
	}
	var latest *session.StorefrontAuthorization
	for _, sub := range d.SubSessions {
		if c := sub.Completed; c != nil && (latest == nil || !c.AuthenticatedAt.Before(latest.AuthenticatedAt)) {
			latest = c
		}
	}
	return latest, latest != nil
}

// Logout removes the sub-sessions of the identity pair. When either id is
// missing the whole browser session is destroyed instead, and Logout
// reports true.
func (s *Storefront) Logout(sid, merchantID, userID string) bool {
	if merchantID == "" || userID == "" {
		s.store.Destroy(sid)
		return true
	}
	if sid == "" {
		return false
	}
	_ = s.store.Update(sid, func(d *session.Data) error {
		d.RemoveWhere(func(sub session.SubSession) bool {
			if c := sub.Completed; c != nil {
				return c.MerchantID == merchantID && c.UserID == userID
			}
			p := sub.Pending
			return p != nil && p.RequestedMerchantID == merchantID && p.RequestedUserID == userID
		})
		return nil
	})
	return false
}

func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.HasPrefix(p, "/\\")
}
