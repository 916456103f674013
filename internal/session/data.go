package session

import (
	"strings"
	"time"
)

// Data is everything kept for one browser session.
type Data struct {
	// MerchantState is the pending state of the merchant flow, if any.
	MerchantState string
	Merchant      *MerchantSession
	SubSessions   []SubSession
}

type MerchantSession struct {
	AccessToken    string
	RefreshToken   string
	TokenExpiresAt time.Time
	Scope          string
}

// Scopes splits the comma-joined scope granted by the platform.
func (m *MerchantSession) Scopes() []string {
	return splitScope(m.Scope)
}

// Expired reports whether the token has an expiry and it has passed.
func (m *MerchantSession) Expired(now time.Time) bool {
	return expired(m.TokenExpiresAt, now)
}

// SubSession is one storefront customer identity. Exactly one of Pending
// or Completed is set; completing an authorization replaces the whole
// value.
type SubSession struct {
	Pending   *PendingAuthorization
	Completed *StorefrontAuthorization
}

type PendingAuthorization struct {
	State               string
	RequestedMerchantID string
	RequestedUserID     string
	ReturnTo            string
	CreatedAt           time.Time
	// Claimed is set once a callback has taken this entry for a token
	// exchange. Claimed entries no longer match incoming callbacks.
	Claimed bool
}

type StorefrontAuthorization struct {
	MerchantID      string
	UserID          string
	AccessToken     string
	RefreshToken    string
	TokenExpiresAt  time.Time
	Scope           string
	UserInfo        *Identity
	MerchantInfo    *Identity
	AuthenticatedAt time.Time
}

func (s *StorefrontAuthorization) Scopes() []string {
	return splitScope(s.Scope)
}

func (s *StorefrontAuthorization) Expired(now time.Time) bool {
	return expired(s.TokenExpiresAt, now)
}

// Identity summarizes a platform user or merchant.
type Identity struct {
	ID    string `json:"_id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// PendingByState returns the index of the unclaimed pending entry
// carrying state, or -1.
func (d *Data) PendingByState(state string) int {
	for i, s := range d.SubSessions {
		if s.Pending != nil && !s.Pending.Claimed && s.Pending.State == state {
			return i
		}
	}
	return -1
}

// CompletedFor returns the completed authorization for the identity pair.
func (d *Data) CompletedFor(merchantID, userID string) *StorefrontAuthorization {
	for _, s := range d.SubSessions {
		if c := s.Completed; c != nil && c.MerchantID == merchantID && c.UserID == userID {
			return c
		}
	}
	return nil
}

// RemoveWhere drops every sub-session matching pred and returns how many
// were removed.
func (d *Data) RemoveWhere(pred func(SubSession) bool) int {
	kept := d.SubSessions[:0]
	for _, s := range d.SubSessions {
		if !pred(s) {
			kept = append(kept, s)
		}
	}
	removed := len(d.SubSessions) - len(kept)
	d.SubSessions = kept
	return removed
}

func (d *Data) clone() *Data {
	if d == nil {
		return &Data{}
	}
	c := &Data{MerchantState: d.MerchantState}
	if d.Merchant != nil {
		m := *d.Merchant
		c.Merchant = &m
	}
	if d.SubSessions != nil {
		c.SubSessions = make([]SubSession, len(d.SubSessions))
		for i, s := range d.SubSessions {
			c.SubSessions[i] = s.clone()
		}
	}
	return c
}

func (s SubSession) clone() SubSession {
	var c SubSession
	if s.Pending != nil {
		p := *s.Pending
		c.Pending = &p
	}
	if s.Completed != nil {
		a := *s.Completed
		if a.UserInfo != nil {
			u := *a.UserInfo
			a.UserInfo = &u
		}
		if a.MerchantInfo != nil {
			m := *a.MerchantInfo
			a.MerchantInfo = &m
		}
		c.Completed = &a
	}
	return c
}

func splitScope(scope string) []string {
	scopes := []string{}
	for s := range strings.SplitSeq(scope, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}

func expired(expiresAt, now time.Time) bool {
	return !expiresAt.IsZero() && now.After(expiresAt)
}
