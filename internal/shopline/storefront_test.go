package shopline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	. "github.com/onsi/gomega"
)

func TestStorefrontClient_AuthCodeURL(t *testing.T) {
	g := NewWithT(t)

	app := &StorefrontApp{
		MerchantID:    "M1",
		ClientID:      "sf-app",
		ClientSecret:  "sf-secret",
		RedirectURL:   "https://lab.example.com/storefront-oauth/callback",
		StorefrontURL: "https://shop.example.com",
	}
	c := NewStorefrontClient(NewUpstream(time.Second))

	u, err := url.Parse(c.AuthCodeURL(app, "S1"))
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(u.Host).To(Equal("shop.example.com"))
	g.Expect(u.Path).To(Equal("/oauth/authorize"))

	q := u.Query()
	g.Expect(q.Get("response_type")).To(Equal("code"))
	g.Expect(q.Get("client_id")).To(Equal("sf-app"))
	g.Expect(q.Get("redirect_uri")).To(Equal("https://lab.example.com/storefront-oauth/callback"))
	g.Expect(q.Get("scope")).To(Equal("shop"))
	g.Expect(q.Get("state")).To(Equal("S1"))
}

func newStorefrontServer(t *testing.T, infoStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != "C1" ||
			r.PostForm.Get("client_secret") != "sf-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "sf-access",
			"refresh_token": "sf-refresh",
			"token_type":    "Bearer",
			"expires_in":    7200,
			"scope":         "shop",
			"user":          map[string]any{"_id": "U1"},
		})
	})
	mux.HandleFunc("/oauth/token/info", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sf-access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(infoStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"resource_owner_id": "U1",
			"scope":             "shop",
			"expires_in":        7200,
			"application":       map[string]any{"uid": "sf-app"},
			"user":              map[string]any{"_id": "U1", "email": "alice@example.com", "name": "Alice"},
			"merchant":          map[string]any{"_id": "M1", "email": "shop@example.com", "name": "Shop"},
		})
	})
	return httptest.NewServer(mux)
}

func TestStorefrontClient_ExchangeAndTokenInfo(t *testing.T) {
	g := NewWithT(t)

	srv := newStorefrontServer(t, http.StatusOK)
	defer srv.Close()

	app := &StorefrontApp{
		MerchantID:    "M1",
		ClientID:      "sf-app",
		ClientSecret:  "sf-secret",
		RedirectURL:   "https://lab.example.com/storefront-oauth/callback",
		StorefrontURL: srv.URL,
	}
	c := NewStorefrontClient(NewUpstream(time.Second))

	tok, err := c.Exchange(context.Background(), app, "C1")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(tok.AccessToken).To(Equal("sf-access"))
	g.Expect(tok.RefreshToken).To(Equal("sf-refresh"))
	g.Expect(tok.Scope).To(Equal("shop"))
	g.Expect(tok.Expiry).To(BeTemporally("~", time.Now().Add(2*time.Hour), 5*time.Second))

	info, err := c.TokenInfo(context.Background(), app, tok.AccessToken)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(info.ResourceOwnerID).To(Equal("U1"))
	g.Expect(info.Application.UID).To(Equal("sf-app"))
	g.Expect(info.User).To(Equal(&Identity{ID: "U1", Email: "alice@example.com", Name: "Alice"}))
	g.Expect(info.Merchant).To(Equal(&Identity{ID: "M1", Email: "shop@example.com", Name: "Shop"}))
}

func TestStorefrontClient_TokenInfoErrors(t *testing.T) {
	g := NewWithT(t)

	srv := newStorefrontServer(t, http.StatusForbidden)
	defer srv.Close()

	app := &StorefrontApp{StorefrontURL: srv.URL}
	c := NewStorefrontClient(NewUpstream(time.Second))

	_, err := c.TokenInfo(context.Background(), app, "sf-access")
	var he *HTTPError
	g.Expect(errors.As(err, &he)).To(BeTrue())
	g.Expect(he.StatusCode).To(Equal(http.StatusForbidden))
	g.Expect(string(he.Body)).To(ContainSubstring("resource_owner_id"))

	_, err = c.TokenInfo(context.Background(), app, "wrong-token")
	g.Expect(errors.As(err, &he)).To(BeTrue())
	g.Expect(he.StatusCode).To(Equal(http.StatusUnauthorized))
}
