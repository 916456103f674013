package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/morris-shopline/shopline-tw-lab/internal/config"
	"github.com/morris-shopline/shopline-tw-lab/internal/session"
)

const (
	testWebhookSecret = "webhook-secret"
	testSessionSecret = "test-session-secret"
)

// upstreamStub plays the auth service, one storefront and the Open API.
type upstreamStub struct {
	srv *httptest.Server

	merchantTokenCalls   atomic.Int32
	storefrontTokenCalls atomic.Int32
	tokenInfoCalls       atomic.Int32

	mu      sync.Mutex
	apiHits []string
}

// storefrontUsers maps storefront authorization codes to user ids.
var storefrontUsers = map[string]string{"SC1": "U1", "SC2": "U2"}

func newUpstreamStub(t *testing.T) *upstreamStub {
	t.Helper()
	u := &upstreamStub{}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /oauth/token", func(w http.ResponseWriter, r *http.Request) {
		u.merchantTokenCalls.Add(1)
		if err := r.ParseForm(); err != nil || r.PostForm.Get("client_secret") != "merchant-secret" ||
			r.PostForm.Get("code") != "C1" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "merchant-access-C1",
			"refresh_token": "merchant-refresh-C1",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"scope":         "read_products,read_orders",
		})
	})

	mux.HandleFunc("POST /storefront/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		u.storefrontTokenCalls.Add(1)
		if err := r.ParseForm(); err != nil || r.PostForm.Get("client_secret") != "sf-secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid_client"})
			return
		}
		code := r.PostForm.Get("code")
		if _, ok := storefrontUsers[code]; !ok {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "sf-" + code,
			"refresh_token": "sf-refresh-" + code,
			"token_type":    "Bearer",
			"expires_in":    7200,
			"scope":         "shop",
		})
	})

	mux.HandleFunc("GET /storefront/oauth/token/info", func(w http.ResponseWriter, r *http.Request) {
		u.tokenInfoCalls.Add(1)
		code := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer sf-")
		userID, ok := storefrontUsers[code]
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid_token"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"resource_owner_id": userID,
			"scope":             "shop",
			"expires_in":        7200,
			"application":       map[string]any{"uid": "sf-app"},
			"user":              map[string]any{"_id": userID, "email": userID + "@example.com", "name": "User " + userID},
			"merchant":          map[string]any{"_id": "M1", "email": "shop@example.com", "name": "Lab Shop"},
		})
	})

	mux.HandleFunc("GET /api/v1/", func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.apiHits = append(u.apiHits, r.URL.RequestURI())
		u.mu.Unlock()

		if r.Header.Get("Authorization") != "Bearer merchant-access-C1" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "unauthorized"})
			return
		}
		switch r.URL.Path {
		case "/api/v1/shop":
			writeJSON(w, http.StatusOK, map[string]any{"name": "Lab Shop"})
		case "/api/v1/products", "/api/v1/orders", "/api/v1/customers":
			writeJSON(w, http.StatusOK, map[string]any{"items": []any{}})
		case "/api/v1/orders/o1":
			writeJSON(w, http.StatusOK, map[string]any{"id": "o1"})
		case "/api/v1/merchants/M2":
			writeJSON(w, http.StatusOK, map[string]any{"id": "M2", "brand_home_url": u.srv.URL + "/storefront/"})
		default:
			writeJSON(w, http.StatusNotFound, map[string]any{"message": "not found"})
		}
	})

	u.srv = httptest.NewServer(mux)
	t.Cleanup(u.srv.Close)
	return u
}

func (u *upstreamStub) hits() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.apiHits...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func newTestConfig(u *upstreamStub) *config.Config {
	conf := &config.Config{
		Server:  config.ServerConfig{AppURL: "https://lab.example.com"},
		Session: config.SessionConfig{Secret: testSessionSecret},
		Merchant: config.MerchantConfig{
			ClientID:     "merchant-app",
			ClientSecret: "merchant-secret",
			RedirectURL:  "https://lab.example.com/auth/callback",
			AuthorizeURL: "https://auth.example.com/oauth/authorize",
			TokenURL:     u.srv.URL + "/oauth/token",
		},
		Storefront: config.StorefrontConfig{
			Default: config.StorefrontAppConfig{
				ClientID:      "sf-app",
				ClientSecret:  "sf-secret",
				RedirectURL:   "https://lab.example.com/storefront-oauth/callback",
				StorefrontURL: u.srv.URL + "/storefront",
			},
		},
		Platform: config.PlatformConfig{
			APIBaseURL:     u.srv.URL + "/api/v1",
			RequestTimeout: 5 * time.Second,
		},
		Webhook: config.WebhookConfig{Secret: testWebhookSecret},
	}
	if err := conf.ValidateAndInitialize(); err != nil {
		panic(err)
	}
	return conf
}

// testLab is the server under test plus a browser-like cookie holder.
type testLab struct {
	t        *testing.T
	handler  http.Handler
	c        *components
	registry *prometheus.Registry
	offset   time.Duration
	cookies  map[string]*http.Cookie
}

func newTestLab(t *testing.T, conf *config.Config) *testLab {
	t.Helper()
	lab := &testLab{
		t:        t,
		registry: prometheus.NewRegistry(),
		cookies:  make(map[string]*http.Cookie),
	}
	nowFunc := func() time.Time { return time.Now().Add(lab.offset) }
	lab.c = newComponents(conf, lab.registry, nowFunc)
	api := newAPI(conf, lab.c, lab.registry, nowFunc)
	lab.handler = newServer(conf, api, lab.registry, lab.registry).Handler
	return lab
}

func (l *testLab) do(method, target string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	l.t.Helper()
	req := httptest.NewRequest(method, target, body)
	for _, c := range l.cookies {
		req.AddCookie(c)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	l.handler.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(l.cookies, c.Name)
			continue
		}
		l.cookies[c.Name] = c
	}
	return rec
}

func (l *testLab) get(target string) *httptest.ResponseRecorder {
	l.t.Helper()
	return l.do(http.MethodGet, target, nil, nil)
}

func (l *testLab) hasSessionCookie() bool {
	_, ok := l.cookies[session.CookieName]
	return ok
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("response is not JSON: %v: %s", err, rec.Body.String())
	}
	return m
}

func locationState(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	u, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatal(err)
	}
	return u.Query().Get("state")
}
