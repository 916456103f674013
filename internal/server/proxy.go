package server

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/morris-shopline/shopline-tw-lab/internal/logging"
	"github.com/morris-shopline/shopline-tw-lab/internal/session"
)

const (
	pathAPIShop      = "/api/shop"
	pathAPIProducts  = "/api/products"
	pathAPIProduct   = "/api/products/{id}"
	pathAPIOrders    = "/api/orders"
	pathAPIOrder     = "/api/orders/{id}"
	pathAPICustomers = "/api/customers"
	pathAPITest      = "/api/test"

	defaultPage  = 1
	defaultLimit = 10
)

// proxyRoute is a read-only Open API resource exposed under /api.
type proxyRoute struct {
	pattern  string
	upstream func(r *http.Request) string
	// extraQuery lists query parameters forwarded as-is.
	extraQuery []string
	paginated  bool
	errorMsg   string
}

func staticPath(p string) func(*http.Request) string {
	return func(*http.Request) string { return p }
}

func idPath(prefix string) func(*http.Request) string {
	return func(r *http.Request) string { return prefix + url.PathEscape(r.PathValue("id")) }
}

var proxyRoutes = []proxyRoute{
	{pattern: pathAPIShop, upstream: staticPath("/shop"), errorMsg: "Failed to fetch shop information"},
	{pattern: pathAPIProducts, upstream: staticPath("/products"), paginated: true, errorMsg: "Failed to fetch products"},
	{pattern: pathAPIProduct, upstream: idPath("/products/"), errorMsg: "Failed to fetch product"},
	{pattern: pathAPIOrders, upstream: staticPath("/orders"), paginated: true, extraQuery: []string{"status"},
		errorMsg: "Failed to fetch orders"},
	{pattern: pathAPIOrder, upstream: idPath("/orders/"), errorMsg: "Failed to fetch order"},
	{pattern: pathAPICustomers, upstream: staticPath("/customers"), paginated: true, errorMsg: "Failed to fetch customers"},
}

func registerProxy(mux *http.ServeMux, c *components, nowFunc func() time.Time) {
	for _, route := range proxyRoutes {
		mux.HandleFunc("GET "+route.pattern, func(w http.ResponseWriter, r *http.Request) {
			ms, ok := requireMerchant(w, r, c)
			if !ok {
				return
			}

			q := url.Values{}
			var page, limit int
			if route.paginated {
				var okPage, okLimit bool
				page, okPage = positiveInt(r, "page", defaultPage)
				limit, okLimit = positiveInt(r, "limit", defaultLimit)
				if !okPage || !okLimit {
					respondError(w, r, http.StatusBadRequest, "Invalid pagination parameters",
						"page and limit must be positive integers")
					return
				}
				q.Set("page", strconv.Itoa(page))
				q.Set("limit", strconv.Itoa(limit))
			}
			for _, k := range route.extraQuery {
				if v := query(r, k); v != "" {
					q.Set(k, v)
				}
			}

			resp, err := c.openAPI.Get(r.Context(), ms.AccessToken, route.upstream(r), q)
			if err != nil {
				logging.FromRequest(r).WithError(err).Error("open api request failed")
				respondError(w, r, http.StatusInternalServerError, route.errorMsg, err.Error())
				return
			}
			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				logging.FromRequest(r).WithField("upstreamStatus", resp.StatusCode).Warn("open api request rejected")
				respondError(w, r, resp.StatusCode, route.errorMsg, upstreamDetails(resp.Body))
				return
			}

			payload := map[string]any{
				"success":   true,
				"data":      upstreamDetails(resp.Body),
				"timestamp": nowFunc().UTC(),
			}
			if route.paginated {
				payload["pagination"] = map[string]int{"page": page, "limit": limit}
			}
			respondJSON(w, r, http.StatusOK, payload)
		})
	}

	mux.HandleFunc("GET "+pathAPITest, func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireMerchant(w, r, c); !ok {
			return
		}
		status := c.merchant.Status(c.cookies.ID(r))
		endpoints := make([]string, 0, len(proxyRoutes))
		for _, route := range proxyRoutes {
			endpoints = append(endpoints, "GET "+route.pattern)
		}
		respondJSON(w, r, http.StatusOK, map[string]any{
			"success":             true,
			"message":             "API connection successful",
			"auth_info":           status,
			"available_endpoints": endpoints,
			"timestamp":           nowFunc().UTC(),
		})
	})
}

// requireMerchant returns the merchant identity of the request, or
// responds 401.
func requireMerchant(w http.ResponseWriter, r *http.Request, c *components) (*session.MerchantSession, bool) {
	sid := c.cookies.ID(r)
	if ms, ok := c.merchant.Session(sid); ok {
		return ms, true
	}
	resp := errorResponse{
		Error:   "Unauthorized",
		Message: "Please authenticate first by visiting " + pathAuthLogin,
	}
	if c.merchant.Status(sid).TokenExpired {
		resp = errorResponse{
			Error:   "Token expired",
			Message: "Please re-authenticate by visiting " + pathAuthLogin,
		}
	}
	respondJSON(w, r, http.StatusUnauthorized, resp)
	return nil, false
}
