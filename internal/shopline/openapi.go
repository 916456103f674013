package shopline

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
)

// OpenAPI issues bearer-authenticated reads against the SHOPLINE Open API.
type OpenAPI struct {
	baseURL  string
	upstream *Upstream
}

func NewOpenAPI(baseURL string, upstream *Upstream) *OpenAPI {
	return &OpenAPI{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		upstream: upstream,
	}
}

// Response is an upstream answer passed through untouched.
type Response struct {
	StatusCode int
	Body       json.RawMessage
}

// Get returns the upstream status and body whatever the status is; err
// is only set when no answer was obtained.
func (o *OpenAPI) Get(ctx context.Context, accessToken, path string, query url.Values) (*Response, error) {
	u := o.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	status, body, err := o.upstream.bearerGet(ctx, accessToken, u)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: status, Body: body}, nil
}

// MerchantInfo is the subset of the merchant resource used here.
type MerchantInfo struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Handle       string `json:"handle"`
	BrandHomeURL string `json:"brand_home_url"`
}

func (o *OpenAPI) Merchant(ctx context.Context, accessToken, merchantID string) (*MerchantInfo, error) {
	var info MerchantInfo
	u := o.baseURL + "/merchants/" + url.PathEscape(merchantID)
	if err := o.upstream.getJSON(ctx, accessToken, u, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
