package shopline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/morris-shopline/shopline-tw-lab/internal/config"
	"github.com/morris-shopline/shopline-tw-lab/internal/logging"
)

// ErrUnknownMerchant is returned when no storefront application can be
// resolved for a merchant.
var ErrUnknownMerchant = errors.New("unknown merchant")

// Directory resolves the storefront OAuth application of a merchant.
// Client credentials come from configuration. The storefront URL comes
// from configuration too, or else from the merchant's brand home URL in
// the Open API, looked up with the merchant's installation token.
type Directory struct {
	conf          *config.StorefrontConfig
	api           *OpenAPI
	installations *Installations
	cacheDuration time.Duration
	nowFunc       func() time.Time

	mu    sync.Mutex
	urls  map[string]cachedURL
	group singleflight.Group
}

type cachedURL struct {
	url      string
	deadline time.Time
}

func NewDirectory(conf *config.StorefrontConfig, api *OpenAPI,
	installations *Installations, cacheDuration time.Duration) *Directory {

	return &Directory{
		conf:          conf,
		api:           api,
		installations: installations,
		cacheDuration: cacheDuration,
		nowFunc:       time.Now,
		urls:          make(map[string]cachedURL),
	}
}

func (d *Directory) Resolve(ctx context.Context, merchantID string) (*StorefrontApp, error) {
	appConf, ok := d.conf.App(merchantID)
	if !ok || appConf.ClientID == "" {
		return nil, fmt.Errorf("%w: no storefront application for merchant '%s'", ErrUnknownMerchant, merchantID)
	}

	storefrontURL := appConf.StorefrontURL
	if storefrontURL == "" {
		var err error
		storefrontURL, err = d.storefrontURL(ctx, merchantID)
		if err != nil {
			return nil, err
		}
	}

	return &StorefrontApp{
		MerchantID:    merchantID,
		ClientID:      appConf.ClientID,
		ClientSecret:  appConf.ClientSecret,
		RedirectURL:   appConf.RedirectURL,
		StorefrontURL: storefrontURL,
	}, nil
}

func (d *Directory) storefrontURL(ctx context.Context, merchantID string) (string, error) {
	now := d.nowFunc()

	d.mu.Lock()
	c, ok := d.urls[merchantID]
	d.mu.Unlock()
	if ok && now.Before(c.deadline) {
		return c.url, nil
	}

	v, err, _ := d.group.Do(merchantID, func() (any, error) {
		inst, ok := d.installations.Get(merchantID)
		if !ok {
			return "", fmt.Errorf("%w: no storefront URL configured and no installation token for merchant '%s'",
				ErrUnknownMerchant, merchantID)
		}
		info, err := d.api.Merchant(ctx, inst.AccessToken, merchantID)
		if err != nil {
			return "", fmt.Errorf("failed to look up merchant '%s': %w", merchantID, err)
		}
		if info.BrandHomeURL == "" {
			return "", fmt.Errorf("%w: merchant '%s' has no brand home URL", ErrUnknownMerchant, merchantID)
		}
		u := strings.TrimSuffix(info.BrandHomeURL, "/")

		d.mu.Lock()
		d.urls[merchantID] = cachedURL{url: u, deadline: now.Add(d.cacheDuration)}
		d.mu.Unlock()

		logging.FromContext(ctx).WithField("merchantID", merchantID).
			WithField("storefrontURL", u).
			Info("resolved storefront URL")
		return u, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Forget drops the cached storefront URL of a merchant.
func (d *Directory) Forget(merchantID string) {
	d.mu.Lock()
	delete(d.urls, merchantID)
	d.mu.Unlock()
}
