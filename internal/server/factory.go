package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/morris-shopline/shopline-tw-lab/internal/config"
	"github.com/morris-shopline/shopline-tw-lab/internal/oauthflow"
	"github.com/morris-shopline/shopline-tw-lab/internal/session"
	"github.com/morris-shopline/shopline-tw-lab/internal/shopline"
	"github.com/morris-shopline/shopline-tw-lab/internal/webhook"
)

// components are the collaborators behind the HTTP surface.
type components struct {
	store      session.Store
	cookies    *session.Cookies
	merchant   *oauthflow.Merchant
	storefront *oauthflow.Storefront
	verifier   *webhook.Verifier
	dispatcher *webhook.Dispatcher
	openAPI    *shopline.OpenAPI

	installations *shopline.Installations
}

func newComponents(conf *config.Config, promRegisterer prometheus.Registerer,
	nowFunc func() time.Time) *components {

	upstream := shopline.NewUpstream(conf.Platform.RequestTimeout)
	store := session.NewMemoryStore(conf.Session.TTL, conf.Session.MaxSessions)
	openAPI := shopline.NewOpenAPI(conf.Platform.APIBaseURL, upstream)
	installations := shopline.NewInstallations()
	directory := shopline.NewDirectory(&conf.Storefront, openAPI, installations,
		conf.Platform.MerchantCacheDuration)

	dispatcher := webhook.NewDispatcher(promRegisterer)
	webhook.RegisterDefaults(dispatcher, installations, directory)

	return &components{
		store:   store,
		cookies: session.NewCookies(conf.Session.Secret, conf.Session.TTL, conf.Session.SecureCookie),
		merchant: oauthflow.NewMerchant(store,
			shopline.NewMerchantClient(&conf.Merchant, upstream), nowFunc),
		storefront: oauthflow.NewStorefront(store,
			shopline.NewStorefrontClient(upstream), directory, nowFunc),
		verifier:   webhook.NewVerifier(conf.Webhook.Secret, conf.Webhook.RequireSignature),
		dispatcher: dispatcher,
		openAPI:    openAPI,

		installations: installations,
	}
}

func New(conf *config.Config) *http.Server {
	c := newComponents(conf, prometheus.DefaultRegisterer, time.Now)
	api := newAPI(conf, c, prometheus.DefaultRegisterer, time.Now)
	return newServer(conf, api, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}
