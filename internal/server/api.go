package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/morris-shopline/shopline-tw-lab/internal/config"
	"github.com/morris-shopline/shopline-tw-lab/internal/constants"
	"github.com/morris-shopline/shopline-tw-lab/internal/logging"
	"github.com/morris-shopline/shopline-tw-lab/internal/oauthflow"
	"github.com/morris-shopline/shopline-tw-lab/internal/webhook"
)

const (
	// Merchant (app install) flow.
	pathAuthLogin    = "/auth/login"
	pathAuthCallback = "/auth/callback"
	pathAuthStatus   = "/auth/status"
	pathAuthLogout   = "/auth/logout"
	pathAuthSuccess  = "/auth/success"

	// Storefront (customer) flow.
	pathStorefrontAuthorize = "/storefront-oauth/authorize"
	pathStorefrontCallback  = "/storefront-oauth/callback"
	pathStorefrontStatus    = "/storefront-oauth/status"
	pathStorefrontLogout    = "/storefront-oauth/logout"
	pathStorefrontSuccess   = "/storefront-oauth/success"

	pathWebhook     = "/webhook"
	pathWebhookTest = "/webhook/test"

	pathHealth = "/health"

	maxWebhookBody = 1 << 20

	flowMerchant   = "merchant"
	flowStorefront = "storefront"
)

func newAPI(conf *config.Config, c *components, promRegisterer prometheus.Registerer,
	nowFunc func() time.Time) http.Handler {

	callbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oauth_callbacks_total",
		Help: "Total number of OAuth callbacks by flow and result",
	}, []string{"flow", "result"})
	promRegisterer.MustRegister(callbacks)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, r, http.StatusOK, map[string]any{
			"name": constants.ShoplineTWLab,
			"endpoints": map[string]string{
				"merchant_login":       pathAuthLogin,
				"merchant_status":      pathAuthStatus,
				"storefront_authorize": pathStorefrontAuthorize,
				"storefront_status":    pathStorefrontStatus,
				"webhook":              pathWebhook,
				"webhook_test":         pathWebhookTest,
				"api_test":             pathAPITest,
				"health":               pathHealth,
			},
		})
	})

	mux.HandleFunc("GET "+pathHealth, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, r, http.StatusOK, map[string]any{
			"status":    "OK",
			"timestamp": nowFunc().UTC(),
		})
	})

	mux.HandleFunc("GET "+pathAuthLogin, func(w http.ResponseWriter, r *http.Request) {
		l := logging.FromRequest(r)

		sid, err := c.cookies.Ensure(w, r)
		if err != nil {
			l.WithError(err).Error("failed to issue session cookie")
			respondError(w, r, http.StatusInternalServerError, "Authentication failed", err.Error())
			return
		}
		authURL, err := c.merchant.Start(r.Context(), sid)
		if err != nil {
			l.WithError(err).Error("failed to start merchant authorization")
			respondError(w, r, http.StatusInternalServerError, "Authentication failed", err.Error())
			return
		}
		http.Redirect(w, r, authURL, http.StatusFound)
	})

	mux.HandleFunc("GET "+pathAuthCallback, func(w http.ResponseWriter, r *http.Request) {
		l := logging.FromRequest(r)
		p := callbackParams(r)
		l.WithFields(logrus.Fields{
			"hasCode":  p.Code != "",
			"hasState": p.State != "",
			"error":    p.Error,
		}).Debug("merchant callback received")

		if err := c.merchant.HandleCallback(r.Context(), c.cookies.ID(r), p); err != nil {
			status, resp, result := callbackError(err, merchantErrors)
			callbacks.WithLabelValues(flowMerchant, result).Inc()
			l.WithError(err).WithField("result", result).Error("merchant callback failed")
			respondJSON(w, r, status, resp)
			return
		}
		callbacks.WithLabelValues(flowMerchant, "ok").Inc()
		http.Redirect(w, r, pathAuthSuccess, http.StatusFound)
	})

	mux.HandleFunc("GET "+pathAuthStatus, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, r, http.StatusOK, c.merchant.Status(c.cookies.ID(r)))
	})

	mux.HandleFunc("GET "+pathAuthLogout, func(w http.ResponseWriter, r *http.Request) {
		c.merchant.Logout(c.cookies.ID(r))
		c.cookies.Clear(w)
		logging.FromRequest(r).Info("merchant logged out")
		http.Redirect(w, r, "/", http.StatusFound)
	})

	mux.HandleFunc("GET "+pathAuthSuccess, func(w http.ResponseWriter, r *http.Request) {
		status := c.merchant.Status(c.cookies.ID(r))
		if !status.Authenticated {
			http.Redirect(w, r, pathAuthLogin, http.StatusFound)
			return
		}
		respondJSON(w, r, http.StatusOK, map[string]any{
			"success":    true,
			"message":    "Connected to SHOPLINE",
			"scope":      status.Scope,
			"expires_at": status.ExpiresAt,
			"next":       []string{pathAPIShop, pathAPIProducts, pathAPIOrders},
		})
	})

	mux.HandleFunc("GET "+pathStorefrontAuthorize, func(w http.ResponseWriter, r *http.Request) {
		l := logging.FromRequest(r)

		sid, err := c.cookies.Ensure(w, r)
		if err != nil {
			l.WithError(err).Error("failed to issue session cookie")
			respondError(w, r, http.StatusInternalServerError, storefrontErrors.authorization, err.Error())
			return
		}
		authURL, err := c.storefront.Start(r.Context(), sid, oauthflow.StartParams{
			MerchantID:      query(r, constants.QueryParamMerchantID),
			RequestedUserID: query(r, constants.QueryParamRequestedUserID),
			ReturnTo:        query(r, constants.QueryParamReturnTo),
		})
		if err != nil {
			if errors.Is(err, oauthflow.ErrValidation) {
				respondError(w, r, http.StatusBadRequest, err.Error(), nil)
				return
			}
			l.WithError(err).Error("failed to start storefront authorization")
			respondError(w, r, http.StatusInternalServerError, storefrontErrors.authorization, err.Error())
			return
		}
		http.Redirect(w, r, authURL, http.StatusFound)
	})

	mux.HandleFunc("GET "+pathStorefrontCallback, func(w http.ResponseWriter, r *http.Request) {
		l := logging.FromRequest(r)
		p := callbackParams(r)
		l.WithFields(logrus.Fields{
			"hasCode":  p.Code != "",
			"hasState": p.State != "",
			"error":    p.Error,
		}).Debug("storefront callback received")

		returnTo, err := c.storefront.HandleCallback(r.Context(), c.cookies.ID(r), p)
		if err != nil {
			status, resp, result := callbackError(err, storefrontErrors)
			callbacks.WithLabelValues(flowStorefront, result).Inc()
			l.WithError(err).WithField("result", result).Error("storefront callback failed")
			respondJSON(w, r, status, resp)
			return
		}
		callbacks.WithLabelValues(flowStorefront, "ok").Inc()
		http.Redirect(w, r, returnTo, http.StatusFound)
	})

	mux.HandleFunc("GET "+pathStorefrontStatus, func(w http.ResponseWriter, r *http.Request) {
		status, err := c.storefront.Status(c.cookies.ID(r),
			query(r, constants.QueryParamRequestedMerchantID),
			query(r, constants.QueryParamRequestedUserID))
		if err != nil {
			respondError(w, r, http.StatusUnprocessableEntity, "Missing requested merchant id or user id", nil)
			return
		}
		respondJSON(w, r, http.StatusOK, status)
	})

	mux.HandleFunc("GET "+pathStorefrontLogout, func(w http.ResponseWriter, r *http.Request) {
		merchantID := query(r, constants.QueryParamRequestedMerchantID)
		userID := query(r, constants.QueryParamRequestedUserID)
		if c.storefront.Logout(c.cookies.ID(r), merchantID, userID) {
			c.cookies.Clear(w)
		}
		logging.FromRequest(r).WithFields(logrus.Fields{
			"merchantID": merchantID,
			"userID":     userID,
		}).Info("storefront customer logged out")
		http.Redirect(w, r, "/", http.StatusFound)
	})

	mux.HandleFunc("GET "+pathStorefrontSuccess, func(w http.ResponseWriter, r *http.Request) {
		a, ok := c.storefront.Latest(c.cookies.ID(r))
		if !ok {
			http.Redirect(w, r, pathStorefrontAuthorize, http.StatusFound)
			return
		}
		respondJSON(w, r, http.StatusOK, map[string]any{
			"success":          true,
			"merchant_id":      a.MerchantID,
			"user_id":          a.UserID,
			"user_info":        a.UserInfo,
			"merchant_info":    a.MerchantInfo,
			"scope":            a.Scopes(),
			"expires_at":       a.TokenExpiresAt,
			"authenticated_at": a.AuthenticatedAt,
		})
	})

	mux.HandleFunc("POST "+pathWebhook, func(w http.ResponseWriter, r *http.Request) {
		l := logging.FromRequest(r)
		topic := webhook.Topic(r.Header.Get(constants.HeaderWebhookTopic))

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				respondError(w, r, http.StatusRequestEntityTooLarge, "Webhook payload too large", nil)
				return
			}
			respondError(w, r, http.StatusBadRequest, "Failed to read webhook payload", err.Error())
			return
		}

		checked, err := c.verifier.Verify(body,
			r.Header.Get(constants.HeaderWebhookSignature),
			r.Header.Get(constants.HeaderWebhookTimestamp))
		if err != nil {
			c.dispatcher.Rejected(topic)
			l.WithError(err).WithField("topic", topic).Warn("webhook rejected")
			respondError(w, r, http.StatusUnauthorized, "Invalid webhook signature", nil)
			return
		}
		if !checked {
			l.WithField("topic", topic).Warn("webhook signature verification skipped, missing signature or secret")
		}

		event, err := webhook.ParseEvent(string(topic), r.Header.Get(constants.HeaderWebhookEventID), body, nowFunc())
		if err != nil {
			c.dispatcher.Rejected(topic)
			respondError(w, r, http.StatusBadRequest, "Invalid webhook payload", err.Error())
			return
		}
		event.Verified = checked
		l.WithFields(logrus.Fields{
			"topic":   event.Topic,
			"eventID": event.ID,
			"checked": checked,
		}).Info("webhook received")

		reply, err := c.dispatcher.Dispatch(r.Context(), event)
		if err != nil {
			respondError(w, r, http.StatusInternalServerError, "Webhook processing failed", err.Error())
			return
		}
		w.Header().Set("Content-Type", reply.ContentType)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(reply.Body); err != nil {
			l.WithError(err).Error("failed to write webhook reply")
		}
	})

	mux.HandleFunc("GET "+pathWebhookTest, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, r, http.StatusOK, map[string]any{
			"success":            true,
			"message":            "Webhook endpoint is ready",
			"webhook_url":        conf.Server.AppURL + pathWebhook,
			"supported_events":   webhook.KnownTopics(),
			"signature_checking": c.verifier.SecretConfigured(),
			"installations":      c.installations.Len(),
			"timestamp":          nowFunc().UTC(),
		})
	})

	registerProxy(mux, c, nowFunc)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, "Not Found", nil)
	})

	return mux
}
