package webhook

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/morris-shopline/shopline-tw-lab/internal/logging"
	"github.com/morris-shopline/shopline-tw-lab/internal/shopline"
)

// Installations receives app installation tokens.
type Installations interface {
	Put(inst shopline.Installation)
	Delete(merchantID string) bool
}

// StorefrontCache forgets what was learned about a merchant's storefront.
type StorefrontCache interface {
	Forget(merchantID string)
}

// RegisterDefaults wires the handlers for every known topic. Installation
// topics only change state for verified events.
func RegisterDefaults(d *Dispatcher, installations Installations, cache StorefrontCache) {
	d.Respond(TopicVerification, respondVerification)

	for _, t := range []Topic{TopicOrderCreate, TopicOrderUpdate, TopicOrderPaid, TopicOrderCancelled} {
		d.Register(t, HandlerFunc(handleOrder))
	}
	for _, t := range []Topic{TopicProductCreate, TopicProductUpdate, TopicProductDelete} {
		d.Register(t, HandlerFunc(handleProduct))
	}
	for _, t := range []Topic{TopicCustomerCreate, TopicCustomerUpdate} {
		d.Register(t, HandlerFunc(handleCustomer))
	}

	d.Register(TopicAppInstall, HandlerFunc(func(ctx context.Context, e *Event) error {
		if !e.Verified {
			return ErrUnverifiedEvent
		}
		merchantID := merchantIDOf(e)
		if merchantID == "" {
			return errors.New("installation event has no merchant id")
		}
		token := e.String("access_token")
		if token == "" {
			return errors.New("installation event has no access token")
		}
		installations.Put(shopline.Installation{
			MerchantID:  merchantID,
			AccessToken: token,
			InstalledAt: e.ReceivedAt,
		})
		cache.Forget(merchantID)
		logging.FromContext(ctx).WithFields(logrus.Fields{
			"merchantID": merchantID,
			"shopDomain": e.String("shop_domain"),
		}).Info("app installed")
		return nil
	}))

	d.Register(TopicAppUninstall, HandlerFunc(func(ctx context.Context, e *Event) error {
		if !e.Verified {
			return ErrUnverifiedEvent
		}
		merchantID := merchantIDOf(e)
		if merchantID == "" {
			return errors.New("uninstallation event has no merchant id")
		}
		existed := installations.Delete(merchantID)
		cache.Forget(merchantID)
		logging.FromContext(ctx).WithFields(logrus.Fields{
			"merchantID": merchantID,
			"shopDomain": e.String("shop_domain"),
			"existed":    existed,
		}).Info("app uninstalled")
		return nil
	}))
}

// respondVerification echoes the challenge token as the whole body.
func respondVerification(ctx context.Context, e *Event) (*Reply, error) {
	token := e.String("token")
	if token == "" {
		return nil, ErrMissingVerificationToken
	}
	logging.FromContext(ctx).Info("webhook endpoint verified")
	return &Reply{ContentType: "text/plain; charset=utf-8", Body: []byte(token)}, nil
}

func handleOrder(ctx context.Context, e *Event) error {
	customer := e.Object("customer")
	logging.FromContext(ctx).WithFields(logrus.Fields{
		"topic":           e.Topic,
		"orderID":         e.String("id"),
		"totalPrice":      e.String("total_price"),
		"financialStatus": e.String("financial_status"),
		"guest":           customer == nil,
	}).Info("order event")
	return nil
}

func handleProduct(ctx context.Context, e *Event) error {
	logging.FromContext(ctx).WithFields(logrus.Fields{
		"topic":     e.Topic,
		"productID": e.String("id"),
		"title":     e.String("title"),
	}).Info("product event")
	return nil
}

func handleCustomer(ctx context.Context, e *Event) error {
	logging.FromContext(ctx).WithFields(logrus.Fields{
		"topic":      e.Topic,
		"customerID": e.String("id"),
	}).Info("customer event")
	return nil
}

func merchantIDOf(e *Event) string {
	if id := e.String("merchant_id"); id != "" {
		return id
	}
	if m := e.Object("merchant"); m != nil {
		if id, ok := m["_id"].(string); ok {
			return id
		}
	}
	return ""
}
