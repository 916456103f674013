package constants

const (
	ShoplineTWLab = "shopline-tw-lab"

	QueryParamAuthorizationCode = "code"
	QueryParamError             = "error"
	QueryParamErrorDescription  = "error_description"
	QueryParamState             = "state"
	QueryParamScope             = "scope"

	QueryParamMerchantID          = "merchant_id"
	QueryParamRequestedMerchantID = "requested_merchant_id"
	QueryParamRequestedUserID     = "requested_user_id"
	QueryParamReturnTo            = "return_to"

	HeaderWebhookSignature = "X-Shopline-Hmac-Sha256"
	HeaderWebhookTopic     = "X-Shopline-Topic"
	HeaderWebhookEventID   = "X-Shopline-Event-Id"
	HeaderWebhookTimestamp = "X-Shopline-Webhook-Timestamp"

	StorefrontScope = "shop"
)
