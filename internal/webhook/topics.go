package webhook

// Topic is the event type carried by the topic header.
type Topic string

const (
	TopicOrderCreate    Topic = "orders/create"
	TopicOrderUpdate    Topic = "orders/update"
	TopicOrderPaid      Topic = "orders/paid"
	TopicOrderCancelled Topic = "orders/cancelled"

	TopicProductCreate Topic = "products/create"
	TopicProductUpdate Topic = "products/update"
	TopicProductDelete Topic = "products/delete"

	TopicCustomerCreate Topic = "customers/create"
	TopicCustomerUpdate Topic = "customers/update"

	TopicAppInstall   Topic = "app_installation_token_create"
	TopicAppUninstall Topic = "app_installation_token_revoke"

	TopicVerification Topic = "webhook/verification"

	// topicUnknown labels metrics of topics outside the list above.
	topicUnknown = "unknown"
)

var knownTopics = []Topic{
	TopicOrderCreate,
	TopicOrderUpdate,
	TopicOrderPaid,
	TopicOrderCancelled,
	TopicProductCreate,
	TopicProductUpdate,
	TopicProductDelete,
	TopicCustomerCreate,
	TopicCustomerUpdate,
	TopicAppInstall,
	TopicAppUninstall,
	TopicVerification,
}

// KnownTopics returns the supported topics in a stable order.
func KnownTopics() []Topic {
	return append([]Topic(nil), knownTopics...)
}

func (t Topic) Known() bool {
	for _, k := range knownTopics {
		if t == k {
			return true
		}
	}
	return false
}

func (t Topic) metricLabel() string {
	if t.Known() {
		return string(t)
	}
	return topicUnknown
}
