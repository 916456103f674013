package config

type WebhookConfig struct {
	Secret string `yaml:"secret" json:"-"`
	// RequireSignature rejects deliveries that carry no signature, and all
	// deliveries when no secret is configured. When false, unsigned
	// deliveries are accepted and logged.
	RequireSignature bool `yaml:"requireSignature" json:"requireSignature"`
}
