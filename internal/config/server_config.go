package config

const (
	defaultServerAddr = ":3000"
)

type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
	// AppURL is the public base URL, reported by the webhook test endpoint.
	AppURL string `yaml:"appURL" json:"appURL"`
}

func (s *ServerConfig) applyDefaults() {
	if s.Addr == "" {
		s.Addr = defaultServerAddr
	}
	if s.AppURL == "" {
		s.AppURL = "http://localhost" + s.Addr
	}
}
