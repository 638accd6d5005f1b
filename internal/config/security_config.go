package config

import "os"

type SecurityConfig interface {
	// GetTokenSecret returns the AEAD secret for session tokens. Empty when
	// unconfigured: there is deliberately no default, and token issuance
	// refuses to run without an explicit value.
	GetTokenSecret() string

	// GetAPIAuthSecret returns the HS256 secret for API bearer tokens.
	// Empty when unconfigured; falls back to nothing.
	GetAPIAuthSecret() string
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetTokenSecret() string {
	return os.Getenv("TOKEN_SECRET")
}

func (Security) GetAPIAuthSecret() string {
	return os.Getenv("API_AUTH_SECRET")
}
