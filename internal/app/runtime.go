package app

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/charlesng35/estatecrm/internal/auth"
)

const jwtSecretBytes = 48

// ApplyRuntimeDefaults normalises loaded values and generates a JWT secret when none
// is configured. An empty issuer is kept so tokens from the CRM login service, which
// carry none, are accepted. The returned keys name what was generated so callers can
// log it without exposing values. A generated secret only lives as long as the
// process, so issued tokens stop verifying after a restart.
func ApplyRuntimeDefaults(cfg *Config) ([]string, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	var generated []string

	cfg.Auth.JWT.Secret = strings.TrimSpace(cfg.Auth.JWT.Secret)
	if cfg.Auth.JWT.Secret == "" {
		secret, err := randomSecret(jwtSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
		generated = append(generated, "auth.jwt.secret")
	}
	cfg.Auth.JWT.Issuer = strings.TrimSpace(cfg.Auth.JWT.Issuer)

	cfg.Server.RateLimit.Store = strings.ToLower(strings.TrimSpace(cfg.Server.RateLimit.Store))
	if cfg.Notifications.FeedLimit < 0 {
		cfg.Notifications.FeedLimit = 0
	}

	return generated, nil
}

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: ttl,
	}
}

func randomSecret(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
