// Package vault reads service secrets from HashiCorp Vault's KV v2 engine.
// When Vault is disabled the client serves values from environment-provided
// configuration instead, so local development needs no Vault at all.
package vault

import (
	"context"
	"fmt"
	"sync"

	"vertx-trading/config"

	"github.com/hashicorp/vault/api"
)

// Well-known secret keys.
const (
	KeyJWTSecret       = "jwt_secret"
	KeyInferenceAPIKey = "inference_api_key"
)

// Client wraps the HashiCorp Vault client.
type Client struct {
	client *api.Client
	config config.VaultConfig

	mu    sync.RWMutex
	cache map[string]string
}

// NewClient creates a new Vault client. A disabled configuration yields a
// client that only serves cached fallback values.
func NewClient(cfg config.VaultConfig) (*Client, error) {
	c := &Client{
		config: cfg,
		cache:  make(map[string]string),
	}

	if !cfg.Enabled {
		return c, nil
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	c.client = client
	return c, nil
}

// SetFallback seeds a secret value used when Vault is disabled or the key is
// absent from the secret payload.
func (c *Client) SetFallback(key, value string) {
	c.mu.Lock()
	c.cache[key] = value
	c.mu.Unlock()
}

// Secret reads one key from the configured secret path. Values read from
// Vault are cached for the life of the process.
func (c *Client) Secret(ctx context.Context, key string) (string, error) {
	c.mu.RLock()
	cached, ok := c.cache[key]
	c.mu.RUnlock()

	if !c.config.Enabled {
		if ok {
			return cached, nil
		}
		return "", fmt.Errorf("secret %q not configured", key)
	}

	secret, err := c.client.KVv2(c.config.MountPath).Get(ctx, c.config.SecretPath)
	if err != nil {
		if ok {
			return cached, nil
		}
		return "", fmt.Errorf("failed to read vault secret: %w", err)
	}

	value, found := secret.Data[key].(string)
	if !found || value == "" {
		if ok {
			return cached, nil
		}
		return "", fmt.Errorf("secret %q missing from vault path %s", key, c.config.SecretPath)
	}

	c.mu.Lock()
	c.cache[key] = value
	c.mu.Unlock()
	return value, nil
}
