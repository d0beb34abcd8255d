// internal/vault/vault.go
//
// Vault client wrapper for FormPlant.
//
// Context
// -------
//   - Thin KV-v2 read surface over the HashiCorp Vault Go SDK.
//   - SMTP relay, CAPTCHA, and database secrets referenced as
//     `vault:<path#key>` in the configuration resolve through this client
//     once at boot; nothing reads Vault after startup, so there is no
//     token-renewal loop and no per-key cache.
//
// Public workflow
// ---------------
//  1. cli, err := vault.New()                   // during boot.
//  2. val, err := cli.GetKV(ctx, path, key)     // per secret reference.
//
// Environment expectations
// ------------------------
// • VAULT_ADDR   – scheme and host of the Vault server.
// • VAULT_TOKEN  – token (falls back to ~/.vault-token).
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	vault "github.com/hashicorp/vault/api"
)

// Client wraps the SDK handle.  Safe for concurrent use; zero value is
// invalid.
type Client struct {
	api *vault.Client
}

// New constructs a client from the environment.
func New() (*Client, error) {
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}

	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}

	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		apiCli.SetToken(tok)
	}

	return &Client{api: apiCli}, nil
}

// GetKV fetches a single key from a KV-v2 secret.
func (c *Client) GetKV(ctx context.Context, secretPath, key string) (string, error) {
	if secretPath == "" || key == "" {
		return "", errors.New("secret path and key must be non-empty")
	}

	mount, rel := splitMount(secretPath)
	sec, err := c.api.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", secretPath, err)
	}

	raw, ok := sec.Data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %q", key, secretPath)
	}

	sval, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value at %s#%s is not a string", secretPath, key)
	}

	return sval, nil
}

// splitMount separates the mount name from the relative secret path.
func splitMount(p string) (mount, rel string) {
	if p == "" {
		return "", ""
	}
	parts := strings.SplitN(p, "/", 2)
	mount = parts[0]
	if len(parts) == 2 {
		rel = parts[1]
	}
	return
}
