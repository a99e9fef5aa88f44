// internal/vault/vault.go
//
// Vault client wrapper for Forja.
//
// Context
// -------
// Config values may reference secrets as `vault:<mount/path>#<key>`.  This
// package provides the concurrency-safe client behind that indirection:
// KV-v2 reads with a small per-key cache so repeated Load()/Reload() cycles
// do not hammer the Vault server.
//
// Environment expectations
// ------------------------
//   - VAULT_ADDR  – scheme and host of the Vault server.
//   - VAULT_TOKEN – initial token (falls back to ~/.vault-token).
package vault

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
)

const cacheTTL = 5 * time.Minute

// Client is safe for concurrent use.  Create once at startup and inject it;
// the zero value is invalid.
type Client struct {
	api *vault.Client

	mu    sync.RWMutex
	cache map[string]cached // "path#key" → value + expiry
}

type cached struct {
	val string
	exp time.Time
}

// New constructs a Vault client from the environment.
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

	return &Client{api: apiCli, cache: make(map[string]cached)}, nil
}

// Resolve answers a `<mount/path>#<key>` reference.  The mount's first path
// element is treated as the KV-v2 mount point.
func (c *Client) Resolve(ctx context.Context, ref string) (string, error) {
	path, key, ok := strings.Cut(ref, "#")
	if !ok || path == "" || key == "" {
		return "", fmt.Errorf("vault: malformed reference %q", ref)
	}

	c.mu.RLock()
	if ent, hit := c.cache[ref]; hit && time.Now().Before(ent.exp) {
		c.mu.RUnlock()
		return ent.val, nil
	}
	c.mu.RUnlock()

	mount, rest, ok := strings.Cut(path, "/")
	if !ok {
		return "", fmt.Errorf("vault: reference %q lacks a mount prefix", ref)
	}

	sec, err := c.api.KVv2(mount).Get(ctx, rest)
	if err != nil {
		return "", fmt.Errorf("vault read %s: %w", path, err)
	}
	raw, found := sec.Data[key]
	if !found {
		return "", fmt.Errorf("vault: key %q absent at %s", key, path)
	}
	val, isStr := raw.(string)
	if !isStr {
		return "", fmt.Errorf("vault: key %q at %s is not a string", key, path)
	}

	c.mu.Lock()
	c.cache[ref] = cached{val: val, exp: time.Now().Add(cacheTTL)}
	c.mu.Unlock()
	return val, nil
}
