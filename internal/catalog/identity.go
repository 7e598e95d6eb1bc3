package catalog

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// EnsureSecret returns the config value stored under key. On first use it
// stores n random bytes, hex encoded.
func EnsureSecret(ctx context.Context, repo Repository, key string, n int) (string, error) {
	existing, err := repo.GetConfig(ctx, key)
	if err == nil && existing != "" {
		return existing, nil
	}

	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate %s: %w", key, err)
	}
	value := hex.EncodeToString(buf)

	if err := repo.SetConfig(ctx, key, value); err != nil {
		return "", err
	}
	return value, nil
}
