package plugins

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ConfigHash returns a stable digest of an effective configuration, so two
// different configurations never collapse into the same "latest run".
// encoding/json serializes map keys in sorted order, which makes the digest
// canonical for nested maps as well.
func ConfigHash(cfg map[string]any) string {
	if cfg == nil {
		cfg = map[string]any{}
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		b = []byte(fmt.Sprintf("%v", cfg))
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:16])
}
