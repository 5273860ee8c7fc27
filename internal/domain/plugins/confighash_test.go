package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigHashDeterministic(t *testing.T) {
	a := ConfigHash(map[string]any{"server": "primary", "threshold": 7})
	b := ConfigHash(map[string]any{"threshold": 7, "server": "primary"})
	assert.Equal(t, a, b, "key order must not change the hash")
	assert.Len(t, a, 32)
}

func TestConfigHashDistinguishesValues(t *testing.T) {
	a := ConfigHash(map[string]any{"server": "primary"})
	b := ConfigHash(map[string]any{"server": "secondary"})
	assert.NotEqual(t, a, b)
}

func TestConfigHashEmptyAndNil(t *testing.T) {
	require.Equal(t, ConfigHash(nil), ConfigHash(map[string]any{}))
}
