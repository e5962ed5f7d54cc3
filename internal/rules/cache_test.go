package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompilerCachesByFingerprint(t *testing.T) {
	c, err := NewCompiler(1 << 10)
	require.NoError(t, err)
	defer c.Close()

	defs := []Definition{{ID: "r1", Priority: 1, Enabled: true, Conditions: []string{"country == DE"}, Action: "Reject"}}

	first, err := c.Compile(defs)
	require.NoError(t, err)
	second, err := c.Compile(defs)
	require.NoError(t, err)
	assert.Same(t, first, second)

	changed := []Definition{{ID: "r1", Priority: 1, Enabled: true, Conditions: []string{"country == FR"}, Action: "Reject"}}
	third, err := c.Compile(changed)
	require.NoError(t, err)
	assert.NotEqual(t, first.Version(), third.Version())
}

func TestCompilerPropagatesParseErrors(t *testing.T) {
	c, err := NewCompiler(0)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Compile([]Definition{{ID: "r1", Conditions: []string{"country ~ DE"}}})
	assert.Error(t, err)
}
