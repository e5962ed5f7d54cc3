package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
)

// Compiler compiles rule definitions and caches the result keyed by a
// content fingerprint, so reloading an unchanged configuration reuses the
// parsed rule set.
type Compiler struct {
	cache *ristretto.Cache[string, *RuleSet]
}

// NewCompiler creates a compiler whose cache holds at most maxCost
// conditions across all cached rule sets.
func NewCompiler(maxCost int64) (*Compiler, error) {
	if maxCost <= 0 {
		maxCost = 1 << 16
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, *RuleSet]{
		NumCounters: maxCost * 10,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create rule cache: %w", err)
	}
	return &Compiler{cache: c}, nil
}

// Compile returns the cached rule set for defs, compiling on a miss. The
// returned set is versioned by the definitions' fingerprint.
func (c *Compiler) Compile(defs []Definition) (*RuleSet, error) {
	version, err := Fingerprint(defs)
	if err != nil {
		return nil, err
	}
	if rs, ok := c.cache.Get(version); ok {
		return rs, nil
	}
	rs, err := Compile(version, defs)
	if err != nil {
		return nil, err
	}
	c.cache.Set(version, rs, cost(rs))
	c.cache.Wait()
	return rs, nil
}

func (c *Compiler) Close() {
	c.cache.Close()
}

// Fingerprint hashes rule definitions in order.
func Fingerprint(defs []Definition) (string, error) {
	raw, err := json.Marshal(defs)
	if err != nil {
		return "", fmt.Errorf("fingerprint rules: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:8]), nil
}

func cost(rs *RuleSet) int64 {
	n := int64(1)
	for _, r := range rs.Rules() {
		n += int64(len(r.Conditions))
	}
	return n
}
