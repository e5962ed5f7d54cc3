//go:generate mockgen -source=adapter.go -destination=mocks/adapter_mock.go -package=mocks Adapter

// Package adapter hides vendor wire formats behind a single call contract:
// one bounded attempt in, one normalized result out.
package adapter

import (
	"context"
	"strings"
	"sync"
	"time"

	"veriflow/internal/vendors/models"
)

// Adapter submits evidence to one vendor integration.
//
// Contract: Submit returns within timeout (or earlier if ctx ends), never
// returns an error and never panics. Transport failures and timeouts become
// a result with Success=false and a categorized Failure. Scores are
// normalized to [0,1]. Attempt is left zero; the dispatcher stamps it.
type Adapter interface {
	Submit(ctx context.Context, vendor models.Vendor, evidence models.Evidence, timeout time.Duration) models.Result
}

// AdapterFunc adapts a function to the Adapter interface.
type AdapterFunc func(ctx context.Context, vendor models.Vendor, evidence models.Evidence, timeout time.Duration) models.Result

func (f AdapterFunc) Submit(ctx context.Context, vendor models.Vendor, evidence models.Evidence, timeout time.Duration) models.Result {
	return f(ctx, vendor, evidence, timeout)
}

// TagSandbox is the routing tag that always resolves to the sandbox adapter.
const TagSandbox = "sandbox"

// Set resolves the adapter for a vendor by routing tag. Sandbox vendors
// always use the sandbox adapter when one is registered.
type Set struct {
	mu       sync.RWMutex
	byTag    map[string]Adapter
	fallback Adapter
}

// NewSet creates a set whose unknown tags resolve to fallback. A nil
// fallback yields a contract_mismatch failure for unknown tags.
func NewSet(fallback Adapter) *Set {
	return &Set{byTag: make(map[string]Adapter), fallback: fallback}
}

// Register binds a routing tag (case-insensitive) to an adapter.
func (s *Set) Register(tag string, a Adapter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byTag[normalizeTag(tag)] = a
}

// For returns the adapter serving vendor.
func (s *Set) For(vendor models.Vendor) Adapter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if vendor.Sandbox {
		if a, ok := s.byTag[TagSandbox]; ok {
			return a
		}
	}
	if a, ok := s.byTag[normalizeTag(vendor.RoutingTag)]; ok {
		return a
	}
	if s.fallback != nil {
		return s.fallback
	}
	return unroutable{}
}

// Submit routes the call to the adapter serving vendor, so a Set can sit
// behind a wrapper such as Guarded.
func (s *Set) Submit(ctx context.Context, vendor models.Vendor, evidence models.Evidence, timeout time.Duration) models.Result {
	return s.For(vendor).Submit(ctx, vendor, evidence, timeout)
}

// Tags lists registered routing tags.
func (s *Set) Tags() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tags := make([]string, 0, len(s.byTag))
	for t := range s.byTag {
		tags = append(tags, t)
	}
	return tags
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

type unroutable struct{}

func (unroutable) Submit(ctx context.Context, vendor models.Vendor, _ models.Evidence, _ time.Duration) models.Result {
	return models.Failed(vendor.ID, models.FailureContractMismatch,
		"no adapter registered for routing tag "+vendor.RoutingTag, 0, time.Now())
}
