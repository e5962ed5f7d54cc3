// Package vendors ranks the vendors a client may use for a request.
package vendors

import (
	"errors"
	"slices"
	"sort"

	"veriflow/internal/vendors/models"
	id "veriflow/pkg/domain"
)

// ErrNoEligibleVendor is returned when none of a client's allowed vendors
// can receive traffic.
var ErrNoEligibleVendor = errors.New("no eligible vendor")

// Registry is an immutable view of the vendors of one configuration
// snapshot. It is safe for concurrent use.
type Registry struct {
	vendors map[id.VendorID]models.Vendor
}

// NewRegistry indexes vendors by id. Later duplicates replace earlier ones;
// snapshot validation rejects duplicates before this point.
func NewRegistry(vendors []models.Vendor) *Registry {
	idx := make(map[id.VendorID]models.Vendor, len(vendors))
	for _, v := range vendors {
		idx[v.ID] = v
	}
	return &Registry{vendors: idx}
}

// Get returns the vendor with the given id.
func (r *Registry) Get(vendorID id.VendorID) (models.Vendor, bool) {
	v, ok := r.vendors[vendorID]
	return v, ok
}

// All returns every vendor ordered by id.
func (r *Registry) All() []models.Vendor {
	out := make([]models.Vendor, 0, len(r.vendors))
	for _, v := range r.vendors {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b models.Vendor) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

func (r *Registry) Len() int {
	return len(r.vendors)
}

// CandidatesFor returns the client's allowed vendors that are not offline,
// ordered by ascending priority, then ascending average latency, then id.
// Vendors outside the allowed set are never substituted in.
func (r *Registry) CandidatesFor(client models.Client) ([]models.Vendor, error) {
	candidates := make([]models.Vendor, 0, len(client.AllowedVendors))
	for _, vendorID := range client.AllowedVendors {
		v, ok := r.vendors[vendorID]
		if !ok || !v.IsEligible() {
			continue
		}
		candidates = append(candidates, v)
	}
	if len(candidates) == 0 {
		return nil, ErrNoEligibleVendor
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if a.AvgLatency != b.AvgLatency {
			return a.AvgLatency < b.AvgLatency
		}
		return a.ID < b.ID
	})
	return candidates, nil
}
