package store

import (
	"context"
	"sync"
	"time"

	"veriflow/internal/decision"
	"veriflow/internal/verification/models"
	vendormodels "veriflow/internal/vendors/models"
	id "veriflow/pkg/domain"
	"veriflow/pkg/platform/sentinel"
)

// InMemoryStore keeps requests in a map guarded by a mutex. Callers get
// copies so they cannot mutate stored state.
type InMemoryStore struct {
	mu       sync.Mutex
	requests map[id.RequestID]*models.VerificationRequest
	claimTTL time.Duration
}

func NewInMemoryStore(claimTTL time.Duration) *InMemoryStore {
	return &InMemoryStore{
		requests: make(map[id.RequestID]*models.VerificationRequest),
		claimTTL: claimTTL,
	}
}

func (s *InMemoryStore) Create(_ context.Context, req *models.VerificationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.requests[req.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *req
	s.requests[req.ID] = &cp
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, requestID id.RequestID) (*models.VerificationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (s *InMemoryStore) Claim(_ context.Context, requestID id.RequestID, now time.Time) (*models.VerificationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := req.Claim(now, s.claimTTL); err != nil {
		return nil, err
	}
	cp := *req
	return &cp, nil
}

func (s *InMemoryStore) Release(_ context.Context, requestID id.RequestID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok {
		return sentinel.ErrNotFound
	}
	return req.Release()
}

func (s *InMemoryStore) Complete(_ context.Context, requestID id.RequestID, attempts []vendormodels.Result, d decision.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok {
		return sentinel.ErrNotFound
	}
	return req.Complete(attempts, d)
}
