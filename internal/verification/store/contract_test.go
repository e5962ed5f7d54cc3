package store

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/suite"

	"veriflow/internal/decision"
	"veriflow/internal/verification/models"
	vendormodels "veriflow/internal/vendors/models"
	id "veriflow/pkg/domain"
	"veriflow/pkg/platform/sentinel"
)

// contractSuite is run against every Store backend.
type contractSuite struct {
	suite.Suite
	newStore func() Store
	store    Store
	now      time.Time
}

func (s *contractSuite) SetupTest() {
	s.store = s.newStore()
	s.now = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
}

func (s *contractSuite) newRequest() *models.VerificationRequest {
	req, err := models.NewVerificationRequest(id.NewRequestID(), models.Intake{
		ClientID:     "acme",
		DocumentType: "passport",
		Country:      "DE",
	}, s.now)
	s.Require().NoError(err)
	return req
}

func (s *contractSuite) TestCreateAndGet() {
	ctx := context.Background()
	req := s.newRequest()
	s.Require().NoError(s.store.Create(ctx, req))

	got, err := s.store.Get(ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(req.ID, got.ID)
	s.Equal(models.StateReceived, got.State)
	s.Equal("DE", got.Country)

	s.ErrorIs(s.store.Create(ctx, req), sentinel.ErrConflict)
}

func (s *contractSuite) TestGetUnknown() {
	_, err := s.store.Get(context.Background(), id.NewRequestID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *contractSuite) TestClaimReleaseComplete() {
	ctx := context.Background()
	req := s.newRequest()
	s.Require().NoError(s.store.Create(ctx, req))

	claimed, err := s.store.Claim(ctx, req.ID, s.now)
	s.Require().NoError(err)
	s.Equal(models.StateProcessing, claimed.State)

	_, err = s.store.Claim(ctx, req.ID, s.now)
	s.ErrorIs(err, sentinel.ErrAlreadyClaimed)

	s.Require().NoError(s.store.Release(ctx, req.ID))
	_, err = s.store.Claim(ctx, req.ID, s.now)
	s.Require().NoError(err)

	score := 0.92
	attempts := []vendormodels.Result{vendormodels.Succeeded("vnd_1", score, 120*time.Millisecond, s.now)}
	d := decision.Decision{Status: id.StatusSuccess, Score: &score, Results: attempts, Reason: decision.ReasonAutoApprove, DecidedAt: s.now}
	s.Require().NoError(s.store.Complete(ctx, req.ID, attempts, d))

	got, err := s.store.Get(ctx, req.ID)
	s.Require().NoError(err)
	s.True(got.IsDecided())
	s.Require().NotNil(got.Decision)
	s.Equal(id.StatusSuccess, got.Decision.Status)
	s.InDelta(0.92, *got.Decision.Score, 1e-9)
	s.Len(got.Attempts, 1)

	_, err = s.store.Claim(ctx, req.ID, s.now)
	s.ErrorIs(err, sentinel.ErrInvalidState)
}

func (s *contractSuite) TestUnknownTransitions() {
	ctx := context.Background()
	unknown := id.NewRequestID()
	_, err := s.store.Claim(ctx, unknown, s.now)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.Release(ctx, unknown), sentinel.ErrNotFound)
	s.ErrorIs(s.store.Complete(ctx, unknown, nil, decision.Decision{}), sentinel.ErrNotFound)
}

func (s *contractSuite) TestConcurrentClaimsHaveOneWinner() {
	ctx := context.Background()
	req := s.newRequest()
	s.Require().NoError(s.store.Create(ctx, req))

	const workers = 20
	var wins atomic.Int32
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.store.Claim(ctx, req.ID, s.now); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), wins.Load())
}
