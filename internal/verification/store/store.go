// Package store persists verification requests and arbitrates processing
// claims so a request is never dispatched twice at the same time.
package store

import (
	"context"
	"time"

	"veriflow/internal/decision"
	"veriflow/internal/verification/models"
	vendormodels "veriflow/internal/vendors/models"
	id "veriflow/pkg/domain"
)

// Store is implemented by the in-memory and Redis backends.
//
// Errors are sentinel values from pkg/platform/sentinel:
//   - ErrNotFound: no request with that id
//   - ErrConflict: Create with an id that already exists
//   - ErrAlreadyClaimed: Claim while another claim is live
//   - ErrInvalidState: Claim on a decided request, Release or Complete
//     without a claim
type Store interface {
	Create(ctx context.Context, req *models.VerificationRequest) error
	Get(ctx context.Context, requestID id.RequestID) (*models.VerificationRequest, error)
	Claim(ctx context.Context, requestID id.RequestID, now time.Time) (*models.VerificationRequest, error)
	Release(ctx context.Context, requestID id.RequestID) error
	Complete(ctx context.Context, requestID id.RequestID, attempts []vendormodels.Result, d decision.Decision) error
}
