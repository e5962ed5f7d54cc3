package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veriflow/internal/decision"
	vendormodels "veriflow/internal/vendors/models"
	id "veriflow/pkg/domain"
	dErrors "veriflow/pkg/domain-errors"
	"veriflow/pkg/platform/sentinel"
)

var now = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func validIntake() Intake {
	return Intake{ClientID: "acme", DocumentType: " passport ", Country: "ng"}
}

func TestNewVerificationRequest(t *testing.T) {
	t.Run("normalizes and starts received", func(t *testing.T) {
		req, err := NewVerificationRequest(id.NewRequestID(), validIntake(), now)
		require.NoError(t, err)
		assert.Equal(t, "passport", req.DocumentType)
		assert.Equal(t, "NG", req.Country)
		assert.Equal(t, StateReceived, req.State)
		assert.Equal(t, now, req.CreatedAt)
	})

	cases := map[string]func(*Intake){
		"missing client":     func(in *Intake) { in.ClientID = "" },
		"missing document":   func(in *Intake) { in.DocumentType = "  " },
		"bad country":        func(in *Intake) { in.Country = "Nigeria" },
		"risk out of range":  func(in *Intake) { r := 1.5; in.RiskScore = &r },
		"unknown check kind": func(in *Intake) { in.Checks = []id.CheckKind{"Palmistry"} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validIntake()
			mutate(&in)
			_, err := NewVerificationRequest(id.NewRequestID(), in, now)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func TestLifecycle(t *testing.T) {
	req, err := NewVerificationRequest(id.NewRequestID(), validIntake(), now)
	require.NoError(t, err)

	require.NoError(t, req.Claim(now, time.Minute))
	assert.ErrorIs(t, req.Claim(now.Add(time.Second), time.Minute), sentinel.ErrAlreadyClaimed)

	require.NoError(t, req.Release())
	assert.Equal(t, StateReceived, req.State)
	assert.Nil(t, req.ClaimedAt)
	assert.ErrorIs(t, req.Release(), sentinel.ErrInvalidState)

	require.NoError(t, req.Claim(now, time.Minute))
	attempts := []vendormodels.Result{vendormodels.Succeeded("vnd_1", 0.9, time.Second, now)}
	d := decision.Decision{Status: id.StatusSuccess, DecidedAt: now.Add(2 * time.Second)}
	require.NoError(t, req.Complete(attempts, d))

	assert.True(t, req.IsDecided())
	assert.Equal(t, now.Add(2*time.Second), *req.DecidedAt)
	assert.ErrorIs(t, req.Claim(now, time.Minute), sentinel.ErrInvalidState)
	assert.ErrorIs(t, req.Complete(attempts, d), sentinel.ErrInvalidState)
}

func TestStaleClaimCanBeTakenOver(t *testing.T) {
	req, err := NewVerificationRequest(id.NewRequestID(), validIntake(), now)
	require.NoError(t, err)
	require.NoError(t, req.Claim(now, time.Minute))

	assert.False(t, req.ClaimExpired(now.Add(30*time.Second), time.Minute))
	assert.True(t, req.ClaimExpired(now.Add(2*time.Minute), time.Minute))
	assert.False(t, req.ClaimExpired(now.Add(time.Hour), 0))
	require.NoError(t, req.Claim(now.Add(2*time.Minute), time.Minute))
}

func TestEvidenceCarriesRequestFields(t *testing.T) {
	in := validIntake()
	in.Watchlist = []string{"pep"}
	in.Device = []string{"mobile"}
	req, err := NewVerificationRequest(id.NewRequestID(), in, now)
	require.NoError(t, err)

	ev := req.Evidence()
	assert.Equal(t, req.ID, ev.RequestID)
	assert.Equal(t, id.ClientID("acme"), ev.ClientID)
	assert.Equal(t, []string{"pep"}, ev.Watchlist)
	assert.Equal(t, []string{"mobile"}, ev.Device)
}
