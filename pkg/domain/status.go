package domain

import (
	"strings"

	dErrors "veriflow/pkg/domain-errors"
)

// VerificationStatus is the outcome of a verification request.
type VerificationStatus string

const (
	StatusSuccess VerificationStatus = "success"
	StatusFailed  VerificationStatus = "failed"
	StatusReview  VerificationStatus = "review"
	StatusPending VerificationStatus = "pending"
)

// ParseVerificationStatus accepts a status case-insensitively.
func ParseVerificationStatus(s string) (VerificationStatus, error) {
	switch v := VerificationStatus(strings.ToLower(strings.TrimSpace(s))); v {
	case StatusSuccess, StatusFailed, StatusReview, StatusPending:
		return v, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "invalid verification status")
}

func (s VerificationStatus) IsValid() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusReview, StatusPending:
		return true
	}
	return false
}

func (s VerificationStatus) String() string {
	return string(s)
}
