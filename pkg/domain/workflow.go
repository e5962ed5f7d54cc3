package domain

import (
	"strings"

	dErrors "veriflow/pkg/domain-errors"
)

// WorkflowMode selects how a client's vendors are used for one request.
// Invariant: the value must be one of the supported modes.
//
// Usage: construct via ParseWorkflowMode at trust boundaries; direct casting
// bypasses validation.
type WorkflowMode string

const (
	WorkflowPrimary  WorkflowMode = "Primary"
	WorkflowFallback WorkflowMode = "Fallback"
	WorkflowParallel WorkflowMode = "Parallel"
)

var validWorkflowModes = map[WorkflowMode]bool{
	WorkflowPrimary:  true,
	WorkflowFallback: true,
	WorkflowParallel: true,
}

// ParseWorkflowMode accepts the canonical spelling case-insensitively
// ("parallel" and "Parallel" are the same mode).
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseWorkflowMode(s string) (WorkflowMode, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "workflow mode cannot be empty")
	}
	for mode := range validWorkflowModes {
		if strings.EqualFold(string(mode), s) {
			return mode, nil
		}
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "invalid workflow mode")
}

func (m WorkflowMode) IsValid() bool {
	return validWorkflowModes[m]
}

func (m WorkflowMode) String() string {
	return string(m)
}

// CheckKind is a verification capability a vendor may support.
type CheckKind string

const (
	CheckDocument  CheckKind = "Document"
	CheckWatchlist CheckKind = "Watchlist"
	CheckLiveness  CheckKind = "Liveness"
	CheckFace      CheckKind = "Face"
	CheckAML       CheckKind = "AML"
	CheckDevice    CheckKind = "Device"
)

var validCheckKinds = map[CheckKind]bool{
	CheckDocument:  true,
	CheckWatchlist: true,
	CheckLiveness:  true,
	CheckFace:      true,
	CheckAML:       true,
	CheckDevice:    true,
}

// ParseCheckKind validates a capability name, case-insensitively.
func ParseCheckKind(s string) (CheckKind, error) {
	s = strings.TrimSpace(s)
	for kind := range validCheckKinds {
		if strings.EqualFold(string(kind), s) {
			return kind, nil
		}
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "invalid check kind: "+s)
}

func (k CheckKind) IsValid() bool {
	return validCheckKinds[k]
}
