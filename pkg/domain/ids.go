package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "veriflow/pkg/domain-errors"
)

// RequestID identifies a verification request. It is generated at intake and
// is always a non-nil UUID.
type RequestID uuid.UUID

// NewRequestID returns a fresh random request ID.
func NewRequestID() RequestID {
	return RequestID(uuid.New())
}

// ParseRequestID validates external input at trust boundaries.
func ParseRequestID(s string) (RequestID, error) {
	if s == "" {
		return RequestID{}, dErrors.New(dErrors.CodeInvalidInput, "request id cannot be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return RequestID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid request id")
	}
	if parsed == uuid.Nil {
		return RequestID{}, dErrors.New(dErrors.CodeInvalidInput, "request id cannot be nil")
	}
	return RequestID(parsed), nil
}

func (id RequestID) String() string {
	return uuid.UUID(id).String()
}

func (id RequestID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

func (id RequestID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

func (id *RequestID) UnmarshalText(b []byte) error {
	parsed, err := ParseRequestID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Configuration entities (clients, vendors, rules) are keyed by short
// operator-chosen slugs such as "vnd_onfido" rather than UUIDs, because the
// administrative UI owns them and hands them over verbatim.
type (
	ClientID string
	VendorID string
	RuleID   string
)

const maxSlugLength = 64

func ParseClientID(s string) (ClientID, error) {
	v, err := parseSlug("client id", s)
	return ClientID(v), err
}

func ParseVendorID(s string) (VendorID, error) {
	v, err := parseSlug("vendor id", s)
	return VendorID(v), err
}

func ParseRuleID(s string) (RuleID, error) {
	v, err := parseSlug("rule id", s)
	return RuleID(v), err
}

func (id ClientID) String() string { return string(id) }
func (id VendorID) String() string { return string(id) }
func (id RuleID) String() string   { return string(id) }

func (id ClientID) IsNil() bool { return id == "" }
func (id VendorID) IsNil() bool { return id == "" }
func (id RuleID) IsNil() bool   { return id == "" }

// parseSlug accepts ASCII letters, digits, '-', '_' and '.'.
func parseSlug(kind, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be empty")
	}
	if len(s) > maxSlugLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, kind+" is too long")
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return "", dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
		}
	}
	return s, nil
}
