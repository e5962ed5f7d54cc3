package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"veriflow/internal/vendors/models"
)

const maxResponseBytes = 64 << 10

// HTTP talks to vendors exposing a JSON verification endpoint. The evidence
// is POSTed to the vendor's endpoint with the vendor credentials as a bearer
// token; the response is:
//
//	{"status": "success", "score": 92, "scale": 100, "reason": ""}
//
// Scale is optional and defaults to 1.
type HTTP struct {
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
}

// HTTPOption configures an HTTP adapter.
type HTTPOption func(*HTTP)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTP) {
		h.client = c
	}
}

func WithHTTPLogger(l *slog.Logger) HTTPOption {
	return func(h *HTTP) {
		h.logger = l
	}
}

func NewHTTP(opts ...HTTPOption) *HTTP {
	h := &HTTP{
		client: &http.Client{},
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type vendorRequest struct {
	RequestID    string            `json:"request_id"`
	DocumentType string            `json:"document_type"`
	Country      string            `json:"country"`
	Identity     map[string]string `json:"identity,omitempty"`
	MediaRefs    []string          `json:"media_refs,omitempty"`
	Checks       []string          `json:"checks,omitempty"`
}

type vendorResponse struct {
	Status string   `json:"status"`
	Score  *float64 `json:"score"`
	Scale  float64  `json:"scale"`
	Reason string   `json:"reason"`
}

func (h *HTTP) Submit(ctx context.Context, vendor models.Vendor, evidence models.Evidence, timeout time.Duration) models.Result {
	start := h.now()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fail := func(category models.FailureCategory, msg string) models.Result {
		return models.Failed(vendor.ID, category, msg, h.now().Sub(start), h.now())
	}

	if vendor.Endpoint == "" {
		return fail(models.FailureContractMismatch, "vendor has no endpoint configured")
	}

	checks := make([]string, len(evidence.Checks))
	for i, c := range evidence.Checks {
		checks[i] = string(c)
	}
	body, err := json.Marshal(vendorRequest{
		RequestID:    evidence.RequestID.String(),
		DocumentType: evidence.DocumentType,
		Country:      evidence.Country,
		Identity:     evidence.Identity,
		MediaRefs:    evidence.MediaRefs,
		Checks:       checks,
	})
	if err != nil {
		return fail(models.FailureInternal, "encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, vendor.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fail(models.FailureContractMismatch, "invalid vendor endpoint")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if vendor.Credentials != "" {
		req.Header.Set("Authorization", "Bearer "+vendor.Credentials)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
			return fail(models.FailureTimeout, fmt.Sprintf("no response within %s", timeout))
		}
		if errors.Is(err, context.Canceled) {
			return fail(models.FailureTimeout, "request cancelled")
		}
		h.logger.WarnContext(ctx, "vendor transport error",
			"vendor_id", vendor.ID.String(),
			"error", err,
		)
		return fail(models.FailureProviderOutage, "transport error")
	}
	defer resp.Body.Close()

	if category, failed := categorizeStatus(resp.StatusCode); failed {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return fail(category, fmt.Sprintf("vendor returned HTTP %d", resp.StatusCode))
	}

	var out vendorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fail(models.FailureTimeout, fmt.Sprintf("no response within %s", timeout))
		}
		return fail(models.FailureContractMismatch, "malformed vendor response")
	}
	return h.normalize(vendor, out, start)
}

func (h *HTTP) normalize(vendor models.Vendor, out vendorResponse, start time.Time) models.Result {
	latency := h.now().Sub(start)
	switch out.Status {
	case "success", "passed", "ok":
	case "failed", "rejected", "error":
		reason := out.Reason
		if reason == "" {
			reason = "vendor could not verify the evidence"
		}
		return models.Failed(vendor.ID, models.FailureBadData, reason, latency, h.now())
	default:
		return models.Failed(vendor.ID, models.FailureContractMismatch, "unknown vendor status "+out.Status, latency, h.now())
	}
	if out.Score == nil {
		return models.Failed(vendor.ID, models.FailureContractMismatch, "vendor response has no score", latency, h.now())
	}
	score := *out.Score
	if out.Scale > 0 {
		score /= out.Scale
	}
	return models.Succeeded(vendor.ID, score, latency, h.now())
}

// categorizeStatus maps a non-2xx vendor status onto the failure taxonomy.
func categorizeStatus(code int) (models.FailureCategory, bool) {
	switch {
	case code >= 200 && code < 300:
		return "", false
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return models.FailureAuthentication, true
	case code == http.StatusTooManyRequests:
		return models.FailureRateLimited, true
	case code == http.StatusRequestTimeout, code == http.StatusGatewayTimeout:
		return models.FailureTimeout, true
	case code == http.StatusBadRequest, code == http.StatusUnprocessableEntity:
		return models.FailureBadData, true
	case code >= 500:
		return models.FailureProviderOutage, true
	default:
		return models.FailureContractMismatch, true
	}
}
