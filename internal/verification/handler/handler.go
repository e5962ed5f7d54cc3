//go:generate mockgen -source=handler.go -destination=mocks/service_mock.go -package=mocks Service

// Package handler exposes verification intake, processing and lookup over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"veriflow/internal/decision"
	"veriflow/internal/verification/models"
	id "veriflow/pkg/domain"
	"veriflow/pkg/platform/httputil"
	"veriflow/pkg/requestcontext"
)

// Service defines the interface for verification operations.
type Service interface {
	Submit(ctx context.Context, in models.Intake) (*models.VerificationRequest, error)
	Process(ctx context.Context, requestID id.RequestID) (*decision.Decision, error)
	Get(ctx context.Context, requestID id.RequestID) (*models.VerificationRequest, error)
}

// Handler wires verification endpoints to the orchestration service.
type Handler struct {
	service Service
	logger  *slog.Logger
	intake  func(http.Handler) http.Handler
	read    func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithRouteLimits wraps the write endpoints in intake and the read endpoint
// in read.
func WithRouteLimits(intake, read func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.intake = intake
		h.read = read
	}
}

// New constructs a verification handler with its dependencies.
func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		service: service,
		logger:  logger,
		intake:  passthrough,
		read:    passthrough,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func passthrough(next http.Handler) http.Handler { return next }

// Register mounts verification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.With(h.intake).Post("/v1/verifications", h.HandleSubmit)
	r.With(h.intake).Post("/v1/verifications/{id}/process", h.HandleProcess)
	r.With(h.read).Get("/v1/verifications/{id}", h.HandleGet)
}

// HandleSubmit handles POST /v1/verifications.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	created, err := h.service.Submit(ctx, req.Intake(requestcontext.DeviceTags(ctx)))
	if err != nil {
		h.logger.WarnContext(ctx, "verification intake rejected",
			"request_id", requestID,
			"client_id", req.ClientID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, &SubmitResponse{
		ID:        created.ID.String(),
		State:     string(created.State),
		CreatedAt: created.CreatedAt,
	})
}

// HandleProcess handles POST /v1/verifications/{id}/process.
func (h *Handler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	verificationID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	d, err := h.service.Process(ctx, verificationID)
	if err != nil {
		h.logger.WarnContext(ctx, "verification not processed",
			"request_id", requestID,
			"verification_id", verificationID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "verification processed",
		"request_id", requestID,
		"verification_id", verificationID.String(),
		"status", d.Status.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromDecision(d))
}

// HandleGet handles GET /v1/verifications/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	verificationID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, err := h.service.Get(ctx, verificationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRequest(req))
}
