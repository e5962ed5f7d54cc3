// Package admin exposes the operator surface: configuration reload, vendor
// health, client listing and per-request audit trails.
package admin

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"veriflow/internal/snapshot"
	id "veriflow/pkg/domain"
	dErrors "veriflow/pkg/domain-errors"
	"veriflow/pkg/platform/audit"
	"veriflow/pkg/platform/circuit"
	"veriflow/pkg/platform/httputil"
	"veriflow/pkg/requestcontext"
)

// Snapshots is the configuration holder.
type Snapshots interface {
	Current() *snapshot.Snapshot
	Reload(ctx context.Context) (*snapshot.Snapshot, error)
}

// BreakerReporter reports per-vendor circuit breaker state.
type BreakerReporter interface {
	BreakerState(vendorID id.VendorID) circuit.State
}

// AuditReader reads the audit trail of a request.
type AuditReader interface {
	List(ctx context.Context, requestID string) ([]audit.Event, error)
}

// Handler serves the operator endpoints.
type Handler struct {
	snapshots Snapshots
	breakers  BreakerReporter
	trail     AuditReader
	logger    *slog.Logger
}

// New creates an admin handler. breakers and trail may be nil.
func New(snapshots Snapshots, breakers BreakerReporter, trail AuditReader, logger *slog.Logger) *Handler {
	return &Handler{
		snapshots: snapshots,
		breakers:  breakers,
		trail:     trail,
		logger:    logger,
	}
}

// Register mounts the operator routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/vendors", h.HandleListVendors)
	r.Post("/admin/snapshot/reload", h.HandleReload)
	r.Get("/admin/snapshot", h.HandleSnapshot)
	r.Get("/admin/clients", h.HandleListClients)
	r.Get("/admin/verifications/{id}/audit", h.HandleAuditTrail)
}

// HandleReload handles POST /admin/snapshot/reload. A failed reload keeps
// the previous configuration in force and reports why.
func (h *Handler) HandleReload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	snap, err := h.snapshots.Reload(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "snapshot reload rejected",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromSnapshot(snap))
}

// HandleSnapshot handles GET /admin/snapshot.
func (h *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.current(w)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromSnapshot(snap))
}

// HandleListVendors handles GET /v1/vendors.
func (h *Handler) HandleListVendors(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.current(w)
	if !ok {
		return
	}

	vendors := snap.Vendors.All()
	resp := &VendorsListResponse{
		SnapshotVersion: snap.Version,
		Vendors:         make([]*VendorHealthResponse, 0, len(vendors)),
		Total:           len(vendors),
	}
	for _, v := range vendors {
		caps := make([]string, 0, len(v.Capabilities))
		for _, c := range v.Capabilities {
			caps = append(caps, string(c))
		}
		breaker := circuit.StateClosed
		if h.breakers != nil {
			breaker = h.breakers.BreakerState(v.ID)
		}
		resp.Vendors = append(resp.Vendors, &VendorHealthResponse{
			ID:           v.ID.String(),
			Name:         v.Name,
			Status:       string(v.Status),
			Priority:     v.Priority,
			Capabilities: caps,
			Region:       v.Region,
			Sandbox:      v.Sandbox,
			AvgLatencyMs: v.AvgLatency.Milliseconds(),
			Breaker:      breaker.String(),
		})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleListClients handles GET /admin/clients.
func (h *Handler) HandleListClients(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.current(w)
	if !ok {
		return
	}

	clients := snap.Clients()
	resp := &ClientsListResponse{
		Clients: make([]*ClientResponse, 0, len(clients)),
		Total:   len(clients),
	}
	for _, c := range clients {
		allowed := make([]string, 0, len(c.AllowedVendors))
		for _, v := range c.AllowedVendors {
			allowed = append(allowed, v.String())
		}
		resp.Clients = append(resp.Clients, &ClientResponse{
			ID:             c.ID.String(),
			Name:           c.Name,
			Workflow:       c.Workflow.String(),
			AllowedVendors: allowed,
			AutoApprove:    c.Thresholds.AutoApprove,
			ManualReview:   c.Thresholds.ManualReview,
			RiskProfile:    string(c.RiskProfile),
			Status:         string(c.Status),
		})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleAuditTrail handles GET /admin/verifications/{id}/audit.
func (h *Handler) HandleAuditTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.trail == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "audit trail not available"))
		return
	}

	verificationID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	events, err := h.trail.List(ctx, verificationID.String())
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read audit trail",
			"request_id", requestcontext.RequestID(ctx),
			"verification_id", verificationID.String(),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read audit trail"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &AuditTrailResponse{
		RequestID: verificationID.String(),
		Events:    events,
		Total:     len(events),
	})
}

func (h *Handler) current(w http.ResponseWriter) (*snapshot.Snapshot, bool) {
	snap := h.snapshots.Current()
	if snap == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "configuration snapshot not loaded"))
		return nil, false
	}
	return snap, true
}
