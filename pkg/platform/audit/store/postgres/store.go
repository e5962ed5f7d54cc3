package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	audit "veriflow/pkg/platform/audit"
	txcontext "veriflow/pkg/platform/tx"
)

// Store implements audit.Store on top of the audit_events table and an outbox
// row per event, so a relay can forward the trail to the log processor.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON published by the outbox relay.
type outboxPayload struct {
	ID            string   `json:"id"`
	Category      string   `json:"category"`
	Timestamp     string   `json:"timestamp"`
	Action        string   `json:"action"`
	RequestID     string   `json:"request_id"`
	ClientID      string   `json:"client_id,omitempty"`
	VendorID      string   `json:"vendor_id,omitempty"`
	Attempt       int      `json:"attempt,omitempty"`
	Success       bool     `json:"success"`
	LatencyMs     int64    `json:"latency_ms,omitempty"`
	RuleID        string   `json:"rule_id,omitempty"`
	Matched       bool     `json:"matched,omitempty"`
	Decision      string   `json:"decision,omitempty"`
	Score         *float64 `json:"score,omitempty"`
	Reason        string   `json:"reason,omitempty"`
	CorrelationID string   `json:"correlation_id,omitempty"`
}

// Append writes the event row and its outbox entry. When ctx carries a
// transaction both writes join it.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}

	payload, err := json.Marshal(outboxPayload{
		ID:            eventID.String(),
		Category:      string(category),
		Timestamp:     event.Timestamp.Format(time.RFC3339Nano),
		Action:        event.Action,
		RequestID:     event.RequestID,
		ClientID:      event.ClientID,
		VendorID:      event.VendorID,
		Attempt:       event.Attempt,
		Success:       event.Success,
		LatencyMs:     event.LatencyMs,
		RuleID:        event.RuleID,
		Matched:       event.Matched,
		Decision:      event.Decision,
		Score:         event.Score,
		Reason:        event.Reason,
		CorrelationID: event.CorrelationID,
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	exec := s.execer(ctx)
	_, err = exec.ExecContext(ctx, `
		INSERT INTO audit_events (
			id, category, timestamp, action, request_id, client_id,
			vendor_id, attempt, success, latency_ms, rule_id, matched,
			decision, score, reason, correlation_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO NOTHING
	`,
		eventID, string(category), event.Timestamp, event.Action, event.RequestID, event.ClientID,
		event.VendorID, event.Attempt, event.Success, event.LatencyMs, event.RuleID, event.Matched,
		event.Decision, event.Score, event.Reason, event.CorrelationID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}

	_, err = exec.ExecContext(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.New(), "verification", event.RequestID, event.Action, payload, time.Now())
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// ListByRequest returns the trail for one verification request in append order.
func (s *Store) ListByRequest(ctx context.Context, requestID string) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, timestamp, action, request_id, client_id,
			   vendor_id, attempt, success, latency_ms, rule_id, matched,
			   decision, score, reason, correlation_id
		FROM audit_events
		WHERE request_id = $1
		ORDER BY seq ASC
	`, requestID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			category string
			event    audit.Event
			score    sql.NullFloat64
		)
		if err := rows.Scan(
			&category, &event.Timestamp, &event.Action, &event.RequestID, &event.ClientID,
			&event.VendorID, &event.Attempt, &event.Success, &event.LatencyMs, &event.RuleID, &event.Matched,
			&event.Decision, &score, &event.Reason, &event.CorrelationID,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = audit.EventCategory(category)
		if score.Valid {
			v := score.Float64
			event.Score = &v
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
