// Package notify publishes decision notifications for the webhook notifier
// and other downstream consumers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"veriflow/internal/decision"
	vendormodels "veriflow/internal/vendors/models"
	id "veriflow/pkg/domain"
)

// Transport sends raw bytes to a subject.
type Transport interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Message is the JSON body of a decision notification.
type Message struct {
	RequestID   string   `json:"request_id"`
	ClientID    string   `json:"client_id"`
	Status      string   `json:"status"`
	Score       *float64 `json:"score,omitempty"`
	Reason      string   `json:"reason"`
	MatchedRule string   `json:"matched_rule,omitempty"`
	// Webhook is set when a matched rule asked for one.
	Webhook   bool      `json:"webhook"`
	Targets   []string  `json:"targets,omitempty"`
	DecidedAt time.Time `json:"decided_at"`
}

// Notifier turns decisions into messages on <prefix>.<client>.<status>.
type Notifier struct {
	transport Transport
	prefix    string
	logger    *slog.Logger
}

type Option func(*Notifier)

func WithLogger(logger *slog.Logger) Option {
	return func(n *Notifier) {
		n.logger = logger
	}
}

func New(transport Transport, prefix string, opts ...Option) *Notifier {
	n := &Notifier{transport: transport, prefix: strings.TrimSuffix(prefix, "."), logger: slog.Default()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Subject returns the subject a decision is published on.
func (n *Notifier) Subject(clientID id.ClientID, status id.VerificationStatus) string {
	return n.prefix + "." + subjectToken(clientID.String()) + "." + subjectToken(status.String())
}

// Notify publishes the decision. A nil Notifier or transport is a no-op.
func (n *Notifier) Notify(ctx context.Context, requestID id.RequestID, client vendormodels.Client, d decision.Decision) error {
	if n == nil || n.transport == nil {
		return nil
	}
	msg := Message{
		RequestID: requestID.String(),
		ClientID:  client.ID.String(),
		Status:    d.Status.String(),
		Score:     d.Score,
		Reason:    string(d.Reason),
		Webhook:   d.Notify,
		DecidedAt: d.DecidedAt,
	}
	if d.MatchedRule != nil {
		msg.MatchedRule = d.MatchedRule.RuleID.String()
	}
	if d.Notify {
		msg.Targets = client.Webhooks
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal decision notification: %w", err)
	}
	subject := n.Subject(client.ID, d.Status)
	if err := n.transport.Publish(ctx, subject, data); err != nil {
		n.logger.ErrorContext(ctx, "decision notification failed",
			"request_id", msg.RequestID,
			"subject", subject,
			"error", err,
		)
		return err
	}
	return nil
}

// subjectToken keeps a value inside one NATS subject token.
func subjectToken(s string) string {
	return strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(s)
}
