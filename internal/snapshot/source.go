package snapshot

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/lib/pq"
	"gopkg.in/yaml.v3"

	"veriflow/internal/rules"
)

// Source delivers configuration documents.
type Source interface {
	Name() string
	Load(ctx context.Context) (Document, error)
}

// FileSource reads a YAML document from disk on every load.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Name() string { return "file:" + s.Path }

func (s *FileSource) Load(_ context.Context) (Document, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return Document{}, fmt.Errorf("read snapshot file: %w", err)
	}
	return DecodeYAML(bytes.NewReader(raw))
}

// DecodeYAML decodes a document, rejecting unknown keys so typos in the
// configuration surface at load time.
func DecodeYAML(r io.Reader) (Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return Document{}, fmt.Errorf("decode snapshot yaml: %w", err)
	}
	return doc, nil
}

// PostgresSource reads vendors, clients and rules from the tables the
// administrative side maintains. It never writes.
type PostgresSource struct {
	db *sql.DB
}

func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

func (s *PostgresSource) Name() string { return "postgres" }

func (s *PostgresSource) Load(ctx context.Context) (Document, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return Document{}, fmt.Errorf("begin snapshot read: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var doc Document
	if doc.Vendors, err = loadVendors(ctx, tx); err != nil {
		return Document{}, err
	}
	if doc.Clients, err = loadClients(ctx, tx); err != nil {
		return Document{}, err
	}
	if doc.Rules, err = loadRules(ctx, tx); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func loadVendors(ctx context.Context, tx *sql.Tx) ([]VendorDef, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, name, capabilities, status, priority, routing_tag,
		       avg_latency_seconds, region, sandbox, timeout_ms, endpoint, credentials
		FROM vendors
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query vendors: %w", err)
	}
	defer rows.Close()

	var out []VendorDef
	for rows.Next() {
		var v VendorDef
		if err := rows.Scan(&v.ID, &v.Name, pq.Array(&v.Capabilities), &v.Status, &v.Priority, &v.RoutingTag,
			&v.AvgLatencySeconds, &v.Region, &v.Sandbox, &v.TimeoutMs, &v.Endpoint, &v.Credentials); err != nil {
			return nil, fmt.Errorf("scan vendor: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vendors: %w", err)
	}
	return out, nil
}

func loadClients(ctx context.Context, tx *sql.Tx) ([]ClientDef, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, name, allowed_vendors, workflow_mode, auto_approve, manual_review,
		       webhooks, risk_profile, status
		FROM clients
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	var out []ClientDef
	for rows.Next() {
		var c ClientDef
		if err := rows.Scan(&c.ID, &c.Name, pq.Array(&c.AllowedVendors), &c.WorkflowMode, &c.AutoApprove, &c.ManualReview,
			pq.Array(&c.Webhooks), &c.RiskProfile, &c.Status); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients: %w", err)
	}
	return out, nil
}

// loadRules keeps insertion order (seq) so equal priorities tie-break the
// same way as in a file.
func loadRules(ctx context.Context, tx *sql.Tx) ([]rules.Definition, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, name, priority, enabled, conditions, action
		FROM rules
		ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var out []rules.Definition
	for rows.Next() {
		var r rules.Definition
		if err := rows.Scan(&r.ID, &r.Name, &r.Priority, &r.Enabled, pq.Array(&r.Conditions), &r.Action); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return out, nil
}
