package snapshot

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"veriflow/pkg/platform/audit"
	dErrors "veriflow/pkg/domain-errors"
)

// ReloadRecorder counts reload outcomes.
type ReloadRecorder interface {
	IncrementSnapshotReload(ok bool)
}

// AuditEmitter receives the reload audit event.
type AuditEmitter interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Manager owns the current snapshot. Readers never block: Current is a
// single atomic load. Reloads are serialized.
type Manager struct {
	source   Source
	compiler RuleCompiler
	current  atomic.Pointer[Snapshot]
	reloadMu sync.Mutex

	logger  *slog.Logger
	metrics ReloadRecorder
	auditor AuditEmitter
	now     func() time.Time
}

type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithMetrics(metrics ReloadRecorder) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

func WithAuditor(auditor AuditEmitter) Option {
	return func(m *Manager) {
		m.auditor = auditor
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(source Source, compiler RuleCompiler, opts ...Option) *Manager {
	m := &Manager{
		source:   source,
		compiler: compiler,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Current returns the snapshot in force, or nil before the first
// successful load.
func (m *Manager) Current() *Snapshot {
	return m.current.Load()
}

// Reload loads, validates and swaps in a new snapshot. On any failure the
// previous snapshot stays in force.
func (m *Manager) Reload(ctx context.Context) (*Snapshot, error) {
	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()

	snap, err := m.load(ctx)
	if m.metrics != nil {
		m.metrics.IncrementSnapshotReload(err == nil)
	}
	if err != nil {
		m.logger.ErrorContext(ctx, "snapshot reload failed",
			"source", m.source.Name(),
			"error", err,
		)
		return nil, err
	}

	previous := m.current.Swap(snap)
	m.logger.InfoContext(ctx, "snapshot loaded",
		"source", snap.Source,
		"version", snap.Version,
		"vendors", snap.Vendors.Len(),
		"clients", len(snap.clients),
		"rules", snap.Rules.Total(),
	)
	if m.auditor != nil && (previous == nil || previous.Version != snap.Version) {
		if err := m.auditor.Emit(ctx, audit.Event{
			Action:    string(audit.EventSnapshotReloaded),
			Timestamp: snap.LoadedAt,
			Reason:    "version " + snap.Version,
			Success:   true,
		}); err != nil {
			m.logger.WarnContext(ctx, "snapshot reload audit failed", "error", err)
		}
	}
	return snap, nil
}

func (m *Manager) load(ctx context.Context) (*Snapshot, error) {
	doc, err := m.source.Load(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load configuration snapshot")
	}
	snap, err := Build(doc, m.compiler, m.now())
	if err != nil {
		return nil, err
	}
	snap.Source = m.source.Name()
	return snap, nil
}
