//go:build integration

package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/suite"

	"veriflow/internal/rules"
	id "veriflow/pkg/domain"
	"veriflow/pkg/testutil/containers"
)

type PostgresSourceSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	source   *PostgresSource
	compiler *rules.Compiler
}

func TestPostgresSourceSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresSourceSuite))
}

func (s *PostgresSourceSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.source = NewPostgresSource(s.postgres.DB)

	compiler, err := rules.NewCompiler(1 << 10)
	s.Require().NoError(err)
	s.compiler = compiler
}

func (s *PostgresSourceSuite) TearDownSuite() {
	s.compiler.Close()
}

func (s *PostgresSourceSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "rules", "clients", "vendors"))
}

func (s *PostgresSourceSuite) seed() {
	ctx := context.Background()
	db := s.postgres.DB

	_, err := db.ExecContext(ctx, `
		INSERT INTO vendors (id, name, capabilities, status, priority, avg_latency_seconds, region, credentials)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		"vnd_onfido", "Onfido", pq.Array([]string{"Document", "Face"}), "online", 1, 1.5, "EU", "secret")
	s.Require().NoError(err)
	_, err = db.ExecContext(ctx, `
		INSERT INTO vendors (id, name, capabilities, status, priority)
		VALUES ($1, $2, $3, $4, $5)`,
		"vnd_trulioo", "Trulioo", pq.Array([]string{"Watchlist"}), "degraded", 2)
	s.Require().NoError(err)

	_, err = db.ExecContext(ctx, `
		INSERT INTO clients (id, name, allowed_vendors, workflow_mode, auto_approve, manual_review, risk_profile, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		"acme", "Acme", pq.Array([]string{"vnd_onfido", "vnd_trulioo"}), "parallel", 0.85, 0.6, "High", "Active")
	s.Require().NoError(err)

	for _, r := range []struct {
		id       string
		priority int
		cond     []string
		action   string
	}{
		{"r_second", 1, []string{"country == DE"}, "Route to manual review"},
		{"r_first", 1, []string{"watchlist contains pep"}, "Reject"},
	} {
		_, err = db.ExecContext(ctx, `
			INSERT INTO rules (id, name, priority, enabled, conditions, action)
			VALUES ($1, $1, $2, TRUE, $3, $4)`,
			r.id, r.priority, pq.Array(r.cond), r.action)
		s.Require().NoError(err)
	}
}

func (s *PostgresSourceSuite) TestLoadReadsEveryTable() {
	s.seed()

	doc, err := s.source.Load(context.Background())
	s.Require().NoError(err)

	s.Require().Len(doc.Vendors, 2)
	s.Equal("vnd_onfido", doc.Vendors[0].ID)
	s.Equal([]string{"Document", "Face"}, doc.Vendors[0].Capabilities)
	s.InDelta(1.5, doc.Vendors[0].AvgLatencySeconds, 1e-9)
	s.Equal("secret", doc.Vendors[0].Credentials)

	s.Require().Len(doc.Clients, 1)
	s.Equal([]string{"vnd_onfido", "vnd_trulioo"}, doc.Clients[0].AllowedVendors)
	s.Equal("parallel", doc.Clients[0].WorkflowMode)

	// insertion order survives so equal priorities tie-break as inserted
	s.Require().Len(doc.Rules, 2)
	s.Equal("r_second", doc.Rules[0].ID)
	s.Equal("r_first", doc.Rules[1].ID)
}

func (s *PostgresSourceSuite) TestManagerBuildsSnapshotFromTables() {
	s.seed()

	manager := NewManager(s.source, s.compiler)
	snap, err := manager.Reload(context.Background())
	s.Require().NoError(err)

	s.Equal("postgres", snap.Source)
	s.Equal(2, snap.Vendors.Len())
	s.Equal(2, snap.Rules.Total())
	client, ok := snap.Client(id.ClientID("acme"))
	s.Require().True(ok)
	s.Equal(id.WorkflowParallel, client.Workflow)
}

func (s *PostgresSourceSuite) TestCredentialChangeKeepsVersion() {
	s.seed()
	manager := NewManager(s.source, s.compiler, WithClock(func() time.Time { return time.Unix(0, 0) }))

	first, err := manager.Reload(context.Background())
	s.Require().NoError(err)

	_, err = s.postgres.DB.ExecContext(context.Background(),
		`UPDATE vendors SET credentials = 'rotated' WHERE id = 'vnd_onfido'`)
	s.Require().NoError(err)

	second, err := manager.Reload(context.Background())
	s.Require().NoError(err)
	s.Equal(first.Version, second.Version)
}

func (s *PostgresSourceSuite) TestEmptyTablesLoadEmptyDocument() {
	doc, err := s.source.Load(context.Background())
	s.Require().NoError(err)
	s.Empty(doc.Vendors)
	s.Empty(doc.Clients)
	s.Empty(doc.Rules)
}
