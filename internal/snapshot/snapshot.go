package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"veriflow/internal/rules"
	"veriflow/internal/vendors"
	"veriflow/internal/vendors/models"
	id "veriflow/pkg/domain"
	dErrors "veriflow/pkg/domain-errors"
)

// Snapshot is an immutable, validated configuration. Requests borrow the
// snapshot current at their start and keep it until they finish.
type Snapshot struct {
	Version  string
	LoadedAt time.Time
	Source   string

	Vendors *vendors.Registry
	Rules   *rules.RuleSet
	clients map[id.ClientID]models.Client
}

// Client looks up a client by id.
func (s *Snapshot) Client(clientID id.ClientID) (models.Client, bool) {
	c, ok := s.clients[clientID]
	return c, ok
}

// Clients returns all clients ordered by id.
func (s *Snapshot) Clients() []models.Client {
	out := make([]models.Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RuleCompiler compiles rule definitions. *rules.Compiler satisfies it.
type RuleCompiler interface {
	Compile(defs []rules.Definition) (*rules.RuleSet, error)
}

// Build validates doc and assembles a snapshot. Every problem found is
// reported, not just the first. A client referencing an unknown vendor is
// rejected.
func Build(doc Document, compiler RuleCompiler, loadedAt time.Time) (*Snapshot, error) {
	var errs []error

	vendorList := make([]models.Vendor, 0, len(doc.Vendors))
	known := make(map[id.VendorID]struct{}, len(doc.Vendors))
	for _, def := range doc.Vendors {
		v, err := buildVendor(def)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := known[v.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate vendor %s", v.ID))
			continue
		}
		known[v.ID] = struct{}{}
		vendorList = append(vendorList, v)
	}

	clients := make(map[id.ClientID]models.Client, len(doc.Clients))
	for _, def := range doc.Clients {
		c, err := buildClient(def)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := clients[c.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate client %s", c.ID))
			continue
		}
		for _, vid := range c.AllowedVendors {
			if _, ok := known[vid]; !ok {
				errs = append(errs, fmt.Errorf("client %s: unknown vendor %s", c.ID, vid))
			}
		}
		clients[c.ID] = c
	}

	ruleSet, err := compiler.Compile(doc.Rules)
	if err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return nil, dErrors.Wrap(errors.Join(errs...), dErrors.CodeValidation, "invalid configuration snapshot")
	}
	version, err := Fingerprint(doc)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Version:  version,
		LoadedAt: loadedAt,
		Vendors:  vendors.NewRegistry(vendorList),
		Rules:    ruleSet,
		clients:  clients,
	}, nil
}

// Fingerprint identifies a document's content. Credentials are excluded.
func Fingerprint(doc Document) (string, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("fingerprint snapshot: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:8]), nil
}

func buildVendor(def VendorDef) (models.Vendor, error) {
	vendorID, err := id.ParseVendorID(def.ID)
	if err != nil {
		return models.Vendor{}, fmt.Errorf("vendor %q: %w", def.ID, err)
	}
	status, err := models.ParseStatus(def.Status)
	if err != nil {
		return models.Vendor{}, fmt.Errorf("vendor %s: %w", vendorID, err)
	}
	caps := make([]id.CheckKind, 0, len(def.Capabilities))
	for _, raw := range def.Capabilities {
		kind, err := id.ParseCheckKind(raw)
		if err != nil {
			return models.Vendor{}, fmt.Errorf("vendor %s: %w", vendorID, err)
		}
		caps = append(caps, kind)
	}
	v := models.Vendor{
		ID:           vendorID,
		Name:         def.Name,
		Capabilities: caps,
		Status:       status,
		Priority:     def.Priority,
		RoutingTag:   def.RoutingTag,
		AvgLatency:   secondsToDuration(def.AvgLatencySeconds),
		Region:       def.Region,
		Sandbox:      def.Sandbox,
		Timeout:      time.Duration(def.TimeoutMs) * time.Millisecond,
		Endpoint:     def.Endpoint,
		Credentials:  def.Credentials,
	}
	if err := v.Validate(); err != nil {
		return models.Vendor{}, err
	}
	return v, nil
}

func buildClient(def ClientDef) (models.Client, error) {
	clientID, err := id.ParseClientID(def.ID)
	if err != nil {
		return models.Client{}, fmt.Errorf("client %q: %w", def.ID, err)
	}
	mode, err := id.ParseWorkflowMode(def.WorkflowMode)
	if err != nil {
		return models.Client{}, fmt.Errorf("client %s: %w", clientID, err)
	}
	risk, err := models.ParseRiskProfile(def.RiskProfile)
	if err != nil {
		return models.Client{}, fmt.Errorf("client %s: %w", clientID, err)
	}
	status, err := models.ParseClientStatus(def.Status)
	if err != nil {
		return models.Client{}, fmt.Errorf("client %s: %w", clientID, err)
	}
	allowed := make([]id.VendorID, 0, len(def.AllowedVendors))
	for _, raw := range def.AllowedVendors {
		vid, err := id.ParseVendorID(raw)
		if err != nil {
			return models.Client{}, fmt.Errorf("client %s: %w", clientID, err)
		}
		allowed = append(allowed, vid)
	}
	c := models.Client{
		ID:             clientID,
		Name:           def.Name,
		AllowedVendors: allowed,
		Workflow:       mode,
		Thresholds:     models.Thresholds{AutoApprove: def.AutoApprove, ManualReview: def.ManualReview},
		Webhooks:       def.Webhooks,
		RiskProfile:    risk,
		Status:         status,
	}
	if err := c.Validate(); err != nil {
		return models.Client{}, err
	}
	return c, nil
}
