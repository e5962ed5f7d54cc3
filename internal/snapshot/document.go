// Package snapshot loads the read-only configuration the engine decides
// against (vendors, clients and rules) and swaps it atomically on reload.
package snapshot

import (
	"time"

	"veriflow/internal/rules"
)

// Document is the configuration as delivered by the administrative side,
// before validation. Field names follow the dashboard's vocabulary.
type Document struct {
	Vendors []VendorDef        `yaml:"vendors" json:"vendors"`
	Clients []ClientDef        `yaml:"clients" json:"clients"`
	Rules   []rules.Definition `yaml:"rules" json:"rules"`
}

type VendorDef struct {
	ID                string   `yaml:"id" json:"id"`
	Name              string   `yaml:"name" json:"name"`
	Capabilities      []string `yaml:"capabilities" json:"capabilities"`
	Status            string   `yaml:"status" json:"status"`
	Priority          int      `yaml:"priority" json:"priority"`
	RoutingTag        string   `yaml:"routing_tag" json:"routing_tag"`
	AvgLatencySeconds float64  `yaml:"avg_latency" json:"avg_latency"`
	Region            string   `yaml:"region" json:"region"`
	Sandbox           bool     `yaml:"sandbox" json:"sandbox"`
	TimeoutMs         int      `yaml:"timeout_ms" json:"timeout_ms"`
	Endpoint          string   `yaml:"endpoint" json:"endpoint"`
	Credentials       string   `yaml:"credentials" json:"-"`
}

type ClientDef struct {
	ID             string   `yaml:"id" json:"id"`
	Name           string   `yaml:"name" json:"name"`
	AllowedVendors []string `yaml:"allowed_vendors" json:"allowed_vendors"`
	WorkflowMode   string   `yaml:"workflow_mode" json:"workflow_mode"`
	AutoApprove    float64  `yaml:"auto_approve" json:"auto_approve"`
	ManualReview   float64  `yaml:"manual_review" json:"manual_review"`
	Webhooks       []string `yaml:"webhooks" json:"webhooks"`
	RiskProfile    string   `yaml:"risk_profile" json:"risk_profile"`
	Status         string   `yaml:"status" json:"status"`
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
