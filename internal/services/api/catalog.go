package api

import (
	"context"

	"github.com/blackroad/workers/internal/config"
)

// Agent is one entry of the agent catalog.
type Agent struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Status       string   `json:"status"`
	Capabilities []string `json:"capabilities"`
	Device       string   `json:"device"`
}

// Catalog is an immutable, ordered set of agents.
type Catalog struct {
	agents []Agent
	byID   map[string]int
}

// NewCatalog builds a catalog from configuration. Later duplicates of an
// id are ignored.
func NewCatalog(entries []config.AgentConfig) *Catalog {
	c := &Catalog{
		agents: make([]Agent, 0, len(entries)),
		byID:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if _, dup := c.byID[e.ID]; dup {
			continue
		}
		c.byID[e.ID] = len(c.agents)
		c.agents = append(c.agents, Agent{
			ID:           e.ID,
			Name:         e.Name,
			Type:         e.Type,
			Status:       e.Status,
			Capabilities: append([]string{}, e.Capabilities...),
			Device:       e.Device,
		})
	}
	return c
}

// List returns the agents in catalog order.
func (c *Catalog) List() []Agent {
	return append([]Agent(nil), c.agents...)
}

// Get returns the agent with the given id.
func (c *Catalog) Get(id string) (Agent, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Agent{}, false
	}
	return c.agents[i], true
}

// Len returns the number of agents.
func (c *Catalog) Len() int {
	return len(c.agents)
}

// AgentCounts summarises the agent fleet.
type AgentCounts struct {
	Total   int `json:"total"`
	Active  int `json:"active"`
	Pending int `json:"pending"`
}

// Overview is the body served by /metrics.
type Overview struct {
	Agents       AgentCounts `json:"agents"`
	Repositories int         `json:"repositories"`
	Services     int         `json:"services"`
	Compute      string      `json:"compute"`
	Uptime       string      `json:"uptime"`
}

// MetricsSource provides the /metrics overview.
type MetricsSource interface {
	Overview(ctx context.Context) (Overview, error)
}

// StaticMetrics reports fixed fleet figures; only the active agent count
// follows the catalog.
type StaticMetrics struct {
	Catalog      *Catalog
	TotalAgents  int
	Repositories int
	Services     int
	Compute      string
	Uptime       string
}

// DefaultMetrics returns the stock figures for catalog.
func DefaultMetrics(catalog *Catalog) *StaticMetrics {
	return &StaticMetrics{
		Catalog:      catalog,
		TotalAgents:  30000,
		Repositories: 200,
		Services:     100,
		Compute:      "52 TOPS",
		Uptime:       "99.99%",
	}
}

// Overview implements MetricsSource.
func (m *StaticMetrics) Overview(context.Context) (Overview, error) {
	active := 0
	if m.Catalog != nil {
		active = m.Catalog.Len()
	}
	return Overview{
		Agents: AgentCounts{
			Total:   m.TotalAgents,
			Active:  active,
			Pending: m.TotalAgents - active,
		},
		Repositories: m.Repositories,
		Services:     m.Services,
		Compute:      m.Compute,
		Uptime:       m.Uptime,
	}, nil
}
