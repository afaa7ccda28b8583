// Package catalog provides the static table of selectable models grouped by provider.
package catalog

import (
	"fmt"

	"github.com/jonathan/taskhub/internal/types"
)

// Provider names
const (
	ProviderOpenAI    = "OpenAI"
	ProviderAnthropic = "Anthropic"
	ProviderGoogle    = "Google"
	ProviderMeta      = "Meta"
)

// Catalog is an immutable model table. Lookups never fail loudly; a missing ID is
// reported through the boolean return so callers can fall back to the raw ID.
type Catalog struct {
	providers []string
	byProv    map[string][]types.ModelDescriptor
	byID      map[string]types.ModelDescriptor
}

// New builds a catalog from descriptors. Provider order follows first appearance.
// Returns an error if an ID is empty or used more than once.
func New(models []types.ModelDescriptor) (*Catalog, error) {
	c := &Catalog{
		byProv: make(map[string][]types.ModelDescriptor),
		byID:   make(map[string]types.ModelDescriptor, len(models)),
	}
	for _, m := range models {
		if m.ID == "" {
			return nil, fmt.Errorf("model with empty id (provider %q)", m.Provider)
		}
		if existing, dup := c.byID[m.ID]; dup {
			return nil, fmt.Errorf("duplicate model id %q (providers %q and %q)", m.ID, existing.Provider, m.Provider)
		}
		if _, seen := c.byProv[m.Provider]; !seen {
			c.providers = append(c.providers, m.Provider)
		}
		c.byProv[m.Provider] = append(c.byProv[m.Provider], m)
		c.byID[m.ID] = m
	}
	return c, nil
}

// ListAll returns the models grouped by provider name, in table order.
// The returned map and slices are copies.
func (c *Catalog) ListAll() map[string][]types.ModelDescriptor {
	out := make(map[string][]types.ModelDescriptor, len(c.byProv))
	for p, models := range c.byProv {
		out[p] = append([]types.ModelDescriptor(nil), models...)
	}
	return out
}

// Providers returns provider names in table order.
func (c *Catalog) Providers() []string {
	return append([]string(nil), c.providers...)
}

// All returns every model, provider by provider.
func (c *Catalog) All() []types.ModelDescriptor {
	out := make([]types.ModelDescriptor, 0, len(c.byID))
	for _, p := range c.providers {
		out = append(out, c.byProv[p]...)
	}
	return out
}

// Find looks up a model by ID.
func (c *Catalog) Find(id string) (types.ModelDescriptor, bool) {
	m, ok := c.byID[id]
	return m, ok
}

// Has reports whether id is in the catalog.
func (c *Catalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// DisplayName returns the model's display name, or id itself if unknown.
func (c *Catalog) DisplayName(id string) string {
	if m, ok := c.byID[id]; ok {
		return m.DisplayName
	}
	return id
}
