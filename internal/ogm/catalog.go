package ogm

import (
	"sort"
	"strings"
	"sync"
)

// Entity describes a mapped node or relationship type.
type Entity struct {
	Label   string `yaml:"label"`
	Package string `yaml:"package"`
}

// EntityCatalog is the registry of mapped entity types. Packages register
// their entities from init or from the host's wiring code.
type EntityCatalog struct {
	mu       sync.RWMutex
	entities map[Entity]struct{}
}

// NewEntityCatalog creates a catalog holding the given entities.
func NewEntityCatalog(entities ...Entity) *EntityCatalog {
	c := &EntityCatalog{entities: make(map[Entity]struct{}, len(entities))}
	for _, e := range entities {
		c.entities[e] = struct{}{}
	}
	return c
}

// Register adds labels declared in pkg. Registering twice is a no-op.
func (c *EntityCatalog) Register(pkg string, labels ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, label := range labels {
		c.entities[Entity{Label: label, Package: pkg}] = struct{}{}
	}
}

// Scan returns the entities declared in packages or nested below them,
// ordered by package then label. An empty scope yields nothing.
func (c *EntityCatalog) Scan(packages []string) []Entity {
	if len(packages) == 0 {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Entity
	for e := range c.entities {
		if inScope(e.Package, packages) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Package != out[j].Package {
			return out[i].Package < out[j].Package
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// Len reports how many entities are registered.
func (c *EntityCatalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entities)
}

func inScope(pkg string, roots []string) bool {
	for _, root := range roots {
		root = strings.TrimSuffix(root, "/")
		if pkg == root || strings.HasPrefix(pkg, root+"/") {
			return true
		}
	}
	return false
}
