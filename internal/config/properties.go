package config

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Neo4j property names.
const (
	PropertyURI        = "uri"
	PropertyUsername   = "username"
	PropertyPassword   = "password"
	PropertyCompiler   = "compiler"
	PropertyDriver     = "driver"
	PropertyOpenInView = "open-in-view"

	PropertyDatabase                     = "database"
	PropertyMaxConnectionPoolSize        = "max-connection-pool-size"
	PropertyConnectionAcquisitionTimeout = "connection-acquisition-timeout"
	PropertyMaxTransactionRetryTime      = "max-transaction-retry-time"
)

// PropertySet maps property names to values. A key that is not in the map is
// absent; a key mapped to "" is present but empty.
//
// Names are matched in relaxed form: "open-in-view", "open_in_view" and
// "openInView" address the same property.
type PropertySet map[string]string

// canonicalKey lower-cases a property name and strips separators.
func canonicalKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range strings.ToLower(key) {
		switch r {
		case '-', '_', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Lookup returns the value for key and whether it is present.
func (p PropertySet) Lookup(key string) (string, bool) {
	if v, ok := p[key]; ok {
		return v, true
	}
	want := canonicalKey(key)
	for _, k := range p.Keys() {
		if canonicalKey(k) == want {
			return p[k], true
		}
	}
	return "", false
}

// Get returns the value for key, or "" when absent.
func (p PropertySet) Get(key string) string {
	v, _ := p.Lookup(key)
	return v
}

// Has reports whether key is present and non-empty.
func (p PropertySet) Has(key string) bool {
	v, ok := p.Lookup(key)
	return ok && v != ""
}

// Set stores value under key, replacing any relaxed-equal key.
func (p PropertySet) Set(key, value string) {
	want := canonicalKey(key)
	for k := range p {
		if canonicalKey(k) == want {
			delete(p, k)
		}
	}
	p[key] = value
}

// Keys returns the property names in sorted order.
func (p PropertySet) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge returns a new set holding p overlaid with other.
func (p PropertySet) Merge(other PropertySet) PropertySet {
	merged := make(PropertySet, len(p)+len(other))
	for _, k := range p.Keys() {
		merged.Set(k, p[k])
	}
	for _, k := range other.Keys() {
		merged.Set(k, other[k])
	}
	return merged
}

// Clone returns a copy of p.
func (p PropertySet) Clone() PropertySet {
	return PropertySet{}.Merge(p)
}

// UnmarshalYAML decodes a mapping of scalars. Null values are absent and
// decoding merges into the receiver so layered files overlay each other.
func (p *PropertySet) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: neo4j properties must be a mapping", node.Line)
	}

	decoded := make(PropertySet, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: neo4j property %q must be a scalar", value.Line, key.Value)
		}
		if value.Tag == "!!null" {
			continue
		}
		decoded.Set(key.Value, value.Value)
	}

	*p = (*p).Merge(decoded)
	return nil
}
