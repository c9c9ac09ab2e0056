package world

import (
	_ "embed"
	"encoding/json"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed manifest.schema.json
var manifestSchemaDoc string

var manifestSchema = jsonschema.MustCompileString("manifest.schema.json", manifestSchemaDoc)

// Contract is one deployed contract entry from the world manifest.
type Contract struct {
	Tag      string          `json:"tag"`
	Address  string          `json:"address"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// Manifest catalogs the deployed contracts of a world. It is loaded once
// per successful connect and read-only afterwards.
type Manifest struct {
	World     string     `json:"world,omitempty"`
	Contracts []Contract `json:"contracts"`
}

// LoadManifest reads and validates a manifest document. A document that
// fails schema validation is rejected outright; a half-usable manifest is
// worse than none.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapError(KindInvalidConfig, "read manifest", err)
	}
	return ParseManifest(raw)
}

// ParseManifest validates and decodes a raw manifest document.
func ParseManifest(raw []byte) (*Manifest, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, WrapError(KindInvalidConfig, "parse manifest", err)
	}
	if err := manifestSchema.Validate(doc); err != nil {
		return nil, WrapError(KindInvalidConfig, "manifest does not match schema", err)
	}

	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, WrapError(KindInvalidConfig, "decode manifest", err)
	}
	return &m, nil
}

// Resolver maps human-readable contract tags to deployed addresses.
// Before a manifest is installed every lookup misses; it never fails.
type Resolver struct {
	mu       sync.RWMutex
	manifest *Manifest
	byTag    map[string]Contract
}

func NewResolver() *Resolver {
	return &Resolver{}
}

// Install replaces the resolver contents with a freshly loaded manifest.
// Only the connection manager calls this, once per successful connect.
func (r *Resolver) Install(m *Manifest) {
	byTag := make(map[string]Contract, len(m.Contracts))
	for _, c := range m.Contracts {
		byTag[c.Tag] = c
	}

	r.mu.Lock()
	r.manifest = m
	r.byTag = byTag
	r.mu.Unlock()
}

// Clear drops the installed manifest. Lookups miss again afterwards.
func (r *Resolver) Clear() {
	r.mu.Lock()
	r.manifest = nil
	r.byTag = nil
	r.mu.Unlock()
}

// FindContract resolves a tag with an exact, case-sensitive match.
func (r *Resolver) FindContract(tag string) (Contract, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byTag[tag]
	return c, ok
}

// Manifest returns the installed manifest, or nil before connect.
func (r *Resolver) Manifest() *Manifest {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.manifest
}
