package client

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/jsonc"
)

// ManifestName is the optional per-model settings file.
const ManifestName = "manifest.json"

//go:embed manifest.schema.json
var manifestSchemaJSON []byte

var manifestSchema = func() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("manifest.schema.json", bytes.NewReader(manifestSchemaJSON)); err != nil {
		panic("client: manifest schema: " + err.Error())
	}
	return c.MustCompile("manifest.schema.json")
}()

// Manifest overrides how a model folder is loaded and placed.
type Manifest struct {
	File             string    `json:"file,omitempty"`
	Scale            float64   `json:"scale,omitempty"`
	Offset           []float64 `json:"offset,omitempty"`
	DefaultAnimation *int      `json:"defaultAnimation,omitempty"`
}

// ScaleMultiplier returns the manifest scale, 1 when unset.
func (m *Manifest) ScaleMultiplier() float64 {
	if m == nil || m.Scale == 0 {
		return 1
	}
	return m.Scale
}

// OffsetAt returns offset component i, 0 when unset.
func (m *Manifest) OffsetAt(i int) float64 {
	if m == nil || i >= len(m.Offset) {
		return 0
	}
	return m.Offset[i]
}

// ParseManifest decodes a manifest. Comments and trailing commas are
// allowed.
func ParseManifest(data []byte) (*Manifest, error) {
	stripped := jsonc.ToJSON(data)

	var doc any
	if err := json.Unmarshal(stripped, &doc); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := manifestSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("validate manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(stripped, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

// ReadManifest reads dir/manifest.json. A missing file is not an error and
// yields nil.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(data)
}
