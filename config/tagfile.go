package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TagSeed describes one tag to preload into the TagStore at startup, read
// from the optional TAGS_FILE YAML document.
type TagSeed struct {
	ID       string `yaml:"id"`
	PLC      string `yaml:"plc"`
	Address  string `yaml:"address"`
	DataType string `yaml:"datatype"`
	Value    string `yaml:"value,omitempty"`
	Writable bool   `yaml:"writable,omitempty"`
	// Scale is the power-of-ten exponent used when this tag's DataType is
	// Decimal and its PLC address is an integer register (see
	// value.CoerceFromDriver). Ignored otherwise.
	Scale int32 `yaml:"scale,omitempty"`
}

type tagSeedFile struct {
	Tags []TagSeed `yaml:"tags"`
}

// LoadTagSeeds reads a TAGS_FILE YAML document listing tags to prepopulate.
// An empty path is not an error; it simply yields no seeds.
func LoadTagSeeds(path string) ([]TagSeed, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading tags file %q: %w", path, err)
	}
	var doc tagSeedFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: parsing tags file %q: %w", path, err)
	}
	return doc.Tags, nil
}
