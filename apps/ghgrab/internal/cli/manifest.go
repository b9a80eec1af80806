package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is the YAML file accepted by --manifest. Flags set explicitly on
// the command line win over manifest values; include/exclude lists are
// appended.
type Manifest struct {
	Ref     string   `yaml:"ref"`
	Dest    string   `yaml:"dest"`
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

func loadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return &m, nil
}

func (m *Manifest) apply(opts options) options {
	if opts.ref == "" {
		opts.ref = m.Ref
	}
	if opts.dest == "" {
		opts.dest = m.Dest
	}
	opts.include = append(m.Include, opts.include...)
	opts.exclude = append(m.Exclude, opts.exclude...)
	return opts
}
