package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-ticketform/pkg/catalog"
	"github.com/goliatone/go-ticketform/pkg/model"
)

// Seed is the YAML document accepted by ImportSeed:
//
//	options:
//	  - kind: option-name
//	    params: { item: [Pipe] }
//	    values:
//	      - { label: Size, value: Size }
//	existing:
//	  - kind: general-name
//	    params: { name: [Rebar] }
type Seed struct {
	Options  []SeedOptions  `yaml:"options"`
	Existing []SeedExisting `yaml:"existing"`
}

// SeedOptions lists the options returned for one lookup.
type SeedOptions struct {
	Kind   string              `yaml:"kind"`
	Params map[string][]string `yaml:"params"`
	Values []model.Option      `yaml:"values"`
}

// SeedExisting is one catalog entry reported by CheckExists.
type SeedExisting struct {
	Kind   string              `yaml:"kind"`
	Params map[string][]string `yaml:"params"`
}

// SeedStats reports what an import added.
type SeedStats struct {
	Options  int
	Existing int
}

// ParseSeed decodes a seed document.
func ParseSeed(r io.Reader) (Seed, error) {
	var seed Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		if errors.Is(err, io.EOF) {
			return Seed{}, nil
		}
		return Seed{}, fmt.Errorf("jsonfile: parse seed: %w", err)
	}
	for i, entry := range seed.Options {
		if strings.TrimSpace(entry.Kind) == "" {
			return Seed{}, fmt.Errorf("jsonfile: seed options[%d]: kind is required", i)
		}
		for j, v := range entry.Values {
			if strings.TrimSpace(v.Value) == "" {
				return Seed{}, fmt.Errorf("jsonfile: seed options[%d].values[%d]: value is required", i, j)
			}
		}
	}
	for i, entry := range seed.Existing {
		if strings.TrimSpace(entry.Kind) == "" {
			return Seed{}, fmt.Errorf("jsonfile: seed existing[%d]: kind is required", i)
		}
	}
	return seed, nil
}

// ImportSeed merges a YAML seed into the store in a single write. Entries
// already present are skipped.
func (s *Store) ImportSeed(ctx context.Context, r io.Reader) (SeedStats, error) {
	seed, err := ParseSeed(r)
	if err != nil {
		return SeedStats{}, err
	}

	var stats SeedStats
	err = s.update(ctx, func(data *fileData) error {
		for _, entry := range seed.Options {
			values := make([]model.Option, 0, len(entry.Values))
			for _, v := range entry.Values {
				if v.Label == "" {
					v.Label = v.Value
				}
				values = append(values, v)
			}
			stats.Options += addOptions(data, entry.Kind, catalog.Params(entry.Params), values)
		}
		for _, entry := range seed.Existing {
			if addExisting(data, entry.Kind, catalog.Params(entry.Params)) {
				stats.Existing++
			}
		}
		return nil
	})
	if err != nil {
		return SeedStats{}, err
	}
	s.logger.Info("catalog seed imported", "options", stats.Options, "existing", stats.Existing)
	return stats, nil
}
