// Package geodata holds the declarative reference datasets: currencies,
// zones, the country/region/city hierarchy, the category tree, product
// attributes and the word lists used to name generated entities.
package geodata

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var files embed.FS

// Node is one entry of a nested dataset.
type Node struct {
	Code         string                       `yaml:"code"`
	Attributes   map[string]any               `yaml:"attributes,omitempty"`
	Translations map[string]map[string]string `yaml:"translations"`
	Children     []Node                       `yaml:"children,omitempty"`
}

// Zone is a named group of countries.
type Zone struct {
	Node    `yaml:",inline"`
	Members []string `yaml:"members"`
}

// Vocabulary holds word lists for generated names. Lists keyed by locale are
// parallel: index i names the same thing in every locale.
type Vocabulary struct {
	Brands     []string            `yaml:"brands"`
	Adjectives map[string][]string `yaml:"adjectives"`
	Nouns      map[string][]string `yaml:"nouns"`
}

// Dataset bundles every embedded dataset.
type Dataset struct {
	Currencies []Node
	Zones      []Zone
	Countries  []Node
	Categories []Node
	Attributes []Node
	Vocabulary Vocabulary
}

// Load decodes and validates the embedded datasets.
func Load() (*Dataset, error) {
	ds := &Dataset{}
	for _, f := range []struct {
		name string
		dst  any
	}{
		{"currencies.yaml", &ds.Currencies},
		{"zones.yaml", &ds.Zones},
		{"geography.yaml", &ds.Countries},
		{"categories.yaml", &ds.Categories},
		{"attributes.yaml", &ds.Attributes},
		{"vocabulary.yaml", &ds.Vocabulary},
	} {
		data, err := files.ReadFile("data/" + f.name)
		if err != nil {
			return nil, fmt.Errorf("read dataset %s: %w", f.name, err)
		}
		if err := Decode(bytes.NewReader(data), f.dst); err != nil {
			return nil, fmt.Errorf("decode dataset %s: %w", f.name, err)
		}
	}

	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// Decode strictly decodes one YAML document into v. Unknown keys are errors.
func Decode(r io.Reader, v any) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks that codes are present and unique per dataset, that every
// node carries at least one translation and that zone members exist.
func (ds *Dataset) Validate() error {
	zoneNodes := make([]Node, len(ds.Zones))
	for i, z := range ds.Zones {
		zoneNodes[i] = z.Node
	}
	for name, nodes := range map[string][]Node{
		"currencies": ds.Currencies,
		"zones":      zoneNodes,
		"geography":  ds.Countries,
		"categories": ds.Categories,
		"attributes": ds.Attributes,
	} {
		if err := validateTree(nodes); err != nil {
			return fmt.Errorf("dataset %s: %w", name, err)
		}
	}

	countries := make(map[string]bool, len(ds.Countries))
	for _, c := range ds.Countries {
		countries[c.Code] = true
	}
	for _, z := range ds.Zones {
		for _, m := range z.Members {
			if !countries[m] {
				return fmt.Errorf("dataset zones: zone %s lists unknown country %s", z.Code, m)
			}
		}
	}

	for locale, nouns := range ds.Vocabulary.Nouns {
		if adj, ok := ds.Vocabulary.Adjectives[locale]; !ok || len(adj) == 0 || len(nouns) == 0 {
			return fmt.Errorf("dataset vocabulary: locale %s needs adjectives and nouns", locale)
		}
	}
	return nil
}

func validateTree(nodes []Node) error {
	seen := make(map[string]bool)
	return Walk(nodes, func(depth int, parent, n *Node) error {
		if n.Code == "" {
			return fmt.Errorf("node at depth %d has no code", depth)
		}
		if seen[n.Code] {
			return fmt.Errorf("duplicate code %s", n.Code)
		}
		seen[n.Code] = true
		if len(n.Translations) == 0 {
			return fmt.Errorf("node %s has no translations", n.Code)
		}
		return nil
	})
}

// Walk visits nodes breadth-first, so every parent is visited before any of
// its children. parent is nil at depth 0.
func Walk(nodes []Node, fn func(depth int, parent, n *Node) error) error {
	type item struct {
		depth  int
		parent *Node
		node   *Node
	}
	queue := make([]item, 0, len(nodes))
	for i := range nodes {
		queue = append(queue, item{node: &nodes[i]})
	}
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		if err := fn(it.depth, it.parent, it.node); err != nil {
			return err
		}
		for i := range it.node.Children {
			queue = append(queue, item{depth: it.depth + 1, parent: it.node, node: &it.node.Children[i]})
		}
	}
	return nil
}

// CountAt returns the number of nodes at depth.
func CountAt(nodes []Node, depth int) int {
	n := 0
	_ = Walk(nodes, func(d int, _, _ *Node) error {
		if d == depth {
			n++
		}
		return nil
	})
	return n
}

// Translation returns the fields for locale, falling back to fallback when
// the node has no entry for locale. ok is false when neither exists.
func (n *Node) Translation(locale, fallback string) (map[string]string, bool) {
	if f, ok := n.Translations[locale]; ok {
		return f, true
	}
	f, ok := n.Translations[fallback]
	return f, ok
}
