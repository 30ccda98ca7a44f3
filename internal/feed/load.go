// Package feed turns feed files into block payloads.
//
// A feed file is a YAML or JSON document holding a list of items, either at
// the top level or under an "items" key. Each item is a free-form mapping.
// A Definition says how items become blocks: which field is the identifier,
// which template renders the block text, which properties and which special
// block hang below it. A Strategy compiled from a Definition supplies the
// functions the reconcilers are configured with.
package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// Item is one source record of a feed.
type Item map[string]any

// Load reads a feed file. YAML and JSON are both accepted.
func Load(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed file %s: %w", path, err)
	}

	items, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed file %s: %w", path, err)
	}
	return items, nil
}

// Parse decodes feed content.
func Parse(data []byte) ([]Item, error) {
	raw, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, err
	}

	// Numbers stay json.Number so large integer ids keep every digit.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}

	var list []any
	switch v := doc.(type) {
	case nil:
		return []Item{}, nil
	case []any:
		list = v
	case map[string]any:
		raw, ok := v["items"]
		if !ok {
			return nil, fmt.Errorf("expected a list of items or an object with an \"items\" list")
		}
		if raw == nil {
			return []Item{}, nil
		}
		list, ok = raw.([]any)
		if !ok {
			return nil, fmt.Errorf("\"items\" must be a list, got %T", raw)
		}
	default:
		return nil, fmt.Errorf("expected a list of items, got %T", doc)
	}

	items := make([]Item, 0, len(list))
	for i, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("item %d must be an object, got %T", i, entry)
		}
		items = append(items, Item(m))
	}
	return items, nil
}
