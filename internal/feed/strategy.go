package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"blocksync/internal/blocktree"
	"blocksync/pkg/logging"
)

var (
	markerPattern   = regexp.MustCompile(`\[sync:([^\]\s]+)\]`)
	propertyPattern = regexp.MustCompile(`^([A-Za-z0-9_][A-Za-z0-9_-]*)::(?:\s|$)`)
)

// Marker returns the identity marker embedded in the text of a synced block.
func Marker(id string) string {
	return "[sync:" + id + "]"
}

// ExtractKey returns the key of a "key:: value" property text.
func ExtractKey(text string) (string, bool) {
	m := propertyPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Entry is an item rendered into its identifier and desired block.
type Entry struct {
	ID    string
	Block blocktree.Payload
}

type propertyTemplate struct {
	key  string
	tmpl *template.Template
}

// Strategy holds the compiled templates of a Definition and the extraction
// functions derived from it.
type Strategy struct {
	def        Definition
	text       *template.Template
	properties []propertyTemplate
	special    *template.Template
}

// NewStrategy compiles a definition.
func NewStrategy(def Definition) (*Strategy, error) {
	def = def.WithDefaults()

	s := &Strategy{def: def}

	var err error
	if s.text, err = parseTemplate(def.Name+".template", def.Template); err != nil {
		return nil, err
	}

	for _, p := range def.Properties {
		if _, ok := ExtractKey(p.Key + ":: "); !ok {
			return nil, fmt.Errorf("feed %s: invalid property key %q", def.Name, p.Key)
		}
		tmpl, err := parseTemplate(def.Name+".properties."+p.Key, p.Template)
		if err != nil {
			return nil, err
		}
		s.properties = append(s.properties, propertyTemplate{key: p.Key, tmpl: tmpl})
	}

	if def.SpecialBlock != nil {
		if strings.TrimSpace(def.SpecialBlock.Header) == "" {
			return nil, fmt.Errorf("feed %s: special block header is required", def.Name)
		}
		if _, ok := ExtractKey(def.SpecialBlock.Header); ok {
			return nil, fmt.Errorf("feed %s: special block header %q looks like a property", def.Name, def.SpecialBlock.Header)
		}
		if s.special, err = parseTemplate(def.Name+".specialBlock", def.SpecialBlock.Template); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func parseTemplate(name, text string) (*template.Template, error) {
	tmpl, err := template.New(name).Funcs(sprig.TxtFuncMap()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	return tmpl, nil
}

// Definition returns the definition with defaults applied.
func (s *Strategy) Definition() Definition {
	return s.def
}

// Render turns items into entries. Items with an identifier seen before are
// dropped with a warning, since two blocks cannot carry the same marker.
func (s *Strategy) Render(items []Item) ([]Entry, error) {
	entries := make([]Entry, 0, len(items))
	seen := make(map[string]int, len(items))

	for i, item := range items {
		id, err := s.itemID(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if first, dup := seen[id]; dup {
			logging.Warn("Feed", "Feed %s: item %d repeats id %s of item %d, skipping", s.def.Name, i, id, first)
			continue
		}
		seen[id] = i

		block, err := s.renderBlock(id, item)
		if err != nil {
			return nil, fmt.Errorf("item %d (id %s): %w", i, id, err)
		}
		entries = append(entries, Entry{ID: id, Block: block})
	}
	return entries, nil
}

func (s *Strategy) itemID(item Item) (string, error) {
	raw, ok := item[s.def.IDField]
	if !ok || raw == nil {
		return "", fmt.Errorf("missing %q field", s.def.IDField)
	}

	var id string
	switch v := raw.(type) {
	case string:
		id = v
	case json.Number:
		id = v.String()
	case float64:
		id = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		id = strconv.Itoa(v)
	case int64:
		id = strconv.FormatInt(v, 10)
	case bool:
		id = strconv.FormatBool(v)
	default:
		return "", fmt.Errorf("field %q must be a scalar, got %T", s.def.IDField, raw)
	}

	if id == "" {
		return "", fmt.Errorf("field %q is empty", s.def.IDField)
	}
	if strings.ContainsAny(id, "] \t\r\n") {
		return "", fmt.Errorf("id %q must not contain whitespace or ']'", id)
	}
	return id, nil
}

func (s *Strategy) renderBlock(id string, item Item) (blocktree.Payload, error) {
	text, err := execute(s.text, item)
	if err != nil {
		return blocktree.Payload{}, err
	}
	text = singleLine(text)
	if text == "" {
		text = Marker(id)
	} else {
		text = text + " " + Marker(id)
	}

	block := blocktree.Payload{Text: text}

	for _, p := range s.properties {
		value, err := execute(p.tmpl, item)
		if err != nil {
			return blocktree.Payload{}, err
		}
		value = singleLine(value)
		if value == "" {
			continue
		}
		block.Children = append(block.Children, blocktree.Payload{Text: p.key + ":: " + value})
	}

	if s.special != nil {
		body, err := execute(s.special, item)
		if err != nil {
			return blocktree.Payload{}, err
		}
		var lines []blocktree.Payload
		for _, line := range strings.Split(body, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, blocktree.Payload{Text: line})
			}
		}
		// The header is emitted even for an empty body so a cleared body
		// replaces the old container instead of leaving it behind.
		block.Children = append(block.Children, blocktree.Payload{
			Text:     s.def.SpecialBlock.Header,
			Children: lines,
		})
	}

	return block, nil
}

func execute(tmpl *template.Template, item Item) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]any(item)); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", tmpl.Name(), err)
	}
	return strings.ReplaceAll(buf.String(), "<no value>", ""), nil
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ExtractID returns the identifier of a rendered entry.
func (s *Strategy) ExtractID(e Entry) string {
	return e.ID
}

// BuildBlock returns the rendered payload of an entry.
func (s *Strategy) BuildBlock(e Entry) blocktree.Payload {
	return e.Block
}

// ExtractIDFromBlock reads the identity marker from an existing block.
// Blocks without a marker are not managed by the feed.
func (s *Strategy) ExtractIDFromBlock(node blocktree.Node) (string, bool) {
	m := markerPattern.FindStringSubmatch(node.Text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ExtractKey returns the property key of a child text.
func (s *Strategy) ExtractKey(text string) (string, bool) {
	return ExtractKey(text)
}

// IsSpecialBlock reports whether text starts with the special block header.
func (s *Strategy) IsSpecialBlock(text string) bool {
	return s.def.SpecialBlock != nil && strings.HasPrefix(text, s.def.SpecialBlock.Header)
}

// PreserveWhen keeps orphaned blocks carrying the preserve tag.
func (s *Strategy) PreserveWhen(node blocktree.Node) bool {
	if s.def.PreserveTag == "-" {
		return false
	}
	return strings.Contains(node.Text, s.def.PreserveTag)
}
