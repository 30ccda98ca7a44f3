package feed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blocksync/internal/blocktree"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{name: "yaml list", input: "- id: 1\n  title: One\n- id: 2\n  title: Two\n", want: 2},
		{name: "items wrapper", input: "items:\n  - id: a\n", want: 1},
		{name: "json list", input: `[{"id": "x"}, {"id": "y"}, {"id": "z"}]`, want: 3},
		{name: "json wrapper", input: `{"items": [{"id": 7}]}`, want: 1},
		{name: "empty document", input: "", want: 0},
		{name: "null items", input: "items:\n", want: 0},
		{name: "object without items", input: "id: 1\n", wantErr: true},
		{name: "scalar", input: "hello", wantErr: true},
		{name: "non-object item", input: "- 1\n- 2\n", wantErr: true},
		{name: "items not a list", input: "items: 3\n", wantErr: true},
		{name: "malformed", input: "- id: [\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := Parse([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, items, tt.want)
		})
	}
}

func TestParse_LargeIntegerIDs(t *testing.T) {
	items, err := Parse([]byte("- id: 9007199254740993\n  title: a\n- id: 9007199254740992\n  title: b\n"))
	require.NoError(t, err)

	s, err := NewStrategy(Definition{Name: "big"})
	require.NoError(t, err)

	entries, err := s.Render(items)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "9007199254740993", entries[0].ID)
	assert.Equal(t, "a [sync:9007199254740993]", entries[0].Block.Text)
	assert.Equal(t, "9007199254740992", entries[1].ID)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- id: 1\n  title: Write report\n"), 0644))

	items, err := Load(path)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Write report", items[0]["title"])

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestDefinition_WithDefaults(t *testing.T) {
	def := Definition{Name: "tasks"}.WithDefaults()

	assert.Equal(t, DefaultIDField, def.IDField)
	assert.Equal(t, DefaultTemplate, def.Template)
	assert.Equal(t, DefaultPreserveTag, def.PreserveTag)

	custom := Definition{IDField: "uid", Template: "{{ .name }}", PreserveTag: "#pin"}.WithDefaults()
	assert.Equal(t, "uid", custom.IDField)
	assert.Equal(t, "{{ .name }}", custom.Template)
	assert.Equal(t, "#pin", custom.PreserveTag)
}

func TestExtractKey(t *testing.T) {
	tests := []struct {
		text   string
		key    string
		expect bool
	}{
		{"priority:: high", "priority", true},
		{"due-date:: 2024-01-01", "due-date", true},
		{"empty::", "empty", true},
		{"no separator", "", false},
		{"two words:: value", "", false},
		{"url:: https://example.com", "url", true},
		{"time 10::30", "", false},
		{":: missing key", "", false},
		{"key::value", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			key, ok := ExtractKey(tt.text)
			assert.Equal(t, tt.expect, ok)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestStrategy_Render(t *testing.T) {
	s, err := NewStrategy(Definition{
		Name:     "tasks",
		Template: "{{ .title | upper }}",
		Properties: []Property{
			{Key: "status", Template: "{{ .status }}"},
			{Key: "priority", Template: `{{ .priority | default "normal" }}`},
			{Key: "assignee", Template: "{{ .assignee }}"},
		},
		SpecialBlock: &SpecialBlock{
			Header:   "#+BEGIN_NOTES",
			Template: "{{ range .notes }}{{ . }}\n{{ end }}",
		},
	})
	require.NoError(t, err)

	entries, err := s.Render([]Item{
		{"id": "t-1", "title": "write report", "status": "open", "notes": []any{"first", "", "second"}},
		{"id": float64(42), "title": "ship"},
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, Entry{
		ID: "t-1",
		Block: blocktree.Payload{
			Text: "WRITE REPORT [sync:t-1]",
			Children: []blocktree.Payload{
				{Text: "status:: open"},
				{Text: "priority:: normal"},
				{Text: "#+BEGIN_NOTES", Children: []blocktree.Payload{{Text: "first"}, {Text: "second"}}},
			},
		},
	}, entries[0])

	assert.Equal(t, "42", entries[1].ID)
	assert.Equal(t, "SHIP [sync:42]", entries[1].Block.Text)
	assert.Equal(t, []blocktree.Payload{
		{Text: "priority:: normal"},
		{Text: "#+BEGIN_NOTES"},
	}, entries[1].Block.Children, "empty properties are dropped, an empty special body keeps its header")
}

func TestStrategy_RenderDefaults(t *testing.T) {
	s, err := NewStrategy(Definition{Name: "plain"})
	require.NoError(t, err)

	entries, err := s.Render([]Item{
		{"id": "a", "title": "  multi\nline   title "},
		{"id": "b"},
	})
	require.NoError(t, err)

	assert.Equal(t, "multi line title [sync:a]", entries[0].Block.Text)
	assert.Equal(t, "[sync:b]", entries[1].Block.Text, "missing fields render empty")
}

func TestStrategy_RenderErrors(t *testing.T) {
	s, err := NewStrategy(Definition{Name: "tasks"})
	require.NoError(t, err)

	tests := []struct {
		name string
		item Item
	}{
		{name: "missing id", item: Item{"title": "x"}},
		{name: "empty id", item: Item{"id": ""}},
		{name: "id with space", item: Item{"id": "a b"}},
		{name: "id with bracket", item: Item{"id": "a]"}},
		{name: "non scalar id", item: Item{"id": []any{"a"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Render([]Item{tt.item})
			assert.Error(t, err)
		})
	}
}

func TestStrategy_RenderSkipsDuplicateIDs(t *testing.T) {
	s, err := NewStrategy(Definition{Name: "tasks"})
	require.NoError(t, err)

	entries, err := s.Render([]Item{
		{"id": "1", "title": "first"},
		{"id": "1", "title": "again"},
		{"id": "2", "title": "second"},
	})
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, "first [sync:1]", entries[0].Block.Text)
	assert.Equal(t, "2", entries[1].ID)
}

func TestStrategy_CustomIDField(t *testing.T) {
	s, err := NewStrategy(Definition{Name: "events", IDField: "uid", Template: "{{ .summary }}"})
	require.NoError(t, err)

	entries, err := s.Render([]Item{{"uid": "evt-9", "summary": "Standup"}})
	require.NoError(t, err)
	assert.Equal(t, "Standup [sync:evt-9]", entries[0].Block.Text)
	assert.Equal(t, "evt-9", s.ExtractID(entries[0]))
	assert.Equal(t, entries[0].Block, s.BuildBlock(entries[0]))
}

func TestNewStrategy_Errors(t *testing.T) {
	tests := []struct {
		name string
		def  Definition
	}{
		{name: "bad template", def: Definition{Template: "{{ .title "}},
		{name: "bad property template", def: Definition{Properties: []Property{{Key: "a", Template: "{{"}}}},
		{name: "bad property key", def: Definition{Properties: []Property{{Key: "two words", Template: "x"}}}},
		{name: "empty special header", def: Definition{SpecialBlock: &SpecialBlock{Template: "x"}}},
		{name: "property-shaped header", def: Definition{SpecialBlock: &SpecialBlock{Header: "notes::", Template: "x"}}},
		{name: "bad special template", def: Definition{SpecialBlock: &SpecialBlock{Header: "NOTES", Template: "{{ end }}"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStrategy(tt.def)
			assert.Error(t, err)
		})
	}
}

func TestStrategy_ExtractIDFromBlock(t *testing.T) {
	s, err := NewStrategy(Definition{Name: "tasks"})
	require.NoError(t, err)

	tests := []struct {
		text string
		id   string
		ok   bool
	}{
		{"Write report [sync:t-1]", "t-1", true},
		{"[sync:42] leading marker", "42", true},
		{"Edited by hand [sync:7] #keep", "7", true},
		{"no marker here", "", false},
		{"broken [sync:] marker", "", false},
		{"broken [sync:a b] marker", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			id, ok := s.ExtractIDFromBlock(blocktree.Node{UID: "u", Text: tt.text})
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.id, id)
		})
	}

	// Rendered text always round-trips through the marker.
	entries, err := s.Render([]Item{{"id": "round-trip", "title": "x"}})
	require.NoError(t, err)
	id, ok := s.ExtractIDFromBlock(blocktree.Node{Text: entries[0].Block.Text})
	require.True(t, ok)
	assert.Equal(t, "round-trip", id)
}

func TestStrategy_IsSpecialBlock(t *testing.T) {
	plain, err := NewStrategy(Definition{Name: "plain"})
	require.NoError(t, err)
	assert.False(t, plain.IsSpecialBlock("#+BEGIN_NOTES"))

	s, err := NewStrategy(Definition{Name: "notes", SpecialBlock: &SpecialBlock{Header: "#+BEGIN_NOTES", Template: "x"}})
	require.NoError(t, err)
	assert.True(t, s.IsSpecialBlock("#+BEGIN_NOTES"))
	assert.True(t, s.IsSpecialBlock("#+BEGIN_NOTES (old)"))
	assert.False(t, s.IsSpecialBlock("status:: open"))
}

func TestStrategy_PreserveWhen(t *testing.T) {
	s, err := NewStrategy(Definition{Name: "tasks"})
	require.NoError(t, err)
	assert.True(t, s.PreserveWhen(blocktree.Node{Text: "Done [sync:1] #keep"}))
	assert.False(t, s.PreserveWhen(blocktree.Node{Text: "Done [sync:1]"}))

	custom, err := NewStrategy(Definition{Name: "tasks", PreserveTag: "#pinned"})
	require.NoError(t, err)
	assert.True(t, custom.PreserveWhen(blocktree.Node{Text: "x #pinned"}))
	assert.False(t, custom.PreserveWhen(blocktree.Node{Text: "x #keep"}))

	disabled, err := NewStrategy(Definition{Name: "tasks", PreserveTag: "-"})
	require.NoError(t, err)
	assert.False(t, disabled.PreserveWhen(blocktree.Node{Text: "x - #keep"}))
}
