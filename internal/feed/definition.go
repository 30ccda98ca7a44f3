package feed

const (
	// DefaultIDField is the item field used as identifier when none is set.
	DefaultIDField = "id"

	// DefaultTemplate renders the block text when none is set.
	DefaultTemplate = "{{ .title }}"

	// DefaultPreserveTag keeps an orphaned block in place.
	DefaultPreserveTag = "#keep"
)

// Definition describes how one feed is synced.
type Definition struct {
	// Name identifies the feed on the command line and in status output.
	Name string `yaml:"name" json:"name"`

	// File is the feed file, relative to the feeds directory unless absolute.
	File string `yaml:"file" json:"file"`

	// Parent is the backend handle the feed's blocks live under.
	Parent string `yaml:"parent" json:"parent"`

	// IDField names the item field holding the identifier.
	IDField string `yaml:"idField,omitempty" json:"idField,omitempty"`

	// Template renders the block text from an item.
	Template string `yaml:"template,omitempty" json:"template,omitempty"`

	// Properties are rendered in order as "key:: value" children.
	Properties []Property `yaml:"properties,omitempty" json:"properties,omitempty"`

	// SpecialBlock is a container child replaced wholesale on change.
	SpecialBlock *SpecialBlock `yaml:"specialBlock,omitempty" json:"specialBlock,omitempty"`

	// PreserveTag keeps orphaned blocks whose text contains it. Use "-" to
	// disable preservation.
	PreserveTag string `yaml:"preserveTag,omitempty" json:"preserveTag,omitempty"`
}

// Property is one templated property child.
type Property struct {
	Key      string `yaml:"key" json:"key"`
	Template string `yaml:"template" json:"template"`
}

// SpecialBlock is a child block whose own children are opaque lines.
type SpecialBlock struct {
	// Header is the block text and the prefix that recognises it.
	Header string `yaml:"header" json:"header"`

	// Template renders the body; every non-empty line becomes a child.
	Template string `yaml:"template" json:"template"`
}

// WithDefaults returns a copy with unset fields defaulted.
func (d Definition) WithDefaults() Definition {
	if d.IDField == "" {
		d.IDField = DefaultIDField
	}
	if d.Template == "" {
		d.Template = DefaultTemplate
	}
	if d.PreserveTag == "" {
		d.PreserveTag = DefaultPreserveTag
	}
	return d
}
