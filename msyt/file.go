// Package msyt converts MSBT documents to and from the MSYT tree, the
// editable text form written as YAML or JSON.
package msyt

import (
	"encoding/base64"
	"fmt"

	"github.com/logicossoftware/go-msbt"
)

// File is the root of an MSYT tree. Fields other than Entries are written
// only when they cannot be derived from the entries.
type File struct {
	GroupCount     uint32    `yaml:"group_count,omitempty" json:"group_count,omitempty"`
	Encoding       string    `yaml:"encoding,omitempty" json:"encoding,omitempty"`
	Version        uint16    `yaml:"version,omitempty" json:"version,omitempty"`
	AttributeWidth uint32    `yaml:"attribute_width,omitempty" json:"attribute_width,omitempty"`
	AttributeExtra Blob      `yaml:"attribute_extra,omitempty" json:"attribute_extra,omitempty"`
	Sections       []Section `yaml:"sections,omitempty" json:"sections,omitempty"`
	Entries        Entries   `yaml:"entries" json:"entries"`
}

// Section is an MSBT section kept verbatim.
type Section struct {
	Magic string `yaml:"magic" json:"magic"`
	Data  Blob   `yaml:"data" json:"data"`
}

type Entry struct {
	Attributes Blob      `yaml:"attributes,omitempty" json:"attributes,omitempty"`
	Style      *uint32   `yaml:"style,omitempty" json:"style,omitempty"`
	Contents   []Content `yaml:"contents" json:"contents"`
}

// Content is one run: exactly one of Text and ControlTag is set.
type Content struct {
	Text       string      `yaml:"text,omitempty" json:"text,omitempty"`
	ControlTag *ControlTag `yaml:"control_tag,omitempty" json:"control_tag,omitempty"`
}

type ControlTag struct {
	Group      uint16 `yaml:"group,omitempty" json:"group,omitempty"`
	Kind       uint16 `yaml:"kind" json:"kind"`
	Parameters Blob   `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Closing    bool   `yaml:"closing,omitempty" json:"closing,omitempty"`
}

// NamedEntry pairs a label with its entry.
type NamedEntry struct {
	Label string
	Entry Entry
}

// Entries is an ordered label → entry mapping. Order is entry-index order.
type Entries []NamedEntry

// Get returns the entry for label.
func (es Entries) Get(label string) (Entry, bool) {
	for _, e := range es {
		if e.Label == label {
			return e.Entry, true
		}
	}
	return Entry{}, false
}

// Blob is opaque binary data written as base64.
type Blob []byte

func (b Blob) MarshalText() ([]byte, error) {
	out := make([]byte, base64.StdEncoding.EncodedLen(len(b)))
	base64.StdEncoding.Encode(out, b)
	return out, nil
}

func (b *Blob) UnmarshalText(text []byte) error {
	out := make([]byte, base64.StdEncoding.DecodedLen(len(text)))
	n, err := base64.StdEncoding.Decode(out, text)
	if err != nil {
		return fmt.Errorf("%w: %v", msbt.ErrTextDecode, err)
	}
	if n == 0 {
		*b = nil
		return nil
	}
	*b = out[:n]
	return nil
}

// FromDocument builds the tree for doc.
func FromDocument(doc *msbt.Document) *File {
	f := &File{Entries: make(Entries, 0, len(doc.Entries))}
	if doc.GroupCount != 0 && doc.GroupCount != msbt.DefaultGroupCount(len(doc.Entries)) {
		f.GroupCount = doc.GroupCount
	}
	if doc.Header.Encoding != msbt.UTF16 {
		f.Encoding = doc.Header.Encoding.String()
	}
	if doc.Header.Version != msbt.VersionV3 {
		f.Version = doc.Header.Version
	}
	if len(doc.Entries) == 0 {
		f.AttributeWidth = doc.AttributeWidth
	}
	f.AttributeExtra = Blob(doc.AttributeExtra)
	for _, s := range doc.Sections {
		f.Sections = append(f.Sections, Section{Magic: string(s.Magic[:]), Data: Blob(s.Data)})
	}
	for _, e := range doc.Entries {
		entry := Entry{Attributes: Blob(e.Attributes), Style: e.Style, Contents: make([]Content, 0, len(e.Contents))}
		for _, r := range e.Contents {
			entry.Contents = append(entry.Contents, contentOf(r))
		}
		f.Entries = append(f.Entries, NamedEntry{Label: e.Label, Entry: entry})
	}
	return f
}

func contentOf(r msbt.Run) Content {
	if r.Kind == msbt.RunText {
		return Content{Text: r.Text}
	}
	return Content{ControlTag: &ControlTag{
		Group:      r.Tag.Group,
		Kind:       r.Tag.Kind,
		Parameters: Blob(r.Tag.Parameters),
		Closing:    r.Tag.Closing,
	}}
}

// Document converts the tree back to an MSBT document with the given byte
// order.
func (f *File) Document(order msbt.ByteOrder) (*msbt.Document, error) {
	enc, err := msbt.ParseEncoding(f.Encoding)
	if err != nil {
		return nil, err
	}
	doc := &msbt.Document{
		Header:         msbt.Header{ByteOrder: order, Encoding: enc, Version: f.Version},
		GroupCount:     f.GroupCount,
		AttributeWidth: f.AttributeWidth,
		AttributeExtra: []byte(f.AttributeExtra),
		Entries:        make([]msbt.Entry, 0, len(f.Entries)),
	}
	if doc.Header.Version == 0 {
		doc.Header.Version = msbt.VersionV3
	}
	for _, s := range f.Sections {
		if len(s.Magic) != 4 {
			return nil, fmt.Errorf("%w: section magic %q is not 4 bytes", msbt.ErrTextDecode, s.Magic)
		}
		var m [4]byte
		copy(m[:], s.Magic)
		doc.Sections = append(doc.Sections, msbt.RawSection{Magic: m, Data: []byte(s.Data)})
	}
	seen := make(map[string]struct{}, len(f.Entries))
	for _, ne := range f.Entries {
		if _, ok := seen[ne.Label]; ok {
			return nil, fmt.Errorf("%w: %q", msbt.ErrDuplicateLabel, ne.Label)
		}
		seen[ne.Label] = struct{}{}
		e := msbt.Entry{Label: ne.Label, Attributes: []byte(ne.Entry.Attributes), Style: ne.Entry.Style}
		for i, c := range ne.Entry.Contents {
			r, err := c.run()
			if err != nil {
				return nil, fmt.Errorf("entry %q content %d: %w", ne.Label, i, err)
			}
			e.Contents = append(e.Contents, r)
		}
		doc.Entries = append(doc.Entries, e)
	}
	return doc, nil
}

func (c Content) run() (msbt.Run, error) {
	switch {
	case c.ControlTag != nil && c.Text != "":
		return msbt.Run{}, fmt.Errorf("%w: content has both text and control_tag", msbt.ErrTextDecode)
	case c.ControlTag != nil:
		t := c.ControlTag
		r := msbt.TagRun(t.Group, t.Kind, []byte(t.Parameters))
		r.Tag.Closing = t.Closing
		return r, nil
	case c.Text != "":
		return msbt.TextRun(c.Text), nil
	}
	return msbt.Run{}, fmt.Errorf("%w: content has neither text nor control_tag", msbt.ErrTextDecode)
}

// FromMSBT decodes an MSBT file into its tree.
func FromMSBT(b []byte, opts ...msbt.ReadOption) (*File, error) {
	doc, err := msbt.DecodeBytes(b, opts...)
	if err != nil {
		return nil, err
	}
	return FromDocument(doc), nil
}

// MSBT encodes the tree as an MSBT file.
func (f *File) MSBT(order msbt.ByteOrder, opts ...msbt.WriteOption) ([]byte, error) {
	doc, err := f.Document(order)
	if err != nil {
		return nil, err
	}
	return msbt.EncodeBytes(doc, opts...)
}
