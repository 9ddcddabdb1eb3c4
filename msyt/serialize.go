package msyt

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/logicossoftware/go-msbt"
)

// MarshalYAML keeps labels in entry order.
func (es Entries) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, e := range es {
		var v yaml.Node
		if err := v.Encode(e.Entry); err != nil {
			return nil, fmt.Errorf("entry %q: %w", e.Label, err)
		}
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Label}, &v)
	}
	return n, nil
}

func (es *Entries) UnmarshalYAML(n *yaml.Node) error {
	*es = nil
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: entries must be a mapping (line %d)", msbt.ErrTextDecode, n.Line)
	}
	seen := make(map[string]struct{}, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		label := n.Content[i].Value
		if _, ok := seen[label]; ok {
			return fmt.Errorf("%w: %q (line %d)", msbt.ErrDuplicateLabel, label, n.Content[i].Line)
		}
		seen[label] = struct{}{}
		var e Entry
		if err := n.Content[i+1].Decode(&e); err != nil {
			return fmt.Errorf("entry %q: %w", label, err)
		}
		*es = append(*es, NamedEntry{Label: label, Entry: e})
	}
	return nil
}

// MarshalJSON keeps labels in entry order.
func (es Entries) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range es {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Label)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Entry)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", e.Label, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (es *Entries) UnmarshalJSON(data []byte) error {
	*es = nil
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("%w: entries must be an object", msbt.ErrTextDecode)
	}
	seen := make(map[string]struct{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		label, _ := tok.(string)
		if _, ok := seen[label]; ok {
			return fmt.Errorf("%w: %q", msbt.ErrDuplicateLabel, label)
		}
		seen[label] = struct{}{}
		var e Entry
		if err := dec.Decode(&e); err != nil {
			return fmt.Errorf("entry %q: %w", label, err)
		}
		*es = append(*es, NamedEntry{Label: label, Entry: e})
	}
	_, err = dec.Token()
	return err
}

// MarshalYAML writes f as an MSYT YAML document.
func MarshalYAML(f *File) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalJSON writes f as indented JSON.
func MarshalJSON(f *File) ([]byte, error) {
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// Unmarshal parses MSYT text. YAML is tried first and JSON second; when both
// fail the YAML error is reported.
func Unmarshal(data []byte) (*File, error) {
	var f File
	yerr := yaml.Unmarshal(data, &f)
	if yerr == nil {
		return &f, nil
	}
	f = File{}
	if jerr := json.Unmarshal(data, &f); jerr == nil {
		return &f, nil
	}
	return nil, fmt.Errorf("%w: %w", msbt.ErrTextDecode, yerr)
}
