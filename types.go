package msbt

import (
	"encoding/binary"
	"fmt"
)

const (
	// VersionV3 is the only documented MSBT version.
	VersionV3 uint16 = 3

	headerSize        = 32
	sectionHeaderSize = 16
	sectionAlignment  = 16
)

// Magic is the 8-byte MSBT file signature.
var Magic = [8]byte{'M', 's', 'g', 'S', 't', 'd', 'B', 'n'}

// Section magics.
var (
	MagicLBL1 = [4]byte{'L', 'B', 'L', '1'}
	MagicATR1 = [4]byte{'A', 'T', 'R', '1'}
	MagicNLI1 = [4]byte{'N', 'L', 'I', '1'}
	MagicTXT2 = [4]byte{'T', 'X', 'T', '2'}
)

type ByteOrder uint8

const (
	LittleEndian ByteOrder = iota
	BigEndian
)

func (o ByteOrder) String() string {
	if o == BigEndian {
		return "big"
	}
	return "little"
}

func (o ByteOrder) binary() binary.ByteOrder {
	if o == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

type Encoding uint8

const (
	UTF16 Encoding = 0
	UTF8  Encoding = 1
)

func (e Encoding) String() string {
	switch e {
	case UTF16:
		return "utf16"
	case UTF8:
		return "utf8"
	default:
		return fmt.Sprintf("encoding(%d)", uint8(e))
	}
}

// ParseEncoding accepts the spellings used by the msyt command line.
func ParseEncoding(s string) (Encoding, error) {
	switch s {
	case "", "utf16", "utf-16":
		return UTF16, nil
	case "utf8", "utf-8":
		return UTF8, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, s)
}

// Header is the decoded whole-file preamble. Section count and file size are
// derived on write and therefore not part of it.
type Header struct {
	ByteOrder ByteOrder
	Encoding  Encoding
	Version   uint16
}

// RunKind discriminates the variants of Run.
type RunKind uint8

const (
	RunText RunKind = iota
	RunTag
)

// ControlTag is an embedded directive inside an entry. Parameters are opaque.
type ControlTag struct {
	Group      uint16
	Kind       uint16
	Parameters []byte
	// Closing marks the marker that ends a region opened by an earlier tag
	// with the same group and kind. Closing tags have no parameters.
	Closing bool
}

// Run is one piece of an entry's content: either literal text or a control tag.
type Run struct {
	Kind RunKind
	Text string
	Tag  ControlTag
}

func TextRun(s string) Run { return Run{Kind: RunText, Text: s} }

func TagRun(group, kind uint16, params []byte) Run {
	return Run{Kind: RunTag, Tag: ControlTag{Group: group, Kind: kind, Parameters: params}}
}

func CloseTagRun(group, kind uint16) Run {
	return Run{Kind: RunTag, Tag: ControlTag{Group: group, Kind: kind, Closing: true}}
}

// Entry is one labelled message.
type Entry struct {
	Label      string
	Attributes []byte
	Style      *uint32
	Contents   []Run
}

// RawSection is a section this package does not interpret. It is written back
// unchanged.
type RawSection struct {
	Magic [4]byte
	Data  []byte
}

// Document is a logical representation of an MSBT file.
//
// Entries are kept in entry-index order, which is also the order labels are
// placed into their hash buckets on write.
// GroupCount is the LBL1 bucket count; zero selects one from the entry count.
// AttributeWidth is the per-entry ATR1 width and must match every entry's
// Attributes length.
type Document struct {
	Header         Header
	GroupCount     uint32
	AttributeWidth uint32
	AttributeExtra []byte
	Entries        []Entry
	Sections       []RawSection
}

// Entry returns the entry with the given label.
func (d *Document) Entry(label string) (*Entry, bool) {
	for i := range d.Entries {
		if d.Entries[i].Label == label {
			return &d.Entries[i], true
		}
	}
	return nil, false
}
