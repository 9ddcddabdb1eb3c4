package msbt

import (
	"bytes"
	"fmt"
	"io"
)

// Decode reads an MSBT document from r.
//
// The decoding process:
//  1. Reads and validates the 32-byte header (magic, byte order, encoding)
//  2. Reads every framed section; unknown sections are kept as RawSection
//  3. Flattens the LBL1 hash table into labels ordered by entry index
//  4. Reads ATR1 attributes and, when present, NLI1 style ids
//  5. Splits each TXT2 entry into text and control-tag runs
//
// The stored section count and file size are not trusted; sections are read
// until the declared count is reached or the data ends.
//
// Decode returns ErrBadMagic if the data is not an MSBT file,
// ErrUnexpectedEOF if a header or payload is truncated, and
// ErrMissingSection if LBL1, ATR1 or TXT2 is absent.
func Decode(r io.Reader, opts ...ReadOption) (*Document, error) {
	cfg := readConfig{limits: defaultLimits()}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.limits = cfg.limits.withDefaults()

	buf, err := io.ReadAll(io.LimitReader(r, int64(cfg.limits.MaxFileSize)+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	if uint64(len(buf)) > cfg.limits.MaxFileSize {
		return nil, fmt.Errorf("%w: file larger than %d bytes", ErrLimitExceeded, cfg.limits.MaxFileSize)
	}
	return decodeBytes(buf, cfg.limits)
}

// DecodeBytes is Decode for an in-memory file.
func DecodeBytes(buf []byte, opts ...ReadOption) (*Document, error) {
	cfg := readConfig{limits: defaultLimits()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return decodeBytes(buf, cfg.limits.withDefaults())
}

func decodeBytes(buf []byte, limits Limits) (*Document, error) {
	fh, order, err := readFixedHeader(buf)
	if err != nil {
		return nil, err
	}
	h := Header{ByteOrder: order, Encoding: Encoding(fh.Encoding), Version: fh.Version}
	if h.Encoding != UTF16 && h.Encoding != UTF8 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedEncoding, fh.Encoding)
	}

	sections, err := readSections(buf, order, limits)
	if err != nil {
		return nil, err
	}
	known := make(map[[4]byte][]byte)
	doc := &Document{Header: h}
	for _, s := range sections {
		if _, ok := reservedSections[s.Magic]; !ok {
			doc.Sections = append(doc.Sections, RawSection{Magic: s.Magic, Data: bytes.Clone(s.Payload)})
			continue
		}
		if _, dup := known[s.Magic]; dup {
			return nil, fmt.Errorf("%w: section %s appears twice", ErrValidation, s.name())
		}
		known[s.Magic] = s.Payload
	}
	for _, m := range [][4]byte{MagicLBL1, MagicATR1, MagicTXT2} {
		if _, ok := known[m]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingSection, m[:])
		}
	}

	bo := order.binary()
	labels, groups, err := decodeLabels(known[MagicLBL1], bo, limits)
	if err != nil {
		return nil, fmt.Errorf("LBL1: %w", err)
	}
	n := len(labels)
	width, attrs, extra, err := decodeAttributes(known[MagicATR1], bo, n)
	if err != nil {
		return nil, fmt.Errorf("ATR1: %w", err)
	}
	var styles []*uint32
	if p, ok := known[MagicNLI1]; ok {
		if styles, err = decodeStyles(p, bo, n); err != nil {
			return nil, fmt.Errorf("NLI1: %w", err)
		}
	}
	texts, err := decodeText(known[MagicTXT2], h, n)
	if err != nil {
		return nil, fmt.Errorf("TXT2: %w", err)
	}

	doc.GroupCount = groups
	doc.AttributeWidth = width
	doc.AttributeExtra = extra
	doc.Entries = make([]Entry, n)
	for i, l := range labels {
		e := Entry{Label: l.Label, Attributes: attrs[i], Contents: texts[i]}
		if styles != nil {
			e.Style = styles[i]
		}
		doc.Entries[i] = e
	}
	return doc, nil
}

// readSections reads every section up to the end of buf. The stored section
// count is not consulted.
func readSections(buf []byte, order ByteOrder, limits Limits) ([]section, error) {
	c := newCursor(buf, order.binary())
	_ = c.seek(headerSize)
	var out []section
	for c.remaining() > 0 {
		s, err := readSection(c, limits)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
