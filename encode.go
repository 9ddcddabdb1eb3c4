package msbt

import (
	"fmt"
	"io"
)

// Encode writes doc to w as an MSBT file.
//
// Everything redundant in the binary form is derived from doc rather than
// copied: the LBL1 bucket placement of every label, section padding, the TXT2
// offset table, the section count and the file size.
//
// Sections are written in the order LBL1, NLI1 (only when an entry has a
// style), ATR1, the raw sections in their stored order, TXT2.
//
// Use WriteOption functions to customize this behavior:
//   - WithByteOrder(o): override doc.Header.ByteOrder
//   - WithEncoding(e): override doc.Header.Encoding
//   - WithWriteLimits(l): set custom size limits
//
// Encode returns ErrDuplicateLabel if two entries share a label and
// ErrMalformedAttributeTable if attribute lengths are not uniform.
func Encode(w io.Writer, doc *Document, opts ...WriteOption) error {
	b, err := EncodeBytes(doc, opts...)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// EncodeBytes is Encode into a new byte slice.
func EncodeBytes(doc *Document, opts ...WriteOption) ([]byte, error) {
	cfg := writeConfig{limits: defaultLimits()}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.limits = cfg.limits.withDefaults()
	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", ErrValidation)
	}

	h := doc.Header
	if cfg.byteOrder != nil {
		h.ByteOrder = *cfg.byteOrder
	}
	if cfg.encoding != nil {
		h.Encoding = *cfg.encoding
	}
	if h.Version == 0 {
		h.Version = VersionV3
	}
	target := *doc
	target.Header = h
	if err := validateDocument(&target, cfg.limits); err != nil {
		return nil, err
	}
	bo := h.ByteOrder.binary()

	labels := make([]string, len(doc.Entries))
	for i := range doc.Entries {
		labels[i] = doc.Entries[i].Label
	}
	lbl, err := encodeLabels(labels, doc.GroupCount, bo)
	if err != nil {
		return nil, fmt.Errorf("LBL1: %w", err)
	}
	atr, err := encodeAttributes(doc.Entries, attributeWidth(doc), doc.AttributeExtra, bo)
	if err != nil {
		return nil, fmt.Errorf("ATR1: %w", err)
	}
	nli := encodeStyles(doc.Entries, bo)
	txt, err := encodeText(doc.Entries, h)
	if err != nil {
		return nil, fmt.Errorf("TXT2: %w", err)
	}

	out := newWriter(bo)
	writeFixedHeader(out, fixedHeader{
		Magic:    Magic,
		BOM:      bomOf(h.ByteOrder),
		Encoding: uint8(h.Encoding),
		Version:  h.Version,
	})
	var count uint16
	emit := func(magic [4]byte, payload []byte) {
		writeSection(out, magic, payload)
		count++
	}
	emit(MagicLBL1, lbl)
	if nli != nil {
		emit(MagicNLI1, nli)
	}
	emit(MagicATR1, atr)
	for _, s := range doc.Sections {
		emit(s.Magic, s.Data)
	}
	emit(MagicTXT2, txt)

	if uint64(out.len()) > cfg.limits.MaxFileSize {
		return nil, fmt.Errorf("%w: encoded size %d", ErrLimitExceeded, out.len())
	}
	out.putU16(14, count)
	out.putU32(18, uint32(out.len()))
	return out.bytes(), nil
}
