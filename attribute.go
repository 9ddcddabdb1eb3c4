package msbt

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// decodeAttributes parses an ATR1 payload holding n fixed-width records.
// A zero width with a non-zero count is valid: the section is present but
// every entry has empty attributes.
func decodeAttributes(payload []byte, order binary.ByteOrder, n int) (width uint32, attrs [][]byte, extra []byte, err error) {
	c := newCursor(payload, order)
	count, err := c.u32()
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%w: %v", ErrMalformedAttributeTable, err)
	}
	width, err = c.u32()
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%w: %v", ErrMalformedAttributeTable, err)
	}
	if int64(count) != int64(n) {
		return 0, nil, nil, fmt.Errorf("%w: %d records for %d labels", ErrMalformedAttributeTable, count, n)
	}
	if uint64(count)*uint64(width) > uint64(c.remaining()) {
		return 0, nil, nil, fmt.Errorf("%w: %d records of %d bytes exceed %d bytes", ErrMalformedAttributeTable, count, width, c.remaining())
	}
	attrs = make([][]byte, count)
	for i := range attrs {
		b, _ := c.bytes(int(width))
		if width > 0 {
			attrs[i] = bytes.Clone(b)
		}
	}
	if c.remaining() > 0 {
		extra = bytes.Clone(c.buf[c.off:])
	}
	return width, attrs, extra, nil
}

func encodeAttributes(entries []Entry, width uint32, extra []byte, order binary.ByteOrder) ([]byte, error) {
	w := newWriter(order)
	w.u32(uint32(len(entries)))
	w.u32(width)
	for i := range entries {
		a := entries[i].Attributes
		if int64(len(a)) != int64(width) {
			return nil, fmt.Errorf("%w: entry %q has %d attribute bytes, want %d", ErrMalformedAttributeTable, entries[i].Label, len(a), width)
		}
		w.raw(a)
	}
	w.raw(extra)
	return w.bytes(), nil
}

// decodeStyles parses an NLI1 payload of (entry index, style id) pairs.
func decodeStyles(payload []byte, order binary.ByteOrder, n int) ([]*uint32, error) {
	c := newCursor(payload, order)
	count, err := c.u32()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedStyleTable, err)
	}
	if uint64(count)*8 > uint64(c.remaining()) {
		return nil, fmt.Errorf("%w: %d pairs exceed %d bytes", ErrMalformedStyleTable, count, c.remaining())
	}
	styles := make([]*uint32, n)
	for ri := uint32(0); ri < count; ri++ {
		idx, _ := c.u32()
		style, _ := c.u32()
		if int64(idx) >= int64(n) {
			return nil, fmt.Errorf("%w: entry index %d out of range", ErrMalformedStyleTable, idx)
		}
		if styles[idx] != nil {
			return nil, fmt.Errorf("%w: entry index %d listed twice", ErrMalformedStyleTable, idx)
		}
		styles[idx] = &style
	}
	return styles, nil
}

// encodeStyles returns nil when no entry has a style, in which case the
// section is omitted.
func encodeStyles(entries []Entry, order binary.ByteOrder) []byte {
	var n uint32
	for i := range entries {
		if entries[i].Style != nil {
			n++
		}
	}
	if n == 0 {
		return nil
	}
	w := newWriter(order)
	w.u32(n)
	for i := range entries {
		if s := entries[i].Style; s != nil {
			w.u32(uint32(i))
			w.u32(*s)
		}
	}
	return w.bytes()
}
