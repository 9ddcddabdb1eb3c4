package msbt

import (
	"encoding/binary"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

const (
	tagOpen  = 0x0E
	tagClose = 0x0F

	maxParameterLen = 0xFFFF
)

// textCodec converts between entry byte streams and runs. It is not safe for
// concurrent use; each Decode/Encode call builds its own.
type textCodec struct {
	enc   Encoding
	order binary.ByteOrder
	unit  int
	dec   *encoding.Decoder
	encd  *encoding.Encoder
}

func newTextCodec(h Header) *textCodec {
	tc := &textCodec{enc: h.Encoding, order: h.ByteOrder.binary(), unit: 1}
	if h.Encoding == UTF16 {
		endian := unicode.LittleEndian
		if h.ByteOrder == BigEndian {
			endian = unicode.BigEndian
		}
		u := unicode.UTF16(endian, unicode.IgnoreBOM)
		tc.unit = 2
		tc.dec = u.NewDecoder()
		tc.encd = u.NewEncoder()
	}
	return tc
}

func (tc *textCodec) readUnit(b []byte) uint16 {
	if tc.unit == 1 {
		return uint16(b[0])
	}
	return tc.order.Uint16(b)
}

func (tc *textCodec) writeUnit(w *writer, u uint16) {
	if tc.unit == 1 {
		w.u8(uint8(u))
		return
	}
	w.u16(u)
}

func (tc *textCodec) decodeString(raw []byte) (string, error) {
	if tc.dec == nil {
		if !utf8.Valid(raw) {
			return "", fmt.Errorf("%w: invalid UTF-8 % x", ErrTextDecode, raw)
		}
		return string(raw), nil
	}
	out, err := tc.dec.Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTextDecode, err)
	}
	return string(out), nil
}

func (tc *textCodec) encodeString(s string) ([]byte, error) {
	if tc.encd == nil {
		return []byte(s), nil
	}
	out, err := tc.encd.Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return out, nil
}

// decodeText parses a TXT2 payload holding n entries.
func decodeText(payload []byte, h Header, n int) ([][]Run, error) {
	tc := newTextCodec(h)
	c := newCursor(payload, tc.order)
	count, err := c.u32()
	if err != nil {
		return nil, err
	}
	if int64(count) != int64(n) {
		return nil, fmt.Errorf("%w: %d text entries for %d labels", ErrMalformedLabelTable, count, n)
	}
	if uint64(count)*4 > uint64(c.remaining()) {
		return nil, fmt.Errorf("%w: offset table of %d entries", ErrUnexpectedEOF, count)
	}
	offsets := make([]uint32, count)
	for i := range offsets {
		offsets[i], _ = c.u32()
		if int64(offsets[i]) > int64(len(payload)) {
			return nil, fmt.Errorf("%w: entry %d offset %d beyond %d bytes", ErrUnexpectedEOF, i, offsets[i], len(payload))
		}
	}
	sorted := slices.Clone(offsets)
	slices.Sort(sorted)

	out := make([][]Run, count)
	for i, start := range offsets {
		end := uint32(len(payload))
		j, _ := slices.BinarySearch(sorted, start+1)
		if j < len(sorted) {
			end = sorted[j]
		}
		runs, err := tc.decodeRuns(payload[start:end])
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out[i] = runs
	}
	return out, nil
}

// decodeRuns splits one entry stream into text and control-tag runs. A NUL
// unit that ends the stream is the terminator and is dropped.
func (tc *textCodec) decodeRuns(b []byte) ([]Run, error) {
	var (
		runs []Run
		text []byte
		open []ControlTag
	)
	flush := func() error {
		if len(text) == 0 {
			return nil
		}
		s, err := tc.decodeString(text)
		if err != nil {
			return err
		}
		runs = append(runs, TextRun(s))
		text = text[:0]
		return nil
	}

	c := newCursor(b, tc.order)
	for c.remaining() > 0 {
		if c.remaining() < tc.unit {
			return nil, fmt.Errorf("%w: dangling byte at offset %d", ErrUnexpectedEOF, c.off)
		}
		u := tc.readUnit(b[c.off:])
		start := c.off
		c.off += tc.unit

		switch {
		case u == 0 && c.remaining() == 0:
			// terminator
		case u == tagOpen:
			if err := flush(); err != nil {
				return nil, err
			}
			tag, err := tc.readTag(c)
			if err != nil {
				return nil, fmt.Errorf("%w: tag at offset %d: %v", ErrInvalidControlTag, start, err)
			}
			runs = append(runs, Run{Kind: RunTag, Tag: tag})
			open = append(open, tag)
		case u == tagClose:
			if err := flush(); err != nil {
				return nil, err
			}
			group, err1 := c.u16()
			kind, err2 := c.u16()
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("%w: truncated closing tag at offset %d", ErrInvalidControlTag, start)
			}
			i := lastOpen(open, group, kind)
			if i < 0 {
				return nil, fmt.Errorf("%w: closing tag %d.%d at offset %d has no opening tag", ErrInvalidControlTag, group, kind, start)
			}
			open = slices.Delete(open, i, i+1)
			runs = append(runs, CloseTagRun(group, kind))
		default:
			text = append(text, b[start:c.off]...)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return runs, nil
}

func (tc *textCodec) readTag(c *cursor) (ControlTag, error) {
	group, err := c.u16()
	if err != nil {
		return ControlTag{}, err
	}
	kind, err := c.u16()
	if err != nil {
		return ControlTag{}, err
	}
	size, err := c.u16()
	if err != nil {
		return ControlTag{}, err
	}
	params, err := c.bytes(int(size))
	if err != nil {
		return ControlTag{}, err
	}
	tag := ControlTag{Group: group, Kind: kind}
	if size > 0 {
		tag.Parameters = slices.Clone(params)
	}
	return tag, nil
}

func lastOpen(open []ControlTag, group, kind uint16) int {
	for i := len(open) - 1; i >= 0; i-- {
		if open[i].Group == group && open[i].Kind == kind {
			return i
		}
	}
	return -1
}

// encodeText builds a TXT2 payload. Offsets are computed from the bytes
// actually emitted.
func encodeText(entries []Entry, h Header) ([]byte, error) {
	tc := newTextCodec(h)
	w := newWriter(tc.order)
	w.u32(uint32(len(entries)))
	table := w.len()
	w.zeros(4 * len(entries))
	for i := range entries {
		w.putU32(table+4*i, uint32(w.len()))
		if err := tc.encodeRuns(w, entries[i].Contents); err != nil {
			return nil, fmt.Errorf("entry %q: %w", entries[i].Label, err)
		}
	}
	return w.bytes(), nil
}

func (tc *textCodec) encodeRuns(w *writer, runs []Run) error {
	var open []ControlTag
	for _, r := range runs {
		switch r.Kind {
		case RunText:
			if strings.ContainsAny(r.Text, "\x0e\x0f") {
				return fmt.Errorf("%w: text %q contains a tag sentinel", ErrInvalidControlTag, r.Text)
			}
			b, err := tc.encodeString(r.Text)
			if err != nil {
				return err
			}
			w.raw(b)
		case RunTag:
			t := r.Tag
			if t.Closing {
				if len(t.Parameters) > 0 {
					return fmt.Errorf("%w: closing tag %d.%d has parameters", ErrInvalidControlTag, t.Group, t.Kind)
				}
				i := lastOpen(open, t.Group, t.Kind)
				if i < 0 {
					return fmt.Errorf("%w: closing tag %d.%d has no opening tag", ErrInvalidControlTag, t.Group, t.Kind)
				}
				open = slices.Delete(open, i, i+1)
				tc.writeUnit(w, tagClose)
				w.u16(t.Group)
				w.u16(t.Kind)
				continue
			}
			if len(t.Parameters) > maxParameterLen {
				return fmt.Errorf("%w: tag %d.%d has %d parameter bytes", ErrInvalidControlTag, t.Group, t.Kind, len(t.Parameters))
			}
			tc.writeUnit(w, tagOpen)
			w.u16(t.Group)
			w.u16(t.Kind)
			w.u16(uint16(len(t.Parameters)))
			w.raw(t.Parameters)
			open = append(open, t)
		default:
			return fmt.Errorf("%w: unknown run kind %d", ErrValidation, r.Kind)
		}
	}
	tc.writeUnit(w, 0)
	return nil
}
