package msbt

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
)

var helloRuns = []Run{
	TextRun("Hello "),
	TagRun(0, 3, []byte{0x00, 0x01}),
	TextRun("!"),
}

var helloLE = []byte{
	'H', 0, 'e', 0, 'l', 0, 'l', 0, 'o', 0, ' ', 0,
	0x0E, 0x00, 0x00, 0x00, 0x03, 0x00, 0x02, 0x00, 0x00, 0x01,
	'!', 0,
	0, 0,
}

var helloBE = []byte{
	0, 'H', 0, 'e', 0, 'l', 0, 'l', 0, 'o', 0, ' ',
	0x00, 0x0E, 0x00, 0x00, 0x00, 0x03, 0x00, 0x02, 0x00, 0x01,
	0, '!',
	0, 0,
}

func TestControlTagFraming(t *testing.T) {
	cases := []struct {
		name  string
		h     Header
		bytes []byte
	}{
		{"utf16le", Header{ByteOrder: LittleEndian, Encoding: UTF16}, helloLE},
		{"utf16be", Header{ByteOrder: BigEndian, Encoding: UTF16}, helloBE},
		{"utf8le", Header{ByteOrder: LittleEndian, Encoding: UTF8}, []byte{
			'H', 'e', 'l', 'l', 'o', ' ',
			0x0E, 0x00, 0x00, 0x03, 0x00, 0x02, 0x00, 0x00, 0x01,
			'!', 0,
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tcodec := newTextCodec(tc.h)
			w := newWriter(tcodec.order)
			if err := tcodec.encodeRuns(w, helloRuns); err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(w.bytes(), tc.bytes) {
				t.Fatalf("encoded\n% x\nwant\n% x", w.bytes(), tc.bytes)
			}
			runs, err := newTextCodec(tc.h).decodeRuns(tc.bytes)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(runs, helloRuns) {
				t.Fatalf("decoded %#v", runs)
			}
		})
	}
}

func TestDecodeRuns_ClosingTag(t *testing.T) {
	h := Header{ByteOrder: LittleEndian, Encoding: UTF16}
	in := []Run{TagRun(2, 1, []byte{9, 9}), TextRun("ruby"), TagRun(2, 1, nil), CloseTagRun(2, 1), CloseTagRun(2, 1)}
	w := newWriter(h.ByteOrder.binary())
	if err := newTextCodec(h).encodeRuns(w, in); err != nil {
		t.Fatal(err)
	}
	out, err := newTextCodec(h).decodeRuns(w.bytes())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("decoded %#v", out)
	}
}

func TestDecodeRuns_SurrogatesAndInnerNUL(t *testing.T) {
	h := Header{ByteOrder: BigEndian, Encoding: UTF16}
	in := []Run{TextRun("a\x00b 🗡")}
	w := newWriter(h.ByteOrder.binary())
	if err := newTextCodec(h).encodeRuns(w, in); err != nil {
		t.Fatal(err)
	}
	out, err := newTextCodec(h).decodeRuns(w.bytes())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("decoded %#v", out)
	}
}

func TestDecodeRuns_Errors(t *testing.T) {
	h := Header{ByteOrder: LittleEndian, Encoding: UTF16}
	cases := []struct {
		name string
		in   []byte
		want error
	}{
		{"truncated tag header", []byte{0x0E, 0, 0, 0}, ErrInvalidControlTag},
		{"truncated parameters", []byte{0x0E, 0, 0, 0, 3, 0, 4, 0, 1, 2}, ErrInvalidControlTag},
		{"unmatched closing", []byte{'a', 0, 0x0F, 0, 0, 0, 3, 0, 0, 0}, ErrInvalidControlTag},
		{"closing wrong kind", []byte{0x0E, 0, 0, 0, 3, 0, 0, 0, 0x0F, 0, 0, 0, 4, 0}, ErrInvalidControlTag},
		{"truncated closing", []byte{0x0E, 0, 0, 0, 3, 0, 0, 0, 0x0F, 0, 0, 0}, ErrInvalidControlTag},
		{"dangling byte", []byte{'a', 0, 'b'}, ErrUnexpectedEOF},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newTextCodec(h).decodeRuns(tc.in)
			if !errors.Is(err, tc.want) {
				t.Fatalf("error %v, want %v", err, tc.want)
			}
		})
	}
}

func TestDecodeRuns_InvalidUTF8(t *testing.T) {
	tc := newTextCodec(Header{ByteOrder: LittleEndian, Encoding: UTF8})
	for _, in := range [][]byte{{'a', 0xFF, 0}, {0xC3, 0x0E, 0, 0, 0, 3, 0, 0, 0}} {
		if _, err := tc.decodeRuns(in); !errors.Is(err, ErrTextDecode) {
			t.Fatalf("% x: expected ErrTextDecode, got %v", in, err)
		}
	}
	runs, err := tc.decodeRuns([]byte("\xc3\x9cber\x00"))
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Text != "Über" {
		t.Fatalf("runs %#v", runs)
	}
}

func TestEncodeRuns_Errors(t *testing.T) {
	h := Header{ByteOrder: LittleEndian, Encoding: UTF16}
	cases := []struct {
		name string
		runs []Run
		want error
	}{
		{"sentinel in text", []Run{TextRun("a\x0eb")}, ErrInvalidControlTag},
		{"closing without opening", []Run{CloseTagRun(0, 3)}, ErrInvalidControlTag},
		{"closing with parameters", []Run{TagRun(0, 3, nil), {Kind: RunTag, Tag: ControlTag{Kind: 3, Closing: true, Parameters: []byte{1}}}}, ErrInvalidControlTag},
		{"oversized parameters", []Run{TagRun(0, 3, make([]byte, maxParameterLen+1))}, ErrInvalidControlTag},
		{"unknown kind", []Run{{Kind: RunKind(9)}}, ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := newTextCodec(h).encodeRuns(newWriter(h.ByteOrder.binary()), tc.runs)
			if !errors.Is(err, tc.want) {
				t.Fatalf("error %v, want %v", err, tc.want)
			}
		})
	}
}

func TestDecodeText_Layout(t *testing.T) {
	h := Header{ByteOrder: LittleEndian, Encoding: UTF16}
	entries := []Entry{
		{Label: "a", Contents: []Run{TextRun("first")}},
		{Label: "b"},
		{Label: "c", Contents: helloRuns},
	}
	p, err := encodeText(entries, h)
	if err != nil {
		t.Fatal(err)
	}
	got, err := decodeText(p, h, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := [][]Run{entries[0].Contents, nil, helloRuns}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("decoded %#v", got)
	}

	if _, err := decodeText(p, h, 2); !errors.Is(err, ErrMalformedLabelTable) {
		t.Fatalf("count mismatch: %v", err)
	}
	bad := bytes.Clone(p)
	bad[4] = 0xFF
	bad[5] = 0xFF
	if _, err := decodeText(bad, h, 3); !errors.Is(err, ErrUnexpectedEOF) {
		t.Fatalf("offset beyond payload: %v", err)
	}
	if _, err := decodeText(p[:8], h, 3); !errors.Is(err, ErrUnexpectedEOF) {
		t.Fatalf("truncated offset table: %v", err)
	}
}

func TestDecodeText_UnorderedOffsets(t *testing.T) {
	h := Header{ByteOrder: LittleEndian, Encoding: UTF8}
	w := newWriter(h.ByteOrder.binary())
	w.u32(2)
	w.u32(16) // entry 1 is stored first
	w.u32(12)
	w.raw([]byte("two\x00one\x00"))
	got, err := decodeText(w.bytes(), h, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got[0][0].Text != "one" || got[1][0].Text != "two" {
		t.Fatalf("decoded %#v", got)
	}
}

func TestEncodeText_NamesEntry(t *testing.T) {
	_, err := encodeText([]Entry{{Label: "Broken", Contents: []Run{TextRun("\x0f")}}}, Header{})
	if err == nil || !strings.Contains(err.Error(), "Broken") {
		t.Fatalf("error %v should name the entry", err)
	}
}
