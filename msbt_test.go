package msbt

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"reflect"
	"testing"
)

func sampleDoc() *Document {
	style := uint32(7)
	return &Document{
		Header:         Header{ByteOrder: LittleEndian, Encoding: UTF16, Version: VersionV3},
		GroupCount:     101,
		AttributeWidth: 4,
		Entries: []Entry{
			{Label: "Armor_001_Head", Attributes: []byte{1, 0, 0, 0}, Contents: []Run{TextRun("Hylian Hood")}},
			{Label: "Armor_001_Head_Desc", Attributes: []byte{2, 0, 0, 0}, Style: &style, Contents: []Run{
				TextRun("A hood "),
				TagRun(0, 3, []byte{0x00, 0x01}),
				TextRun("worn"),
				CloseTagRun(0, 3),
				TextRun(" by Hylians.\nÜber 100 €"),
			}},
			{Label: "Empty", Attributes: []byte{3, 0, 0, 0}},
			{Label: "TagOnly", Attributes: []byte{4, 0, 0, 0}, Contents: []Run{TagRun(1, 0, nil)}},
		},
		Sections: []RawSection{
			{Magic: [4]byte{'T', 'S', 'Y', '1'}, Data: []byte{0, 0, 0, 0, 1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0}},
		},
	}
}

type failingWriter struct {
	n int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.n <= 0 {
		return 0, io.ErrClosedPipe
	}
	if len(p) > w.n {
		p = p[:w.n]
	}
	w.n -= len(p)
	return len(p), io.ErrClosedPipe
}

// goldenAB is the two-entry file {A: "foo", B: "bar"} laid out by hand.
func goldenAB() []byte {
	le := binary.LittleEndian
	var b []byte
	b = append(b, "MsgStdBn"...)
	b = append(b, 0xFF, 0xFE, 0, 0)
	b = le.AppendUint16(b, 3)
	b = le.AppendUint16(b, 3)
	b = append(b, 0, 0)
	b = le.AppendUint32(b, 960)
	b = append(b, make([]byte, 10)...)

	// LBL1: 101 buckets, "A" in 65, "B" in 66.
	b = append(b, "LBL1"...)
	b = le.AppendUint32(b, 824)
	b = append(b, make([]byte, 8)...)
	b = le.AppendUint32(b, 101)
	for g := 0; g < 101; g++ {
		count, off := uint32(0), uint32(812)
		switch {
		case g == 65:
			count = 1
		case g == 66:
			count, off = 1, 818
		case g > 66:
			off = 824
		}
		b = le.AppendUint32(b, count)
		b = le.AppendUint32(b, off)
	}
	b = append(b, 1, 'A')
	b = le.AppendUint32(b, 0)
	b = append(b, 1, 'B')
	b = le.AppendUint32(b, 1)
	b = append(b, make([]byte, 8)...)

	b = append(b, "ATR1"...)
	b = le.AppendUint32(b, 8)
	b = append(b, make([]byte, 8)...)
	b = le.AppendUint32(b, 2)
	b = le.AppendUint32(b, 0)
	b = append(b, make([]byte, 8)...)

	b = append(b, "TXT2"...)
	b = le.AppendUint32(b, 28)
	b = append(b, make([]byte, 8)...)
	b = le.AppendUint32(b, 2)
	b = le.AppendUint32(b, 12)
	b = le.AppendUint32(b, 20)
	b = append(b, 'f', 0, 'o', 0, 'o', 0, 0, 0)
	b = append(b, 'b', 0, 'a', 0, 'r', 0, 0, 0)
	b = append(b, make([]byte, 4)...)
	return b
}

func TestWireRoundtrip(t *testing.T) {
	for _, order := range []ByteOrder{LittleEndian, BigEndian} {
		in := fixedHeader{Magic: Magic, BOM: bomOf(order), Encoding: uint8(UTF8), Version: VersionV3, SectionCount: 4, FileSize: 0x1234}
		w := newWriter(order.binary())
		writeFixedHeader(w, in)
		if w.len() != headerSize {
			t.Fatalf("header size %d", w.len())
		}
		out, gotOrder, err := readFixedHeader(w.bytes())
		if err != nil {
			t.Fatal(err)
		}
		if gotOrder != order {
			t.Fatalf("order %v, want %v", gotOrder, order)
		}
		if !reflect.DeepEqual(in, out) {
			t.Fatalf("fixed header mismatch: %#v vs %#v", in, out)
		}
	}
}

func TestDecodeGoldenTwoEntries(t *testing.T) {
	doc, err := DecodeBytes(goldenAB())
	if err != nil {
		t.Fatal(err)
	}
	want := &Document{
		Header:     Header{ByteOrder: LittleEndian, Encoding: UTF16, Version: VersionV3},
		GroupCount: 101,
		Entries: []Entry{
			{Label: "A", Contents: []Run{TextRun("foo")}},
			{Label: "B", Contents: []Run{TextRun("bar")}},
		},
	}
	if !reflect.DeepEqual(want, doc) {
		t.Fatalf("doc mismatch\nwant: %#v\ngot:  %#v", want, doc)
	}
	got, err := EncodeBytes(doc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, goldenAB()) {
		t.Fatalf("re-encoded bytes differ\nwant: % x\ngot:  % x", goldenAB(), got)
	}
}

func TestEncodeProgrammaticMatchesGolden(t *testing.T) {
	doc := &Document{Entries: []Entry{
		{Label: "A", Contents: []Run{TextRun("foo")}},
		{Label: "B", Contents: []Run{TextRun("bar")}},
	}}
	got, err := EncodeBytes(doc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, goldenAB()) {
		t.Fatalf("encoded bytes differ from golden file")
	}
}

func TestEncodeDecodeRoundTrip_AllLayouts(t *testing.T) {
	for _, order := range []ByteOrder{LittleEndian, BigEndian} {
		for _, enc := range []Encoding{UTF16, UTF8} {
			t.Run(order.String()+"/"+enc.String(), func(t *testing.T) {
				doc := sampleDoc()
				doc.Header.ByteOrder = order
				doc.Header.Encoding = enc
				var buf bytes.Buffer
				if err := Encode(&buf, doc); err != nil {
					t.Fatalf("Encode: %v", err)
				}
				got, err := Decode(bytes.NewReader(buf.Bytes()))
				if err != nil {
					t.Fatalf("Decode: %v", err)
				}
				if !reflect.DeepEqual(doc, got) {
					t.Fatalf("doc mismatch\nwant: %#v\ngot:  %#v", doc, got)
				}
				again, err := EncodeBytes(got)
				if err != nil {
					t.Fatal(err)
				}
				if !bytes.Equal(buf.Bytes(), again) {
					t.Fatal("re-encoding a decoded document changed its bytes")
				}
			})
		}
	}
}

func TestEncodeWithOptionsOverridesHeader(t *testing.T) {
	doc := sampleDoc()
	b, err := EncodeBytes(doc, WithByteOrder(BigEndian), WithEncoding(UTF8))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b[8:10], []byte{0xFE, 0xFF}) {
		t.Fatalf("BOM % x", b[8:10])
	}
	got, err := DecodeBytes(b)
	if err != nil {
		t.Fatal(err)
	}
	if got.Header.ByteOrder != BigEndian || got.Header.Encoding != UTF8 {
		t.Fatalf("header %+v", got.Header)
	}
	if doc.Header.ByteOrder != LittleEndian {
		t.Fatal("options must not modify the document")
	}
}

func TestEncodeDerivesCountAndSize(t *testing.T) {
	b, err := EncodeBytes(sampleDoc())
	if err != nil {
		t.Fatal(err)
	}
	if got := binary.LittleEndian.Uint16(b[14:16]); got != 5 {
		t.Fatalf("section count %d, want 5", got)
	}
	if got := binary.LittleEndian.Uint32(b[18:22]); int(got) != len(b) {
		t.Fatalf("file size %d, want %d", got, len(b))
	}
	if len(b)%16 != 0 {
		t.Fatalf("file length %d not aligned", len(b))
	}
}

func TestEncodeRecomputesOffsetsAfterEdit(t *testing.T) {
	doc, err := DecodeBytes(goldenAB())
	if err != nil {
		t.Fatal(err)
	}
	doc.Entries[0].Contents = []Run{TextRun("a much longer first string")}
	b, err := EncodeBytes(doc)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeBytes(b)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(doc.Entries, got.Entries) {
		t.Fatalf("entries mismatch: %#v", got.Entries)
	}
}

func TestEncodeNilDocument(t *testing.T) {
	var buf bytes.Buffer
	err := Encode(&buf, nil)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestEncodeWriterError(t *testing.T) {
	w := &failingWriter{n: 10}
	if err := Encode(w, sampleDoc()); err == nil {
		t.Fatal("expected error")
	}
}

func TestEncodeDuplicateLabel(t *testing.T) {
	doc := sampleDoc()
	doc.Entries[1].Label = doc.Entries[0].Label
	_, err := EncodeBytes(doc)
	if !errors.Is(err, ErrDuplicateLabel) {
		t.Fatalf("expected ErrDuplicateLabel, got %v", err)
	}
}

func TestDocumentEntry(t *testing.T) {
	doc := sampleDoc()
	e, ok := doc.Entry("Empty")
	if !ok || e.Attributes[0] != 3 {
		t.Fatalf("Entry(Empty) = %v, %v", e, ok)
	}
	if _, ok := doc.Entry("missing"); ok {
		t.Fatal("unexpected entry")
	}
}

func TestParseEncoding(t *testing.T) {
	for in, want := range map[string]Encoding{"": UTF16, "utf16": UTF16, "utf-16": UTF16, "utf8": UTF8, "utf-8": UTF8} {
		got, err := ParseEncoding(in)
		if err != nil || got != want {
			t.Fatalf("ParseEncoding(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseEncoding("utf32"); !errors.Is(err, ErrUnsupportedEncoding) {
		t.Fatalf("expected ErrUnsupportedEncoding, got %v", err)
	}
}
