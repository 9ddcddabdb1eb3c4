package msbt

import (
	"fmt"
)

type fixedHeader struct {
	Magic        [8]byte
	BOM          [2]byte
	Reserved0    uint8
	Encoding     uint8
	Version      uint16
	SectionCount uint16
	Reserved1    uint16
	FileSize     uint32
	Reserved2    [10]byte
}

// byteOrderOf reads the BOM bytes. The mark is the value 0xFEFF stored in the
// file's own byte order, so it is the one field that can be read without
// knowing the order first.
func byteOrderOf(bom [2]byte) (ByteOrder, error) {
	switch bom {
	case [2]byte{0xFF, 0xFE}:
		return LittleEndian, nil
	case [2]byte{0xFE, 0xFF}:
		return BigEndian, nil
	}
	return 0, fmt.Errorf("%w: % x", ErrBadByteOrder, bom[:])
}

func bomOf(o ByteOrder) [2]byte {
	if o == BigEndian {
		return [2]byte{0xFE, 0xFF}
	}
	return [2]byte{0xFF, 0xFE}
}

func readFixedHeader(buf []byte) (fixedHeader, ByteOrder, error) {
	var h fixedHeader
	if len(buf) < headerSize {
		return h, 0, fmt.Errorf("%w: header needs %d bytes, have %d", ErrUnexpectedEOF, headerSize, len(buf))
	}
	copy(h.Magic[:], buf[0:8])
	if h.Magic != Magic {
		return h, 0, ErrBadMagic
	}
	copy(h.BOM[:], buf[8:10])
	order, err := byteOrderOf(h.BOM)
	if err != nil {
		return h, 0, err
	}
	c := newCursor(buf[:headerSize], order.binary())
	_ = c.seek(10)
	h.Reserved0, _ = c.u8()
	h.Encoding, _ = c.u8()
	h.Version, _ = c.u16()
	h.SectionCount, _ = c.u16()
	h.Reserved1, _ = c.u16()
	h.FileSize, _ = c.u32()
	copy(h.Reserved2[:], buf[22:32])
	return h, order, nil
}

func writeFixedHeader(w *writer, h fixedHeader) {
	w.raw(h.Magic[:])
	w.raw(h.BOM[:])
	w.u8(h.Reserved0)
	w.u8(h.Encoding)
	w.u16(h.Version)
	w.u16(h.SectionCount)
	w.u16(h.Reserved1)
	w.u32(h.FileSize)
	w.raw(h.Reserved2[:])
}

type sectionHeader struct {
	Magic    [4]byte
	Length   uint32
	Reserved [8]byte
}

type section struct {
	Magic   [4]byte
	Payload []byte
}

func (s section) name() string { return string(s.Magic[:]) }

func readSectionHeader(c *cursor) (sectionHeader, error) {
	var sh sectionHeader
	b, err := c.bytes(sectionHeaderSize)
	if err != nil {
		return sh, err
	}
	copy(sh.Magic[:], b[0:4])
	sh.Length = c.order.Uint32(b[4:8])
	copy(sh.Reserved[:], b[8:16])
	return sh, nil
}

// readSection reads one framed section and skips the padding after it. A file
// that ends without the trailing padding of its last section is accepted.
func readSection(c *cursor, limits Limits) (section, error) {
	sh, err := readSectionHeader(c)
	if err != nil {
		return section{}, err
	}
	if uint64(sh.Length) > uint64(c.remaining()) {
		return section{}, fmt.Errorf("%w: section %q declares %d bytes, %d left", ErrUnexpectedEOF, sh.Magic[:], sh.Length, c.remaining())
	}
	if uint64(sh.Length) > limits.MaxSectionLen {
		return section{}, fmt.Errorf("%w: section %q length %d", ErrLimitExceeded, sh.Magic[:], sh.Length)
	}
	payload, err := c.bytes(int(sh.Length))
	if err != nil {
		return section{}, fmt.Errorf("section %q: %w", sh.Magic[:], err)
	}
	pad := padding(c.off)
	if pad > c.remaining() {
		pad = c.remaining()
	}
	_ = c.skip(pad)
	return section{Magic: sh.Magic, Payload: payload}, nil
}

// writeSection frames payload and pads it to the next 16-byte boundary. The
// padding is always derived from the payload actually written.
func writeSection(w *writer, magic [4]byte, payload []byte) {
	w.raw(magic[:])
	w.u32(uint32(len(payload)))
	w.zeros(8)
	w.raw(payload)
	w.zeros(padding(w.len()))
}

func padding(off int) int {
	return (sectionAlignment - off%sectionAlignment) % sectionAlignment
}
