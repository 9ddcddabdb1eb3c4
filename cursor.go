package msbt

import (
	"encoding/binary"
	"fmt"
)

// cursor reads fixed-width integers from a byte slice in a chosen byte order.
type cursor struct {
	buf   []byte
	off   int
	order binary.ByteOrder
}

func newCursor(buf []byte, order binary.ByteOrder) *cursor {
	return &cursor{buf: buf, order: order}
}

func (c *cursor) remaining() int { return len(c.buf) - c.off }

func (c *cursor) need(n int) error {
	if n < 0 || c.remaining() < n {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrUnexpectedEOF, n, c.off, c.remaining())
	}
	return nil
}

func (c *cursor) seek(off int) error {
	if off < 0 || off > len(c.buf) {
		return fmt.Errorf("%w: offset %d outside %d bytes", ErrUnexpectedEOF, off, len(c.buf))
	}
	c.off = off
	return nil
}

func (c *cursor) skip(n int) error {
	if err := c.need(n); err != nil {
		return err
	}
	c.off += n
	return nil
}

func (c *cursor) bytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b, nil
}

func (c *cursor) u8() (uint8, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	v := c.buf[c.off]
	c.off++
	return v, nil
}

func (c *cursor) u16() (uint16, error) {
	if err := c.need(2); err != nil {
		return 0, err
	}
	v := c.order.Uint16(c.buf[c.off:])
	c.off += 2
	return v, nil
}

func (c *cursor) u32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := c.order.Uint32(c.buf[c.off:])
	c.off += 4
	return v, nil
}

func (c *cursor) i16() (int16, error) {
	v, err := c.u16()
	return int16(v), err
}

func (c *cursor) i32() (int32, error) {
	v, err := c.u32()
	return int32(v), err
}

// writer is the append-only counterpart of cursor. Writes never fail.
type writer struct {
	buf   []byte
	order binary.ByteOrder
}

func newWriter(order binary.ByteOrder) *writer {
	return &writer{order: order}
}

func (w *writer) len() int { return len(w.buf) }

func (w *writer) bytes() []byte { return w.buf }

func (w *writer) u8(v uint8) { w.buf = append(w.buf, v) }

func (w *writer) u16(v uint16) {
	var b [2]byte
	w.order.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) u32(v uint32) {
	var b [4]byte
	w.order.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) i16(v int16) { w.u16(uint16(v)) }

func (w *writer) i32(v int32) { w.u32(uint32(v)) }

func (w *writer) raw(b []byte) { w.buf = append(w.buf, b...) }

func (w *writer) zeros(n int) {
	for ri := 0; ri < n; ri++ {
		w.buf = append(w.buf, 0)
	}
}

// putU32 overwrites a previously written u32 at off.
func (w *writer) putU32(off int, v uint32) { w.order.PutUint32(w.buf[off:], v) }

// putU16 overwrites a previously written u16 at off.
func (w *writer) putU16(off int, v uint16) { w.order.PutUint16(w.buf[off:], v) }
