// Package classfile decodes compiled JVM class images into a typed,
// in-memory view. No off-the-shelf dependency offers JVM class-file
// parsing, so this package reads the format directly against the JVM
// class file layout (constant pool, fields, methods, attributes).
package classfile

import (
	"encoding/binary"
	"fmt"
	"io"
)

// cursor is a forward-only reader over a class file's bytes, tracking the
// absolute offset so attribute lengths can be validated against it.
type cursor struct {
	buf []byte
	pos int
}

func newCursor(buf []byte) *cursor {
	return &cursor{buf: buf}
}

func (c *cursor) u1() (byte, error) {
	if c.pos+1 > len(c.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := c.buf[c.pos]
	c.pos++
	return v, nil
}

func (c *cursor) u2() (uint16, error) {
	if c.pos+2 > len(c.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.BigEndian.Uint16(c.buf[c.pos:])
	c.pos += 2
	return v, nil
}

func (c *cursor) u4() (uint32, error) {
	if c.pos+4 > len(c.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.BigEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, nil
}

func (c *cursor) bytes(n int) ([]byte, error) {
	if n < 0 || c.pos+n > len(c.buf) {
		return nil, io.ErrUnexpectedEOF
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *cursor) skip(n int) error {
	if n < 0 || c.pos+n > len(c.buf) {
		return io.ErrUnexpectedEOF
	}
	c.pos += n
	return nil
}

// errAt wraps err with the cursor's current offset for debugging malformed classes.
func (c *cursor) errAt(what string, err error) error {
	return fmt.Errorf("%s at offset %d: %w", what, c.pos, err)
}
