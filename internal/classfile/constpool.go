package classfile

import "fmt"

const (
	tagUtf8              = 1
	tagInteger           = 3
	tagFloat             = 4
	tagLong              = 5
	tagDouble            = 6
	tagClass             = 7
	tagString            = 8
	tagFieldref          = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

// cpEntry holds just enough of one constant-pool slot to resolve class
// names, member refs, and UTF-8 strings; constant-value entries (Integer,
// Float, Long, Double, String payloads) are skipped structurally but not
// retained since no fact in the taxonomy needs their values.
type cpEntry struct {
	tag byte

	utf8 string // tagUtf8

	classNameIdx uint16 // tagClass

	ntNameIdx uint16 // tagNameAndType
	ntDescIdx uint16

	refClassIdx uint16 // tagFieldref/Methodref/InterfaceMethodref
	refNTIdx    uint16
}

// constantPool resolves indices lazily against the raw entries; index 0 is
// unused per the JVM spec, and long/double entries occupy two consecutive
// slots (the second is a padding placeholder).
type constantPool struct {
	entries []cpEntry // 1-based; entries[0] is the unused padding slot
}

func readConstantPool(c *cursor) (*constantPool, error) {
	count, err := c.u2()
	if err != nil {
		return nil, c.errAt("constant pool count", err)
	}
	entries := make([]cpEntry, count) // entries[0] unused, matches spec's 1-based indexing
	for i := 1; i < int(count); i++ {
		tag, err := c.u1()
		if err != nil {
			return nil, c.errAt("constant pool tag", err)
		}
		e := cpEntry{tag: tag}
		switch tag {
		case tagUtf8:
			length, err := c.u2()
			if err != nil {
				return nil, err
			}
			b, err := c.bytes(int(length))
			if err != nil {
				return nil, err
			}
			e.utf8 = string(b)
		case tagClass, tagMethodType, tagModule, tagPackage:
			idx, err := c.u2()
			if err != nil {
				return nil, err
			}
			e.classNameIdx = idx
		case tagString:
			if _, err := c.u2(); err != nil {
				return nil, err
			}
		case tagFieldref, tagMethodref, tagInterfaceMethodref:
			classIdx, err := c.u2()
			if err != nil {
				return nil, err
			}
			ntIdx, err := c.u2()
			if err != nil {
				return nil, err
			}
			e.refClassIdx, e.refNTIdx = classIdx, ntIdx
		case tagNameAndType:
			nameIdx, err := c.u2()
			if err != nil {
				return nil, err
			}
			descIdx, err := c.u2()
			if err != nil {
				return nil, err
			}
			e.ntNameIdx, e.ntDescIdx = nameIdx, descIdx
		case tagInteger, tagFloat:
			if err := c.skip(4); err != nil {
				return nil, err
			}
		case tagLong, tagDouble:
			if err := c.skip(8); err != nil {
				return nil, err
			}
			// Long/Double occupy the next index too; the spec explicitly
			// calls this "bizarre" but implementations must honor it.
			i++
		case tagMethodHandle:
			if err := c.skip(3); err != nil {
				return nil, err
			}
		case tagDynamic, tagInvokeDynamic:
			if err := c.skip(4); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: unknown constant pool tag %d", ErrMalformedClass, tag)
		}
		entries[i] = e
	}
	return &constantPool{entries: entries}, nil
}

func (p *constantPool) utf8(idx uint16) (string, error) {
	if int(idx) >= len(p.entries) {
		return "", fmt.Errorf("%w: constant pool index %d out of range", ErrMalformedClass, idx)
	}
	e := p.entries[idx]
	if e.tag != tagUtf8 {
		return "", fmt.Errorf("%w: constant pool index %d is not Utf8", ErrMalformedClass, idx)
	}
	return e.utf8, nil
}

// className resolves a Class constant to its binary name (slash-separated, e.g. "com/axelor/db/Model").
func (p *constantPool) className(idx uint16) (string, error) {
	if int(idx) >= len(p.entries) {
		return "", fmt.Errorf("%w: constant pool index %d out of range", ErrMalformedClass, idx)
	}
	e := p.entries[idx]
	if e.tag != tagClass {
		return "", fmt.Errorf("%w: constant pool index %d is not Class", ErrMalformedClass, idx)
	}
	return p.utf8(e.classNameIdx)
}

// nameAndType resolves a NameAndType constant to (name, descriptor).
func (p *constantPool) nameAndType(idx uint16) (name, descriptor string, err error) {
	if int(idx) >= len(p.entries) {
		return "", "", fmt.Errorf("%w: constant pool index %d out of range", ErrMalformedClass, idx)
	}
	e := p.entries[idx]
	if e.tag != tagNameAndType {
		return "", "", fmt.Errorf("%w: constant pool index %d is not NameAndType", ErrMalformedClass, idx)
	}
	name, err = p.utf8(e.ntNameIdx)
	if err != nil {
		return "", "", err
	}
	descriptor, err = p.utf8(e.ntDescIdx)
	if err != nil {
		return "", "", err
	}
	return name, descriptor, nil
}

// methodOrFieldRef resolves a Fieldref/Methodref/InterfaceMethodref constant
// to the owning class's binary name plus member name and descriptor.
func (p *constantPool) methodOrFieldRef(idx uint16) (ownerClass, name, descriptor string, err error) {
	if int(idx) >= len(p.entries) {
		return "", "", "", fmt.Errorf("%w: constant pool index %d out of range", ErrMalformedClass, idx)
	}
	e := p.entries[idx]
	switch e.tag {
	case tagFieldref, tagMethodref, tagInterfaceMethodref:
	default:
		return "", "", "", fmt.Errorf("%w: constant pool index %d is not a member ref", ErrMalformedClass, idx)
	}
	ownerClass, err = p.className(e.refClassIdx)
	if err != nil {
		return "", "", "", err
	}
	name, descriptor, err = p.nameAndType(e.refNTIdx)
	if err != nil {
		return "", "", "", err
	}
	return ownerClass, name, descriptor, nil
}
