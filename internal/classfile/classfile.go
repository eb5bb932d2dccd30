package classfile

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrMalformedClass is returned when a class image cannot be decoded.
// Callers record it per-file and continue the batch rather than aborting.
var ErrMalformedClass = errors.New("classfile: malformed class")

const magic = 0xCAFEBABE

// Access flag bits used by this package (JVM spec §4.1, §4.5, §4.6).
const (
	accPublic     = 0x0001
	accPrivate    = 0x0002
	accProtected  = 0x0004
	accStatic     = 0x0008
	accFinal      = 0x0010
	accInterface  = 0x0200
	accAbstract   = 0x0400
	accSynthetic  = 0x1000
	accAnnotation = 0x2000
	accEnum       = 0x4000
)

// FieldView is one declared field, resolved to its canonical type FQN.
type FieldView struct {
	Name        string
	TypeFQN     string
	AccessFlags uint16
}

// CallSite is one method-invocation instruction in a method body.
type CallSite struct {
	Line             int    // source line of the call site, or -1
	IsInvokespecial  bool   // INVOKESPECIAL, needed to distinguish call/new
	TargetOwnerFQN   string
	TargetName       string
	TargetParamFQNs  []string
	TargetReturnFQN  string
	IsInit           bool // target method name is "<init>"
}

// MethodView is one declared method or constructor.
type MethodView struct {
	Name           string
	AccessFlags    uint16
	ParamFQNs      []string
	ReturnFQN      string
	AnnotationFQNs []string
	Line           int // earliest line in the method's code, or -1
	Calls          []CallSite
}

// ClassView is the decoded, in-memory representation of one class image.
type ClassView struct {
	FQN           string
	AccessFlags   uint16
	SuperFQN      string // "" for java.lang.Object or an interface with no super
	InterfaceFQNs []string
	Fields        []FieldView
	Methods       []MethodView
}

func (cv *ClassView) IsInterface() bool { return cv.AccessFlags&accInterface != 0 }
func (cv *ClassView) IsEnum() bool      { return cv.AccessFlags&accEnum != 0 }
func (cv *ClassView) IsAbstract() bool  { return cv.AccessFlags&accAbstract != 0 }

func (mv *MethodView) IsStatic() bool { return mv.AccessFlags&accStatic != 0 }

// Visibility derives a visibility string from access flags: absence of
// public/private/protected is "package".
func Visibility(flags uint16) string {
	switch {
	case flags&accPublic != 0:
		return "public"
	case flags&accPrivate != 0:
		return "private"
	case flags&accProtected != 0:
		return "protected"
	default:
		return "package"
	}
}

// DecodeFile reads and decodes one class file from disk.
func DecodeFile(path string) (*ClassView, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("classfile: open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses the bytes of one compiled class image into a ClassView.
// It performs no I/O beyond the single read of r, and never returns a
// partial ClassView: any error discards the in-progress result entirely.
func Decode(r io.Reader) (*ClassView, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("classfile: read: %w", err)
	}
	cv, err := decodeBytes(buf)
	if err != nil {
		return nil, err
	}
	return cv, nil
}

func decodeBytes(buf []byte) (*ClassView, error) {
	c := newCursor(buf)

	got, err := c.u4()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedClass, err)
	}
	if got != magic {
		return nil, fmt.Errorf("%w: bad magic %#x", ErrMalformedClass, got)
	}
	if _, err := c.u2(); err != nil { // minor_version
		return nil, fmt.Errorf("%w: %v", ErrMalformedClass, err)
	}
	if _, err := c.u2(); err != nil { // major_version
		return nil, fmt.Errorf("%w: %v", ErrMalformedClass, err)
	}

	pool, err := readConstantPool(c)
	if err != nil {
		return nil, fmt.Errorf("%w: constant pool: %v", ErrMalformedClass, err)
	}

	accessFlags, err := c.u2()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedClass, err)
	}
	thisClassIdx, err := c.u2()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedClass, err)
	}
	superClassIdx, err := c.u2()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedClass, err)
	}

	thisName, err := pool.className(thisClassIdx)
	if err != nil {
		return nil, fmt.Errorf("%w: this_class: %v", ErrMalformedClass, err)
	}

	cv := &ClassView{
		FQN:         BinaryToDotted(thisName),
		AccessFlags: accessFlags,
	}

	if superClassIdx != 0 {
		superName, err := pool.className(superClassIdx)
		if err != nil {
			return nil, fmt.Errorf("%w: super_class: %v", ErrMalformedClass, err)
		}
		superFQN := BinaryToDotted(superName)
		if superFQN != "java.lang.Object" {
			cv.SuperFQN = superFQN
		}
	}

	ifaceCount, err := c.u2()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedClass, err)
	}
	for i := 0; i < int(ifaceCount); i++ {
		idx, err := c.u2()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedClass, err)
		}
		name, err := pool.className(idx)
		if err != nil {
			return nil, fmt.Errorf("%w: interface %d: %v", ErrMalformedClass, i, err)
		}
		cv.InterfaceFQNs = append(cv.InterfaceFQNs, BinaryToDotted(name))
	}

	fields, err := decodeFields(c, pool)
	if err != nil {
		return nil, fmt.Errorf("%w: fields: %v", ErrMalformedClass, err)
	}
	cv.Fields = fields

	methods, err := decodeMethods(c, pool)
	if err != nil {
		return nil, fmt.Errorf("%w: methods: %v", ErrMalformedClass, err)
	}
	cv.Methods = methods

	// Class-level attributes (source file, inner classes, etc.) carry no
	// fact relevant to the taxonomy; read and discard them so the cursor
	// fully consumes the file (validating structural correctness).
	if _, err := readAttributes(c, pool); err != nil {
		return nil, fmt.Errorf("%w: class attributes: %v", ErrMalformedClass, err)
	}

	return cv, nil
}

func decodeFields(c *cursor, pool *constantPool) ([]FieldView, error) {
	count, err := c.u2()
	if err != nil {
		return nil, err
	}
	fields := make([]FieldView, 0, count)
	for i := 0; i < int(count); i++ {
		accessFlags, err := c.u2()
		if err != nil {
			return nil, err
		}
		nameIdx, err := c.u2()
		if err != nil {
			return nil, err
		}
		descIdx, err := c.u2()
		if err != nil {
			return nil, err
		}
		name, err := pool.utf8(nameIdx)
		if err != nil {
			return nil, err
		}
		descriptor, err := pool.utf8(descIdx)
		if err != nil {
			return nil, err
		}
		typeFQN, err := DecodeFieldDescriptor(descriptor)
		if err != nil {
			return nil, err
		}
		if _, err := readAttributes(c, pool); err != nil {
			return nil, err
		}
		fields = append(fields, FieldView{Name: name, TypeFQN: typeFQN, AccessFlags: accessFlags})
	}
	return fields, nil
}

var transactionalAnnotations = map[string]bool{
	"org.springframework.transaction.annotation.Transactional": true,
	"javax.transaction.Transactional":                          true,
	"jakarta.transaction.Transactional":                        true,
}

func decodeMethods(c *cursor, pool *constantPool) ([]MethodView, error) {
	count, err := c.u2()
	if err != nil {
		return nil, err
	}
	methods := make([]MethodView, 0, count)
	for i := 0; i < int(count); i++ {
		accessFlags, err := c.u2()
		if err != nil {
			return nil, err
		}
		nameIdx, err := c.u2()
		if err != nil {
			return nil, err
		}
		descIdx, err := c.u2()
		if err != nil {
			return nil, err
		}
		name, err := pool.utf8(nameIdx)
		if err != nil {
			return nil, err
		}
		descriptor, err := pool.utf8(descIdx)
		if err != nil {
			return nil, err
		}
		params, ret, err := DecodeMethodDescriptor(descriptor)
		if err != nil {
			return nil, err
		}

		attrs, err := readAttributes(c, pool)
		if err != nil {
			return nil, err
		}

		mv := MethodView{
			Name:        name,
			AccessFlags: accessFlags,
			ParamFQNs:   params,
			ReturnFQN:   ret,
			Line:        -1,
		}

		var annotationFQNs []string
		for _, attrName := range []string{"RuntimeVisibleAnnotations", "RuntimeInvisibleAnnotations"} {
			if a := findAttribute(attrs, attrName); a != nil {
				fqns, err := parseAnnotationTypes(a.data, pool)
				if err != nil {
					return nil, err
				}
				annotationFQNs = append(annotationFQNs, fqns...)
			}
		}
		mv.AnnotationFQNs = annotationFQNs

		if codeAttr := findAttribute(attrs, "Code"); codeAttr != nil {
			dc, err := parseCode(codeAttr.data, pool)
			if err != nil {
				return nil, err
			}
			mv.Line = dc.lines.firstLine()
			calls, err := scanCalls(dc, pool)
			if err != nil {
				return nil, err
			}
			mv.Calls = calls
		}

		methods = append(methods, mv)
	}
	return methods, nil
}

// HasOverride reports whether java.lang.Override is among a method's annotations.
func (mv *MethodView) HasOverride() bool {
	for _, a := range mv.AnnotationFQNs {
		if a == "java.lang.Override" {
			return true
		}
	}
	return false
}

// IsTransactional reports whether any known @Transactional annotation is present.
func (mv *MethodView) IsTransactional() bool {
	for _, a := range mv.AnnotationFQNs {
		if transactionalAnnotations[a] {
			return true
		}
	}
	return false
}

// scanCalls walks a method's instruction stream and emits one CallSite per
// method-invocation opcode, resolving the target via the constant pool.
func scanCalls(dc *decodedCode, pool *constantPool) ([]CallSite, error) {
	var calls []CallSite
	code := dc.code
	for pc := 0; pc < len(code); {
		op := code[pc]
		n, err := instrLen(code, pc)
		if err != nil {
			return nil, err
		}
		if isInvoke(op) {
			if pc+3 > len(code) {
				return nil, fmt.Errorf("%w: truncated invoke operand", ErrMalformedClass)
			}
			idx := uint16(code[pc+1])<<8 | uint16(code[pc+2])
			ownerBinary, name, descriptor, err := pool.methodOrFieldRef(idx)
			if err != nil {
				return nil, err
			}
			params, ret, err := DecodeMethodDescriptor(descriptor)
			if err != nil {
				return nil, err
			}
			calls = append(calls, CallSite{
				Line:            dc.lines.lineFor(pc),
				IsInvokespecial: op == opInvokespecial,
				TargetOwnerFQN:  BinaryToDotted(ownerBinary),
				TargetName:      name,
				TargetParamFQNs: params,
				TargetReturnFQN: ret,
				IsInit:          name == "<init>",
			})
		}
			pc += n
	}
	return calls, nil
}
