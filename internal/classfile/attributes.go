package classfile

import "fmt"

// lineTable maps bytecode program counters to source line numbers via a
// LineNumberTable attribute, sorted by start_pc ascending.
type lineTable struct {
	startPCs []int
	lines    []int
}

// lineFor returns the line number in effect at pc (the greatest start_pc <=
// pc), or -1 if the table is empty (no line-number attribute present).
func (lt *lineTable) lineFor(pc int) int {
	if lt == nil || len(lt.startPCs) == 0 {
		return -1
	}
	line := lt.lines[0]
	for i, sp := range lt.startPCs {
		if sp > pc {
			break
		}
		line = lt.lines[i]
	}
	return line
}

func (lt *lineTable) firstLine() int {
	if lt == nil || len(lt.lines) == 0 {
		return -1
	}
	min := lt.lines[0]
	for _, l := range lt.lines[1:] {
		if l < min {
			min = l
		}
	}
	return min
}

// decodedCode is the subset of a Code attribute needed by the fact emitter:
// the raw instruction stream and its line-number table.
type decodedCode struct {
	code  []byte
	lines *lineTable
}

// rawAttribute is one unparsed class/field/method/attribute-table entry:
// name plus its exact byte payload, so callers can dispatch on name.
type rawAttribute struct {
	name string
	data []byte
}

func readAttributes(c *cursor, pool *constantPool) ([]rawAttribute, error) {
	count, err := c.u2()
	if err != nil {
		return nil, err
	}
	attrs := make([]rawAttribute, 0, count)
	for i := 0; i < int(count); i++ {
		nameIdx, err := c.u2()
		if err != nil {
			return nil, err
		}
		name, err := pool.utf8(nameIdx)
		if err != nil {
			return nil, err
		}
		length, err := c.u4()
		if err != nil {
			return nil, err
		}
		data, err := c.bytes(int(length))
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, rawAttribute{name: name, data: data})
	}
	return attrs, nil
}

func findAttribute(attrs []rawAttribute, name string) *rawAttribute {
	for i := range attrs {
		if attrs[i].name == name {
			return &attrs[i]
		}
	}
	return nil
}

// parseCode parses a method's Code attribute payload: the instruction
// stream plus its nested LineNumberTable (other nested attributes such as
// StackMapTable and LocalVariableTable are not needed by the fact taxonomy
// and are skipped structurally).
func parseCode(data []byte, pool *constantPool) (*decodedCode, error) {
	c := newCursor(data)
	if _, err := c.u2(); err != nil { // max_stack
		return nil, err
	}
	if _, err := c.u2(); err != nil { // max_locals
		return nil, err
	}
	codeLen, err := c.u4()
	if err != nil {
		return nil, err
	}
	code, err := c.bytes(int(codeLen))
	if err != nil {
		return nil, err
	}
	excCount, err := c.u2()
	if err != nil {
		return nil, err
	}
	if err := c.skip(int(excCount) * 8); err != nil {
		return nil, err
	}
	nested, err := readAttributes(c, pool)
	if err != nil {
		return nil, err
	}
	dc := &decodedCode{code: code}
	if lnt := findAttribute(nested, "LineNumberTable"); lnt != nil {
		lt, err := parseLineNumberTable(lnt.data)
		if err != nil {
			return nil, err
		}
		dc.lines = lt
	}
	return dc, nil
}

func parseLineNumberTable(data []byte) (*lineTable, error) {
	c := newCursor(data)
	count, err := c.u2()
	if err != nil {
		return nil, err
	}
	lt := &lineTable{startPCs: make([]int, 0, count), lines: make([]int, 0, count)}
	for i := 0; i < int(count); i++ {
		startPC, err := c.u2()
		if err != nil {
			return nil, err
		}
		line, err := c.u2()
		if err != nil {
			return nil, err
		}
		lt.startPCs = append(lt.startPCs, int(startPC))
		lt.lines = append(lt.lines, int(line))
	}
	return lt, nil
}

// parseAnnotationTypes reads a RuntimeVisibleAnnotations (or RuntimeInvisible
// counterpart) attribute payload and returns the binary-name type descriptor
// of each annotation present, converted to dotted FQNs. Element values are
// skipped structurally since only the annotation's presence matters to the
// fact taxonomy (has_override, is_transactional).
func parseAnnotationTypes(data []byte, pool *constantPool) ([]string, error) {
	c := newCursor(data)
	count, err := c.u2()
	if err != nil {
		return nil, err
	}
	var fqns []string
	for i := 0; i < int(count); i++ {
		fqn, err := skipAnnotation(c, pool)
		if err != nil {
			return nil, err
		}
		fqns = append(fqns, fqn)
	}
	return fqns, nil
}

// skipAnnotation reads one annotation structure (type_index + element_value
// pairs), fully consuming it from c, and returns its type's dotted FQN.
func skipAnnotation(c *cursor, pool *constantPool) (string, error) {
	typeIdx, err := c.u2()
	if err != nil {
		return "", err
	}
	descriptor, err := pool.utf8(typeIdx)
	if err != nil {
		return "", err
	}
	fqn, err := DecodeFieldDescriptor(descriptor)
	if err != nil {
		return "", err
	}
	numPairs, err := c.u2()
	if err != nil {
		return "", err
	}
	for i := 0; i < int(numPairs); i++ {
		if _, err := c.u2(); err != nil { // element_name_index
			return "", err
		}
		if err := skipElementValue(c, pool); err != nil {
			return "", err
		}
	}
	return fqn, nil
}

// skipElementValue consumes one annotation element_value structure, per
// JVM spec §4.7.16.1, recursing for nested annotations and arrays.
func skipElementValue(c *cursor, pool *constantPool) error {
	tag, err := c.u1()
	if err != nil {
		return err
	}
	switch tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's':
		_, err := c.u2()
		return err
	case 'e':
		if _, err := c.u2(); err != nil {
			return err
		}
		_, err := c.u2()
		return err
	case 'c':
		_, err := c.u2()
		return err
	case '@':
		_, err := skipAnnotation(c, pool)
		return err
	case '[':
		n, err := c.u2()
		if err != nil {
			return err
		}
		for i := 0; i < int(n); i++ {
			if err := skipElementValue(c, pool); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown element_value tag %q", ErrMalformedClass, tag)
	}
}
