package classfile

import (
	"fmt"
	"strings"
)

// primitiveNames maps JVM descriptor primitive letters to canonical Go-visible
// type names used throughout the fact base.
var primitiveNames = map[byte]string{
	'B': "byte",
	'C': "char",
	'D': "double",
	'F': "float",
	'I': "int",
	'J': "long",
	'S': "short",
	'Z': "boolean",
}

// BinaryToDotted converts a JVM binary class name ("com/axelor/db/Model" or
// a nested "com/axelor/db/Model$Inner") into the dotted canonical FQN form
// ("com.axelor.db.Model.Inner").
func BinaryToDotted(binaryName string) string {
	s := strings.ReplaceAll(binaryName, "/", ".")
	s = strings.ReplaceAll(s, "$", ".")
	return s
}

// DecodeFieldDescriptor decodes one JVM field descriptor into its canonical
// FQN ("Lcom/axelor/db/Model;" → "com.axelor.db.Model",
// "[Ljava/lang/String;" → "java.lang.String[]"). desc must be exactly one
// field descriptor with no trailing bytes.
func DecodeFieldDescriptor(desc string) (string, error) {
	fqn, n, err := decodeFieldType(desc)
	if err != nil {
		return "", err
	}
	if n != len(desc) {
		return "", fmt.Errorf("%w: trailing bytes in field descriptor %q", ErrMalformedClass, desc)
	}
	return fqn, nil
}

// decodeFieldType decodes a single field type starting at desc[0] and
// returns the canonical FQN plus the number of bytes consumed, so callers
// (method descriptor parsing) can advance past one parameter at a time.
func decodeFieldType(desc string) (fqn string, consumed int, err error) {
	if len(desc) == 0 {
		return "", 0, fmt.Errorf("%w: empty type descriptor", ErrMalformedClass)
	}
	switch desc[0] {
	case 'L':
		end := strings.IndexByte(desc, ';')
		if end < 0 {
			return "", 0, fmt.Errorf("%w: unterminated object descriptor %q", ErrMalformedClass, desc)
		}
		return BinaryToDotted(desc[1:end]), end + 1, nil
	case '[':
		inner, n, err := decodeFieldType(desc[1:])
		if err != nil {
			return "", 0, err
		}
		return inner + "[]", n + 1, nil
	default:
		name, ok := primitiveNames[desc[0]]
		if !ok {
			return "", 0, fmt.Errorf("%w: unknown descriptor char %q", ErrMalformedClass, desc[0])
		}
		return name, 1, nil
	}
}

// DecodeMethodDescriptor decodes a JVM method descriptor, e.g.
// "(Ljava/util/List;I)V", into its canonical parameter FQN list and return
// FQN.
func DecodeMethodDescriptor(desc string) (params []string, ret string, err error) {
	if len(desc) == 0 || desc[0] != '(' {
		return nil, "", fmt.Errorf("%w: method descriptor %q missing '('", ErrMalformedClass, desc)
	}
	rest := desc[1:]
	for len(rest) > 0 && rest[0] != ')' {
		fqn, n, err := decodeFieldType(rest)
		if err != nil {
			return nil, "", err
		}
		params = append(params, fqn)
		rest = rest[n:]
	}
	if len(rest) == 0 {
		return nil, "", fmt.Errorf("%w: method descriptor %q missing ')'", ErrMalformedClass, desc)
	}
	rest = rest[1:] // consume ')'
	if rest == "V" {
		return params, "void", nil
	}
	ret, n, err := decodeFieldType(rest)
	if err != nil {
		return nil, "", err
	}
	if n != len(rest) {
		return nil, "", fmt.Errorf("%w: trailing bytes in method descriptor %q", ErrMalformedClass, desc)
	}
	return params, ret, nil
}
