package classfile

import "fmt"

const (
	opTableswitch    = 0xAA
	opLookupswitch   = 0xAB
	opWide           = 0xC4
	opIinc           = 0x84
	opInvokevirtual   = 0xB6
	opInvokespecial   = 0xB7
	opInvokestatic    = 0xB8
	opInvokeinterface = 0xB9
	opInvokedynamic   = 0xBA
	opMultianewarray  = 0xC5
)

// fixedOperandBytes gives the number of operand bytes (not counting the
// opcode byte itself) for every opcode whose length does not depend on its
// position or on runtime constant-pool contents. Opcodes absent here are
// either single-byte or handled specially in instrLen.
var fixedOperandBytes = map[byte]int{
	0x10: 1, // bipush
	0x11: 2, // sipush
	0x12: 1, // ldc
	0x13: 2, // ldc_w
	0x14: 2, // ldc2_w
	0x15: 1, // iload
	0x16: 1, // lload
	0x17: 1, // fload
	0x18: 1, // dload
	0x19: 1, // aload
	0x36: 1, // istore
	0x37: 1, // lstore
	0x38: 1, // fstore
	0x39: 1, // dstore
	0x3A: 1, // astore
	0xA9: 1, // ret
	0xBC: 1, // newarray
	0x84: 2, // iinc
	0x99: 2, 0x9A: 2, 0x9B: 2, 0x9C: 2, 0x9D: 2, 0x9E: 2, 0x9F: 2, 0xA0: 2, 0xA1: 2, 0xA2: 2, 0xA3: 2, 0xA4: 2, 0xA5: 2, 0xA6: 2, // if*
	0xA7: 2, // goto
	0xA8: 2, // jsr
	0xB2: 2, 0xB3: 2, 0xB4: 2, 0xB5: 2, // getstatic/putstatic/getfield/putfield
	0xB6: 2, 0xB7: 2, 0xB8: 2, // invokevirtual/special/static
	0xB9: 4, // invokeinterface: index(2) + count(1) + 0(1)
	0xBA: 4, // invokedynamic: index(2) + 0(2)
	0xBB: 2, // new
	0xBD: 2, // anewarray
	0xC0: 2, // checkcast
	0xC1: 2, // instanceof
	0xC5: 3, // multianewarray: index(2) + dimensions(1)
	0xC6: 2, 0xC7: 2, // ifnull/ifnonnull
	0xC8: 4, // goto_w
	0xC9: 4, // jsr_w
}

// instrLen returns the total instruction length in bytes (including the
// opcode byte) starting at code[pc]. pc is needed because tableswitch and
// lookupswitch pad to the next 4-byte boundary measured from the start of
// the method's code array.
func instrLen(code []byte, pc int) (int, error) {
	if pc >= len(code) {
		return 0, fmt.Errorf("%w: instruction pc %d beyond code length %d", ErrMalformedClass, pc, len(code))
	}
	op := code[pc]
	switch op {
	case opWide:
		if pc+1 >= len(code) {
			return 0, fmt.Errorf("%w: truncated wide instruction", ErrMalformedClass)
		}
		if code[pc+1] == opIinc {
			return 6, nil // wide + opcode + index(2) + const(2)
		}
		return 4, nil // wide + opcode + index(2)
	case opTableswitch, opLookupswitch:
		// Padding brings (pc+1) up to a multiple of 4.
		pad := (4 - (pc+1)%4) % 4
		base := pc + 1 + pad
		need := 8 // lookupswitch: default + npairs
		if op == opTableswitch {
			need = 12 // tableswitch: default + low + high
		}
		if base+need > len(code) {
			return 0, fmt.Errorf("%w: truncated switch instruction", ErrMalformedClass)
		}
		if op == opTableswitch {
			low := int32(be32(code[base+4:]))
			high := int32(be32(code[base+8:]))
			count := int(high-low) + 1
			if count < 0 {
				return 0, fmt.Errorf("%w: invalid tableswitch bounds", ErrMalformedClass)
			}
			end := base + 12 + count*4
			return end - pc, nil
		}
		npairs := int(be32(code[base+4:]))
		if npairs < 0 {
			return 0, fmt.Errorf("%w: invalid lookupswitch count", ErrMalformedClass)
		}
		end := base + 8 + npairs*8
		return end - pc, nil
	default:
		if n, ok := fixedOperandBytes[op]; ok {
			return 1 + n, nil
		}
		return 1, nil // no-operand opcode
	}
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// isInvoke reports whether op is one of the four invocation opcodes whose
// operand begins with a constant-pool index into a member ref.
func isInvoke(op byte) bool {
	switch op {
	case opInvokevirtual, opInvokespecial, opInvokestatic, opInvokeinterface:
		return true
	}
	return false
}
