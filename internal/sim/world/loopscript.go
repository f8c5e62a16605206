package world

// Loop-script opcodes. A script is a postfix program over 16-bit values that
// filters items in area and surface searches; '$' returns the top of stack.
const (
	LSFalse   byte = 0x00
	LSTrue    byte = 0x01
	LSNot     byte = '!'
	LSStatus  byte = '#'
	LSEnd     byte = '$'
	LSQ       byte = '%'
	LSAnd     byte = '&'
	LSInt     byte = '*'
	LSOr      byte = '+'
	LSLess    byte = '<'
	LSEqual   byte = '='
	LSGreater byte = '>'
	LSFamily  byte = '?'
	LSShape   byte = '@'
	LSLEqual  byte = '['
	LSGEqual  byte = ']'
	LSNpcNum  byte = '^'
	LSFrame   byte = '`'
)

type LoopScript []byte

// LoopScriptAll matches every item.
var LoopScriptAll = LoopScript{LSTrue, LSEnd}

// LoopScriptShape matches items of one shape.
func LoopScriptShape(shape uint16) LoopScript {
	return LoopScript{LSShape, LSInt, byte(shape), byte(shape >> 8), LSEqual, LSEnd}
}

// Match runs the script against it. A script without an end opcode never
// matches.
func (s LoopScript) Match(it *Item) bool {
	stack := make([]uint16, 1, 16)
	stack[0] = 1
	push := func(v uint16) { stack = append(stack, v) }
	pop := func() uint16 {
		if len(stack) == 0 {
			return 0
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}
	b2u := func(b bool) uint16 {
		if b {
			return 1
		}
		return 0
	}
	word := func(i int) uint16 {
		if i+1 >= len(s) {
			return 0
		}
		return uint16(s[i]) | uint16(s[i+1])<<8
	}

	for i := 0; i < len(s); i++ {
		op := s[i]
		switch {
		case op == LSFalse:
			push(0)
		case op == LSTrue:
			push(1)
		case op == LSEnd:
			return pop() != 0
		case op == LSInt:
			push(word(i + 1))
			i += 2
		case op == LSAnd:
			a, b := pop(), pop()
			push(b2u(a != 0 && b != 0))
		case op == LSOr:
			a, b := pop(), pop()
			push(b2u(a != 0 || b != 0))
		case op == LSNot:
			push(b2u(pop() == 0))
		case op == LSStatus:
			push(it.flags)
		case op == LSQ:
			push(it.quality)
		case op == LSNpcNum:
			push(it.npcNum)
		case op == LSEqual:
			a, b := pop(), pop()
			push(b2u(a == b))
		case op == LSGreater:
			a, b := pop(), pop()
			push(b2u(b > a))
		case op == LSLess:
			a, b := pop(), pop()
			push(b2u(b < a))
		case op == LSGEqual:
			a, b := pop(), pop()
			push(b2u(b >= a))
		case op == LSLEqual:
			a, b := pop(), pop()
			push(b2u(b <= a))
		case op == LSFamily:
			push(uint16(it.Family()))
		case op == LSShape:
			push(uint16(it.shape))
		case op == LSFrame:
			push(uint16(it.frame))
		case op >= 'A' && op <= 'Z':
			match := false
			for range int(op - '@') {
				if it.shape == uint32(word(i+1)) {
					match = true
				}
				i += 2
			}
			push(b2u(match))
		case op >= 'a' && op <= 'z':
			match := false
			for range int(op - '`') {
				if it.frame == uint32(word(i+1)) {
					match = true
				}
				i += 2
			}
			push(b2u(match))
		default:
			it.world.perr("unknown loop script opcode", "op", op)
		}
	}
	it.world.perr("loop script without end", "item", it.objID)
	return false
}
