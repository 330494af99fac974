package native

import "unicode/utf8"

const (
	// PrivateUseBase offsets key codes for named keys without a character,
	// placing them in the Unicode private use area.
	PrivateUseBase uint32 = 0xE000

	// UnknownKey is reported for keys the subsystem cannot identify.
	UnknownKey uint32 = utf8.RuneError
)

// Control characters reported for keys that have a conventional ASCII code.
const (
	CodeBackspace uint32 = 0x08
	CodeTab       uint32 = 0x09
	CodeEnter     uint32 = 0x0D
	CodeEscape    uint32 = 0x1B
	CodeSpace     uint32 = 0x20
	CodeDelete    uint32 = 0x7F
)

// PrintableCode returns the scalar value of the first character of a key
// label, if it has one.
func PrintableCode(label string) (uint32, bool) {
	if label == "" {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(label)
	if r == utf8.RuneError {
		return 0, false
	}
	return uint32(r), true
}

// NamedCode places a subsystem key number in the private use area.
func NamedCode(key int) uint32 {
	if key < 0 || key > 0x18FF {
		return UnknownKey
	}
	return PrivateUseBase + uint32(key)
}
