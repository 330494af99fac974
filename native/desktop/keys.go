package desktop

import (
	"unicode"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/wippyai/wasm-windowing/native"
)

var controlKeys = map[glfw.Key]uint32{
	glfw.KeySpace:     native.CodeSpace,
	glfw.KeyEnter:     native.CodeEnter,
	glfw.KeyKPEnter:   native.CodeEnter,
	glfw.KeyTab:       native.CodeTab,
	glfw.KeyBackspace: native.CodeBackspace,
	glfw.KeyEscape:    native.CodeEscape,
	glfw.KeyDelete:    native.CodeDelete,
}

// keyCode maps a physical key to the scalar value delivered to guests.
// Printable keys use the layout-specific label, upper-cased with shift.
func keyCode(key glfw.Key, scancode int, mods glfw.ModifierKey) uint32 {
	if code, ok := controlKeys[key]; ok {
		return code
	}
	if key == glfw.KeyUnknown && scancode == 0 {
		return native.UnknownKey
	}
	if code, ok := native.PrintableCode(glfw.GetKeyName(key, scancode)); ok {
		if mods&glfw.ModShift != 0 {
			code = uint32(unicode.ToUpper(rune(code)))
		}
		return code
	}
	if key == glfw.KeyUnknown {
		return native.UnknownKey
	}
	return native.NamedCode(int(key))
}
