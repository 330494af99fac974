package event

import "fmt"

// Event is one member of the closed guest event set.
// The set is sealed: only the types in this package implement it.
type Event interface {
	// Case returns the variant case name used on the guest boundary.
	Case() string
	isEvent()
}

// Button identifies a mouse button.
type Button uint8

const (
	ButtonLeft Button = iota
	ButtonRight
	ButtonMiddle
	ButtonOther
)

var buttonNames = [...]string{"left", "right", "middle", "other"}

func (b Button) String() string {
	if int(b) < len(buttonNames) {
		return buttonNames[b]
	}
	return fmt.Sprintf("button(%d)", uint8(b))
}

// Position is a pointer location in window coordinates.
type Position struct {
	X float64
	Y float64
}

// Click is a button transition at a location.
type Click struct {
	Button   Button
	Position Position
}

// Close reports that the user asked to close the window.
type Close struct{}

// KeyDown reports a key press. Code is a Unicode scalar value, see the
// native package for how non-printable keys are numbered.
type KeyDown struct{ Code uint32 }

// KeyUp reports a key release.
type KeyUp struct{ Code uint32 }

// ClickDown reports a mouse button press.
type ClickDown struct{ Click Click }

// ClickUp reports a mouse button release.
type ClickUp struct{ Click Click }

// Move reports pointer movement.
type Move struct{ Position Position }

func (Close) Case() string     { return CaseClose }
func (KeyDown) Case() string   { return CaseKeyDown }
func (KeyUp) Case() string     { return CaseKeyUp }
func (ClickDown) Case() string { return CaseClickDown }
func (ClickUp) Case() string   { return CaseClickUp }
func (Move) Case() string      { return CaseMove }

func (Close) isEvent()     {}
func (KeyDown) isEvent()   {}
func (KeyUp) isEvent()     {}
func (ClickDown) isEvent() {}
func (ClickUp) isEvent()   {}
func (Move) isEvent()      {}

// Variant case names, in declaration order.
const (
	CaseClose     = "close"
	CaseKeyDown   = "key-down"
	CaseKeyUp     = "key-up"
	CaseClickDown = "click-down"
	CaseClickUp   = "click-up"
	CaseMove      = "move"
)

// String renders ev for logs.
func String(ev Event) string {
	switch e := ev.(type) {
	case Close:
		return CaseClose
	case KeyDown:
		return fmt.Sprintf("%s(%U)", CaseKeyDown, rune(e.Code))
	case KeyUp:
		return fmt.Sprintf("%s(%U)", CaseKeyUp, rune(e.Code))
	case ClickDown:
		return fmt.Sprintf("%s(%s %.1f,%.1f)", CaseClickDown, e.Click.Button, e.Click.Position.X, e.Click.Position.Y)
	case ClickUp:
		return fmt.Sprintf("%s(%s %.1f,%.1f)", CaseClickUp, e.Click.Button, e.Click.Position.X, e.Click.Position.Y)
	case Move:
		return fmt.Sprintf("%s(%.1f,%.1f)", CaseMove, e.Position.X, e.Position.Y)
	}
	return "<nil>"
}
