// Package event defines the closed set of window events delivered to guests
// and their canonical ABI representation.
//
// Native input is normalized into one of six cases before it crosses the
// guest boundary:
//
//	close
//	key-down(u32)      Unicode scalar value
//	key-up(u32)
//	click-down(click)  button and position
//	click-up(click)
//	move(position)
//
// Encode produces the dynamic value the runtime lowers for the variant.
// Matches checks that a guest's exported handler expects exactly this set.
package event
