package event

import (
	"fmt"

	"go.bytecodealliance.org/wit"
)

// Encode converts ev to the dynamic value the canonical ABI lowers for the
// event variant: a single-key map from case name to payload.
func Encode(ev Event) map[string]any {
	switch e := ev.(type) {
	case Close:
		return map[string]any{CaseClose: nil}
	case KeyDown:
		return map[string]any{CaseKeyDown: e.Code}
	case KeyUp:
		return map[string]any{CaseKeyUp: e.Code}
	case ClickDown:
		return map[string]any{CaseClickDown: encodeClick(e.Click)}
	case ClickUp:
		return map[string]any{CaseClickUp: encodeClick(e.Click)}
	case Move:
		return map[string]any{CaseMove: encodePosition(e.Position)}
	}
	panic(fmt.Sprintf("event: unknown event type %T", ev))
}

func encodeClick(c Click) map[string]any {
	return map[string]any{
		"button":   uint8(c.Button),
		"position": encodePosition(c.Position),
	}
}

func encodePosition(p Position) map[string]any {
	return map[string]any{"x": p.X, "y": p.Y}
}

var (
	positionType = &wit.TypeDef{Kind: &wit.Record{Fields: []wit.Field{
		{Name: "x", Type: wit.F64{}},
		{Name: "y", Type: wit.F64{}},
	}}}

	buttonType = &wit.TypeDef{Kind: &wit.Enum{Cases: []wit.EnumCase{
		{Name: "left"}, {Name: "right"}, {Name: "middle"}, {Name: "other"},
	}}}

	clickType = &wit.TypeDef{Kind: &wit.Record{Fields: []wit.Field{
		{Name: "button", Type: buttonType},
		{Name: "position", Type: positionType},
	}}}
)

// Type is the WIT definition of the event variant.
var Type = &wit.TypeDef{Kind: &wit.Variant{Cases: []wit.Case{
	{Name: CaseClose},
	{Name: CaseKeyDown, Type: wit.U32{}},
	{Name: CaseKeyUp, Type: wit.U32{}},
	{Name: CaseClickDown, Type: clickType},
	{Name: CaseClickUp, Type: clickType},
	{Name: CaseMove, Type: positionType},
}}}

// Matches reports whether t has the same shape as Type. Names of cases,
// fields and enum members must agree, in order.
func Matches(t wit.Type) error {
	return sameShape(Type, t, []string{"event"})
}

func sameShape(want, got wit.Type, path []string) error {
	want, got = unalias(want), unalias(got)

	if want == nil || got == nil {
		if want == nil && got == nil {
			return nil
		}
		return mismatch(path, "payload presence differs")
	}

	wd, wok := want.(*wit.TypeDef)
	gd, gok := got.(*wit.TypeDef)
	if !wok || !gok {
		if wok != gok || fmt.Sprintf("%T", want) != fmt.Sprintf("%T", got) {
			return mismatch(path, fmt.Sprintf("want %T, got %T", kindOf(want), kindOf(got)))
		}
		return nil
	}

	switch wk := wd.Kind.(type) {
	case *wit.Variant:
		gk, ok := gd.Kind.(*wit.Variant)
		if !ok {
			return mismatch(path, fmt.Sprintf("want variant, got %T", gd.Kind))
		}
		if len(wk.Cases) != len(gk.Cases) {
			return mismatch(path, fmt.Sprintf("want %d cases, got %d", len(wk.Cases), len(gk.Cases)))
		}
		for i, c := range wk.Cases {
			if gk.Cases[i].Name != c.Name {
				return mismatch(path, fmt.Sprintf("case %d: want %q, got %q", i, c.Name, gk.Cases[i].Name))
			}
			if err := sameShape(c.Type, gk.Cases[i].Type, append(path, c.Name)); err != nil {
				return err
			}
		}
		return nil

	case *wit.Record:
		gk, ok := gd.Kind.(*wit.Record)
		if !ok {
			return mismatch(path, fmt.Sprintf("want record, got %T", gd.Kind))
		}
		if len(wk.Fields) != len(gk.Fields) {
			return mismatch(path, fmt.Sprintf("want %d fields, got %d", len(wk.Fields), len(gk.Fields)))
		}
		for i, f := range wk.Fields {
			if gk.Fields[i].Name != f.Name {
				return mismatch(path, fmt.Sprintf("field %d: want %q, got %q", i, f.Name, gk.Fields[i].Name))
			}
			if err := sameShape(f.Type, gk.Fields[i].Type, append(path, f.Name)); err != nil {
				return err
			}
		}
		return nil

	case *wit.Enum:
		gk, ok := gd.Kind.(*wit.Enum)
		if !ok {
			return mismatch(path, fmt.Sprintf("want enum, got %T", gd.Kind))
		}
		if len(wk.Cases) != len(gk.Cases) {
			return mismatch(path, fmt.Sprintf("want %d enum cases, got %d", len(wk.Cases), len(gk.Cases)))
		}
		for i, c := range wk.Cases {
			if gk.Cases[i].Name != c.Name {
				return mismatch(path, fmt.Sprintf("enum case %d: want %q, got %q", i, c.Name, gk.Cases[i].Name))
			}
		}
		return nil
	}

	return mismatch(path, fmt.Sprintf("unsupported kind %T", wd.Kind))
}

// unalias follows type definitions whose kind is another type.
func unalias(t wit.Type) wit.Type {
	for {
		td, ok := t.(*wit.TypeDef)
		if !ok || td == nil {
			return t
		}
		inner, ok := td.Kind.(wit.Type)
		if !ok {
			return t
		}
		t = inner
	}
}

func kindOf(t wit.Type) any {
	if td, ok := t.(*wit.TypeDef); ok {
		return td.Kind
	}
	return t
}

func mismatch(path []string, detail string) error {
	return &ShapeError{Path: append([]string(nil), path...), Detail: detail}
}

// ShapeError describes where a guest type diverges from the event variant.
type ShapeError struct {
	Detail string
	Path   []string
}

func (e *ShapeError) Error() string {
	p := ""
	for i, s := range e.Path {
		if i > 0 {
			p += "."
		}
		p += s
	}
	return fmt.Sprintf("event shape mismatch at %s: %s", p, e.Detail)
}
