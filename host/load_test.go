package host

import (
	"context"
	"errors"
	"testing"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-runtime/component"

	werrors "github.com/wippyai/wasm-windowing/errors"
	"github.com/wippyai/wasm-windowing/event"
)

func TestFindExports_NotAComponent(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty":       nil,
		"garbage":     []byte("not wasm at all"),
		"core module": {0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := FindExports(data)
			var we *werrors.Error
			if !errors.As(err, &we) {
				t.Fatalf("err = %v, want *errors.Error", err)
			}
			if we.Phase != werrors.PhaseLoad {
				t.Errorf("phase = %v, want load", we.Phase)
			}
		})
	}
}

func TestLoad_RejectsBeforeRuntime(t *testing.T) {
	_, err := Load(context.Background(), []byte("junk"), NewExitHost(), Config{})
	if err == nil {
		t.Fatal("Load accepted junk")
	}
	if werrors.KindOf(err) != werrors.KindInvalidData {
		t.Errorf("kind = %v, want invalid_data", werrors.KindOf(err))
	}
}

func TestMatchesInterface(t *testing.T) {
	tests := []struct {
		iface string
		want  bool
	}{
		{"wasi:cli/run", true},
		{"wasi:cli/run@0.2.3", true},
		{"wasi:cli/runner", false},
		{"wasi:cli/environment@0.2.3", false},
	}
	for _, tt := range tests {
		if got := matchesInterface(tt.iface, RunInterface); got != tt.want {
			t.Errorf("matchesInterface(%q) = %v, want %v", tt.iface, got, tt.want)
		}
	}
}

func TestCheckEventHandler(t *testing.T) {
	const name = "wasi:windowing/event-handler#event-handler"
	windowID := &wit.TypeDef{Kind: wit.U64{}}

	tests := []struct {
		lift    *component.LiftDef
		name    string
		wantErr bool
	}{
		{name: "ok", lift: &component.LiftDef{Params: []wit.Type{wit.U64{}, event.Type}}},
		{name: "aliased window-id", lift: &component.LiftDef{Params: []wit.Type{windowID, event.Type}}},
		{name: "missing param", lift: &component.LiftDef{Params: []wit.Type{wit.U64{}}}, wantErr: true},
		{name: "u32 window-id", lift: &component.LiftDef{Params: []wit.Type{wit.U32{}, event.Type}}, wantErr: true},
		{name: "wrong event", lift: &component.LiftDef{Params: []wit.Type{wit.U64{}, wit.U32{}}}, wantErr: true},
		{name: "has result", lift: &component.LiftDef{
			Params:  []wit.Type{wit.U64{}, event.Type},
			Results: []wit.Type{wit.Bool{}},
		}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkEventHandler(name, tt.lift)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && werrors.KindOf(err) != werrors.KindSignature {
				t.Errorf("kind = %v, want signature", werrors.KindOf(err))
			}
		})
	}
}
