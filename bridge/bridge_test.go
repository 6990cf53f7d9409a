package bridge

import (
	goerrors "errors"
	"testing"

	"github.com/wippyai/cbridge/ctype"
)

func TestFaultStackInnermostWins(t *testing.T) {
	var s FaultStack

	inner := goerrors.New("inner")
	outer := goerrors.New("outer")

	s.Record(inner)
	s.Record(outer) // unwinding re-record must not mask the root cause
	if !s.Pending() {
		t.Fatal("no fault pending after Record")
	}
	if got := s.Take(); got != inner {
		t.Errorf("Take = %v, want the first recorded fault", got)
	}
	if s.Pending() {
		t.Error("fault still pending after Take")
	}
	if s.Take() != nil {
		t.Error("second Take returned a fault")
	}
}

func TestPackOffsets(t *testing.T) {
	reg := ctype.NewRegistry()
	i8 := reg.Char()
	i32 := reg.MustInt("int", 32, true)
	i64 := reg.MustInt("long long", 64, true)
	ptr := reg.PointerTo(i32)

	tests := []struct {
		name    string
		params  []ctype.Type
		offsets []uint32
		size    uint32
	}{
		{"empty", nil, nil, 1},
		{"single int", []ctype.Type{i32}, []uint32{0}, 4},
		{"char then long", []ctype.Type{i8, i64}, []uint32{0, 8}, 16},
		{"pointer then int", []ctype.Type{ptr, i32}, []uint32{0, 8}, 16},
		{"ints pack tight", []ctype.Type{i32, i32, i8}, []uint32{0, 4, 8}, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offsets, size, err := packOffsets(tt.params)
			if err != nil {
				t.Fatalf("packOffsets: %v", err)
			}
			if size != tt.size {
				t.Errorf("block size = %d, want %d", size, tt.size)
			}
			for i, off := range offsets {
				if off != tt.offsets[i] {
					t.Errorf("param %d at offset %d, want %d", i, off, tt.offsets[i])
				}
			}
		})
	}

	// Parameters of incomplete type cannot be packed.
	opaque, err := reg.DeclareStruct("blob", false)
	if err != nil {
		t.Fatalf("DeclareStruct: %v", err)
	}
	if _, _, err := packOffsets([]ctype.Type{opaque}); err == nil {
		t.Error("packOffsets accepted an incomplete parameter type")
	}
}
