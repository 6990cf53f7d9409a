package mock_test

import (
	goerrors "errors"
	"testing"

	"github.com/wippyai/cbridge/errors"
	"github.com/wippyai/cbridge/mock"
	"github.com/wippyai/cbridge/proxy"
)

func constant(n int64) proxy.HostFunc {
	return func([]*proxy.Proxy) (any, error) { return n, nil }
}

func TestInstallReplaceRemove(t *testing.T) {
	tbl := mock.NewTable(nil)

	if _, ok := tbl.Lookup("f"); ok {
		t.Error("empty table resolved a handler")
	}

	tbl.Install("f", constant(1))
	fn, ok := tbl.Lookup("f")
	if !ok {
		t.Fatal("installed handler not found")
	}
	if v, _ := fn(nil); v != int64(1) {
		t.Errorf("handler returned %v, want 1", v)
	}

	tbl.Install("f", constant(2))
	fn, _ = tbl.Lookup("f")
	if v, _ := fn(nil); v != int64(2) {
		t.Errorf("replaced handler returned %v, want 2", v)
	}

	tbl.Remove("f")
	if _, ok := tbl.Lookup("f"); ok {
		t.Error("removed handler still found")
	}
}

func TestStubDispatchesPerCall(t *testing.T) {
	tbl := mock.NewTable(nil)
	stub := tbl.Stub("f")

	// The stub was created before any handler existed; dispatch happens
	// at call time.
	_, err := stub(nil)
	var e *errors.Error
	if !goerrors.As(err, &e) || e.Kind != errors.KindUnresolvedSymbol {
		t.Fatalf("unhandled stub call error = %v, want unresolved_symbol", err)
	}
	if e.Value != "f" {
		t.Errorf("error names %v, want the symbol", e.Value)
	}

	tbl.Install("f", constant(7))
	if v, err := stub(nil); err != nil || v != int64(7) {
		t.Errorf("stub after install = %v, %v", v, err)
	}

	tbl.Remove("f")
	if _, err := stub(nil); err == nil {
		t.Error("stub call after removal succeeded")
	}
}

func TestNames(t *testing.T) {
	tbl := mock.NewTable(nil)
	tbl.Install("b", constant(0))
	tbl.Install("a", constant(0))

	names := tbl.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Names = %v, want [a b]", names)
	}
}
