package engine

import (
	goerrors "errors"
	"testing"

	cbridge "github.com/wippyai/cbridge"
)

func TestLocalAllocZeroed(t *testing.T) {
	s := NewLocalSpace()

	addr, err := s.Alloc(16)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if addr == 0 {
		t.Fatal("allocation at the null address")
	}
	raw, err := s.Read(addr, 16)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	for i, b := range raw {
		if b != 0 {
			t.Fatalf("byte %d not zeroed: %d", i, b)
		}
	}

	other, err := s.Alloc(0)
	if err != nil {
		t.Fatalf("Alloc(0): %v", err)
	}
	if other == addr {
		t.Error("zero-sized allocation shares an address")
	}
}

func TestLocalReadWriteBounds(t *testing.T) {
	s := NewLocalSpace()
	addr, err := s.Alloc(8)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	if err := s.Write(addr, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	raw, err := s.Read(addr, 4)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if raw[0] != 1 || raw[3] != 4 {
		t.Errorf("Read = %v", raw)
	}

	if _, err := s.Read(0, 1); err == nil {
		t.Error("read at null succeeded")
	}
	if _, err := s.Read(addr, 1<<20); err == nil {
		t.Error("read past the segment end succeeded")
	}
	if err := s.Write(addr+(1<<20), []byte{1}); err == nil {
		t.Error("write past the segment end succeeded")
	}
}

func TestLocalSymbols(t *testing.T) {
	s := NewLocalSpace()

	addr, err := s.DefineBytes("greeting", []byte("hi\x00"))
	if err != nil {
		t.Fatalf("DefineBytes: %v", err)
	}
	got, err := s.SymbolAddr("greeting")
	if err != nil || got != addr {
		t.Errorf("SymbolAddr = %#x, %v; want %#x", got, err, addr)
	}
	if name, ok := s.SymbolName(addr); !ok || name != "greeting" {
		t.Errorf("SymbolName = %q, %v", name, ok)
	}

	if _, err := s.SymbolAddr("nope"); err == nil {
		t.Error("unknown symbol resolved")
	}
	if err := s.DefineSymbol("greeting", addr+1); err == nil {
		t.Error("rebinding a symbol to a new address succeeded")
	}
	if err := s.DefineSymbol("greeting", addr); err != nil {
		t.Errorf("idempotent rebinding failed: %v", err)
	}
}

func TestLocalInvoke(t *testing.T) {
	s := NewLocalSpace()

	ran := false
	addr, err := s.DefineFunc("noop", func(*LocalSpace, uint64, uint64) { ran = true })
	if err != nil {
		t.Fatalf("DefineFunc: %v", err)
	}

	if err := s.Invoke(addr, "void f(void)", 0, 0); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !ran {
		t.Error("function body did not run")
	}

	if err := s.Invoke(0xdead, "void f(void)", 0, 0); err == nil {
		t.Error("invoke of an unknown code address succeeded")
	}
}

func TestLocalCallbackUnwind(t *testing.T) {
	s := NewLocalSpace()

	boom := goerrors.New("boom")
	cbAddr, err := s.NewCallback("int f(int p0)", func(argsAddr, retAddr uint64) error {
		return boom
	})
	if err != nil {
		t.Fatalf("NewCallback: %v", err)
	}

	// Direct invocation of a failing callback reports the pending fault.
	if err := s.Invoke(cbAddr, "int f(int p0)", 0, 0); !goerrors.Is(err, cbridge.ErrFaultPending) {
		t.Errorf("Invoke of failing callback = %v, want fault pending", err)
	}

	// Through a native frame: the frame must not continue past the fault.
	reached := false
	fnAddr, err := s.DefineFunc("caller", func(sp *LocalSpace, argsAddr, retAddr uint64) {
		sp.CallFromNative(cbAddr, 0, 0)
		reached = true
	})
	if err != nil {
		t.Fatalf("DefineFunc: %v", err)
	}
	if err := s.Invoke(fnAddr, "void f(void)", 0, 0); !goerrors.Is(err, cbridge.ErrFaultPending) {
		t.Errorf("Invoke through native frame = %v, want fault pending", err)
	}
	if reached {
		t.Error("native frame continued past the faulting callback")
	}

	s.ReleaseCallback(cbAddr)
	if err := s.Invoke(cbAddr, "int f(int p0)", 0, 0); err == nil {
		t.Error("invoke of a released callback succeeded")
	}
}
