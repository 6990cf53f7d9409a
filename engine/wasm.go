package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	cbridge "github.com/wippyai/cbridge"
	"github.com/wippyai/cbridge/errors"
)

// Status codes returned by the artifact's __cbridge_invoke export and by
// the host dispatch import.
const (
	statusInternal = 0
	statusOK       = 1
	statusFault    = 2
)

// Artifact exports required by the wasm bridge ABI.
const (
	expMalloc      = "malloc"
	expFree        = "free"
	expInvoke      = "__cbridge_invoke"
	expCallbackNew = "__cbridge_callback_new"
	expSymbol      = "__cbridge_symbol"
)

// WasmSpace is an address space backed by a wasm32 artifact executed
// through wazero. The artifact's linear memory is the data segment;
// malloc/free exports back allocation; __cbridge_invoke runs native code
// with the packed parameter block convention and reports host faults via
// status code; __cbridge_callback_new materializes table thunks that
// route back into the host through the imported cbridge.dispatch.
type WasmSpace struct {
	ctx context.Context
	log *zap.Logger

	rt  wazero.Runtime
	mod api.Module
	mem api.Memory

	fnMalloc      api.Function
	fnFree        api.Function
	fnInvoke      api.Function
	fnCallbackNew api.Function
	fnSymbol      api.Function

	callbacks map[uint32]cbridge.CallbackFunc // by dispatch id
	byAddr    map[uint64]uint32
	nextID    uint32

	symbols map[string]uint64 // host-defined, shadow the artifact's
	names   map[uint64]string
}

// WasmOption configures a WasmSpace.
type WasmOption func(*WasmSpace)

// WithWasmLogger sets the space logger; the default is the engine
// logger.
func WithWasmLogger(log *zap.Logger) WasmOption {
	return func(s *WasmSpace) { s.log = log }
}

// NewWasmSpace instantiates a bridge-ABI artifact. The artifact must
// export malloc, free, __cbridge_invoke, __cbridge_callback_new and
// __cbridge_symbol, and may import WASI.
func NewWasmSpace(ctx context.Context, artifact []byte, opts ...WasmOption) (*WasmSpace, error) {
	s := &WasmSpace{
		ctx:       ctx,
		log:       Logger(),
		callbacks: make(map[uint32]cbridge.CallbackFunc),
		byAddr:    make(map[uint64]uint32),
		symbols:   make(map[string]uint64),
		names:     make(map[uint64]string),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.rt = wazero.NewRuntime(ctx)

	_, err := s.rt.NewHostModuleBuilder("cbridge").
		NewFunctionBuilder().
		WithFunc(s.dispatch).
		Export("dispatch").
		Instantiate(ctx)
	if err != nil {
		s.rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidInput, err, "instantiate host module")
	}

	wasi_snapshot_preview1.MustInstantiate(ctx, s.rt)

	s.mod, err = s.rt.Instantiate(ctx, artifact)
	if err != nil {
		s.rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidInput, err, "instantiate artifact")
	}
	s.mem = s.mod.Memory()

	for _, exp := range []struct {
		name string
		dst  *api.Function
	}{
		{expMalloc, &s.fnMalloc},
		{expFree, &s.fnFree},
		{expInvoke, &s.fnInvoke},
		{expCallbackNew, &s.fnCallbackNew},
		{expSymbol, &s.fnSymbol},
	} {
		fn := s.mod.ExportedFunction(exp.name)
		if fn == nil {
			s.rt.Close(ctx)
			return nil, errors.InvalidInput(errors.PhaseLoad,
				fmt.Sprintf("artifact does not export %q", exp.name))
		}
		*exp.dst = fn
	}
	return s, nil
}

// dispatch is the native-to-host entry: the artifact's callback thunks
// call it with their dispatch id. A failing host callable surfaces as a
// fault status, on which the artifact unwinds to its invoke entry.
func (s *WasmSpace) dispatch(_ context.Context, _ api.Module, id, args, ret uint32) uint32 {
	cb, ok := s.callbacks[id]
	if !ok {
		s.log.Error("dispatch to unknown callback", zap.Uint32("id", id))
		return statusInternal
	}
	if err := cb(uint64(args), uint64(ret)); err != nil {
		return statusFault
	}
	return statusOK
}

func (s *WasmSpace) Read(addr uint64, length uint32) ([]byte, error) {
	if addr > math.MaxUint32 {
		return nil, wasmRange(addr, length)
	}
	view, ok := s.mem.Read(uint32(addr), length)
	if !ok {
		return nil, wasmRange(addr, length)
	}
	out := make([]byte, length)
	copy(out, view)
	return out, nil
}

func (s *WasmSpace) Write(addr uint64, data []byte) error {
	if addr > math.MaxUint32 || !s.mem.Write(uint32(addr), data) {
		return wasmRange(addr, uint32(len(data)))
	}
	return nil
}

func (s *WasmSpace) Alloc(length uint32) (uint64, error) {
	if length == 0 {
		length = 1
	}
	res, err := s.fnMalloc.Call(s.ctx, uint64(length))
	if err != nil {
		return 0, err
	}
	addr := uint32(res[0])
	if addr == 0 {
		return 0, errors.InvalidInput(errors.PhaseCall, "malloc returned null")
	}
	// malloc does not zero; the tracker promises zeroed buffers.
	if !s.mem.Write(addr, make([]byte, length)) {
		return 0, wasmRange(uint64(addr), length)
	}
	return uint64(addr), nil
}

func (s *WasmSpace) Free(addr uint64) {
	if _, err := s.fnFree.Call(s.ctx, addr); err != nil {
		s.log.Warn("free failed", zap.Uint64("addr", addr), zap.Error(err))
	}
}

func (s *WasmSpace) DefineSymbol(name string, addr uint64) error {
	if prev, ok := s.symbols[name]; ok && prev != addr {
		return errors.InvalidInput(errors.PhaseLoad,
			fmt.Sprintf("symbol %q already bound to %#x", name, prev))
	}
	s.symbols[name] = addr
	s.names[addr] = name
	return nil
}

// SymbolAddr resolves host-defined symbols first, then asks the
// artifact's lookup export.
func (s *WasmSpace) SymbolAddr(name string) (uint64, error) {
	if addr, ok := s.symbols[name]; ok {
		return addr, nil
	}

	nameAddr, err := s.writeScratch([]byte(name))
	if err != nil {
		return 0, err
	}
	defer s.Free(nameAddr)

	res, err := s.fnSymbol.Call(s.ctx, nameAddr, uint64(len(name)))
	if err != nil {
		return 0, err
	}
	if res[0] == 0 {
		return 0, errors.NotFound(errors.PhaseLoad, "symbol", name)
	}
	return res[0], nil
}

func (s *WasmSpace) SymbolName(addr uint64) (string, bool) {
	name, ok := s.names[addr]
	return name, ok
}

func (s *WasmSpace) Invoke(fnAddr uint64, sig string, argsAddr, retAddr uint64) error {
	res, err := s.fnInvoke.Call(s.ctx, fnAddr, argsAddr, retAddr)
	if err != nil {
		return errors.Wrap(errors.PhaseCall, errors.KindInvalidInput, err,
			fmt.Sprintf("native call trapped (sig %s)", sig))
	}
	switch uint32(res[0]) {
	case statusOK:
		return nil
	case statusFault:
		return cbridge.ErrFaultPending
	default:
		return errors.InvalidInput(errors.PhaseCall,
			fmt.Sprintf("native call failed with status %d (sig %s)", res[0], sig))
	}
}

// NewCallback asks the artifact for a table thunk of the given signature
// wired to a fresh dispatch id.
func (s *WasmSpace) NewCallback(sig string, fn cbridge.CallbackFunc) (uint64, error) {
	sigAddr, err := s.writeScratch([]byte(sig))
	if err != nil {
		return 0, err
	}
	defer s.Free(sigAddr)

	s.nextID++
	id := s.nextID
	res, err := s.fnCallbackNew.Call(s.ctx, sigAddr, uint64(len(sig)), uint64(id))
	if err != nil {
		return 0, err
	}
	if res[0] == 0 {
		return 0, errors.InvalidInput(errors.PhaseCall,
			fmt.Sprintf("artifact has no callback thunk for signature %s", sig))
	}

	s.callbacks[id] = fn
	s.byAddr[res[0]] = id
	return res[0], nil
}

func (s *WasmSpace) ReleaseCallback(addr uint64) {
	if id, ok := s.byAddr[addr]; ok {
		delete(s.callbacks, id)
		delete(s.byAddr, addr)
	}
}

func (s *WasmSpace) Close() error {
	if err := s.mod.Close(s.ctx); err != nil {
		s.rt.Close(s.ctx)
		return err
	}
	return s.rt.Close(s.ctx)
}

func (s *WasmSpace) writeScratch(data []byte) (uint64, error) {
	addr, err := s.Alloc(uint32(len(data)))
	if err != nil {
		return 0, err
	}
	if err := s.Write(addr, data); err != nil {
		s.Free(addr)
		return 0, err
	}
	return addr, nil
}

func wasmRange(addr uint64, length uint32) error {
	return errors.New(errors.PhaseAccess, errors.KindOutOfBounds).
		Detail("address range [%#x, %#x) outside linear memory", addr, addr+uint64(length)).
		Build()
}
