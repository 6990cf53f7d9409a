package runtime

import (
	"go.uber.org/zap"

	cbridge "github.com/wippyai/cbridge"
	"github.com/wippyai/cbridge/bridge"
	"github.com/wippyai/cbridge/ctype"
	"github.com/wippyai/cbridge/errors"
	"github.com/wippyai/cbridge/memory"
	"github.com/wippyai/cbridge/mock"
	"github.com/wippyai/cbridge/proxy"
	"github.com/wippyai/cbridge/schema"
	"github.com/wippyai/cbridge/transcode"
)

// Option configures an Environment.
type Option func(*Environment)

// WithLogger sets the environment logger; the default is a nop logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Environment) { e.log = log }
}

// WithPointerSize sets the target pointer width in bytes (4 for wasm32,
// 8 for the default simulated space).
func WithPointerSize(size uint32) Option {
	return func(e *Environment) { e.ptrSize = size }
}

// Environment binds a resolved schema to an address space: it owns the
// type registry, the allocation tracker, the call bridge and the mock
// table, and exposes the declared symbols as proxies. One environment is
// driven by a single logical thread of control; concurrent use is not
// supported.
type Environment struct {
	log     *zap.Logger
	ptrSize uint32

	space   cbridge.AddressSpace
	reg     *ctype.Registry
	tracker *memory.Tracker
	codec   *transcode.Codec
	bridge  *bridge.Bridge
	mocks   *mock.Table

	symbols    map[string]*proxy.Proxy
	funcTypes  map[string]*ctype.Func
	consts     map[string]int64
	unresolved []string

	closed bool
}

// New resolves sch into a fresh registry, binds every declared symbol
// against space, and installs mock stubs for declared functions the
// native side does not implement. Globals missing from the native symbol
// table are backed by fresh allocations, so a mock-only environment needs
// no artifact at all.
func New(sch *schema.Schema, space cbridge.AddressSpace, opts ...Option) (*Environment, error) {
	e := &Environment{
		log:       zap.NewNop(),
		ptrSize:   ctype.DefaultPointerSize,
		space:     space,
		symbols:   make(map[string]*proxy.Proxy),
		funcTypes: make(map[string]*ctype.Func),
		consts:    make(map[string]int64),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.reg = ctype.NewRegistry(ctype.WithPointerSize(e.ptrSize))
	e.tracker = memory.NewTracker(space)
	e.codec = transcode.NewCodec(space)
	e.bridge = bridge.New(e.tracker, e.log)
	e.mocks = mock.NewTable(e.log)

	if err := e.reg.Load(sch); err != nil {
		return nil, err
	}
	if err := e.bind(sch); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

// bind creates the symbol table: function-pointer cells for every
// declared function (stubbed when unimplemented), borrowed or
// freshly-backed proxies for globals, and the constant map.
func (e *Environment) bind(sch *schema.Schema) error {
	defined := sch.DefinedSet()

	for _, fd := range sch.Funcs {
		t, err := e.reg.Resolve(fd.Type)
		if err != nil {
			return err
		}
		ft, ok := t.(*ctype.Func)
		if !ok {
			return errors.InvalidInput(errors.PhaseLoad,
				"function "+fd.Name+" declared with a non-function type")
		}
		e.funcTypes[fd.Name] = ft

		var addr uint64
		if defined[fd.Name] {
			addr, err = e.space.SymbolAddr(fd.Name)
			if err != nil {
				return errors.Wrap(errors.PhaseLoad, errors.KindUnresolvedSymbol, err,
					"implemented function "+fd.Name+" missing from the symbol table")
			}
		} else {
			bind, err := e.bridge.Bind(e, e.mocks.Stub(fd.Name), ft)
			if err != nil {
				return err
			}
			addr = bind.Addr()
			if err := e.space.DefineSymbol(fd.Name, addr); err != nil {
				return err
			}
			e.unresolved = append(e.unresolved, fd.Name)
		}

		cell, err := proxy.NewRoot(e, ft, addr)
		if err != nil {
			return err
		}
		e.symbols[fd.Name] = cell
	}

	for _, vd := range sch.Vars {
		t, err := e.reg.Resolve(vd.Type)
		if err != nil {
			return err
		}
		lay, err := t.Layout()
		if err != nil {
			return err
		}

		if addr, err := e.space.SymbolAddr(vd.Name); err == nil {
			buf := e.tracker.Wrap(addr, lay.Size)
			e.symbols[vd.Name] = proxy.New(e, t, memory.Location{Buf: buf})
			continue
		}

		// No native storage: back the global ourselves so mock-only
		// environments still expose it.
		p, err := proxy.NewRoot(e, t, nil)
		if err != nil {
			return err
		}
		if err := e.space.DefineSymbol(vd.Name, p.Addr()); err != nil {
			p.Release()
			return err
		}
		e.symbols[vd.Name] = p
	}

	for _, c := range sch.Constants {
		e.consts[c.Name] = c.Value
	}

	if len(e.unresolved) > 0 {
		e.log.Info("declared functions without native implementation",
			zap.Int("count", len(e.unresolved)),
			zap.Strings("symbols", e.unresolved))
	}
	return nil
}

// Registry returns the environment's type registry.
func (e *Environment) Registry() *ctype.Registry { return e.reg }

// Tracker returns the allocation tracker.
func (e *Environment) Tracker() *memory.Tracker { return e.tracker }

// Codec returns the value codec.
func (e *Environment) Codec() *transcode.Codec { return e.codec }

// CallNative invokes native code through the call bridge.
func (e *Environment) CallNative(addr uint64, ft *ctype.Func, args []any) (any, error) {
	return e.bridge.Call(e, addr, ft, args)
}

// BindCallable exposes a host callable at a native code address.
func (e *Environment) BindCallable(fn proxy.HostFunc, ft *ctype.Func) (uint64, error) {
	bind, err := e.bridge.Bind(e, fn, ft)
	if err != nil {
		return 0, err
	}
	return bind.Addr(), nil
}

// New allocates an owned object of type t, optionally initialized.
func (e *Environment) New(t ctype.Type, init any) (*proxy.Proxy, error) {
	return proxy.NewRoot(e, t, init)
}

// Lookup finds a declared symbol (function or global) by name.
func (e *Environment) Lookup(name string) (*proxy.Proxy, bool) {
	p, ok := e.symbols[name]
	return p, ok
}

// Func returns the proxy for a declared function symbol.
func (e *Environment) Func(name string) (*proxy.Proxy, error) {
	p, ok := e.symbols[name]
	if !ok || p.Type().Kind() != ctype.KindFunc {
		return nil, errors.NotFound(errors.PhaseLoad, "function", name)
	}
	return p, nil
}

// MustFunc is Func for symbols known to exist; it panics otherwise.
func (e *Environment) MustFunc(name string) *proxy.Proxy {
	p, err := e.Func(name)
	if err != nil {
		panic(err)
	}
	return p
}

// Global returns the proxy for a declared global variable.
func (e *Environment) Global(name string) (*proxy.Proxy, error) {
	p, ok := e.symbols[name]
	if !ok || p.Type().Kind() == ctype.KindFunc {
		return nil, errors.NotFound(errors.PhaseLoad, "global", name)
	}
	return p, nil
}

// Constant looks up a named compile-time constant.
func (e *Environment) Constant(name string) (int64, bool) {
	v, ok := e.consts[name]
	return v, ok
}

// Type looks up a named type: typedefs first, then struct/union tags.
func (e *Environment) Type(name string) (ctype.Type, bool) {
	if t, ok := e.reg.Typedef(name); ok {
		return t, true
	}
	if t, ok := e.reg.Struct(name); ok {
		return t, true
	}
	return nil, false
}

// Mock installs fn as the handler for a declared but unimplemented
// function. Installing over an existing handler replaces it; the
// replacement is seen by the next call.
func (e *Environment) Mock(name string, fn proxy.HostFunc) error {
	if _, ok := e.funcTypes[name]; !ok {
		return errors.NotFound(errors.PhaseMock, "function", name)
	}
	e.mocks.Install(name, fn)
	return nil
}

// Unmock removes the handler for name; later calls fail with
// unresolved_symbol again.
func (e *Environment) Unmock(name string) {
	e.mocks.Remove(name)
}

// Unresolved lists the declared functions that had no native
// implementation at bind time, in declaration order.
func (e *Environment) Unresolved() []string { return e.unresolved }

// UnresolvedReport returns an informational error listing every symbol
// that needs a mock handler before it is called, or nil when the native
// side implements everything.
func (e *Environment) UnresolvedReport() error {
	if len(e.unresolved) == 0 {
		return nil
	}
	return &errors.UnresolvedSymbolsError{Symbols: e.unresolved}
}

// Close tears the environment down: callback bindings are withdrawn,
// every owned allocation is freed exactly once, and the address space is
// closed. Close is idempotent.
func (e *Environment) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	var firstErr error
	if err := e.bridge.Close(); err != nil {
		firstErr = err
	}
	if err := e.tracker.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := e.space.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
