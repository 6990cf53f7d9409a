package engine

import (
	"fmt"

	"go.uber.org/zap"

	cbridge "github.com/wippyai/cbridge"
	"github.com/wippyai/cbridge/errors"
)

// dataBase keeps address 0 (and a guard region) out of the data range so
// a null pointer never aliases a live object.
const dataBase = 0x1000

// codeBase places simulated code addresses in a range that can never
// collide with data addresses.
const codeBase = 1 << 40

// NativeFunc is a simulated native function: a Go function standing in
// for compiled C code. It reads its arguments from the packed parameter
// block at argsAddr and writes its result at retAddr. Faults raised by
// host callbacks it invokes (through CallFromNative) unwind straight
// through it, the way a longjmp would skip native frames.
type NativeFunc func(s *LocalSpace, argsAddr, retAddr uint64)

// LocalSpace is an in-process simulated address space: a growing byte
// slice for data, Go functions for code. It backs tests and mock-only
// environments where no compiled artifact exists.
type LocalSpace struct {
	log *zap.Logger

	mem    []byte
	brk    uint64
	allocs map[uint64]uint32

	symbols map[string]uint64
	names   map[uint64]string

	funcs     map[uint64]NativeFunc
	callbacks map[uint64]cbridge.CallbackFunc
	nextCode  uint64
}

// LocalOption configures a LocalSpace.
type LocalOption func(*LocalSpace)

// WithLocalLogger sets the space logger; the default is the engine
// logger.
func WithLocalLogger(log *zap.Logger) LocalOption {
	return func(s *LocalSpace) { s.log = log }
}

func NewLocalSpace(opts ...LocalOption) *LocalSpace {
	s := &LocalSpace{
		log:       Logger(),
		brk:       dataBase,
		allocs:    make(map[uint64]uint32),
		symbols:   make(map[string]uint64),
		names:     make(map[uint64]string),
		funcs:     make(map[uint64]NativeFunc),
		callbacks: make(map[uint64]cbridge.CallbackFunc),
		nextCode:  codeBase,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// unwind is the non-local exit used when a host callback faults under
// simulated native frames. Only Invoke recovers it.
type unwind struct{}

func (s *LocalSpace) Read(addr uint64, length uint32) ([]byte, error) {
	if err := s.checkRange(addr, length); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, s.mem[addr-dataBase:])
	return out, nil
}

func (s *LocalSpace) Write(addr uint64, data []byte) error {
	if err := s.checkRange(addr, uint32(len(data))); err != nil {
		return err
	}
	copy(s.mem[addr-dataBase:], data)
	return nil
}

func (s *LocalSpace) checkRange(addr uint64, length uint32) error {
	end := addr + uint64(length)
	if addr < dataBase || end < addr || end > s.brk {
		return errors.New(errors.PhaseAccess, errors.KindOutOfBounds).
			Detail("address range [%#x, %#x) outside data segment [%#x, %#x)",
				addr, end, uint64(dataBase), s.brk).
			Build()
	}
	return nil
}

// Alloc reserves length zeroed bytes. Allocation is a bump pointer;
// freed blocks are not reused, which keeps every address unique for the
// lifetime of the space.
func (s *LocalSpace) Alloc(length uint32) (uint64, error) {
	if length == 0 {
		length = 1
	}
	addr := alignUp(s.brk, 8)
	end := addr + uint64(length)
	if grow := end - dataBase - uint64(len(s.mem)); grow > 0 {
		s.mem = append(s.mem, make([]byte, grow)...)
	}
	s.brk = end
	s.allocs[addr] = length
	return addr, nil
}

func (s *LocalSpace) Free(addr uint64) {
	if _, ok := s.allocs[addr]; !ok {
		s.log.Warn("free of unknown address", zap.Uint64("addr", addr))
		return
	}
	delete(s.allocs, addr)
}

// LiveAllocs reports the number of outstanding allocations, for leak
// checks.
func (s *LocalSpace) LiveAllocs() int { return len(s.allocs) }

// DefineBytes installs a data symbol with the given initial content and
// returns its address.
func (s *LocalSpace) DefineBytes(name string, data []byte) (uint64, error) {
	addr, err := s.Alloc(uint32(len(data)))
	if err != nil {
		return 0, err
	}
	if err := s.Write(addr, data); err != nil {
		return 0, err
	}
	if err := s.DefineSymbol(name, addr); err != nil {
		return 0, err
	}
	return addr, nil
}

// DefineFunc installs fn as simulated native code under a symbol name
// and returns its code address.
func (s *LocalSpace) DefineFunc(name string, fn NativeFunc) (uint64, error) {
	addr := s.newCodeAddr()
	s.funcs[addr] = fn
	if err := s.DefineSymbol(name, addr); err != nil {
		return 0, err
	}
	return addr, nil
}

func (s *LocalSpace) DefineSymbol(name string, addr uint64) error {
	if prev, ok := s.symbols[name]; ok && prev != addr {
		return errors.InvalidInput(errors.PhaseLoad,
			fmt.Sprintf("symbol %q already bound to %#x", name, prev))
	}
	s.symbols[name] = addr
	s.names[addr] = name
	return nil
}

func (s *LocalSpace) SymbolAddr(name string) (uint64, error) {
	addr, ok := s.symbols[name]
	if !ok {
		return 0, errors.NotFound(errors.PhaseLoad, "symbol", name)
	}
	return addr, nil
}

func (s *LocalSpace) SymbolName(addr uint64) (string, bool) {
	name, ok := s.names[addr]
	return name, ok
}

// Invoke runs the code at fnAddr. It is the host-entry barrier: a host
// fault raised anywhere under the simulated native frames unwinds to
// here and surfaces as ErrFaultPending, leaving the parked error for the
// caller to collect.
func (s *LocalSpace) Invoke(fnAddr uint64, sig string, argsAddr, retAddr uint64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(unwind); ok {
				err = cbridge.ErrFaultPending
				return
			}
			panic(r)
		}
	}()

	if fn, ok := s.funcs[fnAddr]; ok {
		fn(s, argsAddr, retAddr)
		return nil
	}
	if cb, ok := s.callbacks[fnAddr]; ok {
		if cb(argsAddr, retAddr) != nil {
			return cbridge.ErrFaultPending
		}
		return nil
	}
	return errors.InvalidInput(errors.PhaseCall,
		fmt.Sprintf("no code at address %#x (sig %s)", fnAddr, sig))
}

// CallFromNative is how simulated native code calls through a function
// pointer. A faulting host callback does not return here: it unwinds the
// simulated native frames non-locally, exactly as a longjmp-based
// native bridge would.
func (s *LocalSpace) CallFromNative(fnAddr uint64, argsAddr, retAddr uint64) {
	if cb, ok := s.callbacks[fnAddr]; ok {
		if cb(argsAddr, retAddr) != nil {
			panic(unwind{})
		}
		return
	}
	if fn, ok := s.funcs[fnAddr]; ok {
		fn(s, argsAddr, retAddr)
		return
	}
	// A wild function pointer traps in real native code; trap here too.
	panic(errors.InvalidInput(errors.PhaseCall,
		fmt.Sprintf("native call through invalid code address %#x", fnAddr)))
}

func (s *LocalSpace) NewCallback(sig string, fn cbridge.CallbackFunc) (uint64, error) {
	addr := s.newCodeAddr()
	s.callbacks[addr] = fn
	return addr, nil
}

func (s *LocalSpace) ReleaseCallback(addr uint64) {
	delete(s.callbacks, addr)
}

func (s *LocalSpace) Close() error {
	s.mem = nil
	s.allocs = nil
	s.callbacks = nil
	s.funcs = nil
	return nil
}

func (s *LocalSpace) newCodeAddr() uint64 {
	s.nextCode += 16
	return s.nextCode
}

func alignUp(v uint64, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}
