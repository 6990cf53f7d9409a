package bridge

import (
	goerrors "errors"
	"fmt"

	"go.uber.org/zap"

	cbridge "github.com/wippyai/cbridge"
	"github.com/wippyai/cbridge/ctype"
	"github.com/wippyai/cbridge/errors"
	"github.com/wippyai/cbridge/memory"
	"github.com/wippyai/cbridge/proxy"
)

// Bridge moves calls across the host/native boundary in both directions.
// Outbound calls pack arguments into a parameter block and invoke native
// code through the address space; inbound calls (native code invoking a
// bound host callable) arrive as trampolines that unpack the same block
// layout. A single fault stack per bridge carries host errors across
// intervening native frames.
type Bridge struct {
	tracker  *memory.Tracker
	log      *zap.Logger
	faults   FaultStack
	bindings []*Binding
}

func New(tracker *memory.Tracker, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{tracker: tracker, log: log}
}

// Faults exposes the bridge's pending-fault stack.
func (b *Bridge) Faults() *FaultStack { return &b.faults }

// Call invokes native code at fnAddr with the signature ft. Arguments are
// converted with implicit-assignment rules into a packed parameter block;
// temporaries allocated during conversion live exactly as long as the
// block. The return value comes back in decoded Go form, or nil for
// void.
//
// If a bound host callable failed while native code was running, the
// native stack unwinds and Call returns that original error.
func (b *Bridge) Call(env proxy.Env, fnAddr uint64, ft *ctype.Func, args []any) (any, error) {
	params := ft.Params()
	if len(args) != len(params) {
		return nil, errors.LengthMismatch(errors.PhaseCall, nil, len(args), len(params))
	}

	offsets, blockSize, err := packOffsets(params)
	if err != nil {
		return nil, err
	}

	argBuf, err := b.tracker.Allocate(blockSize)
	if err != nil {
		return nil, err
	}
	defer argBuf.Release()

	for i, pt := range params {
		slot := proxy.New(env, pt, memory.Location{Buf: argBuf, Off: offsets[i]})
		if err := slot.SetVal(args[i]); err != nil {
			return nil, errors.Wrap(errors.PhaseCall, errors.KindTypeMismatch, err,
				fmt.Sprintf("argument %d of %s", i, ft.Signature()))
		}
	}

	var retBuf *memory.Buffer
	var retAddr uint64
	if ft.Return() != nil {
		lay, err := ft.Return().Layout()
		if err != nil {
			return nil, err
		}
		retBuf, err = b.tracker.Allocate(lay.Size)
		if err != nil {
			return nil, err
		}
		defer retBuf.Release()
		retAddr = retBuf.Addr()
	}

	sig := ft.Signature()
	b.log.Debug("native call",
		zap.Uint64("addr", fnAddr),
		zap.String("sig", sig))

	if err := b.tracker.Space().Invoke(fnAddr, sig, argBuf.Addr(), retAddr); err != nil {
		if goerrors.Is(err, cbridge.ErrFaultPending) {
			if fault := b.faults.Take(); fault != nil {
				b.log.Debug("native call unwound by host fault", zap.Error(fault))
				// Structured errors re-raise unchanged; anything else is
				// tagged as a host fault, keeping identity through Unwrap.
				var se *errors.Error
				if goerrors.As(fault, &se) {
					return nil, fault
				}
				return nil, errors.Wrap(errors.PhaseCall, errors.KindHostFault, fault,
					"host fault unwound the native stack")
			}
		}
		return nil, err
	}

	if ft.Return() == nil {
		return nil, nil
	}
	return env.Codec().Decode(ft.Return(), retAddr)
}

// Bind wraps a host callable as native code: the returned address is
// callable from the native side with the signature ft. The binding stays
// valid until released (or the bridge closes).
func (b *Bridge) Bind(env proxy.Env, fn proxy.HostFunc, ft *ctype.Func) (*Binding, error) {
	offsets, blockSize, err := packOffsets(ft.Params())
	if err != nil {
		return nil, err
	}

	var retSize uint32
	if ft.Return() != nil {
		lay, err := ft.Return().Layout()
		if err != nil {
			return nil, err
		}
		retSize = lay.Size
	}

	bind := &Binding{bridge: b, sig: ft.Signature()}
	trampoline := func(argsAddr, retAddr uint64) error {
		return b.enterHost(env, fn, ft, offsets, blockSize, retSize, argsAddr, retAddr)
	}

	addr, err := b.tracker.Space().NewCallback(bind.sig, trampoline)
	if err != nil {
		return nil, err
	}
	bind.addr = addr
	b.bindings = append(b.bindings, bind)
	b.log.Debug("host callable bound",
		zap.Uint64("addr", addr),
		zap.String("sig", bind.sig))
	return bind, nil
}

// enterHost is the inbound trampoline body: unpack arguments, run the
// host callable, encode its result. Any failure (including a panic in the
// callable) is parked on the fault stack and reported to the address
// space so the native stack unwinds.
func (b *Bridge) enterHost(env proxy.Env, fn proxy.HostFunc, ft *ctype.Func,
	offsets []uint32, blockSize, retSize uint32, argsAddr, retAddr uint64) (err error) {

	defer func() {
		if r := recover(); r != nil {
			err = errors.HostFault(r)
		}
		if err != nil {
			b.faults.Record(err)
			b.log.Debug("host callable faulted", zap.Error(err))
		}
	}()

	argBuf := b.tracker.Wrap(argsAddr, blockSize)
	defer argBuf.Release()

	params := ft.Params()
	args := make([]*proxy.Proxy, len(params))
	for i, pt := range params {
		args[i] = proxy.New(env, pt, memory.Location{Buf: argBuf, Off: offsets[i]})
	}

	result, err := fn(args)
	if err != nil {
		return err
	}

	if ft.Return() == nil || retAddr == 0 {
		return nil
	}
	retBuf := b.tracker.Wrap(retAddr, retSize)
	defer retBuf.Release()
	ret := proxy.New(env, ft.Return(), memory.Location{Buf: retBuf})
	return ret.SetVal(result)
}

// Close releases every live binding.
func (b *Bridge) Close() error {
	var firstErr error
	for _, bind := range b.bindings {
		if err := bind.Release(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	b.bindings = nil
	return firstErr
}

// Binding is a host callable exposed at a native code address.
type Binding struct {
	bridge   *Bridge
	addr     uint64
	sig      string
	released bool
}

// Addr is the native code address of the bound callable.
func (bn *Binding) Addr() uint64 { return bn.addr }

// Release withdraws the binding; native code must not call it afterwards.
func (bn *Binding) Release() error {
	if bn.released {
		return nil
	}
	bn.released = true
	bn.bridge.tracker.Space().ReleaseCallback(bn.addr)
	return nil
}

// packOffsets lays arguments out in a contiguous parameter block at their
// natural alignment.
func packOffsets(params []ctype.Type) ([]uint32, uint32, error) {
	offsets := make([]uint32, len(params))
	var off uint32
	maxAlign := uint32(1)
	for i, pt := range params {
		lay, err := pt.Layout()
		if err != nil {
			return nil, 0, err
		}
		if lay.Align > maxAlign {
			maxAlign = lay.Align
		}
		off = ctype.AlignTo(off, lay.Align)
		offsets[i] = off
		off += lay.Size
	}
	size := ctype.AlignTo(off, maxAlign)
	if size == 0 {
		size = 1
	}
	return offsets, size, nil
}
