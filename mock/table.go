package mock

import (
	"sort"

	"go.uber.org/zap"

	"github.com/wippyai/cbridge/errors"
	"github.com/wippyai/cbridge/proxy"
)

// Table routes calls to native symbols that have no native
// implementation. Every unresolved function symbol gets a stub bound at
// load time; the stub consults the table at call time, so handlers can be
// installed, replaced and removed while the environment is live. Calling
// a stub with no handler fails with unresolved_symbol, which identifies
// the missing function without crashing the native side.
type Table struct {
	log      *zap.Logger
	handlers map[string]proxy.HostFunc
}

func NewTable(log *zap.Logger) *Table {
	if log == nil {
		log = zap.NewNop()
	}
	return &Table{
		log:      log,
		handlers: make(map[string]proxy.HostFunc),
	}
}

// Install sets the handler for name, replacing any previous one.
func (t *Table) Install(name string, fn proxy.HostFunc) {
	t.handlers[name] = fn
	t.log.Debug("mock handler installed", zap.String("symbol", name))
}

// Remove drops the handler for name; later calls fail again with
// unresolved_symbol.
func (t *Table) Remove(name string) {
	delete(t.handlers, name)
	t.log.Debug("mock handler removed", zap.String("symbol", name))
}

// Lookup returns the current handler for name.
func (t *Table) Lookup(name string) (proxy.HostFunc, bool) {
	fn, ok := t.handlers[name]
	return fn, ok
}

// Names lists the symbols that currently have handlers, sorted.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.handlers))
	for name := range t.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stub builds the host callable bound in place of the unresolved symbol
// name. Dispatch happens per call, never at bind time.
func (t *Table) Stub(name string) proxy.HostFunc {
	return func(args []*proxy.Proxy) (any, error) {
		fn, ok := t.handlers[name]
		if !ok {
			return nil, errors.UnresolvedSymbol(name)
		}
		return fn(args)
	}
}
