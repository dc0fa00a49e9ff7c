package module

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	nmerrors "github.com/python-project-templates/nativemod/domain/errors"
)

// InitFunc is the entry point shape: it receives the host runtime and the
// construction handle and reports success or failure.
type InitFunc func(rt Runtime, m *Builder) error

// State is the registration lifecycle of a Definition.
type State int32

const (
	// StateUnregistered means Load has not completed yet.
	StateUnregistered State = iota
	// StateRegistered means Load produced a Record.
	StateRegistered
	// StateFailed means Load failed; the module is never exposed.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateRegistered:
		return "registered"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Definition is a declared module identity and its entry point.
type Definition struct {
	err    error
	init   InitFunc
	record *Record
	name   string
	once   sync.Once
	state  atomic.Int32
}

// NewDefinition creates a Definition without adding it to the process-wide
// entry point table. Host adapters use it for entry points found outside
// the table, such as plugin symbols.
func NewDefinition(name string, init InitFunc) *Definition {
	return &Definition{name: name, init: init}
}

// Name returns the module name.
func (d *Definition) Name() string {
	return d.name
}

// EntryPoint returns the entry point symbol, see EntryPointName.
func (d *Definition) EntryPoint() string {
	return EntryPointName(d.name)
}

// State returns the current lifecycle state.
func (d *Definition) State() State {
	return State(d.state.Load())
}

// Load runs the entry point exactly once and returns the finalized Record.
// Later calls, from any host, return the same Record or the same
// *errors.LoadError without running the entry point again.
func (d *Definition) Load(rt Runtime) (*Record, error) {
	d.once.Do(func() {
		if rt == nil {
			rt = NamedRuntime(DefaultRuntime)
		}
		d.record, d.err = d.load(rt)
		if d.err != nil {
			d.state.Store(int32(StateFailed))
			return
		}
		d.state.Store(int32(StateRegistered))
	})
	return d.record, d.err
}

func (d *Definition) load(rt Runtime) (*Record, error) {
	if err := ValidateName(d.name); err != nil {
		return nil, &nmerrors.LoadError{Module: d.name, Err: err}
	}
	if d.init == nil {
		return nil, &nmerrors.LoadError{Module: d.name, Err: fmt.Errorf("no entry point")}
	}

	b := newBuilder(d.name)
	initErr := runInit(d.init, rt, b)
	b.closed = true

	// An attachment failure precedes whatever the entry point returned.
	if err := b.Err(); err != nil {
		return nil, &nmerrors.LoadError{Module: d.name, Err: err}
	}
	if initErr != nil {
		return nil, &nmerrors.LoadError{Module: d.name, Err: initErr}
	}
	return b.finalize(), nil
}

func runInit(init InitFunc, rt Runtime, b *Builder) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("entry point panicked: %v", r)
		}
	}()
	return init(rt, b)
}

var (
	entryMu sync.RWMutex
	entries = make(map[string]*Definition) // keyed by entry point symbol
)

// Define declares the entry point of module name in the process-wide table
// and returns its Definition. It panics if init is nil or if the entry point
// symbol is already defined, in the manner of database/sql.Register. Distinct
// names can share a symbol (see EntryPointName) and collide here too.
func Define(name string, init InitFunc) *Definition {
	if init == nil {
		panic("module: Define entry point is nil for " + name)
	}
	d := NewDefinition(name, init)
	symbol := d.EntryPoint()

	entryMu.Lock()
	defer entryMu.Unlock()
	if prev, dup := entries[symbol]; dup {
		if prev.name != name {
			panic(fmt.Sprintf("module: Define(%q) collides with module %q: both use entry point %s", name, prev.name, symbol))
		}
		panic("module: Define called twice for entry point " + symbol)
	}
	entries[symbol] = d
	return d
}

// Lookup returns the Definition declared for module name.
func Lookup(name string) (*Definition, bool) {
	d, ok := LookupEntryPoint(EntryPointName(name))
	if !ok || d.name != name {
		return nil, false
	}
	return d, true
}

// LookupEntryPoint returns the Definition declared under an entry point
// symbol such as "InitProject".
func LookupEntryPoint(symbol string) (*Definition, bool) {
	entryMu.RLock()
	defer entryMu.RUnlock()
	d, ok := entries[symbol]
	return d, ok
}

// Names returns the sorted names of all defined modules.
func Names() []string {
	entryMu.RLock()
	defer entryMu.RUnlock()
	names := make([]string, 0, len(entries))
	for _, d := range entries {
		names = append(names, d.name)
	}
	sort.Strings(names)
	return names
}
