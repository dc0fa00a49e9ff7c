package module

// Runtime is the handle of the host runtime performing an import. Entry
// points receive it alongside the Builder.
type Runtime interface {
	// Name identifies the host runtime, such as "go", "wazero" or "goja".
	Name() string
}

// DefaultRuntime is used when Load is called with a nil Runtime.
const DefaultRuntime = "go"

type namedRuntime string

func (r namedRuntime) Name() string {
	return string(r)
}

// NamedRuntime returns a Runtime that only carries a name.
func NamedRuntime(name string) Runtime {
	return namedRuntime(name)
}
