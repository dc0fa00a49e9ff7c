package host

import (
	"testing"

	"github.com/tetratelabs/wazero/api"
)

// GuestModule exposes the underlying wazero module to external tests.
func GuestModule(_ *testing.T, _ *Executor, g *Guest) api.Module {
	return g.module
}
