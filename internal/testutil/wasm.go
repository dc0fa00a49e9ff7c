package testutil

// AllocatorHeapBase is the first address handed out by a test guest's
// allocate export.
const AllocatorHeapBase = 1024

// GuestImport is a host function a test guest imports. The guest exports a
// trampoline under Export with the same (i64) -> i64 signature that forwards
// its argument to the import and returns the import's result.
type GuestImport struct {
	Module string
	Name   string
	Export string
}

// AllocatorGuest returns a guest with one page of exported memory and a bump
// allocator export, and nothing else.
func AllocatorGuest() []byte {
	return Guest()
}

// HelloGuest returns a guest importing project.hello and exporting it as
// call_hello.
func HelloGuest() []byte {
	return Guest(GuestImport{Module: "project", Name: "hello", Export: "call_hello"})
}

// Guest assembles the binary of a minimal WebAssembly module:
//   - memory "memory" of one page
//   - allocate(i32) -> i32 bumping a heap pointer that starts at AllocatorHeapBase
//   - one imported (i64) -> i64 function and one exported trampoline per import
func Guest(imports ...GuestImport) []byte {
	const (
		typeI64 = 0x7e
		typeI32 = 0x7f
	)

	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	// type 0: (i64) -> i64, type 1: (i32) -> i32
	types := []byte{0x02,
		0x60, 0x01, typeI64, 0x01, typeI64,
		0x60, 0x01, typeI32, 0x01, typeI32,
	}
	out = appendSection(out, 1, types)

	if len(imports) > 0 {
		imp := uleb128(nil, uint32(len(imports)))
		for _, in := range imports {
			imp = appendName(imp, in.Module)
			imp = appendName(imp, in.Name)
			imp = append(imp, 0x00, 0x00) // func, type 0
		}
		out = appendSection(out, 2, imp)
	}

	funcs := uleb128(nil, uint32(1+len(imports)))
	funcs = append(funcs, 0x01)
	for range imports {
		funcs = append(funcs, 0x00)
	}
	out = appendSection(out, 3, funcs)

	out = appendSection(out, 5, []byte{0x01, 0x00, 0x01})

	// mutable i32 global initialized to AllocatorHeapBase
	global := []byte{0x01, typeI32, 0x01, 0x41}
	global = sleb128(global, AllocatorHeapBase)
	global = append(global, 0x0b)
	out = appendSection(out, 6, global)

	allocIdx := uint32(len(imports))
	exports := uleb128(nil, uint32(2+len(imports)))
	exports = appendName(exports, "memory")
	exports = append(exports, 0x02, 0x00)
	exports = appendName(exports, "allocate")
	exports = append(exports, 0x00)
	exports = uleb128(exports, allocIdx)
	for i, in := range imports {
		exports = appendName(exports, in.Export)
		exports = append(exports, 0x00)
		exports = uleb128(exports, allocIdx+1+uint32(i))
	}
	out = appendSection(out, 7, exports)

	code := uleb128(nil, uint32(1+len(imports)))
	// global.get 0; global.get 0; local.get 0; i32.add; global.set 0; end
	code = appendBody(code, []byte{0x00, 0x23, 0x00, 0x23, 0x00, 0x20, 0x00, 0x6a, 0x24, 0x00, 0x0b})
	for i := range imports {
		// local.get 0; call i; end
		body := []byte{0x00, 0x20, 0x00, 0x10}
		body = uleb128(body, uint32(i))
		body = append(body, 0x0b)
		code = appendBody(code, body)
	}
	return appendSection(out, 10, code)
}

func appendSection(out []byte, id byte, payload []byte) []byte {
	out = append(out, id)
	out = uleb128(out, uint32(len(payload)))
	return append(out, payload...)
}

func appendBody(out, body []byte) []byte {
	out = uleb128(out, uint32(len(body)))
	return append(out, body...)
}

func appendName(out []byte, name string) []byte {
	out = uleb128(out, uint32(len(name)))
	return append(out, name...)
}

func uleb128(out []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func sleb128(out []byte, v int32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}
