// Package abi implements the packed pointer/length convention used to pass
// byte buffers across the WebAssembly boundary.
package abi

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// PtrHighBits is the shift of the pointer half of a packed value.
const PtrHighBits = 32

// AllocateExport is the guest export the host calls to obtain memory for
// data it hands to the guest.
const AllocateExport = "allocate"

// PackPtrLen packs a pointer and length into a single uint64.
// Pointer is stored in the high 32 bits, length in the low 32 bits.
// Panics if ptr is 0 and length > 0, indicating an invalid state.
func PackPtrLen(ptr, length uint32) uint64 {
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("abi: invalid pack - null pointer (0x0) with non-zero length (%d)", length))
	}
	return (uint64(ptr) << PtrHighBits) | uint64(length)
}

// UnpackPtrLen unpacks a uint64 into its original pointer and length.
func UnpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr = uint32(packed >> PtrHighBits) //nolint:gosec // G115: Packed format stores 32-bit values
	length = uint32(packed)             //nolint:gosec // G115: Packed format stores 32-bit values
	return ptr, length
}

// Read copies the buffer described by packed out of guest memory. A zero
// length yields nil. Buffers larger than limit are rejected when limit > 0.
func Read(mem api.Memory, packed uint64, limit uint32) ([]byte, error) {
	ptr, length := UnpackPtrLen(packed)
	if length == 0 {
		return nil, nil
	}
	if limit > 0 && length > limit {
		return nil, fmt.Errorf("request size %d exceeds maximum %d bytes", length, limit)
	}
	if mem == nil {
		return nil, fmt.Errorf("guest exports no memory")
	}
	view, ok := mem.Read(ptr, length)
	if !ok {
		return nil, fmt.Errorf("read of %d bytes at 0x%x is out of guest memory range", length, ptr)
	}
	// The view aliases guest memory; copy before the guest runs again.
	data := make([]byte, length)
	copy(data, view)
	return data, nil
}

// Write allocates len(data) bytes through the guest's allocate export,
// copies data there and returns the packed pointer and length. Empty data
// is packed as 0 without calling the guest.
func Write(ctx context.Context, mod api.Module, data []byte) (uint64, error) {
	if len(data) == 0 {
		return 0, nil
	}
	allocateFn := mod.ExportedFunction(AllocateExport)
	if allocateFn == nil {
		return 0, fmt.Errorf("guest module missing %q export", AllocateExport)
	}

	results, err := allocateFn.Call(ctx, uint64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("failed to call guest %s: %w", AllocateExport, err)
	}
	if len(results) != 1 {
		return 0, fmt.Errorf("guest %s returned %d values", AllocateExport, len(results))
	}
	ptr := uint32(results[0]) //nolint:gosec // G115: WASM32 pointers are always 32-bit
	if ptr == 0 {
		return 0, fmt.Errorf("guest %s returned a null pointer", AllocateExport)
	}

	mem := mod.Memory()
	if mem == nil || !mem.Write(ptr, data) {
		return 0, fmt.Errorf("failed to write %d bytes to guest memory at 0x%x", len(data), ptr)
	}
	return PackPtrLen(ptr, uint32(len(data))), nil //nolint:gosec // G115: Data length is bounded by config
}
