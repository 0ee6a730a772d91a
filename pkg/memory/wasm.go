package memory

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// Wasm exposes a window of a WebAssembly guest's linear memory, such as the
// work RAM of an emulator core compiled to wasm. Address 0 maps to Offset
// in the guest memory.
type Wasm struct {
	mem    api.Memory
	offset uint32
	size   uint32
}

// NewWasm wraps mem starting at offset. A size of zero spans the rest of
// the guest memory.
func NewWasm(mem api.Memory, offset, size uint32) (*Wasm, error) {
	total := mem.Size()
	if offset > total {
		return nil, fmt.Errorf("%w: offset %#x beyond guest memory of %#x bytes", ErrOutOfBounds, offset, total)
	}
	if size == 0 {
		size = total - offset
	}
	if err := checkBounds(offset, int(size), total); err != nil {
		return nil, err
	}
	return &Wasm{mem: mem, offset: offset, size: size}, nil
}

func (w *Wasm) ReadAt(p []byte, addr uint32) error {
	if err := checkBounds(addr, len(p), w.size); err != nil {
		return err
	}
	view, ok := w.mem.Read(w.offset+addr, uint32(len(p)))
	if !ok {
		return fmt.Errorf("%w: guest read at %#x", ErrOutOfBounds, w.offset+addr)
	}
	copy(p, view)
	return nil
}

func (w *Wasm) WriteAt(p []byte, addr uint32) error {
	if err := checkBounds(addr, len(p), w.size); err != nil {
		return err
	}
	if !w.mem.Write(w.offset+addr, p) {
		return fmt.Errorf("%w: guest write at %#x", ErrOutOfBounds, w.offset+addr)
	}
	return nil
}

func (w *Wasm) Size() uint32 {
	return w.size
}

// WasmGuest is an instantiated module whose exported memory is inspected
type WasmGuest struct {
	*Wasm
	runtime wazero.Runtime
	module  api.Module
}

// LoadWasm instantiates a wasm binary without imports and wraps the
// exported memory named export ("memory" when empty).
func LoadWasm(ctx context.Context, binary []byte, export string, offset, size uint32) (*WasmGuest, error) {
	if export == "" {
		export = "memory"
	}

	rt := wazero.NewRuntime(ctx)
	mod, err := rt.Instantiate(ctx, binary)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate wasm module: %w", err)
	}

	mem := mod.ExportedMemory(export)
	if mem == nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("wasm module exports no memory %q", export)
	}

	w, err := NewWasm(mem, offset, size)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}

	return &WasmGuest{Wasm: w, runtime: rt, module: mod}, nil
}

// Module returns the instantiated guest module
func (g *WasmGuest) Module() api.Module {
	return g.module
}

// Close releases the guest and its runtime
func (g *WasmGuest) Close(ctx context.Context) error {
	return g.runtime.Close(ctx)
}
