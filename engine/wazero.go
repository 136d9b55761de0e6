package engine

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/moyanj/gotpl"
	"github.com/moyanj/gotpl/errors"
)

// Export names of the engine module's fixed contract. The allocator accepts
// legacy names as fallbacks so engines built with plain C toolchains link
// without an export shim.
const (
	exportRender  = "render_template"
	exportFree    = "free_result_string"
	exportAlloc   = "allocate"
	exportDealloc = "deallocate"
	exportMemory  = "memory"

	legacyAlloc   = "malloc"
	legacyDealloc = "free"
)

// Config holds configuration for engine creation.
type Config struct {
	// MemoryLimitPages caps guest memory in 64KiB pages. 0 means the wazero
	// default.
	MemoryLimitPages uint32

	// Name names the instantiated guest module. Empty means anonymous.
	Name string
}

// Engine hosts the template engine as a wazero guest module and implements
// the gotpl.Engine boundary contract against it.
//
// A single guest instance is not reentrant, so all boundary operations are
// serialized by an internal mutex. Concurrent render calls from independent
// goroutines are safe but execute one at a time.
type Engine struct {
	runtime   wazero.Runtime
	module    api.Module
	memory    api.Memory
	fnRender  api.Function
	fnFree    api.Function
	fnAlloc   api.Function
	fnDealloc api.Function
	mu        sync.Mutex
	closed    bool
}

// NewEngine compiles and instantiates the engine wasm module and validates
// its exports against the boundary contract.
func NewEngine(ctx context.Context, wasmBytes []byte, cfg *Config) (*Engine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg != nil && cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	compiled, err := runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		runtime.Close(ctx)
		return nil, errors.Trap("compile engine module", err)
	}

	modCfg := wazero.NewModuleConfig().WithName("")
	if cfg != nil && cfg.Name != "" {
		modCfg = modCfg.WithName(cfg.Name)
	}
	module, err := runtime.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		runtime.Close(ctx)
		return nil, errors.Trap("instantiate engine module", err)
	}

	e := &Engine{runtime: runtime, module: module}

	e.memory = module.Memory()
	if e.memory == nil {
		runtime.Close(ctx)
		return nil, errors.NotFound("export", exportMemory)
	}

	if e.fnRender = module.ExportedFunction(exportRender); e.fnRender == nil {
		runtime.Close(ctx)
		return nil, errors.NotFound("export", exportRender)
	}
	if e.fnFree = module.ExportedFunction(exportFree); e.fnFree == nil {
		runtime.Close(ctx)
		return nil, errors.NotFound("export", exportFree)
	}

	e.fnAlloc = module.ExportedFunction(exportAlloc)
	if e.fnAlloc == nil {
		e.fnAlloc = module.ExportedFunction(legacyAlloc)
	}
	if e.fnAlloc == nil {
		runtime.Close(ctx)
		return nil, errors.NotFound("export", exportAlloc)
	}

	// Input deallocation is best-effort: engines without it leak input
	// buffers into the guest's own allocator, which stays inside the guest.
	e.fnDealloc = module.ExportedFunction(exportDealloc)
	if e.fnDealloc == nil {
		e.fnDealloc = module.ExportedFunction(legacyDealloc)
	}

	return e, nil
}

// RenderTemplate places both marshaled buffers in guest memory, invokes the
// engine's entry point and unpacks the returned buffer pair. The input
// buffers are released before returning; the engine only reads them during
// the call. Ownership of both result handles transfers to the caller.
func (e *Engine) RenderTemplate(ctx context.Context, template, data []byte, escapeHTML, missingKeyZero bool) (gotpl.RawResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return gotpl.RawResult{}, errors.Closed("engine")
	}

	templatePtr, err := e.writeInput(ctx, template)
	if err != nil {
		return gotpl.RawResult{}, err
	}
	defer e.freeInput(ctx, templatePtr)

	dataPtr, err := e.writeInput(ctx, data)
	if err != nil {
		return gotpl.RawResult{}, err
	}
	defer e.freeInput(ctx, dataPtr)

	results, err := e.fnRender.Call(ctx,
		uint64(templatePtr), uint64(dataPtr), boolArg(escapeHTML), boolArg(missingKeyZero))
	if err != nil {
		return gotpl.RawResult{}, errors.Trap(exportRender, err)
	}
	if len(results) != 1 {
		return gotpl.RawResult{}, errors.InvalidData(errors.PhaseBoundary,
			fmt.Sprintf("%s returned %d values, want 1", exportRender, len(results)))
	}

	// Output handle in the high 32 bits, error handle in the low 32 bits.
	packed := results[0]
	return gotpl.RawResult{
		Output: gotpl.Handle(packed >> 32),
		Error:  gotpl.Handle(uint32(packed)),
	}, nil
}

// ReadResult returns a borrowed view of the NUL-terminated guest string at h.
// The view aliases guest memory and is valid only until the handle is freed
// or the guest reuses the region.
func (e *Engine) ReadResult(h gotpl.Handle) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, errors.Closed("engine")
	}
	if h == 0 {
		return nil, nil
	}

	ptr := uint32(h)
	size := e.memory.Size()
	if ptr >= size {
		return nil, errors.InvalidData(errors.PhaseBoundary,
			fmt.Sprintf("result pointer %d beyond memory size %d", ptr, size))
	}

	view, ok := e.memory.Read(ptr, size-ptr)
	if !ok {
		return nil, errors.InvalidData(errors.PhaseBoundary,
			fmt.Sprintf("result read out of bounds at %d", ptr))
	}
	end := bytes.IndexByte(view, 0)
	if end < 0 {
		return nil, errors.InvalidData(errors.PhaseBoundary,
			fmt.Sprintf("unterminated result string at %d", ptr))
	}
	return view[:end], nil
}

// FreeResultString releases a result buffer previously returned by the
// engine. The zero handle is the empty buffer and needs no guest call.
// Failures are logged rather than returned; there is nothing a caller can do
// about a failed free beyond not retrying it.
func (e *Engine) FreeResultString(h gotpl.Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || h == 0 {
		return
	}
	if _, err := e.fnFree.Call(context.Background(), uint64(h)); err != nil {
		Logger().Warn("free_result_string failed",
			zap.Uint32("ptr", uint32(h)),
			zap.Error(err))
	}
}

// Close releases the guest instance and the wazero runtime. All outstanding
// result handles must be released first.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	return e.runtime.Close(ctx)
}

// writeInput allocates guest memory for buf and copies it in.
func (e *Engine) writeInput(ctx context.Context, buf []byte) (uint32, error) {
	results, err := e.fnAlloc.Call(ctx, uint64(len(buf)))
	if err != nil {
		return 0, errors.Trap("allocate input buffer", err)
	}
	if len(results) != 1 || uint32(results[0]) == 0 {
		return 0, errors.InvalidData(errors.PhaseBoundary,
			fmt.Sprintf("allocate(%d) returned no memory", len(buf)))
	}
	ptr := uint32(results[0])
	if !e.memory.Write(ptr, buf) {
		e.freeInput(ctx, ptr)
		return 0, errors.InvalidData(errors.PhaseBoundary,
			fmt.Sprintf("input write out of bounds: ptr=%d len=%d", ptr, len(buf)))
	}
	return ptr, nil
}

func (e *Engine) freeInput(ctx context.Context, ptr uint32) {
	if e.fnDealloc == nil || ptr == 0 {
		return
	}
	if _, err := e.fnDealloc.Call(ctx, uint64(ptr)); err != nil {
		Logger().Warn("deallocate input buffer failed",
			zap.Uint32("ptr", ptr),
			zap.Error(err))
	}
}

func boolArg(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// Compile-time check that Engine implements the boundary contract.
var _ gotpl.Engine = (*Engine)(nil)
