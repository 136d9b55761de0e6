package gotpl

import "context"

// Handle identifies a foreign-allocated result buffer. The zero handle means
// an absent buffer. For the wazero engine a handle is a pointer into guest
// linear memory; other implementations may use table indices.
type Handle uint32

// RawResult is the buffer pair returned by the foreign entry point. Both
// handles are owned by the engine's allocator until freed through
// FreeResultString. Callers must not hold a RawResult directly; wrap it in an
// OwnedResult immediately.
type RawResult struct {
	Output Handle
	Error  Handle
}

// Engine is the boundary contract of the external template engine.
//
// RenderTemplate is synchronous and blocking. The template and data buffers
// are NUL-terminated UTF-8; the engine reads them to completion before
// returning and does not retain them past the call. Whatever the engine
// reports about the render itself travels inside the returned RawResult; the
// error return is reserved for transport-level faults (trap, out-of-bounds)
// where no result buffers exist.
//
// ReadResult returns a borrowed view of a result buffer's content, valid only
// until the handle is freed. FreeResultString releases a result buffer and
// must be called exactly once per handle; freeing an already-freed handle is
// undefined behavior at the boundary.
type Engine interface {
	RenderTemplate(ctx context.Context, template, data []byte, escapeHTML, missingKeyZero bool) (RawResult, error)
	ReadResult(h Handle) ([]byte, error)
	FreeResultString(h Handle)
}

// MissingKeyPolicy selects the engine's behavior when a template references a
// key absent from the data.
type MissingKeyPolicy int

const (
	// ErrorOnMissing makes the engine fail the render on a missing key.
	ErrorOnMissing MissingKeyPolicy = iota
	// ZeroOnMissing substitutes the zero value for the referenced type and
	// continues.
	ZeroOnMissing
)

func (p MissingKeyPolicy) String() string {
	switch p {
	case ErrorOnMissing:
		return "error"
	case ZeroOnMissing:
		return "zero"
	default:
		return "unknown"
	}
}

// Options is the finalized configuration of one render call. A Renderer
// produces it at render time; it does not change for the duration of the
// call.
type Options struct {
	EscapeHTML bool
	MissingKey MissingKeyPolicy
}
