package gotpl

import "github.com/moyanj/gotpl/errors"

// OwnedResult takes exclusive ownership of a RawResult. It guarantees that
// the engine's deallocation function is invoked on both handles exactly once,
// on every control-flow exit: arrange release with defer immediately after
// construction so normal returns, early error returns and panics all pass
// through it.
//
// An OwnedResult is a single owner. It must not be copied; pass it by pointer
// or borrow its views. Views are valid only while the guard is alive; reading
// one after Release panics rather than touching freed foreign memory.
type OwnedResult struct {
	engine   Engine
	raw      RawResult
	released bool
}

// NewOwnedResult wraps a RawResult returned by engine. The guard owns both
// handles from this point on.
func NewOwnedResult(engine Engine, raw RawResult) *OwnedResult {
	return &OwnedResult{engine: engine, raw: raw}
}

// Output returns a borrowed view of the engine's output buffer. The view is
// invalidated by Release.
func (r *OwnedResult) Output() ([]byte, error) {
	r.mustBeLive()
	return r.engine.ReadResult(r.raw.Output)
}

// ErrMessage returns a borrowed view of the engine's error buffer. Empty
// means the render succeeded. The view is invalidated by Release.
func (r *OwnedResult) ErrMessage() ([]byte, error) {
	r.mustBeLive()
	return r.engine.ReadResult(r.raw.Error)
}

// Release frees both handles through the engine. It is idempotent and
// nil-safe: the first call frees, every later call is a no-op, so each handle
// is released exactly once. Absent (zero) handles are passed through to the
// engine, which treats them as empty buffers.
func (r *OwnedResult) Release() {
	if r == nil || r.released {
		return
	}
	r.released = true
	r.engine.FreeResultString(r.raw.Output)
	r.engine.FreeResultString(r.raw.Error)
}

// Outcome translates the raw result into the final typed outcome. A
// non-empty error buffer always wins, regardless of the output buffer's
// content, and its message is copied out verbatim as an execution error.
// Otherwise the output buffer is copied into an owned string. All copying
// completes before the guard is released, so the returned values never borrow
// from freed memory.
func (r *OwnedResult) Outcome() (string, error) {
	errView, err := r.ErrMessage()
	if err != nil {
		return "", err
	}
	if len(errView) > 0 {
		return "", errors.Execution(string(errView))
	}

	out, err := r.Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (r *OwnedResult) mustBeLive() {
	if r.released {
		panic("gotpl: result view used after release")
	}
}
