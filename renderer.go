package gotpl

import (
	"context"

	"github.com/moyanj/gotpl/errors"
)

// Renderer configures and executes a single render call against an Engine.
// Setters chain and may be called in any order before Render; the options are
// finalized into an immutable Options value when Render runs. The renderer
// borrows the template text and data value; it copies nothing until the call.
//
// Defaults are conservative: HTML escaping is on (protects against markup
// injection when the output lands in HTML) and a missing key fails the render
// (surfaces data/template mismatches instead of silently producing wrong
// output).
type Renderer struct {
	engine   Engine
	template string
	data     any
	opts     Options
}

// New creates a renderer for one template/data pair.
func New(engine Engine, template string, data any) *Renderer {
	return &Renderer{
		engine:   engine,
		template: template,
		data:     data,
		opts: Options{
			EscapeHTML: true,
			MissingKey: ErrorOnMissing,
		},
	}
}

// EscapeHTML sets whether output characters meaningful to HTML markup
// (<, >, &, ', ") are escaped. Defaults to true.
func (r *Renderer) EscapeHTML(escape bool) *Renderer {
	r.opts.EscapeHTML = escape
	return r
}

// OnMissingKey sets the engine's behavior when the template references a key
// absent from the data. Defaults to ErrorOnMissing.
func (r *Renderer) OnMissingKey(p MissingKeyPolicy) *Renderer {
	r.opts.MissingKey = p
	return r
}

// Options returns the finalized options this renderer would pass to the
// engine.
func (r *Renderer) Options() Options {
	return r.opts
}

// Render runs the full pipeline: marshal the template, serialize and marshal
// the data, invoke the engine, and translate the owned result into the final
// outcome. Invalid-input and serialization failures return before any
// boundary crossing, so no foreign resources exist on those paths. Once the
// engine returns, the result pair is owned by a guard that releases both
// buffers on every exit path, including panics during translation.
//
// The call is synchronous and runs to completion; ctx is handed to the engine
// for its own transport but the render is not interrupted mid-flight.
func (r *Renderer) Render(ctx context.Context) (string, error) {
	template, err := MarshalCString(r.template)
	if err != nil {
		return "", err
	}

	payload, err := Serialize(r.data)
	if err != nil {
		return "", err
	}
	if containsNULEscape(payload) {
		return "", errors.InvalidInput(errors.PhaseMarshal,
			"data contains a NUL byte, which cannot cross the boundary")
	}
	data, err := MarshalCString(payload)
	if err != nil {
		return "", err
	}

	raw, err := r.engine.RenderTemplate(ctx, template, data,
		r.opts.EscapeHTML, r.opts.MissingKey == ZeroOnMissing)
	if err != nil {
		return "", err
	}

	result := NewOwnedResult(r.engine, raw)
	defer result.Release()

	return result.Outcome()
}
