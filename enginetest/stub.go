// Package enginetest provides an instrumented in-process implementation of
// the gotpl.Engine boundary contract for tests.
//
// The stub renders with Go's text/template and html/template, matching the
// semantics of the real engine, and keeps a handle table with allocation,
// free and call counters so tests can assert the bridge's ownership
// discipline: every render allocates exactly two buffers, every buffer is
// freed exactly once, and a double free or use after free panics immediately
// instead of corrupting memory silently.
package enginetest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"sync"
	texttemplate "text/template"

	"github.com/moyanj/gotpl"
)

// Stub is an instrumented in-process engine. The zero value is not usable;
// create one with NewStub. Safe for concurrent use.
type Stub struct {
	mu      sync.Mutex
	buffers map[gotpl.Handle][]byte
	next    gotpl.Handle
	allocs  int
	frees   int
	calls   int
}

// NewStub creates an empty stub engine.
func NewStub() *Stub {
	return &Stub{
		buffers: make(map[gotpl.Handle][]byte),
		next:    1,
	}
}

// RenderTemplate renders the template against the JSON data, honoring both
// configuration flags, and returns a freshly allocated buffer pair. The error
// buffer is allocated even when empty, mirroring the real engine, so every
// call produces exactly two handles to free.
func (s *Stub) RenderTemplate(_ context.Context, template, data []byte, escapeHTML, missingKeyZero bool) (gotpl.RawResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++

	output, errText := render(cut(template), cut(data), escapeHTML, missingKeyZero)
	return gotpl.RawResult{
		Output: s.alloc([]byte(output)),
		Error:  s.alloc([]byte(errText)),
	}, nil
}

// ReadResult returns the content of a live handle. Reading a freed or unknown
// handle panics: it would be a read of released foreign memory.
func (s *Stub) ReadResult(h gotpl.Handle) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h == 0 {
		return nil, nil
	}
	buf, ok := s.buffers[h]
	if !ok {
		panic(fmt.Sprintf("enginetest: read of freed or unknown handle %d", h))
	}
	return buf, nil
}

// FreeResultString releases a handle. Freeing the same handle twice panics:
// at the real boundary that is undefined behavior and must never happen.
func (s *Stub) FreeResultString(h gotpl.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h == 0 {
		return
	}
	if _, ok := s.buffers[h]; !ok {
		panic(fmt.Sprintf("enginetest: double free of handle %d", h))
	}
	delete(s.buffers, h)
	s.frees++
}

// NewResult allocates a result pair directly, bypassing rendering. Tests use
// it to construct states the renderer cannot produce, such as a non-empty
// error buffer alongside a non-empty output buffer.
func (s *Stub) NewResult(output, errText string) gotpl.RawResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	return gotpl.RawResult{
		Output: s.alloc([]byte(output)),
		Error:  s.alloc([]byte(errText)),
	}
}

// Allocated returns the total number of buffers handed out.
func (s *Stub) Allocated() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allocs
}

// Freed returns the total number of buffers released.
func (s *Stub) Freed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frees
}

// RenderCalls returns how many times the entry point was invoked.
func (s *Stub) RenderCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Live returns the number of handles allocated but not yet freed.
func (s *Stub) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffers)
}

// alloc stores a buffer and returns its handle. Callers hold s.mu.
func (s *Stub) alloc(buf []byte) gotpl.Handle {
	h := s.next
	s.next++
	s.buffers[h] = buf
	s.allocs++
	return h
}

// cut strips the NUL terminator from a marshaled boundary buffer.
func cut(buf []byte) string {
	if len(buf) == 0 || buf[len(buf)-1] != 0 {
		panic("enginetest: input buffer is not NUL-terminated")
	}
	if i := bytes.IndexByte(buf, 0); i != len(buf)-1 {
		panic("enginetest: input buffer contains interior NUL")
	}
	return string(buf[:len(buf)-1])
}

// render mirrors the real engine: unmarshal the JSON payload, parse the
// template with the selected missing-key option, execute, and report any
// failure as an error string rather than through a separate channel.
func render(templateText, jsonData string, escapeHTML, missingKeyZero bool) (output, errText string) {
	var data any
	if err := json.Unmarshal([]byte(jsonData), &data); err != nil {
		return "", fmt.Sprintf("failed to unmarshal JSON data: %v", err)
	}

	option := "missingkey=error"
	if missingKeyZero {
		option = "missingkey=zero"
	}

	var buf bytes.Buffer
	if escapeHTML {
		tmpl, err := htmltemplate.New("engine").Option(option).Parse(templateText)
		if err != nil {
			return "", fmt.Sprintf("failed to parse template: %v", err)
		}
		if err := tmpl.Execute(&buf, data); err != nil {
			return "", fmt.Sprintf("failed to execute template: %v", err)
		}
	} else {
		tmpl, err := texttemplate.New("engine").Option(option).Parse(templateText)
		if err != nil {
			return "", fmt.Sprintf("failed to parse template: %v", err)
		}
		if err := tmpl.Execute(&buf, data); err != nil {
			return "", fmt.Sprintf("failed to execute template: %v", err)
		}
	}
	return buf.String(), ""
}

// Compile-time check that Stub implements the boundary contract.
var _ gotpl.Engine = (*Stub)(nil)
