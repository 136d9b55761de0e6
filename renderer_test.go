package gotpl_test

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/moyanj/gotpl"
	"github.com/moyanj/gotpl/enginetest"
	"github.com/moyanj/gotpl/errors"
)

type unserializable struct{}

func (unserializable) MarshalJSON() ([]byte, error) {
	return nil, stderrors.New("deliberate failure")
}

func TestRender_HelloFixture(t *testing.T) {
	ctx := context.Background()
	stub := enginetest.NewStub()

	out, err := gotpl.New(stub,
		"Hello, {{.name}}! You are {{.age}} years old.",
		map[string]any{"name": "MoYan", "age": 30}).
		Render(ctx)
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}

	want := "Hello, MoYan! You are 30 years old."
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestRender_PolicyIrrelevantWithoutMissingKeys(t *testing.T) {
	ctx := context.Background()
	stub := enginetest.NewStub()

	template := "{{.greeting}}, {{.name}}!"
	data := map[string]any{"greeting": "Hi", "name": "MoYan"}

	strict, err := gotpl.New(stub, template, data).
		OnMissingKey(gotpl.ErrorOnMissing).
		Render(ctx)
	if err != nil {
		t.Fatalf("ErrorOnMissing render error: %v", err)
	}

	lax, err := gotpl.New(stub, template, data).
		OnMissingKey(gotpl.ZeroOnMissing).
		Render(ctx)
	if err != nil {
		t.Fatalf("ZeroOnMissing render error: %v", err)
	}

	if strict != lax {
		t.Errorf("policies diverge without missing keys: %q vs %q", strict, lax)
	}
}

func TestRender_MissingKeyPolicies(t *testing.T) {
	ctx := context.Background()
	stub := enginetest.NewStub()

	template := "Name: {{.absent}}"
	data := map[string]any{}

	_, err := gotpl.New(stub, template, data).
		EscapeHTML(false).
		OnMissingKey(gotpl.ErrorOnMissing).
		Render(ctx)
	if err == nil {
		t.Fatal("expected error under ErrorOnMissing")
	}
	if !errors.IsExecution(err) {
		t.Errorf("expected execution category, got %v", err)
	}

	out, err := gotpl.New(stub, template, data).
		EscapeHTML(false).
		OnMissingKey(gotpl.ZeroOnMissing).
		Render(ctx)
	if err != nil {
		t.Fatalf("ZeroOnMissing render error: %v", err)
	}
	if out != "Name: <no value>" {
		t.Errorf("got %q, want zero substitution", out)
	}
}

func TestRender_EscapeToggle(t *testing.T) {
	ctx := context.Background()
	stub := enginetest.NewStub()

	template := "value: {{.v}}"
	data := map[string]any{"v": `<">&'`}

	rawOut, err := gotpl.New(stub, template, data).
		EscapeHTML(false).
		Render(ctx)
	if err != nil {
		t.Fatalf("raw render error: %v", err)
	}
	if rawOut != `value: <">&'` {
		t.Errorf("raw output = %q", rawOut)
	}

	escaped, err := gotpl.New(stub, template, data).
		EscapeHTML(true).
		Render(ctx)
	if err != nil {
		t.Fatalf("escaped render error: %v", err)
	}
	if escaped != "value: &lt;&#34;&gt;&amp;&#39;" {
		t.Errorf("escaped output = %q", escaped)
	}

	// Only the escaped characters change; the surrounding bytes do not.
	if !strings.HasPrefix(rawOut, "value: ") || !strings.HasPrefix(escaped, "value: ") {
		t.Error("escaping touched bytes outside the escapable set")
	}
}

func TestRender_InvalidTemplate(t *testing.T) {
	ctx := context.Background()
	stub := enginetest.NewStub()

	_, err := gotpl.New(stub, "Invalid {{.Template", map[string]any{}).Render(ctx)
	if err == nil {
		t.Fatal("expected error for unterminated directive")
	}
	if !errors.IsExecution(err) {
		t.Errorf("expected execution category, got %v", err)
	}

	var typed *errors.Error
	if !stderrors.As(err, &typed) {
		t.Fatal("expected *errors.Error")
	}
	if !strings.Contains(typed.Message(), "parse") {
		t.Errorf("expected parse failure in message, got %q", typed.Message())
	}
}

func TestRender_NULInTemplate(t *testing.T) {
	ctx := context.Background()
	stub := enginetest.NewStub()

	_, err := gotpl.New(stub, "Hello\x00World", map[string]any{}).Render(ctx)
	if err == nil {
		t.Fatal("expected error for NUL in template")
	}
	if !errors.IsInvalidInput(err) {
		t.Errorf("expected invalid-input category, got %v", err)
	}
	if got := stub.RenderCalls(); got != 0 {
		t.Errorf("engine invoked %d times, want 0", got)
	}
}

func TestRender_NULInDataValue(t *testing.T) {
	ctx := context.Background()
	stub := enginetest.NewStub()

	_, err := gotpl.New(stub, "{{.v}}", map[string]any{"v": "a\x00b"}).Render(ctx)
	if err == nil {
		t.Fatal("expected error for NUL inside data")
	}
	if !errors.IsInvalidInput(err) {
		t.Errorf("expected invalid-input category, got %v", err)
	}
	if got := stub.RenderCalls(); got != 0 {
		t.Errorf("engine invoked %d times, want 0", got)
	}
}

func TestRender_SerializationFailureSkipsEngine(t *testing.T) {
	ctx := context.Background()
	stub := enginetest.NewStub()

	_, err := gotpl.New(stub, "{{.}}", unserializable{}).Render(ctx)
	if err == nil {
		t.Fatal("expected serialization error")
	}
	if !errors.IsSerialization(err) {
		t.Errorf("expected serialization category, got %v", err)
	}
	if got := stub.RenderCalls(); got != 0 {
		t.Errorf("engine invoked %d times, want 0", got)
	}
	if got := stub.Allocated(); got != 0 {
		t.Errorf("%d foreign buffers allocated before the boundary, want 0", got)
	}
}

func TestRender_NoLeaksAcrossCalls(t *testing.T) {
	ctx := context.Background()
	stub := enginetest.NewStub()

	const n = 10
	for i := 0; i < n; i++ {
		// Mix successful renders with execution failures; both paths
		// must release their buffer pair.
		template := "Hello, {{.name}}!"
		if i%3 == 0 {
			template = "{{.absent}}"
		}
		gotpl.New(stub, template, map[string]any{"name": "MoYan"}).Render(ctx)
	}

	if got := stub.Allocated(); got != 2*n {
		t.Errorf("allocated %d buffers, want %d", got, 2*n)
	}
	if got := stub.Freed(); got != 2*n {
		t.Errorf("freed %d buffers, want %d", got, 2*n)
	}
	if got := stub.Live(); got != 0 {
		t.Errorf("%d buffers leaked", got)
	}
}

func TestRenderer_Defaults(t *testing.T) {
	r := gotpl.New(enginetest.NewStub(), "x", nil)

	opts := r.Options()
	if !opts.EscapeHTML {
		t.Error("EscapeHTML should default to true")
	}
	if opts.MissingKey != gotpl.ErrorOnMissing {
		t.Errorf("MissingKey defaults to %v, want ErrorOnMissing", opts.MissingKey)
	}
}

func TestRenderer_ChainingAndFinalizedOptions(t *testing.T) {
	r := gotpl.New(enginetest.NewStub(), "x", nil).
		EscapeHTML(false).
		OnMissingKey(gotpl.ZeroOnMissing)

	opts := r.Options()
	if opts.EscapeHTML {
		t.Error("EscapeHTML not applied")
	}
	if opts.MissingKey != gotpl.ZeroOnMissing {
		t.Error("MissingKey not applied")
	}

	// The finalized Options value is a copy; later setter calls do not
	// mutate it.
	r.EscapeHTML(true)
	if opts.EscapeHTML {
		t.Error("finalized options mutated by a later setter")
	}
}

func TestMissingKeyPolicy_String(t *testing.T) {
	if gotpl.ErrorOnMissing.String() != "error" {
		t.Errorf("ErrorOnMissing = %q", gotpl.ErrorOnMissing.String())
	}
	if gotpl.ZeroOnMissing.String() != "zero" {
		t.Errorf("ZeroOnMissing = %q", gotpl.ZeroOnMissing.String())
	}
	if gotpl.MissingKeyPolicy(42).String() != "unknown" {
		t.Errorf("out-of-range policy = %q", gotpl.MissingKeyPolicy(42).String())
	}
}
