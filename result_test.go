package gotpl_test

import (
	stderrors "errors"
	"testing"

	"github.com/moyanj/gotpl"
	"github.com/moyanj/gotpl/enginetest"
	"github.com/moyanj/gotpl/errors"
)

func TestOwnedResult_Success(t *testing.T) {
	stub := enginetest.NewStub()
	result := gotpl.NewOwnedResult(stub, stub.NewResult("hello", ""))
	defer result.Release()

	out, err := result.Outcome()
	if err != nil {
		t.Fatalf("Outcome error: %v", err)
	}
	if out != "hello" {
		t.Errorf("got %q, want %q", out, "hello")
	}
}

func TestOwnedResult_ErrorWinsOverOutput(t *testing.T) {
	stub := enginetest.NewStub()
	result := gotpl.NewOwnedResult(stub, stub.NewResult("partial output", "engine exploded"))
	defer result.Release()

	_, err := result.Outcome()
	if err == nil {
		t.Fatal("expected error when error buffer is non-empty")
	}
	if !errors.IsExecution(err) {
		t.Errorf("expected execution category, got %v", err)
	}

	var typed *errors.Error
	if !stderrors.As(err, &typed) {
		t.Fatal("expected *errors.Error")
	}
	if typed.Message() != "engine exploded" {
		t.Errorf("message = %q, want verbatim engine message", typed.Message())
	}
}

func TestOwnedResult_ReleaseExactlyOnce(t *testing.T) {
	stub := enginetest.NewStub()
	result := gotpl.NewOwnedResult(stub, stub.NewResult("out", ""))

	result.Release()
	result.Release()
	result.Release()

	if got := stub.Freed(); got != 2 {
		t.Errorf("freed %d buffers, want 2", got)
	}
	if got := stub.Live(); got != 0 {
		t.Errorf("%d live buffers after release, want 0", got)
	}
}

func TestOwnedResult_NilSafeRelease(t *testing.T) {
	var result *gotpl.OwnedResult
	result.Release()
}

func TestOwnedResult_ViewAfterReleasePanics(t *testing.T) {
	stub := enginetest.NewStub()
	result := gotpl.NewOwnedResult(stub, stub.NewResult("out", ""))
	result.Release()

	defer func() {
		if recover() == nil {
			t.Error("expected panic reading a view after release")
		}
	}()
	result.Output()
}

func TestOwnedResult_ReleasedOnPanicPath(t *testing.T) {
	stub := enginetest.NewStub()

	func() {
		defer func() { recover() }()

		result := gotpl.NewOwnedResult(stub, stub.NewResult("out", ""))
		defer result.Release()
		panic("translation went sideways")
	}()

	if got := stub.Live(); got != 0 {
		t.Errorf("%d live buffers after panic unwinding, want 0", got)
	}
	if got := stub.Freed(); got != 2 {
		t.Errorf("freed %d buffers, want 2", got)
	}
}

func TestOwnedResult_OutcomeCopiesBeforeRelease(t *testing.T) {
	stub := enginetest.NewStub()
	result := gotpl.NewOwnedResult(stub, stub.NewResult("survives release", ""))

	out, err := result.Outcome()
	if err != nil {
		t.Fatalf("Outcome error: %v", err)
	}
	result.Release()

	if out != "survives release" {
		t.Errorf("outcome invalidated by release: %q", out)
	}
}
