package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIncludesInternal(t *testing.T) {
	internal := stdErrors.New("boom")
	err := New("INTERNAL_ERROR", "failed", http.StatusInternalServerError).WithInternal(internal)

	if err.Error() != "failed: boom" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}

func TestWithInternalCopies(t *testing.T) {
	base := New("TEST", "test", 400)
	with := base.WithInternal(stdErrors.New("oops"))

	if with == base {
		t.Fatal("expected WithInternal to return a copy")
	}

	if base.Internal != nil {
		t.Fatal("expected original error to remain unchanged")
	}

	if with.Internal == nil {
		t.Fatal("expected internal error to be set")
	}
}

func TestFromError(t *testing.T) {
	appErr := ErrNotFound
	if out := FromError(appErr); out != appErr {
		t.Fatal("expected FromError to return the same AppError instance")
	}

	raw := stdErrors.New("raw")
	out := FromError(raw)
	if out.Code != ErrInternalServer.Code {
		t.Fatalf("expected internal server code, got %s", out.Code)
	}
	if out.Internal == nil {
		t.Fatal("expected internal error to be attached")
	}
}

func TestWrappedCopiesMatchSentinel(t *testing.T) {
	err := fmt.Errorf("notification service: load: %w", Unavailable(stdErrors.New("db down")))
	if !stdErrors.Is(err, ErrDependencyUnavailable) {
		t.Fatal("expected wrapped dependency error to match sentinel")
	}
	if stdErrors.Is(err, ErrNotFound) {
		t.Fatal("did not expect dependency error to match not found")
	}

	validation := NewValidation("role id is required")
	if !stdErrors.Is(validation, ErrValidation) {
		t.Fatal("expected validation copy to match sentinel")
	}
	if validation.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", validation.StatusCode)
	}
	if ErrValidation.Message == validation.Message {
		t.Fatal("expected WithMessage to leave the sentinel untouched")
	}
}

func TestNewBadRequest(t *testing.T) {
	err := NewBadRequest("invalid payload")
	if err.Code != ErrBadRequest.Code {
		t.Fatalf("expected %s, got %s", ErrBadRequest.Code, err.Code)
	}
	if err.Message != "invalid payload" {
		t.Fatalf("unexpected message: %s", err.Message)
	}
	if err.StatusCode != ErrBadRequest.StatusCode {
		t.Fatalf("unexpected status: %d", err.StatusCode)
	}
}
