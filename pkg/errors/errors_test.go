package errors

import (
	"errors"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "entry file not found")
		if err.Error() != "[NOT_FOUND] entry file not found" {
			t.Errorf("expected [NOT_FOUND] entry file not found, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("exit status 101")
		err := Wrap(original, CodeMetadataError, "cargo metadata failed")
		expected := "[METADATA_ERROR] cargo metadata failed: exit status 101"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeUnresolvedModule, "could not find module")
		if !IsCode(err, CodeUnresolvedModule) {
			t.Error("expected IsCode to return true for CodeUnresolvedModule")
		}
		if IsCode(err, CodeNotFound) {
			t.Error("expected IsCode to return false for CodeNotFound")
		}
	})

	t.Run("IsCodeWithWrapped", func(t *testing.T) {
		original := errors.New("read failed")
		err := Wrap(original, CodeParseError, "parse failure")
		if !IsCode(err, CodeParseError) {
			t.Error("expected IsCode to return true for wrapped CodeParseError")
		}
	})

	t.Run("CodeOf", func(t *testing.T) {
		if CodeOf(New(CodeUnsupportedConstruct, "macro module")) != CodeUnsupportedConstruct {
			t.Error("expected CodeUnsupportedConstruct")
		}
		if CodeOf(errors.New("plain")) != CodeInternal {
			t.Error("expected foreign errors to map to CodeInternal")
		}
	})

	t.Run("WithContext", func(t *testing.T) {
		err := New(CodeUnresolvedModule, "could not find module").WithContext(CtxModule, "foo")
		if err.Context[CtxModule] != "foo" {
			t.Errorf("expected module context foo, got %v", err.Context[CtxModule])
		}
	})
}
