package errors

import (
	"errors"
	"testing"
)

func TestFileError(t *testing.T) {
	err := NewUnsupportedFileError("submission.rs")
	if err.Type != ErrorTypeUnsupportedFile {
		t.Errorf("expected ErrorTypeUnsupportedFile, got %v", err.Type)
	}
	if err.FilePath != "submission.rs" {
		t.Errorf("expected FilePath submission.rs, got %s", err.FilePath)
	}
	if err.Timestamp.IsZero() {
		t.Error("expected non-zero timestamp")
	}
}

func TestDecodeError(t *testing.T) {
	underlying := errors.New("invalid utf-8")
	err := NewDecodeError("bad.py", underlying)
	if !errors.Is(err, underlying) {
		t.Error("expected error to unwrap to underlying")
	}
	want := "decode_error: bad.py: invalid utf-8"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestParseError(t *testing.T) {
	underlying := errors.New("unexpected token")
	err := NewParseError("main.py", 10, 5, underlying)
	if err.Line != 10 || err.Column != 5 {
		t.Errorf("expected line/column 10:5, got %d:%d", err.Line, err.Column)
	}
	want := "parse_error: main.py:10:5: unexpected token"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestInputError(t *testing.T) {
	err := NewInputError("at least two processable files are required, got 1")
	want := "input error: at least two processable files are required, got 1"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestExternalFailure(t *testing.T) {
	underlying := errors.New("rate limited")
	err := NewExternalFailure("github-fetch", underlying)
	if !errors.Is(err, underlying) {
		t.Error("expected error to unwrap to underlying")
	}
	if err.Timestamp.IsZero() {
		t.Error("expected non-zero timestamp")
	}
}

func TestConfigError(t *testing.T) {
	underlying := errors.New("must be non-negative")
	err := NewConfigError("weights", "-0.5", underlying)
	if !errors.Is(err, underlying) {
		t.Error("expected error to unwrap to underlying")
	}
	want := `config error for field weights (value "-0.5"): must be non-negative`
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestMultiError(t *testing.T) {
	err1 := errors.New("error 1")
	err2 := errors.New("error 2")

	multi := NewMultiError([]error{err1, nil, err2, nil})
	if len(multi.Errors) != 2 {
		t.Fatalf("expected 2 errors after filtering nil, got %d", len(multi.Errors))
	}

	if got, want := multi.Error(), "2 errors: [error 1 error 2]"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	single := NewMultiError([]error{err1})
	if single.Error() != "error 1" {
		t.Errorf("expected 'error 1', got %q", single.Error())
	}

	empty := NewMultiError(nil)
	if empty.Error() != "no errors" {
		t.Errorf("expected 'no errors', got %q", empty.Error())
	}

	unwrapped := multi.Unwrap()
	if len(unwrapped) != 2 {
		t.Errorf("expected 2 unwrapped errors, got %d", len(unwrapped))
	}
}
