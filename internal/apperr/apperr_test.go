package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		expectKind Kind
	}{
		{name: "Nil error", err: nil, expectKind: ""},
		{name: "Deadline exceeded", err: context.DeadlineExceeded, expectKind: KindTimeout},
		{name: "Wrapped deadline", err: fmt.Errorf("run item: %w", context.DeadlineExceeded), expectKind: KindTimeout},
		{name: "Rate limit text", err: errors.New("gemini: rate limit exceeded"), expectKind: KindRateLimited},
		{name: "Missing api key", err: errors.New("GEMINI_API_KEY is not set, api key required"), expectKind: KindSecret},
		{name: "Provider failure", err: errors.New("ollama generate: connection refused"), expectKind: KindInference},
		{name: "Unclassified", err: errors.New("something odd"), expectKind: KindInternal},
		{name: "Already typed passes through", err: New(KindNotFound, "job missing"), expectKind: KindNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ae := Classify(tc.err)
			if tc.err == nil {
				if ae != nil {
					t.Fatalf("Classify(nil) = %v, want nil", ae)
				}
				return
			}
			if ae.Kind != tc.expectKind {
				t.Errorf("Classify(%v) kind = %q, want %q", tc.err, ae.Kind, tc.expectKind)
			}
			if ae.ErrID == "" {
				t.Errorf("classified error has no error id")
			}
		})
	}
}

func TestClassifyPreservesTypedError(t *testing.T) {
	orig := New(KindValidation, "bad input")
	wrapped := fmt.Errorf("handler: %w", orig)
	got := Classify(wrapped)
	if got.ErrID != orig.ErrID {
		t.Errorf("Classify re-typed an already typed error: got id %s, want %s", got.ErrID, orig.ErrID)
	}
}

func TestErrorIDsAreDistinct(t *testing.T) {
	a := New(KindInternal, "one")
	b := New(KindInternal, "two")
	if a.ErrID == b.ErrID {
		t.Errorf("two errors share an id: %s", a.ErrID)
	}
}

func TestRenderDisclosure(t *testing.T) {
	cause := errors.New("tcp dial failed")
	ae := Wrap(KindInference, "gemini call failed", cause)

	prod := ae.Render(false, "cid-123")
	if prod.Internal != "" || prod.Trace != "" {
		t.Errorf("production render leaked internal detail: %+v", prod)
	}
	if prod.CorrelationID != "cid-123" || prod.ErrorID != ae.ErrID {
		t.Errorf("production render missing identifiers: %+v", prod)
	}
	if prod.Message != userMessages[KindInference] {
		t.Errorf("production message = %q, want stable user message", prod.Message)
	}

	dev := ae.Render(true, "cid-123")
	if dev.Internal != "gemini call failed" {
		t.Errorf("development render internal = %q", dev.Internal)
	}
	if dev.Trace != "tcp dial failed" {
		t.Errorf("development render trace = %q", dev.Trace)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root")
	ae := Wrap(KindExtraction, "parse failed", cause)
	if !errors.Is(ae, cause) {
		t.Errorf("wrapped cause not reachable through errors.Is")
	}
}
