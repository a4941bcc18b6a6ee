package errortypes

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewFormatsMessage(t *testing.T) {
	err := New(KindInvalidArgument, "bad value %d", 42)
	if err.Kind != KindInvalidArgument {
		t.Errorf("kind = %q, want %q", err.Kind, KindInvalidArgument)
	}
	if err.Message != "bad value 42" {
		t.Errorf("message = %q", err.Message)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("dial refused")
	err := Connection(cause, "reaching collection store")

	if !errors.Is(err, cause) {
		t.Error("wrapped error should match its cause with errors.Is")
	}
	if got := err.Error(); got == "" {
		t.Error("Error() returned empty string")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"configuration", Configuration("missing endpoint"), KindConfiguration},
		{"connection", Connection(errors.New("refused"), "dial"), KindConnection},
		{"embedding", EmbeddingService(errors.New("503"), "embed"), KindEmbeddingService},
		{"generation", GenerationService(errors.New("503"), "complete"), KindGenerationService},
		{"invalid argument", InvalidArgument("top_k"), KindInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKindOfThroughWrapping(t *testing.T) {
	inner := InvalidArgument("empty project")
	outer := fmt.Errorf("handling request: %w", inner)

	if !IsKind(outer, KindInvalidArgument) {
		t.Error("IsKind should see through fmt.Errorf wrapping")
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("KindOf of a plain error should be empty")
	}
}
