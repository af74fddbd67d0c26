package pipeline

import (
	"errors"
	"fmt"
	"testing"
)

func TestMessageAndKind(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		err     error
		message string
		kind    string
	}{
		{fmt.Errorf("%w: %w", ErrFetch, cause), MsgFetchFailed, "fetch"},
		{fmt.Errorf("%w: %w", ErrStorage, cause), MsgStorageFailed, "storage"},
		{fmt.Errorf("%w: %w", ErrModify, cause), MsgModifyFailed, "modify"},
		{fmt.Errorf("%w: %w", ErrAutomation, cause), MsgAutomationFailed, "automation"},
		{fmt.Errorf("%w: %w", ErrNarration, cause), MsgNarrationFailed, "narration"},
		{cause, "boom", "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			if got := Message(tt.err); got != tt.message {
				t.Errorf("Message() = %q, want %q", got, tt.message)
			}
			if got := Kind(tt.err); got != tt.kind {
				t.Errorf("Kind() = %q, want %q", got, tt.kind)
			}
			if !errors.Is(tt.err, cause) {
				t.Error("cause should remain reachable")
			}
		})
	}
}
