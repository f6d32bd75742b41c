package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestWithDetailKeepsIdentity(t *testing.T) {
	err := ErrAmountMismatch.WithDetail("got %s, want %s", "10", "50")

	if !errors.Is(err, ErrAmountMismatch) {
		t.Error("expected detailed error to match its sentinel")
	}
	if errors.Is(err, ErrDuplicateContribution) {
		t.Error("expected detailed error not to match a different sentinel")
	}
	if err.Error() != "amount does not match the group contribution: got 10, want 50" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", ErrAmountMismatch, KindValidation},
		{"wrapped conflict", fmt.Errorf("record: %w", ErrDuplicateContribution), KindStateConflict},
		{"invariant", ErrLastAdmin.WithDetail("member %s", "m1"), KindInvariantViolation},
		{"not found", NotFound("group", "g1"), KindNotFound},
		{"plain error", errors.New("boom"), KindUnknown},
		{"nil", nil, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}
