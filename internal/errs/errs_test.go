package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{Auth("invalid email or password"), KindAuth},
		{Validation("group name too short"), KindValidation},
		{NotFound("request not found"), KindNotFound},
		{Conflict("contact request already exists"), KindConflict},
		{Authorization("only the receiver can accept"), KindAuthorization},
		{Remote("failed to insert message", errors.New("disk I/O error")), KindRemote},
		{errors.New("plain"), KindRemote},
	}

	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Errorf("KindOf(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("accept request: %w", NotFound("request not found"))
	if !IsKind(err, KindNotFound) {
		t.Fatalf("wrapped error lost its kind: %v", err)
	}
	if IsKind(err, KindConflict) {
		t.Fatalf("wrapped error matched wrong kind")
	}
}

func TestRemoteUnwraps(t *testing.T) {
	cause := errors.New("database is locked")
	err := Remote("failed to delete chat", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("Remote did not wrap cause")
	}
}
