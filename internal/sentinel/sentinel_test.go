package sentinel

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Message(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err  Error
		want string
	}{
		"plain message": {err: Error("process not running"), want: "process not running"},
		"empty message": {err: Error(""), want: ""},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if got := tc.err.Error(); got != tc.want {
				t.Errorf("Error() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestError_ErrorsIs(t *testing.T) {
	t.Parallel()

	const sentinelErr = Error("not detachable")

	t.Run("matches itself", func(t *testing.T) {
		t.Parallel()

		if !errors.Is(sentinelErr, sentinelErr) {
			t.Error("errors.Is should match an Error against itself")
		}
	})

	t.Run("matches through wrapping", func(t *testing.T) {
		t.Parallel()

		wrapped := fmt.Errorf("stop child: %w", sentinelErr)
		if !errors.Is(wrapped, sentinelErr) {
			t.Error("errors.Is should match an Error through a wrapped chain")
		}
	})

	t.Run("does not match other sentinel", func(t *testing.T) {
		t.Parallel()

		const other = Error("not running")
		if errors.Is(sentinelErr, other) {
			t.Error("errors.Is should not match a different Error")
		}
	})

	t.Run("does not match errors.New with same text", func(t *testing.T) {
		t.Parallel()

		if errors.Is(sentinelErr, errors.New("not detachable")) {
			t.Error("errors.Is should compare identity, not message text")
		}
	})
}

func TestError_UsableAsConst(t *testing.T) {
	t.Parallel()

	// Compiles only if Error can be declared const; errors.New values cannot.
	const errConst = Error("constant error")
	if errConst.Error() != "constant error" {
		t.Error("const Error should return its string value")
	}
}
