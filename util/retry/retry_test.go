package retry

import (
	"context"
	"errors"
	"testing"
)

func TestUntilSucceeds(t *testing.T) {
	ctx := context.Background()
	attempts := 0
	got, err := UntilSucceeds(ctx, func() (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("fail")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != 42 || attempts != 3 {
		t.Fatalf("unexpected result %v after %v attempts", got, attempts)
	}

	cancelledCtx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = UntilSucceeds(cancelledCtx, func() (int, error) {
		return 0, errors.New("should not matter")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatal("expected context cancellation error, got", err)
	}
}
