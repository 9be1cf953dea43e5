package gate

import (
	"context"
	"testing"
)

func TestMemoryGateExclusion(t *testing.T) {
	g := NewMemoryGate()
	ctx := context.Background()

	release, err := g.Acquire(ctx, "p1")
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	if _, err := g.Acquire(ctx, "p1"); err != ErrBusy {
		t.Fatalf("second acquire: got %v, want ErrBusy", err)
	}

	// other projects are unaffected
	otherRelease, err := g.Acquire(ctx, "p2")
	if err != nil {
		t.Fatalf("acquire p2: %v", err)
	}
	otherRelease()

	release()
	release() // releasing twice must be safe

	again, err := g.Acquire(ctx, "p1")
	if err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
	again()
}
