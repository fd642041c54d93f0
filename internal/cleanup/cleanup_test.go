package cleanup

import (
	"errors"
	"testing"
)

func TestRunAll_LIFOAndErrors(t *testing.T) {
	var order []int
	boom := errors.New("boom")
	Register(func() error { order = append(order, 1); return nil })
	Register(nil)
	Register(func() error { order = append(order, 2); return boom })
	Register(func() error { order = append(order, 3); return nil })

	if Pending() != 3 {
		t.Fatalf("expected 3 hooks, got %d", Pending())
	}
	err := RunAll()
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped hook error, got %v", err)
	}
	if len(order) != 3 || order[0] != 3 || order[2] != 1 {
		t.Fatalf("hooks ran out of order: %v", order)
	}
	if Pending() != 0 || RunAll() != nil {
		t.Fatal("hooks must be cleared after RunAll")
	}
}
