package registry

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/atsim/internal/testutils"
	"github.com/aretw0/atsim/pkg/adapters/memory"
)

func TestRegistry_LockLifecycle(t *testing.T) {
	reg := New(memory.NewStore(), testutils.Models(t))
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		id := fmt.Sprintf("process-%d", i)
		_ = reg.withLock(ctx, id, func(context.Context) error { return nil })
	}

	if n := reg.locks.size(); n != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory", n)
	}
}
