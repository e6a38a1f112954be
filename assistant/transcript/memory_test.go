package transcript

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	contractx "github.com/tanpawarit/tenant-assistant/assistant/contract"
)

func TestMemoryStoreConcurrentTurnsAreGapless(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := store.AppendTurn(ctx, turnInput("u1", fmt.Sprintf("msg-%d", i))); err != nil {
				t.Errorf("AppendTurn() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	entries, err := store.List(ctx, "acme", "u1", contractx.ListQuery{Limit: MaxListLimit})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	assertGapless(t, entries, 2*n)
}

func TestMemoryStoreFaultLeavesNoPartialTurn(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	store.faultAfterUser = func(contractx.TurnInput) error { return errors.New("crash") }
	_, err := store.AppendTurn(ctx, turnInput("u1", "lost"))
	if !errors.Is(err, contractx.ErrPersistenceFailure) {
		t.Fatalf("AppendTurn() error = %v, want ErrPersistenceFailure", err)
	}

	entries, _ := store.List(ctx, "acme", "u1", contractx.ListQuery{})
	if len(entries) != 0 {
		t.Fatalf("entries = %d, want 0", len(entries))
	}

	store.faultAfterUser = nil
	turn, err := store.AppendTurn(ctx, turnInput("u1", "kept"))
	if err != nil {
		t.Fatalf("AppendTurn() error = %v", err)
	}
	if turn.User.Seq != 1 || turn.Assistant.Seq != 2 {
		t.Fatalf("seqs = %d/%d, want 1/2", turn.User.Seq, turn.Assistant.Seq)
	}
}

func TestMemoryStoreCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryStore().AppendTurn(ctx, turnInput("u1", "x"))
	if !errors.Is(err, contractx.ErrPersistenceFailure) || !errors.Is(err, context.Canceled) {
		t.Fatalf("AppendTurn() error = %v", err)
	}
}

func TestMemoryStoreListPaging(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		if _, err := store.AppendTurn(ctx, turnInput("u1", fmt.Sprintf("m%d", i))); err != nil {
			t.Fatalf("AppendTurn() error = %v", err)
		}
	}

	page, err := store.List(ctx, "acme", "u1", contractx.ListQuery{AfterSeq: 4, Limit: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(page) != 2 || page[0].Seq != 5 || page[1].Seq != 6 {
		t.Fatalf("List() = %#v", page)
	}

	empty, err := store.List(ctx, "acme", "nobody", contractx.ListQuery{})
	if err != nil || len(empty) != 0 {
		t.Fatalf("List(nobody) = %v, %v", empty, err)
	}
}
