//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"
)

func TestProcessedUpdateRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewProcessedUpdateRepo(testPool)

	t.Run("should insert a marker only once", func(t *testing.T) {
		cleanup(t)

		first, err := repo.Insert(ctx, nil, 42, time.Now())
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}
		second, err := repo.Insert(ctx, nil, 42, time.Now())
		if err != nil {
			t.Fatalf("second insert failed: %v", err)
		}

		if !first {
			t.Error("expected first insert to create the marker")
		}
		if second {
			t.Error("expected second insert to report an existing marker")
		}
	})

	t.Run("should allow re-marking after delete", func(t *testing.T) {
		cleanup(t)
		_, _ = repo.Insert(ctx, nil, 7, time.Now())

		if err := repo.Delete(ctx, nil, 7); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		again, err := repo.Insert(ctx, nil, 7, time.Now())
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}
		if !again {
			t.Error("expected marker to be recreated after delete")
		}
	})

	t.Run("should prune only old markers", func(t *testing.T) {
		cleanup(t)
		now := time.Now()
		_, _ = repo.Insert(ctx, nil, 1, now.Add(-10*24*time.Hour))
		_, _ = repo.Insert(ctx, nil, 2, now)

		n, err := repo.DeleteOlderThan(ctx, nil, now.Add(-7*24*time.Hour))
		if err != nil {
			t.Fatalf("prune failed: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 pruned marker, got %d", n)
		}
		fresh, _ := repo.Insert(ctx, nil, 2, now)
		if fresh {
			t.Error("expected recent marker to survive pruning")
		}
	})
}
