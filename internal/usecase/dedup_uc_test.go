//go:build !integration

package usecase

import (
	"context"
	"testing"
	"time"
)

func TestDedupUseCase(t *testing.T) {
	ctx := context.Background()

	t.Run("should mark an update only once", func(t *testing.T) {
		uc := NewDedupUseCase(newMemProcessedRepo(), 7*24*time.Hour, 100, newTestLogger())

		if !uc.TryMark(ctx, 42) {
			t.Fatal("expected first TryMark(42) to be true")
		}
		if uc.TryMark(ctx, 42) {
			t.Fatal("expected second TryMark(42) to be false")
		}
	})

	t.Run("should allow reprocessing after remove", func(t *testing.T) {
		uc := NewDedupUseCase(newMemProcessedRepo(), time.Hour, 100, newTestLogger())
		uc.TryMark(ctx, 1)

		uc.Remove(ctx, 1)

		if !uc.TryMark(ctx, 1) {
			t.Error("expected update to be new again after remove")
		}
	})

	t.Run("should fail open when storage fails", func(t *testing.T) {
		repo := newMemProcessedRepo()
		repo.insertErr = errBoom
		uc := NewDedupUseCase(repo, time.Hour, 100, newTestLogger())

		if !uc.TryMark(ctx, 5) || !uc.TryMark(ctx, 5) {
			t.Error("expected storage failures to be treated as new updates")
		}
	})

	t.Run("should prune every n-th marked update", func(t *testing.T) {
		// --- Arrange ---
		repo := newMemProcessedRepo()
		uc := NewDedupUseCase(repo, time.Hour, 3, newTestLogger())
		base := time.Now()
		uc.now = func() time.Time { return base.Add(-2 * time.Hour) }
		uc.TryMark(ctx, 1)
		uc.now = func() time.Time { return base }

		// --- Act ---
		uc.TryMark(ctx, 2)
		if repo.pruned != 0 {
			t.Fatalf("expected no prune before the 3rd mark, got %d", repo.pruned)
		}
		uc.TryMark(ctx, 3)

		// --- Assert ---
		if repo.pruned != 1 {
			t.Fatalf("expected one prune, got %d", repo.pruned)
		}
		if _, ok := repo.seen[1]; ok {
			t.Error("expected the stale marker to be pruned")
		}
		if len(repo.seen) != 2 {
			t.Errorf("expected 2 markers left, got %d", len(repo.seen))
		}
	})
}
