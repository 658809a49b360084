//go:build integration

package postgres

import (
	"context"
	"testing"

	"telegram-nutrition-bot/internal/domain/model"
)

func TestUserRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewUserRepo(testPool)

	t.Run("should track membership changes", func(t *testing.T) {
		cleanup(t)
		if err := repo.Touch(ctx, nil, &model.User{TelegramID: 9, Username: "anna"}); err != nil {
			t.Fatalf("touch failed: %v", err)
		}
		if err := repo.UpdateStatus(ctx, nil, 9, model.UserBlocked); err != nil {
			t.Fatalf("update status failed: %v", err)
		}

		u, err := repo.FindByTelegramID(ctx, nil, 9)
		if err != nil {
			t.Fatalf("find failed: %v", err)
		}
		if u.Status != model.UserBlocked || u.Username != "anna" {
			t.Errorf("unexpected user %+v", u)
		}
	})

	t.Run("should keep username when a later touch has none", func(t *testing.T) {
		cleanup(t)
		_ = repo.Touch(ctx, nil, &model.User{TelegramID: 10, Username: "bob"})
		_ = repo.Touch(ctx, nil, &model.User{TelegramID: 10})

		u, _ := repo.FindByTelegramID(ctx, nil, 10)
		if u.Username != "bob" || u.Status != model.UserActive {
			t.Errorf("unexpected user %+v", u)
		}
	})
}
