package auth

import (
	"context"
	"testing"

	"github.com/tabdeck/tabdeck/internal/model"
)

func TestContextWithAuth(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if AuthFromContext(ctx) != nil {
		t.Fatal("empty context should have no auth")
	}
	if UserIDFromContext(ctx) != "" {
		t.Fatal("empty context should have no user id")
	}

	ctx = ContextWithAuth(ctx, &model.AuthContext{UserID: "user-1", Username: "alice"})

	got := AuthFromContext(ctx)
	if got == nil || got.Username != "alice" {
		t.Fatalf("AuthFromContext = %+v", got)
	}
	if UserIDFromContext(ctx) != "user-1" {
		t.Errorf("UserIDFromContext = %s, want user-1", UserIDFromContext(ctx))
	}
}
