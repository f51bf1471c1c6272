package repo

import (
	"context"
	"testing"
	"time"

	"github.com/NishanthRaveendran/customs-ai/internal/domain"
)

func TestChatsStats_EmptyUser(t *testing.T) {
	db := newChatRepoDB(t, &domain.Chat{})

	count, maxTS, err := ChatsStats(context.Background(), db, "nobody")
	if err != nil {
		t.Fatalf("ChatsStats: %v", err)
	}
	if count != 0 || maxTS != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, maxTS)
	}
}

func TestChatsStats_CountAndMaxUpdatedAt(t *testing.T) {
	db := newChatRepoDB(t, &domain.Chat{})

	older := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
	newer := older.Add(2 * time.Hour)
	seedChat(t, db, domain.Chat{ID: "a", UserID: "u1", Title: "t", Path: "/chat/a", UpdatedAt: older})
	seedChat(t, db, domain.Chat{ID: "b", UserID: "u1", Title: "t", Path: "/chat/b", UpdatedAt: newer})
	seedChat(t, db, domain.Chat{ID: "x", UserID: "u2", Title: "t", Path: "/chat/x", UpdatedAt: newer.Add(time.Hour)})

	count, maxTS, err := ChatsStats(context.Background(), db, "u1")
	if err != nil {
		t.Fatalf("ChatsStats: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d; want 2", count)
	}
	if maxTS == nil || !maxTS.Equal(newer) {
		t.Fatalf("maxUpdatedAt = %v; want %v", maxTS, newer)
	}
}

func TestChatsStats_Error_NoTable(t *testing.T) {
	db := newChatRepoDB(t /* no migrations */)
	if _, _, err := ChatsStats(context.Background(), db, "u1"); err == nil {
		t.Fatalf("expected error when table missing")
	}
}
