package services

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/NishanthRaveendran/customs-ai/internal/cache"
	"github.com/NishanthRaveendran/customs-ai/internal/domain"
	"github.com/NishanthRaveendran/customs-ai/internal/repo"
)

// sqliteChatRepo adapts the repository free functions to the ChatRepo
// interface, mirroring the shim used by the HTTP router, so the full
// service semantics can be exercised against a real store.
type sqliteChatRepo struct{}

func (sqliteChatRepo) ListChats(ctx context.Context, db *gorm.DB, userID string) ([]domain.Chat, error) {
	return repo.ListChats(ctx, db, userID)
}

func (sqliteChatRepo) ListChatsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Chat, error) {
	return repo.ListChatsPage(ctx, db, userID, offset, limit)
}

func (sqliteChatRepo) GetChat(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Chat, error) {
	return repo.GetChat(ctx, db, id, userID)
}

func (sqliteChatRepo) GetSharedChat(ctx context.Context, db *gorm.DB, id string) (*domain.Chat, error) {
	return repo.GetSharedChat(ctx, db, id)
}

func (sqliteChatRepo) UpsertChat(ctx context.Context, db *gorm.DB, c *domain.Chat) error {
	return repo.UpsertChat(ctx, db, c)
}

func (sqliteChatRepo) UpdateSharePath(ctx context.Context, db *gorm.DB, id, sharePath string) error {
	return repo.UpdateSharePath(ctx, db, id, sharePath)
}

func (sqliteChatRepo) DeleteChat(ctx context.Context, db *gorm.DB, id, userID string) error {
	return repo.DeleteChat(ctx, db, id, userID)
}

func (sqliteChatRepo) DeleteChats(ctx context.Context, db *gorm.DB, userID string) error {
	return repo.DeleteChats(ctx, db, userID)
}

func (sqliteChatRepo) ChatsStats(ctx context.Context, db *gorm.DB, userID string) (int64, *time.Time, error) {
	return repo.ChatsStats(ctx, db, userID)
}

func newScenarioService(t *testing.T) *ChatService {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("scenario_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	return NewChatService(db, sqliteChatRepo{}, &cache.PathVersions{})
}

// Full lifecycle of a chat: save, owner read, non-owner read, share, public
// read, remove, and the disappearance of the shared view after removal.
func TestChatLifecycle_SaveShareReadRemove(t *testing.T) {
	s := newScenarioService(t)
	ctx := context.Background()

	s.Save(ctx, principal("A"), &domain.Chat{
		ID:       "c1",
		Title:    "t",
		Path:     "/chat/c1",
		Messages: domain.Messages{},
	})

	// Owner sees the chat field-for-field.
	got := s.Get(ctx, "c1", "A")
	if got == nil {
		t.Fatalf("owner get returned nothing")
	}
	if got.ID != "c1" || got.UserID != "A" || got.Title != "t" || got.Path != "/chat/c1" {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
	if got.SharePath != nil {
		t.Fatalf("fresh chat must be unshared")
	}

	// A different user sees nothing.
	if other := s.Get(ctx, "c1", "B"); other != nil {
		t.Fatalf("non-owner get must return nothing, got %+v", other)
	}

	// Unshared chat is invisible to the public read.
	if pub := s.GetShared(ctx, "c1"); pub != nil {
		t.Fatalf("unshared chat visible via share path: %+v", pub)
	}

	// Owner shares; the derived path is stable across repeated calls.
	shared, err := s.Share(ctx, principal("A"), "c1")
	if err != nil {
		t.Fatalf("Share: %v", err)
	}
	if shared.SharePath == nil || *shared.SharePath != "/share/c1" {
		t.Fatalf("share path = %v; want /share/c1", shared.SharePath)
	}
	again, err := s.Share(ctx, principal("A"), "c1")
	if err != nil {
		t.Fatalf("Share twice: %v", err)
	}
	if *again.SharePath != *shared.SharePath {
		t.Fatalf("share not idempotent")
	}

	// Anonymous caller reads via the share path.
	pub := s.GetShared(ctx, "c1")
	if pub == nil || pub.ID != "c1" {
		t.Fatalf("public read failed: %+v", pub)
	}

	// Non-owner cannot share someone else's chat.
	if _, err := s.Share(ctx, principal("B"), "c1"); err == nil {
		t.Fatalf("non-owner share must fail")
	}

	// Owner removes; afterwards the shared view is gone too.
	if err := s.Remove(ctx, principal("A"), "c1", "/chat/c1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if pub := s.GetShared(ctx, "c1"); pub != nil {
		t.Fatalf("removed chat still publicly readable: %+v", pub)
	}
	if got := s.Get(ctx, "c1", "A"); got != nil {
		t.Fatalf("removed chat still readable by owner: %+v", got)
	}
}

// Saving with the prior share path preserves sharing across edits; saving
// without it silently un-shares, which is the documented caller burden.
func TestSave_SharePathPassThrough(t *testing.T) {
	s := newScenarioService(t)
	ctx := context.Background()

	s.Save(ctx, principal("A"), &domain.Chat{ID: "c1", Title: "t", Path: "/chat/c1"})
	if _, err := s.Share(ctx, principal("A"), "c1"); err != nil {
		t.Fatalf("Share: %v", err)
	}

	// Edit carrying the prior share path keeps the chat shared.
	cur := s.Get(ctx, "c1", "A")
	cur.Messages = append(cur.Messages, domain.Message{Role: domain.RoleUser, Content: "more"})
	s.Save(ctx, principal("A"), cur)
	if pub := s.GetShared(ctx, "c1"); pub == nil {
		t.Fatalf("share path lost despite pass-through")
	}

	// Edit without the share path un-shares on the next read.
	s.Save(ctx, principal("A"), &domain.Chat{
		ID:        "c1",
		Title:     "t",
		Path:      "/chat/c1",
		CreatedAt: cur.CreatedAt,
	})
	if pub := s.GetShared(ctx, "c1"); pub != nil {
		t.Fatalf("expected chat to be un-shared after save without share path")
	}
}

func TestClear_RemovesOnlyCallersChats(t *testing.T) {
	s := newScenarioService(t)
	ctx := context.Background()

	s.Save(ctx, principal("A"), &domain.Chat{ID: "a1", Title: "t", Path: "/chat/a1"})
	s.Save(ctx, principal("A"), &domain.Chat{ID: "a2", Title: "t", Path: "/chat/a2"})
	s.Save(ctx, principal("B"), &domain.Chat{ID: "b1", Title: "t", Path: "/chat/b1"})

	redirect, err := s.Clear(ctx, principal("A"))
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if redirect != "/" {
		t.Fatalf("redirect = %q; want /", redirect)
	}

	if out := s.List(ctx, "A"); len(out) != 0 {
		t.Fatalf("A still has %d chats after clear", len(out))
	}
	out := s.List(ctx, "B")
	if len(out) != 1 || out[0].ID != "b1" {
		t.Fatalf("B's chats must be unaffected: %+v", out)
	}
}

func TestList_NewestFirstAgainstStore(t *testing.T) {
	s := newScenarioService(t)
	ctx := context.Background()

	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		s.Save(ctx, principal("A"), &domain.Chat{
			ID:        id,
			Title:     "t",
			Path:      "/chat/" + id,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}

	out := s.List(ctx, "A")
	if len(out) != 3 || out[0].ID != "new" || out[2].ID != "old" {
		t.Fatalf("unexpected order: %+v", out)
	}
}
