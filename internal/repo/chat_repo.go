// Package repo implements the data persistence layer for chat sessions,
// backed by GORM. This file provides repository functions for the Chat model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition. Every filter is a conjunction of
// equality predicates (id, user_id, share_path); there are no range queries
// and no joins.
//
// Error semantics:
//   - When a chat is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//   - Deletes that match zero rows succeed silently: a non-owner's delete
//     request must be indistinguishable from a no-op.
//
// Functions:
//
//   - ListChats(ctx, db, userID) -> []domain.Chat, error
//     Returns all chats for a user, ordered by creation time descending.
//
//   - GetChat(ctx, db, id, userID) -> *domain.Chat, error
//     Fetches a single chat by id AND owner in one predicate, so the store
//     round-trip count does not differ between "missing" and "not owned".
//
//   - GetSharedChat(ctx, db, id) -> *domain.Chat, error
//     Fetches the chat whose share_path equals the canonical derived path.
//     This is the only owner-unscoped lookup.
//
//   - UpsertChat(ctx, db, chat) -> error
//     Insert-or-replace by primary key in a single atomic statement.
//
//   - UpdateSharePath(ctx, db, id, sharePath) -> error
//     Updates share_path only; the row must already exist.
//
//   - DeleteChat(ctx, db, id, userID) / DeleteChats(ctx, db, userID)
//     Hard deletes, scoped to the owner.
//
// This repository is designed to be wrapped by a higher-level service
// (see services.ChatService) which enforces authentication, visibility
// rules, and cache invalidation.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/NishanthRaveendran/customs-ai/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ListChats returns all chats belonging to userID, ordered by creation time
// descending (most recent first). It returns an empty slice if the user has
// no chats. On DB error, it returns the error.
func ListChats(ctx context.Context, db *gorm.DB, userID string) ([]domain.Chat, error) {
	var out []domain.Chat
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// ListChatsPage returns a paginated slice of chats for userID, ordered by
// creation time descending. Use ChatsStats to obtain the total for pagination
// metadata. On DB error, it returns the error.
//
// The caller is responsible for computing offset and limit (e.g., (page-1)*pageSize).
func ListChatsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Chat, error) {
	var out []domain.Chat
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetChat fetches a single chat by its id and owner (userID). Ownership is
// enforced inside the query, not post-filtered, so a missing row and a row
// owned by someone else both yield ErrNotFound. On other DB errors, the raw
// error is returned.
func GetChat(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Chat, error) {
	var c domain.Chat
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetSharedChat fetches the chat whose id matches AND whose share_path equals
// the canonical derived path for that id. There is no ownership check: this
// is the public-read lookup. An unshared chat yields ErrNotFound.
func GetSharedChat(ctx context.Context, db *gorm.DB, id string) (*domain.Chat, error) {
	var c domain.Chat
	err := db.WithContext(ctx).
		Where("id = ? AND share_path = ?", id, domain.SharePathFor(id)).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpsertChat inserts the chat or, when a row with the same id already exists,
// fully overwrites it in a single atomic statement (last writer wins). The
// caller supplies the complete record including any share_path to preserve.
func UpsertChat(ctx context.Context, db *gorm.DB, c *domain.Chat) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(c).Error
}

// UpdateSharePath sets share_path on an existing chat row. Unlike UpsertChat
// this is an update, not an upsert: when no row matches the id it returns
// ErrNotFound. On DB error, the raw error is returned.
func UpdateSharePath(ctx context.Context, db *gorm.DB, id, sharePath string) error {
	res := db.WithContext(ctx).
		Model(&domain.Chat{}).
		Where("id = ?", id).
		Update("share_path", sharePath)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteChat hard-deletes the chat matching id AND userID. Matching zero rows
// is a silent success so that non-owners learn nothing from the attempt.
func DeleteChat(ctx context.Context, db *gorm.DB, id, userID string) error {
	return db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Chat{}).Error
}

// DeleteChats hard-deletes every chat owned by userID, unconditionally.
func DeleteChats(ctx context.Context, db *gorm.DB, userID string) error {
	return db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&domain.Chat{}).Error
}
