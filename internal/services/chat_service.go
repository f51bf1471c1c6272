// Package services – ChatService
//
// This file implements the ChatService, which manages the lifecycle of chat
// sessions: listing, retrieval (private and via public share links), upsert
// saves, share-link derivation, and deletion. Each operation resolves the
// caller's authorization first (a Principal passed explicitly, never ambient
// state), performs at most one read and/or one write against the repository,
// and emits invalidation signals for the views a mutation made stale.
//
// Read operations are resilient by contract: store failures degrade to an
// empty result and are logged, never surfaced, so a UI list stays renderable
// under transient backend failure. Write operations return typed errors
// (ErrUnauthorized, ErrChatNotFound, ErrShareFailed, ...) that handlers map
// to HTTP results consistently. Save is the exception: it is fire-and-forget
// and swallows both missing principals and store errors.
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/NishanthRaveendran/customs-ai/internal/auth"
	"github.com/NishanthRaveendran/customs-ai/internal/cache"
	"github.com/NishanthRaveendran/customs-ai/internal/domain"
)

// ChatRepo defines the repository contract required by ChatService.
// Implementations are responsible for persistence of chat records; every
// filter is a conjunction of equality predicates.
type ChatRepo interface {
	// ListChats returns all chats belonging to the user, newest first.
	ListChats(ctx context.Context, db *gorm.DB, userID string) ([]domain.Chat, error)

	// ListChatsPage returns a page of chats belonging to the user.
	ListChatsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Chat, error)

	// GetChat fetches a chat by id, enforcing ownership inside the query.
	GetChat(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Chat, error)

	// GetSharedChat fetches a chat by id and canonical share path, unscoped.
	GetSharedChat(ctx context.Context, db *gorm.DB, id string) (*domain.Chat, error)

	// UpsertChat inserts or fully overwrites the record keyed by id.
	UpsertChat(ctx context.Context, db *gorm.DB, c *domain.Chat) error

	// UpdateSharePath sets share_path on an existing row.
	UpdateSharePath(ctx context.Context, db *gorm.DB, id, sharePath string) error

	// DeleteChat removes the chat matching id and owner; zero rows is silent.
	DeleteChat(ctx context.Context, db *gorm.DB, id, userID string) error

	// DeleteChats removes every chat owned by the user.
	DeleteChats(ctx context.Context, db *gorm.DB, userID string) error

	// ChatsStats returns row count and max updated_at for a user's chats.
	ChatsStats(ctx context.Context, db *gorm.DB, userID string) (int64, *time.Time, error)
}

// ChatService provides the chat persistence and sharing operations. It
// enforces ownership and visibility rules and coordinates repository calls
// with cache invalidation.
type ChatService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the chat repository used by this service.
	Repo ChatRepo
	// Cache receives invalidation signals after destructive mutations.
	Cache cache.Invalidator

	// TitleMaxLen caps stored titles by rune length.
	TitleMaxLen int
	// TitleLocale selects the locale used when title-casing derived titles.
	TitleLocale language.Tag
}

// NewChatService constructs a ChatService with sane defaults for title handling.
func NewChatService(db *gorm.DB, r ChatRepo, inv cache.Invalidator) *ChatService {
	if inv == nil {
		inv = cache.Noop{}
	}
	return &ChatService{
		DB:          db,
		Repo:        r,
		Cache:       inv,
		TitleMaxLen: 60,
		TitleLocale: language.Und,
	}
}

// List returns all chats owned by userID, newest first. An absent/empty
// userID yields an empty slice without touching the store: listing is a
// convenience view, not an authorization-sensitive primitive. Store failures
// are logged and degrade to an empty slice; List never fails outward.
func (s *ChatService) List(ctx context.Context, userID string) []domain.Chat {
	if userID == "" {
		return []domain.Chat{}
	}
	out, err := s.Repo.ListChats(ctx, s.DB, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("list chats")
		return []domain.Chat{}
	}
	if out == nil {
		out = []domain.Chat{}
	}
	return out
}

// ListPage returns a page of chats for a user plus the total count, with the
// same resilience contract as List: defaults are applied for invalid
// page/pageSize and store failures degrade to an empty page.
func (s *ChatService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Chat, int64) {
	if userID == "" {
		return []domain.Chat{}, 0
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, _, err := s.Repo.ChatsStats(ctx, s.DB, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("count chats")
		return []domain.Chat{}, 0
	}
	if total == 0 {
		return []domain.Chat{}, 0
	}

	items, err := s.Repo.ListChatsPage(ctx, s.DB, userID, offset, pageSize)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("list chats page")
		return []domain.Chat{}, 0
	}
	return items, total
}

// Stats exposes the repository's aggregate metadata for conditional
// responses. Unlike the read operations above it propagates errors, since
// its only consumer (ETag generation) treats failure as "no ETag".
func (s *ChatService) Stats(ctx context.Context, userID string) (int64, *time.Time, error) {
	return s.Repo.ChatsStats(ctx, s.DB, userID)
}

// Get fetches the chat with the given id owned by userID. It returns nil when
// no row matches; "not found" and "exists but not owned" are deliberately
// indistinguishable. Store errors degrade to nil, logged.
func (s *ChatService) Get(ctx context.Context, id, userID string) *domain.Chat {
	c, err := s.Repo.GetChat(ctx, s.DB, id, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error().Err(err).Str("chat_id", id).Msg("get chat")
		}
		return nil
	}
	return c
}

// GetShared fetches the chat with the given id provided its share path equals
// the canonical derived path. This is the only read that bypasses ownership.
// It returns nil on miss or store error.
func (s *ChatService) GetShared(ctx context.Context, id string) *domain.Chat {
	c, err := s.Repo.GetSharedChat(ctx, s.DB, id)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error().Err(err).Str("chat_id", id).Msg("get shared chat")
		}
		return nil
	}
	return c
}

// Save upserts the full chat record keyed by id: an existing row is fully
// overwritten, a missing one created. Callers must pass through the prior
// SharePath to keep a chat shared across edits.
//
// Without an authenticated principal the call is a silent no-op - callers
// are expected to have already gated on session presence. The owner is
// always the resolved principal, never caller input, so a forged UserID in
// the payload cannot reassign a chat. Store errors are logged, not surfaced.
func (s *ChatService) Save(ctx context.Context, p *auth.Principal, chat *domain.Chat) {
	if p == nil || p.ID == "" {
		return
	}
	if chat == nil || chat.ID == "" {
		return
	}

	chat.UserID = p.ID
	chat.Title = s.clip(normalizeTitle(chat.Title))
	if chat.Title == "" {
		chat.Title = s.clip(s.generateTitleFromMessages(chat.Messages))
	}
	if chat.Title == "" {
		chat.Title = "New chat"
	}
	if chat.CreatedAt.IsZero() {
		chat.CreatedAt = time.Now().UTC()
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("chat.id", chat.ID),
		attribute.Int("chat.messages", len(chat.Messages)),
	)

	if err := s.Repo.UpsertChat(ctx, s.DB, chat); err != nil {
		log.Error().Err(err).Str("chat_id", chat.ID).Msg("save chat")
	}
}

// Share marks the chat with the given id as publicly readable by setting its
// share path to the canonical value derived from the id. The chat must exist
// and be owned by the acting principal. Sharing twice is idempotent: the
// derived path is stable, so the second call reassigns the same value.
//
// Errors: ErrUnauthorized without a principal; ErrChatNotFound when the
// owner-scoped fetch misses (distinct from the authorization failure);
// ErrShareFailed (wrapping the store error) when the update fails.
func (s *ChatService) Share(ctx context.Context, p *auth.Principal, id string) (*domain.Chat, error) {
	if p == nil || p.ID == "" {
		return nil, ErrUnauthorized
	}

	chat, err := s.Repo.GetChat(ctx, s.DB, id, p.ID)
	if err != nil {
		return nil, ErrChatNotFound
	}

	sharePath := domain.SharePathFor(chat.ID)
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("chat.share_path", sharePath))

	if err := s.Repo.UpdateSharePath(ctx, s.DB, chat.ID, sharePath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShareFailed, err)
	}

	chat.SharePath = &sharePath
	return chat, nil
}

// Remove deletes the chat matching id and the acting principal. A non-owner's
// request affects zero rows and still succeeds, by design. On success it
// invalidates the root listing view and the caller-supplied detail path.
func (s *ChatService) Remove(ctx context.Context, p *auth.Principal, id, path string) error {
	if p == nil || p.ID == "" {
		return ErrUnauthorized
	}

	if err := s.Repo.DeleteChat(ctx, s.DB, id, p.ID); err != nil {
		return fmt.Errorf("%w: %v", ErrRemoveFailed, err)
	}

	s.Cache.Invalidate("/")
	s.Cache.Invalidate(path)
	return nil
}

// Clear deletes every chat owned by the acting principal, unconditionally.
// On success it invalidates the root listing view and returns the path the
// caller should navigate to; the transport layer decides how to perform the
// redirect.
func (s *ChatService) Clear(ctx context.Context, p *auth.Principal) (redirect string, err error) {
	if p == nil || p.ID == "" {
		return "", ErrUnauthorized
	}

	if err := s.Repo.DeleteChats(ctx, s.DB, p.ID); err != nil {
		return "", fmt.Errorf("%w: %v", ErrClearFailed, err)
	}

	s.Cache.Invalidate("/")
	return "/", nil
}

// clip truncates a chat title to the configured maximum rune length.
func (s *ChatService) clip(title string) string {
	if s.TitleMaxLen > 0 && utf8.RuneCountInString(title) > s.TitleMaxLen {
		return string([]rune(title)[:s.TitleMaxLen])
	}
	return title
}

// generateTitleFromMessages derives a concise title from the first user
// message when the saved payload carries none.
func (s *ChatService) generateTitleFromMessages(msgs domain.Messages) string {
	var prompt string
	for _, m := range msgs {
		if m.Role == domain.RoleUser {
			prompt = strings.TrimSpace(m.Content)
			break
		}
	}
	if prompt == "" {
		return ""
	}
	toks := titleWordRE.FindAllString(strings.ToLower(prompt), -1)
	if len(toks) == 0 {
		return ""
	}

	titleCaser := cases.Title(s.TitleLocaleOrDefault())
	out := make([]string, 0, 8)

	for _, w := range toks {
		if _, skip := titleStopWords[w]; skip {
			continue
		}
		out = append(out, titleCaser.String(w))
		if len(out) >= 8 {
			break
		}
	}
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, " ")
}

// TitleLocaleOrDefault returns the configured locale for casing or English if unset.
func (s *ChatService) TitleLocaleOrDefault() language.Tag {
	if s.TitleLocale == language.Und {
		return language.English
	}
	return s.TitleLocale
}

// normalizeTitle trims whitespace and collapses multiple spaces to one.
func normalizeTitle(s string) string {
	s = whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
	return s
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)

// Extract Unicode letters with optional trailing numbers (e.g., "chat2025").
var titleWordRE = regexp.MustCompile(`[\p{L}]+[\p{N}]*`)

// Minimal English stop-words set for compact titles.
var titleStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {},
	"is": {}, "are": {}, "for": {}, "on": {}, "with": {}, "by": {}, "from": {},
	"at": {}, "as": {}, "that": {}, "this": {}, "it": {}, "be": {}, "was": {}, "were": {},
}
