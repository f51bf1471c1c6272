// Chat HTTP handlers.
//
// This file exposes REST endpoints for chat history persistence and sharing:
//   - GET    /chats            (list, paginated, ETag support)
//   - GET    /chats/{id}       (owner-scoped read)
//   - PUT    /chats/{id}       (save / upsert)
//   - POST   /chats/{id}/share (publish a share link)
//   - DELETE /chats/{id}       (remove one chat)
//   - DELETE /chats            (clear all chats, redirect as data)
//   - GET    /share/{id}       (public shared read)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
// Reads mirror the resilience contract of the persistence layer: a missing or
// inaccessible chat is a 404, never a 500, and listing degrades to an empty
// page rather than failing.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/NishanthRaveendran/customs-ai/internal/auth"
	"github.com/NishanthRaveendran/customs-ai/internal/cache"
	"github.com/NishanthRaveendran/customs-ai/internal/domain"
	"github.com/NishanthRaveendran/customs-ai/internal/http/middleware"
	"github.com/NishanthRaveendran/customs-ai/internal/services"
	"github.com/NishanthRaveendran/customs-ai/internal/sysutil"
	"github.com/NishanthRaveendran/customs-ai/internal/utils"
)

//
// Service contracts (context-aware)
//

// ChatService defines the chat persistence operations consumed by HTTP
// handlers. Implementations must be safe for concurrent use and honor the
// provided context for cancellation and timeouts.
type ChatService interface {
	// List returns all chats for a user, newest first; empty on any failure.
	List(ctx context.Context, userID string) []domain.Chat
	// ListPage returns a page of chats for a user and the total count.
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Chat, int64)
	// Stats returns the chat count and latest update time for ETag derivation.
	Stats(ctx context.Context, userID string) (int64, *time.Time, error)
	// Get fetches one chat owned by userID, nil when absent or foreign.
	Get(ctx context.Context, id, userID string) *domain.Chat
	// GetShared fetches a chat through its published share link.
	GetShared(ctx context.Context, id string) *domain.Chat
	// Save upserts a chat on behalf of the principal (no-op when anonymous).
	Save(ctx context.Context, p *auth.Principal, chat *domain.Chat)
	// Share publishes a share link for a chat the principal owns.
	Share(ctx context.Context, p *auth.Principal, id string) (*domain.Chat, error)
	// Remove deletes one chat and signals the affected paths.
	Remove(ctx context.Context, p *auth.Principal, id, path string) error
	// Clear deletes every chat of the principal and returns a redirect path.
	Clear(ctx context.Context, p *auth.Principal) (string, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for chat history, sharing, and client
// configuration probes. It depends on abstract service interfaces to keep
// transport concerns separate from business logic.
type Handlers struct {
	chatSvc  ChatService
	versions *cache.PathVersions
	// requiredKeys lists env keys the UI needs present (model credentials).
	requiredKeys []string
}

// New constructs a Handlers instance bound to the given service. versions may
// be nil when path-version ETag mixing is not wanted.
func New(chatSvc ChatService, versions *cache.PathVersions, requiredKeys []string) *Handlers {
	return &Handlers{chatSvc: chatSvc, versions: versions, requiredKeys: requiredKeys}
}

// userID returns the authenticated user id, or "" for anonymous requests.
func userID(c *gin.Context) string {
	if p := middleware.PrincipalFrom(c); p != nil {
		return p.ID
	}
	return ""
}

//
// DTOs
//

// SaveChatRequest is the JSON payload for saving (upserting) a chat.
type SaveChatRequest struct {
	// Title names the chat in history lists; a default is applied when empty.
	Title string `json:"title" example:"Trip planning"`
	// Path is the canonical UI path of the chat, e.g. "/chat/<id>".
	Path string `json:"path" example:"/chat/141add05-4415-4938-b5a1-17e0d3171aff"`
	// Messages is the full transcript; it replaces the stored transcript.
	Messages domain.Messages `json:"messages"`
	// SharePath preserves an existing share link across saves.
	SharePath *string `json:"share_path,omitempty" example:"/share/141add05-4415-4938-b5a1-17e0d3171aff"`
	// CreatedAt optionally pins the original creation time.
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListChatsResponse wraps a page of chats and pagination information.
type ListChatsResponse struct {
	Chats      []domain.Chat `json:"chats"`
	Pagination Pagination    `json:"pagination"`
}

// ClearChatsResponse reports where the client should navigate after its
// history has been cleared. The redirect is data, not a protocol response,
// so API clients decide how to follow it.
type ClearChatsResponse struct {
	Redirect string `json:"redirect" example:"/"`
}

// MissingKeysResponse lists required environment keys absent from the server
// process. An empty list means the client can enable all features.
type MissingKeysResponse struct {
	MissingKeys []string `json:"missing_keys"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.ClampInt(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}

//
// Handlers
//

// ListChats godoc
// @ID          listChats
// @Summary     List chats (paginated)
// @Description Returns a page of the user's chats, newest first. Anonymous callers receive an empty page. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Chats
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListChatsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Router      /chats [get]
func (h *Handlers) ListChats(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort). The history path version is mixed in so
	// removals bump the tag even when the row count round-trips.
	if uid != "" {
		count, maxTS, err := h.chatSvc.Stats(ctx, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			var v int64
			if h.versions != nil {
				v = h.versions.Version("/")
			}
			etag := fmt.Sprintf(`W/"chats:%s:%d:%d:%d"`, uid, count, ts, v)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total := h.chatSvc.ListPage(ctx, uid, page, pageSize)

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	resp := ListChatsResponse{
		Chats: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	}
	if resp.Chats == nil {
		resp.Chats = []domain.Chat{}
	}
	ok(c, http.StatusOK, resp)
}

// GetChat godoc
// @ID          getChat
// @Summary     Fetch one chat
// @Description Returns a chat owned by the current user. Foreign and missing chats are indistinguishable: both yield 404.
// @Tags        Chats
// @Produce     json
//
// @Param       id  path  string  true  "Chat ID"
//
// @Success     200  {object} domain.Chat
// @Failure     404  {object} handlers.ErrorResponse "Chat not found"
// @Router      /chats/{id} [get]
func (h *Handlers) GetChat(c *gin.Context) {
	ch := h.chatSvc.Get(c.Request.Context(), c.Param("id"), userID(c))
	if ch == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "Failed to fetch chat")
		return
	}
	ok(c, http.StatusOK, ch)
}

// SaveChat godoc
// @ID          saveChat
// @Summary     Save (upsert) a chat
// @Description Creates or fully replaces the chat under the given ID for the current user. Anonymous and failed saves are absorbed silently; the response is 204 either way.
// @Tags        Chats
// @Accept      json
//
// @Param       id    path  string                    true  "Chat ID"
// @Param       body  body  handlers.SaveChatRequest  true  "Chat payload"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Router      /chats/{id} [put]
func (h *Handlers) SaveChat(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chat id required")
		return
	}

	var req SaveChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	chat := &domain.Chat{
		ID:        id,
		Title:     req.Title,
		Path:      req.Path,
		Messages:  req.Messages,
		SharePath: req.SharePath,
		CreatedAt: req.CreatedAt,
	}
	h.chatSvc.Save(c.Request.Context(), middleware.PrincipalFrom(c), chat)
	noContent(c)
}

// ShareChat godoc
// @ID          shareChat
// @Summary     Publish a share link
// @Description Derives and persists the canonical share path for a chat owned by the current user. Idempotent: re-sharing returns the same link.
// @Tags        Chats
// @Produce     json
//
// @Param       id  path  string  true  "Chat ID"
//
// @Success     200  {object} domain.Chat
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Failure     404  {object} handlers.ErrorResponse "Chat not found"
// @Failure     500  {object} handlers.ErrorResponse "Share failed"
// @Router      /chats/{id}/share [post]
func (h *Handlers) ShareChat(c *gin.Context) {
	ch, err := h.chatSvc.Share(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("id"))
	switch {
	case err == nil:
		ok(c, http.StatusOK, ch)
	case errors.Is(err, services.ErrUnauthorized):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "Unauthorized")
	case errors.Is(err, services.ErrChatNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "Failed to fetch chat")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeShareFailed, "Failed to share chat")
	}
}

// RemoveChat godoc
// @ID          removeChat
// @Summary     Remove one chat
// @Description Deletes a chat owned by the current user and signals the history and chat paths for revalidation. Deleting an absent or foreign chat succeeds silently.
// @Tags        Chats
//
// @Param       id    path   string  true   "Chat ID"
// @Param       path  query  string  false  "Canonical chat path to revalidate"
//
// @Success     204  {string} string "No Content"
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Failure     500  {object} handlers.ErrorResponse "Remove failed"
// @Router      /chats/{id} [delete]
func (h *Handlers) RemoveChat(c *gin.Context) {
	err := h.chatSvc.Remove(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("id"), c.Query("path"))
	switch {
	case err == nil:
		noContent(c)
	case errors.Is(err, services.ErrUnauthorized):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "Unauthorized")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeRemoveFailed, "Failed to remove chat")
	}
}

// ClearChats godoc
// @ID          clearChats
// @Summary     Clear chat history
// @Description Deletes every chat of the current user and returns the path the client should navigate to, as data rather than a protocol redirect.
// @Tags        Chats
// @Produce     json
//
// @Success     200  {object} handlers.ClearChatsResponse
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Failure     500  {object} handlers.ErrorResponse "Clear failed"
// @Router      /chats [delete]
func (h *Handlers) ClearChats(c *gin.Context) {
	redirect, err := h.chatSvc.Clear(c.Request.Context(), middleware.PrincipalFrom(c))
	switch {
	case err == nil:
		ok(c, http.StatusOK, ClearChatsResponse{Redirect: redirect})
	case errors.Is(err, services.ErrUnauthorized):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "Unauthorized")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeClearFailed, "Failed to clear chats")
	}
}

// GetSharedChat godoc
// @ID          getSharedChat
// @Summary     Read a shared chat
// @Description Public read of a chat through its published share link. No session required; unshared chats yield 404.
// @Tags        Share
// @Produce     json
//
// @Param       id  path  string  true  "Chat ID"
//
// @Success     200  {object} domain.Chat
// @Failure     404  {object} handlers.ErrorResponse "Chat not shared"
// @Router      /share/{id} [get]
func (h *Handlers) GetSharedChat(c *gin.Context) {
	ch := h.chatSvc.GetShared(c.Request.Context(), c.Param("id"))
	if ch == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "Failed to fetch chat")
		return
	}
	ok(c, http.StatusOK, ch)
}

// MissingKeys godoc
// @ID          missingKeys
// @Summary     Probe required environment keys
// @Description Reports which of the configured required environment keys are absent from the server process, so the UI can surface setup warnings.
// @Tags        Config
// @Produce     json
//
// @Success     200  {object} handlers.MissingKeysResponse
// @Router      /config/missing-keys [get]
func (h *Handlers) MissingKeys(c *gin.Context) {
	missing := sysutil.MissingEnvKeys(h.requiredKeys)
	if missing == nil {
		missing = []string{}
	}
	ok(c, http.StatusOK, MissingKeysResponse{MissingKeys: missing})
}
