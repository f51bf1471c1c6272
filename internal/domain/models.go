// Package domain defines the persistence model for chat sessions. The types
// here are mapped with GORM and form the core data layer of the application:
// a single chats table whose rows carry the full conversation transcript as
// a JSON document.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Message roles accepted in a chat transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// SharePathFor returns the canonical public path under which a chat with the
// given id is readable once shared. It is the only derivation of share paths
// in the codebase: two chats can never collide because ids are unique.
func SharePathFor(id string) string { return "/share/" + id }

// Message is a single utterance within a chat transcript, authored by either
// the user, the assistant, or the system.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Messages is the ordered transcript of a chat. It is persisted as a JSON
// TEXT column and replaced wholesale on every save; there is no
// partial-message update operation.
type Messages []Message

// Value implements driver.Valuer, serializing the transcript to JSON for
// storage. A nil transcript is stored as an empty JSON array so that reads
// never observe SQL NULL.
func (m Messages) Value() (driver.Value, error) {
	if m == nil {
		return "[]", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner, deserializing the stored JSON transcript.
func (m *Messages) Scan(v any) error {
	switch src := v.(type) {
	case nil:
		*m = Messages{}
		return nil
	case []byte:
		return json.Unmarshal(src, m)
	case string:
		return json.Unmarshal([]byte(src), m)
	default:
		return errors.New("domain: unsupported source type for Messages")
	}
}

// Chat represents one conversation owned by a user. The id is caller-supplied
// at creation (not store-generated) and stable for the chat's lifetime; rows
// are created implicitly by the first upsert.
//
// Fields:
//   - ID: opaque unique identifier (primary key), immutable.
//   - UserID: owner identifier; set once at creation, never reassigned.
//   - Title: human-readable summary; mutable.
//   - CreatedAt: fixed at first save. UpdatedAt is managed by GORM and feeds
//     conditional responses (ETags) in the HTTP layer.
//   - Path: logical navigation path of the chat's private view; used as the
//     invalidation-signal key.
//   - Messages: full transcript, replaced on each save.
//   - SharePath: nil until the chat is shared; once set it equals
//     SharePathFor(ID) and marks the chat publicly readable via that path.
//
// There is no soft-delete column: deletion is immediate and unrecoverable.
type Chat struct {
	ID        string    `json:"id"         gorm:"type:TEXT;primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:varchar(64);not null;index:idx_user_chats"`
	Title     string    `json:"title"      gorm:"type:varchar(255);not null;default:'New chat'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Path      string    `json:"path"       gorm:"type:TEXT;not null"`
	Messages  Messages  `json:"messages"   gorm:"type:TEXT"`
	SharePath *string   `json:"share_path" gorm:"type:TEXT;index"`
}

// TableName returns the database table name for Chat.
func (Chat) TableName() string { return "chats" }

// Shared reports whether the chat is publicly readable, i.e. its share path
// has been set to the canonical derived value.
func (c *Chat) Shared() bool {
	return c.SharePath != nil && *c.SharePath == SharePathFor(c.ID)
}
