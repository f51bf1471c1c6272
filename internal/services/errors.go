// Package services implements the business logic for chat persistence and
// sharing. This file centralizes common service-level error values so that
// they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes is performed at the
// handler layer.
package services

import "errors"

var (
	// ErrUnauthorized indicates that no authenticated principal was supplied
	// to an operation that requires one.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrChatNotFound indicates that the requested chat does not exist or is
	// not accessible to the current user. The two cases are deliberately
	// indistinguishable so that non-owners cannot probe for existence.
	ErrChatNotFound = errors.New("chat not found")

	// ErrShareFailed is returned when persisting a chat's share path fails
	// for reasons other than the chat being missing.
	ErrShareFailed = errors.New("failed to share chat")

	// ErrRemoveFailed is returned when the store reports an error while
	// deleting a single chat.
	ErrRemoveFailed = errors.New("failed to remove chat")

	// ErrClearFailed is returned when the store reports an error while
	// deleting all of a user's chats.
	ErrClearFailed = errors.New("failed to clear chats")
)
