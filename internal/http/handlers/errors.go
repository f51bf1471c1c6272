// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP
// responses (via the `fail()` helper in this package). These codes provide
// clients with a stable, machine-readable error taxonomy that supplements
// human-readable messages.
//
// Conventions:
//   - Codes are lowercase, snake_case, and domain-agnostic unless noted.
//   - Generic codes (bad_request, unauthorized, not_found) mirror common HTTP
//     status semantics to aid interoperability.
//   - Domain-specific codes (share_failed, remove_failed, clear_failed) are
//     reserved for business logic errors that status alone cannot convey.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "share_failed",
//	  "message": "Failed to share chat"
//	}
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeListFailed   = "list_failed"
	ErrCodeShareFailed  = "share_failed"
	ErrCodeRemoveFailed = "remove_failed"
	ErrCodeClearFailed  = "clear_failed"
)
