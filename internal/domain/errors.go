package domain

import "errors"

// Error classes returned by the chat platform port. Adapters wrap the underlying
// error so callers can branch with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrForbidden        = errors.New("forbidden")
	ErrTransient        = errors.New("transient platform error")
)
