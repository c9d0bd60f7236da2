// Package repository defines error values shared across repositories.
// These sentinels let handlers translate storage failures into specific
// HTTP responses: ErrUsernameExists becomes a 409, ErrDailyLimitReached a
// 429 with a structured quota code, ErrForbidden a 403 and ErrNotFound a
// 404.
package repository

import "errors"

// ErrUsernameExists is returned when sign-up hits the unique username key.
var ErrUsernameExists = errors.New("username already exists")

// ErrDailyLimitReached is returned when a message insert would push the
// sender past their daily_message_limit for the current UTC day.
var ErrDailyLimitReached = errors.New("daily message limit reached")

// ErrForbidden is returned when the caller is not a member of the
// conversation they are trying to read or write.
var ErrForbidden = errors.New("forbidden")

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")
