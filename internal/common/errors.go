// Package common holds sentinel errors shared by the session, upload and
// storage layers. Callers should match them with errors.Is; operations wrap
// them with additional context.
package common

import "errors"

var (
	// repository errors
	ErrNotFound    = errors.New("not found")
	ErrPersistence = errors.New("persistence failure")

	// validation errors
	ErrUnsupportedMedia = errors.New("only image/video files are supported")
	ErrEmptySelection   = errors.New("no files selected")
	ErrInvalidInput     = errors.New("invalid input")

	// auth errors
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionLoading     = errors.New("session is still loading")

	// upload errors
	ErrSaveFailed = errors.New("save operation failed")

	ErrOperationInProgress = errors.New("operation already in progress")
)
