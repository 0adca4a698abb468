package services

import (
	"errors"
)

// Sentinel errors returned by the refresh service.
var (
	// ErrNoSnapshot means no refresh cycle has completed yet.
	ErrNoSnapshot = errors.New("no snapshot available yet")

	// ErrStudentNotFound means the requested roll number is not in the
	// current snapshot.
	ErrStudentNotFound = errors.New("student not found")
)
