package application

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrPastTime is returned when a booking would start before now.
	ErrPastTime = errors.New("application: requested slot starts in the past")
	// ErrSlotTaken is returned when the calendar already holds an overlapping event.
	ErrSlotTaken = errors.New("application: slot already taken")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrReadFailure is returned when a backing store cannot be read.
	ErrReadFailure = errors.New("application: failed to read reservation data")
	// ErrWriteFailure is returned when a backing store rejects a write.
	ErrWriteFailure = errors.New("application: failed to write reservation data")
	// ErrAlreadyExists is returned when creating a resource whose key is taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrUnauthorized is returned when the caller has no valid session.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrForbidden is returned when the caller's role may not perform the operation.
	ErrForbidden = errors.New("application: forbidden")
	// ErrInvalidCredentials is returned when the id, password or role do not match.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrSessionExpired is returned for sessions past their expiry.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned for sessions that were logged out.
	ErrSessionRevoked = errors.New("application: session revoked")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
