// Package moderation implements the moderation core: the exclusive
// moderator-post lease protocol, the post status state machine derived from
// the append-only moderation history, denial-triggered ban escalation and the
// denial reason catalog.
package moderation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rafael-frs-a/gomemes/models"
)

// ErrNotFound is returned both for truly absent records and for records the
// caller is not allowed to see, so existence never leaks.
var ErrNotFound = errors.New("not found")

// ErrConflict marks a storage uniqueness violation. On the fetch path it is
// swallowed and treated as "nothing available"; elsewhere it surfaces as a
// rejected operation.
var ErrConflict = errors.New("conflict")

// ValidationError rejects an operation with per-field messages.
type ValidationError struct {
	Fields models.FieldErrors
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msgs := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(msgs, "; ")))
	}
	sort.Strings(parts)
	return "validation failed: " + strings.Join(parts, ", ")
}

func newValidationError(fields models.FieldErrors) *ValidationError {
	return &ValidationError{Fields: fields}
}

func fieldError(field, msg string) *ValidationError {
	fields := models.FieldErrors{}
	fields.Add(field, msg)
	return newValidationError(fields)
}
