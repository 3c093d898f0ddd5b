// Package services defines the business logic for the note lifecycle.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

// Note-related errors.
var (
	// ErrNoteNotFound indicates that the requested note does not exist or is
	// not accessible to the current owner. A note owned by someone else is
	// deliberately indistinguishable from a missing one, so callers cannot
	// probe for foreign note ids.
	ErrNoteNotFound = errors.New("note not found")

	// ErrEmptyNote is returned when a create request carries neither a title
	// nor any content.
	ErrEmptyNote = errors.New("note title and content are both empty")

	// ErrInvalidFormat is returned when a note format is outside the allowed
	// set (currently "text" or "rich").
	ErrInvalidFormat = errors.New("format must be text or rich")

	// ErrInvalidColor is returned when a note color is outside the allowed
	// set (currently primary, secondary, or tertiary).
	ErrInvalidColor = errors.New("color must be primary, secondary, or tertiary")

	// ErrEmptySearch is returned when a search request contains no term.
	ErrEmptySearch = errors.New("search term is empty")
)
