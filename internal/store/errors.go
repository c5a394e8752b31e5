package store

import "errors"

// Validation errors are returned before any backend call is attempted and are
// never recorded in cache or action state.
var (
	// ErrReasonRequired is returned when an action that needs a justification
	// (reject) is issued with an empty reason.
	ErrReasonRequired = errors.New("a non-empty reason is required")

	// ErrNotSelected is returned when a selection-guarded action (delete) is
	// issued against an id that is not currently selected.
	ErrNotSelected = errors.New("entity must be selected before this action")

	// ErrUnsupportedAction is returned for an action the entity kind does not
	// accept, e.g. pausing an article.
	ErrUnsupportedAction = errors.New("action not supported for this entity kind")

	// ErrUnknownFilter is returned by SetFilters for a filter field the kind
	// does not define.
	ErrUnknownFilter = errors.New("unknown filter field")

	// ErrFieldNotEditable is returned by SubmitEdit when the form carries a
	// field outside the kind's edit form.
	ErrFieldNotEditable = errors.New("field is not editable")

	// ErrEmptyID is returned when an operation targets a blank id.
	ErrEmptyID = errors.New("entity id is empty")
)

// ErrStaleResponse marks a response that lost to a newer request for the same
// slot. It never escapes the package: stale responses are dropped silently.
var ErrStaleResponse = errors.New("response superseded by a newer request")

// ErrEditCoalesced is returned by SubmitEdit when the call joined a save of
// the same entity that was already in flight and some of its changes were not
// part of that save. The returned patch holds the still unsaved fields.
var ErrEditCoalesced = errors.New("another save of this entity was in flight; resubmit the remaining changes")

// IsValidation reports whether err is one of the pre-flight validation
// errors above.
func IsValidation(err error) bool {
	return errors.Is(err, ErrReasonRequired) ||
		errors.Is(err, ErrNotSelected) ||
		errors.Is(err, ErrUnsupportedAction) ||
		errors.Is(err, ErrUnknownFilter) ||
		errors.Is(err, ErrFieldNotEditable) ||
		errors.Is(err, ErrEmptyID)
}
