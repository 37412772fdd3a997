package alerts

import "errors"

// Admission errors. Matched structurally with errors.Is, never by
// message text.
var (
	// ErrEventExpired rejects an event whose date has already passed.
	ErrEventExpired = errors.New("alerts: event date has passed")

	// ErrResaleInactive rejects an event whose resale has not opened.
	ErrResaleInactive = errors.New("alerts: resale is not active for event")
)
