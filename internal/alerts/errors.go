package alerts

import "errors"

// Sentinel errors for the alert lifecycle. Handlers map these to HTTP
// status codes; the service layer only signals kind.
var (
	ErrCarNotFound         = errors.New("car not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrAlertNotFound       = errors.New("alert not found")
	ErrInvalidStatus       = errors.New("invalid alert status")
	ErrMissingAcknowledger = errors.New("user id is required to acknowledge an alert")
	ErrInvalidConfidence   = errors.New("confidence score must be between 0 and 1")
)
