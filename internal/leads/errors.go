package leads

import "errors"

var (
	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("lead not found")

	// ErrInvalidStatus is returned when a status is outside the enumeration
	ErrInvalidStatus = errors.New("invalid status")

	// ErrCountryRequired is returned when a lead is created without a country
	ErrCountryRequired = errors.New("country is required")

	// ErrInvalidDedupePolicy is returned for unknown LEAD_DEDUPE_POLICY values
	ErrInvalidDedupePolicy = errors.New("dedupe policy must be append or reuse_current")
)
