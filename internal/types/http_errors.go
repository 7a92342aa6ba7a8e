package types

// Public HTTP error type identifiers returned in the error envelope.
const (
	PublicHTTPErrorTypeGeneric        = "generic"
	PublicHTTPErrorTypeInvalidPayload = "invalid_payload"
	PublicHTTPErrorTypeNotFound       = "not_found"
	PublicHTTPErrorTypeNotEligible    = "not_eligible"
	PublicHTTPErrorTypeForbidden      = "forbidden"
	PublicHTTPErrorTypeConflict       = "conflict"
)
