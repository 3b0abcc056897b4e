package services

import "errors"

var (
	// ErrMalformedEvent: the body or reference could not be understood. Client error.
	ErrMalformedEvent = errors.New("malformed payment event")
	// ErrInvalidSignature: the event could not be authenticated. Client error.
	ErrInvalidSignature = errors.New("invalid payment event signature")
	// ErrOrderNotFound: the reference names an order the store does not have. Surfaced
	// as a server error so the processor retries.
	ErrOrderNotFound = errors.New("order not found for payment event")
	// ErrStoreFailure: the order store failed. Server error.
	ErrStoreFailure = errors.New("order store failure")
)
