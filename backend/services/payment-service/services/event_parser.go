package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/printforge/storefront/backend/services/payment-service/models"
)

// referencePattern matches the order id embedded at checkout: ORDER-<id>-<suffix>.
var referencePattern = regexp.MustCompile(`ORDER-(\d+)-`)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseEvent decodes a raw webhook body into the event envelope.
func ParseEvent(body []byte) (*models.PaymentEvent, error) {
	var event models.PaymentEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if err := validate.Struct(&event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return &event, nil
}

// ExtractOrderID returns the order id embedded in a processor reference string.
// There is no fallback id: a reference without the marker is malformed.
func ExtractOrderID(reference string) (int64, error) {
	m := referencePattern.FindStringSubmatch(reference)
	if m == nil {
		return 0, fmt.Errorf("%w: reference %q does not embed an order id", ErrMalformedEvent, reference)
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: reference %q: %v", ErrMalformedEvent, reference, err)
	}
	return id, nil
}
