package models

import "time"

const EventTypeOrderPaid = "order_paid"

// OrderPaidEvent is published to downstream consumers (email, fulfilment) when an
// order transitions to paid.
type OrderPaidEvent struct {
	EventID       string    `json:"event_id"`
	Type          string    `json:"type"`
	OrderID       int64     `json:"order_id"`
	CustomerEmail string    `json:"customer_email"`
	Timestamp     time.Time `json:"timestamp"`
}
