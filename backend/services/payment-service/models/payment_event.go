package models

import (
	"encoding/json"
)

// EventTransactionUpdated is the only processor event kind that changes order state.
const EventTransactionUpdated = "transaction.updated"

// TransactionStatus is the processor-side status of a transaction. The set is open:
// unknown values must be tolerated.
type TransactionStatus string

const (
	TransactionApproved TransactionStatus = "APPROVED"
	TransactionDeclined TransactionStatus = "DECLINED"
	TransactionVoided   TransactionStatus = "VOIDED"
	TransactionError    TransactionStatus = "ERROR"
	TransactionPending  TransactionStatus = "PENDING"
)

// PaymentEvent is the envelope POSTed by the payment processor.
type PaymentEvent struct {
	Event       string          `json:"event" validate:"required"`
	Data        EventData       `json:"data"`
	Environment string          `json:"environment,omitempty"`
	Signature   *EventSignature `json:"signature,omitempty"`
	Timestamp   int64           `json:"timestamp"`
	SentAt      string          `json:"sent_at,omitempty"`
}

// EventSignature lists the transaction properties that were hashed, in order, and
// the sender's hex SHA-256 checksum.
type EventSignature struct {
	Properties []string `json:"properties"`
	Checksum   string   `json:"checksum"`
}

// EventData keeps the transaction both typed and as the raw JSON the sender signed.
type EventData struct {
	Transaction    *Transaction    `json:"transaction,omitempty"`
	RawTransaction json.RawMessage `json:"-"`
}

func (d *EventData) UnmarshalJSON(b []byte) error {
	var aux struct {
		Transaction json.RawMessage `json:"transaction"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	d.Transaction = nil
	d.RawTransaction = nil
	if len(aux.Transaction) == 0 || string(aux.Transaction) == "null" {
		return nil
	}

	var tx Transaction
	if err := json.Unmarshal(aux.Transaction, &tx); err != nil {
		return err
	}
	d.Transaction = &tx
	d.RawTransaction = aux.Transaction
	return nil
}

// Transaction is the processor transaction record nested in the envelope.
type Transaction struct {
	ID                string            `json:"id"`
	AmountInCents     int64             `json:"amount_in_cents"`
	Reference         string            `json:"reference"`
	CustomerEmail     string            `json:"customer_email"`
	Currency          string            `json:"currency,omitempty"`
	PaymentMethodType string            `json:"payment_method_type"`
	Status            TransactionStatus `json:"status"`
	StatusMessage     string            `json:"status_message,omitempty"`
	ShippingAddress   json.RawMessage   `json:"shipping_address,omitempty"`
	PaymentLinkID     json.RawMessage   `json:"payment_link_id,omitempty"`
	PaymentSourceID   json.RawMessage   `json:"payment_source_id,omitempty"`
}
