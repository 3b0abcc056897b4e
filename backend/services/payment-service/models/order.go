package models

import "time"

// OrderState is the order lifecycle driven by payment reconciliation.
type OrderState string

const (
	StatePendingPayment  OrderState = "pending_payment"
	StatePaid            OrderState = "paid"
	StatePaymentDeclined OrderState = "payment_declined"
	StatePaymentVoided   OrderState = "payment_voided"
	StatePaymentError    OrderState = "payment_error"
)

// Order is the persisted order record. Checkout owns creation and the contact and
// line-item fields; the payment fields are written only by reconciliation.
type Order struct {
	ID            int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	State         OrderState  `gorm:"type:varchar(32);not null;default:'pending_payment';index" json:"state"`
	CustomerName  string      `gorm:"type:varchar(255)" json:"customer_name"`
	CustomerEmail string      `gorm:"type:varchar(255)" json:"customer_email"`
	Phone         string      `gorm:"type:varchar(32)" json:"phone,omitempty"`
	Address       string      `gorm:"type:varchar(512)" json:"address,omitempty"`
	City          string      `gorm:"type:varchar(128)" json:"city,omitempty"`
	TotalCents    int64       `gorm:"not null;default:0" json:"total_cents"`
	Items         []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`

	PaymentTransactionID string `gorm:"type:varchar(128);index" json:"payment_transaction_id,omitempty"`
	PaymentMethod        string `gorm:"type:varchar(64)" json:"payment_method,omitempty"`
	PaymentStatusRaw     string `gorm:"type:varchar(32)" json:"payment_status_raw,omitempty"`
	// PaymentEventAt is the processor timestamp (unix seconds) of the last applied event.
	PaymentEventAt int64 `gorm:"not null;default:0" json:"payment_event_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type OrderItem struct {
	ID             int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID        int64  `gorm:"not null;index" json:"order_id"`
	ProductName    string `gorm:"type:varchar(255);not null" json:"product_name"`
	Quantity       int    `gorm:"not null" json:"quantity"`
	UnitPriceCents int64  `gorm:"not null" json:"unit_price_cents"`
}

// PaymentUpdate is the full set of payment fields overwritten by one reconciliation.
type PaymentUpdate struct {
	State                OrderState
	PaymentTransactionID string
	PaymentMethod        string
	PaymentStatusRaw     string
	PaymentEventAt       int64
	UpdatedAt            time.Time
}

// Apply copies u onto o.
func (u PaymentUpdate) Apply(o *Order) {
	o.State = u.State
	o.PaymentTransactionID = u.PaymentTransactionID
	o.PaymentMethod = u.PaymentMethod
	o.PaymentStatusRaw = u.PaymentStatusRaw
	o.PaymentEventAt = u.PaymentEventAt
	o.UpdatedAt = u.UpdatedAt
}

// OrderPaymentView is the admin projection of an order's payment state.
type OrderPaymentView struct {
	OrderID              int64      `json:"order_id"`
	State                OrderState `json:"state"`
	PaymentTransactionID string     `json:"payment_transaction_id,omitempty"`
	PaymentMethod        string     `json:"payment_method,omitempty"`
	PaymentStatusRaw     string     `json:"payment_status_raw,omitempty"`
	PaymentEventAt       int64      `json:"payment_event_at,omitempty"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func (o *Order) PaymentView() OrderPaymentView {
	return OrderPaymentView{
		OrderID:              o.ID,
		State:                o.State,
		PaymentTransactionID: o.PaymentTransactionID,
		PaymentMethod:        o.PaymentMethod,
		PaymentStatusRaw:     o.PaymentStatusRaw,
		PaymentEventAt:       o.PaymentEventAt,
		UpdatedAt:            o.UpdatedAt,
	}
}
