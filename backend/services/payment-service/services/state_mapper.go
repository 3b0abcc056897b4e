package services

import "github.com/printforge/storefront/backend/services/payment-service/models"

// MapTransactionStatus maps a processor status onto the order lifecycle. Unknown and
// empty statuses map to pending_payment.
func MapTransactionStatus(status models.TransactionStatus) models.OrderState {
	switch status {
	case models.TransactionApproved:
		return models.StatePaid
	case models.TransactionDeclined:
		return models.StatePaymentDeclined
	case models.TransactionVoided:
		return models.StatePaymentVoided
	case models.TransactionError:
		return models.StatePaymentError
	default:
		return models.StatePendingPayment
	}
}
