package services_test

import (
	"testing"

	"github.com/printforge/storefront/backend/services/payment-service/models"
	"github.com/printforge/storefront/backend/services/payment-service/services"
	"github.com/stretchr/testify/assert"
)

func TestMapTransactionStatus(t *testing.T) {
	cases := []struct {
		status models.TransactionStatus
		want   models.OrderState
	}{
		{models.TransactionApproved, models.StatePaid},
		{models.TransactionDeclined, models.StatePaymentDeclined},
		{models.TransactionVoided, models.StatePaymentVoided},
		{models.TransactionError, models.StatePaymentError},
		{models.TransactionPending, models.StatePendingPayment},
		{"", models.StatePendingPayment},
		{"approved", models.StatePendingPayment},
		{"REFUNDED", models.StatePendingPayment},
		{"💳", models.StatePendingPayment},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, services.MapTransactionStatus(tc.status), "status %q", tc.status)
	}
}

func TestMapTransactionStatus_Total(t *testing.T) {
	valid := map[models.OrderState]bool{
		models.StatePendingPayment:  true,
		models.StatePaid:            true,
		models.StatePaymentDeclined: true,
		models.StatePaymentVoided:   true,
		models.StatePaymentError:    true,
	}
	inputs := []string{"APPROVED", "DECLINED", "VOIDED", "ERROR", "PENDING", " APPROVED", "null", "\x00", "ERROR\n"}
	for i := 0; i < 256; i++ {
		inputs = append(inputs, string(rune(i)))
	}
	for _, in := range inputs {
		assert.True(t, valid[services.MapTransactionStatus(models.TransactionStatus(in))], "input %q", in)
	}
}
