package notifier

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/printforge/storefront/backend/services/payment-service/models"
	"go.uber.org/zap"
)

// OrderReader loads the order a confirmation is rendered from.
type OrderReader interface {
	Get(ctx context.Context, id int64) (*models.Order, error)
}

var confirmationTemplate = template.Must(template.New("order_paid").Funcs(template.FuncMap{
	"money": func(cents int64) string { return fmt.Sprintf("%d.%02d", cents/100, cents%100) },
}).Parse(`<!DOCTYPE html>
<html>
<body>
<h2>Thanks for your order{{if .CustomerName}}, {{.CustomerName}}{{end}}!</h2>
<p>We received your payment for order <strong>#{{.ID}}</strong>.</p>
{{if .Items}}<table>
<tr><th>Item</th><th>Qty</th><th>Price</th></tr>
{{range .Items}}<tr><td>{{.ProductName}}</td><td>{{.Quantity}}</td><td>{{money .UnitPriceCents}}</td></tr>
{{end}}</table>{{end}}
<p>Total: <strong>{{money .TotalCents}}</strong></p>
{{if .Address}}<p>Shipping to: {{.Address}}{{if .City}}, {{.City}}{{end}}</p>{{end}}
</body>
</html>
`))

// EmailNotifier sends the customer an HTML order confirmation.
type EmailNotifier struct {
	orders OrderReader
	sender EmailSender
	logger *zap.Logger
}

func NewEmailNotifier(orders OrderReader, sender EmailSender, logger *zap.Logger) *EmailNotifier {
	return &EmailNotifier{orders: orders, sender: sender, logger: logger}
}

// NotifyOrderPaid re-reads the order for the confirmation body. The order's own contact
// email is used when customerEmail is empty.
func (n *EmailNotifier) NotifyOrderPaid(ctx context.Context, orderID int64, customerEmail string) error {
	order, err := n.orders.Get(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order %d: %w", orderID, err)
	}

	to := customerEmail
	if to == "" {
		to = order.CustomerEmail
	}
	if to == "" {
		return fmt.Errorf("order %d has no customer email", orderID)
	}

	var body bytes.Buffer
	if err := confirmationTemplate.Execute(&body, order); err != nil {
		return fmt.Errorf("render confirmation for order %d: %w", orderID, err)
	}

	res, err := n.sender.SendEmail(ctx, to, fmt.Sprintf("Order #%d confirmed", orderID), body.String())
	if err != nil {
		return err
	}
	n.logger.Info("Order confirmation email sent",
		zap.Int64("order_id", orderID),
		zap.String("message_id", res.MessageID))
	return nil
}
