package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/printforge/storefront/backend/services/payment-service/models"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoOrderRepository.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoOrderRepository implements OrderStore on a DynamoDB table keyed by the
// numeric attribute `order_id`.
type DynamoOrderRepository struct {
	client DynamoAPI
	table  string
}

func NewDynamoOrderRepository(client DynamoAPI, table string) *DynamoOrderRepository {
	return &DynamoOrderRepository{client: client, table: table}
}

type ddbOrderItem struct {
	ProductName    string `dynamodbav:"product_name"`
	Quantity       int    `dynamodbav:"quantity"`
	UnitPriceCents int64  `dynamodbav:"unit_price_cents"`
}

type ddbOrder struct {
	OrderID              int64          `dynamodbav:"order_id"`
	State                string         `dynamodbav:"state"`
	CustomerName         string         `dynamodbav:"customer_name,omitempty"`
	CustomerEmail        string         `dynamodbav:"customer_email,omitempty"`
	Phone                string         `dynamodbav:"phone,omitempty"`
	Address              string         `dynamodbav:"address,omitempty"`
	City                 string         `dynamodbav:"city,omitempty"`
	TotalCents           int64          `dynamodbav:"total_cents"`
	Items                []ddbOrderItem `dynamodbav:"items,omitempty"`
	PaymentTransactionID string         `dynamodbav:"payment_transaction_id,omitempty"`
	PaymentMethod        string         `dynamodbav:"payment_method,omitempty"`
	PaymentStatusRaw     string         `dynamodbav:"payment_status_raw,omitempty"`
	PaymentEventAt       int64          `dynamodbav:"payment_event_at"`
	CreatedAt            string         `dynamodbav:"created_at,omitempty"`
	UpdatedAt            string         `dynamodbav:"updated_at,omitempty"`
}

func (d ddbOrder) toModel() *models.Order {
	o := &models.Order{
		ID:                   d.OrderID,
		State:                models.OrderState(d.State),
		CustomerName:         d.CustomerName,
		CustomerEmail:        d.CustomerEmail,
		Phone:                d.Phone,
		Address:              d.Address,
		City:                 d.City,
		TotalCents:           d.TotalCents,
		PaymentTransactionID: d.PaymentTransactionID,
		PaymentMethod:        d.PaymentMethod,
		PaymentStatusRaw:     d.PaymentStatusRaw,
		PaymentEventAt:       d.PaymentEventAt,
	}
	if o.State == "" {
		o.State = models.StatePendingPayment
	}
	o.CreatedAt, _ = time.Parse(time.RFC3339Nano, d.CreatedAt)
	o.UpdatedAt, _ = time.Parse(time.RFC3339Nano, d.UpdatedAt)
	for _, it := range d.Items {
		o.Items = append(o.Items, models.OrderItem{
			OrderID:        d.OrderID,
			ProductName:    it.ProductName,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
		})
	}
	return o
}

func orderKey(id int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"order_id": &types.AttributeValueMemberN{Value: strconv.FormatInt(id, 10)},
	}
}

func (r *DynamoOrderRepository) Get(ctx context.Context, id int64) (*models.Order, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            orderKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb GetItem order %d: %w", id, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrOrderNotFound
	}

	var item ddbOrder
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal order %d: %w", id, err)
	}
	return item.toModel(), nil
}

// UpdatePayment applies the update only if the item exists, so an unknown id surfaces
// as ErrOrderNotFound instead of creating a stub item.
func (r *DynamoOrderRepository) UpdatePayment(ctx context.Context, id int64, update models.PaymentUpdate) (*models.Order, error) {
	values, err := attributevalue.MarshalMap(map[string]interface{}{
		":state":  string(update.State),
		":txid":   update.PaymentTransactionID,
		":method": update.PaymentMethod,
		":raw":    update.PaymentStatusRaw,
		":evat":   update.PaymentEventAt,
		":upd":    update.UpdatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal update values: %w", err)
	}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.table),
		Key:                 orderKey(id),
		ConditionExpression: aws.String("attribute_exists(#id)"),
		UpdateExpression: aws.String("SET #state = :state, #txid = :txid, #method = :method, " +
			"#raw = :raw, #evat = :evat, #upd = :upd"),
		ExpressionAttributeNames: map[string]string{
			"#id":     "order_id",
			"#state":  "state",
			"#txid":   "payment_transaction_id",
			"#method": "payment_method",
			"#raw":    "payment_status_raw",
			"#evat":   "payment_event_at",
			"#upd":    "updated_at",
		},
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("dynamodb UpdateItem order %d: %w", id, err)
	}

	var item ddbOrder
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return nil, fmt.Errorf("unmarshal updated order %d: %w", id, err)
	}
	return item.toModel(), nil
}
