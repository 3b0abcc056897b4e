package services_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/printforge/storefront/backend/services/payment-service/models"
	"github.com/printforge/storefront/backend/services/payment-service/repository"
	"github.com/stretchr/testify/require"
)

// memoryStore is an in-memory repository.OrderStore.
type memoryStore struct {
	mu        sync.Mutex
	orders    map[int64]*models.Order
	updates   int
	gets      int
	updateErr error
}

func newMemoryStore(orders ...*models.Order) *memoryStore {
	s := &memoryStore{orders: make(map[int64]*models.Order)}
	for _, o := range orders {
		s.orders[o.ID] = o
	}
	return s
}

func (s *memoryStore) Get(_ context.Context, id int64) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	o, ok := s.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *memoryStore) UpdatePayment(_ context.Context, id int64, update models.PaymentUpdate) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	o, ok := s.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	update.Apply(o)
	cp := *o
	return &cp, nil
}

func (s *memoryStore) order(id int64) models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.orders[id]
}

func (s *memoryStore) updateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}

type notification struct {
	orderID int64
	email   string
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notification
	err   error
	block chan struct{}
}

func (n *recordingNotifier) NotifyOrderPaid(ctx context.Context, orderID int64, email string) error {
	if n.block != nil {
		select {
		case <-n.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notification{orderID, email})
	return n.err
}

func (n *recordingNotifier) recorded() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.calls...)
}

type countingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func (m *countingMetrics) RecordCount(_ context.Context, name string, _ map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = make(map[string]int)
	}
	m.counts[name]++
	return nil
}

func (m *countingMetrics) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[name]
}

type memoryGuard struct {
	mu       sync.Mutex
	claimed  map[string]bool
	released []string
	err      error
}

func (g *memoryGuard) Claim(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return false, g.err
	}
	if g.claimed == nil {
		g.claimed = make(map[string]bool)
	}
	if g.claimed[key] {
		return false, nil
	}
	g.claimed[key] = true
	return true, nil
}

func (g *memoryGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.claimed, key)
	g.released = append(g.released, key)
	return nil
}

var errStoreDown = errors.New("connection refused")

func pendingOrder(id int64) *models.Order {
	return &models.Order{ID: id, State: models.StatePendingPayment, CustomerEmail: "buyer@example.com"}
}

type eventOpts struct {
	kind      string
	txID      string
	status    string
	reference string
	timestamp int64
	secret    string
	mutate    func(checksum string) string
}

// signedEvent builds a webhook body signed over ["id", "status"] the way the processor does.
func signedEvent(t *testing.T, o eventOpts) []byte {
	t.Helper()
	if o.kind == "" {
		o.kind = models.EventTransactionUpdated
	}
	if o.timestamp == 0 {
		o.timestamp = 1700000000
	}
	tx := map[string]any{
		"id":                  o.txID,
		"amount_in_cents":     2599,
		"reference":           o.reference,
		"customer_email":      "buyer@example.com",
		"payment_method_type": "CARD",
		"status":              o.status,
	}
	event := map[string]any{
		"event":       o.kind,
		"data":        map[string]any{"transaction": tx},
		"environment": "test",
		"timestamp":   o.timestamp,
		"sent_at":     "2023-11-14T22:13:20.000Z",
	}
	if o.secret != "" {
		sum := sha256.Sum256([]byte(o.txID + o.status + jsonInt(o.timestamp) + o.secret))
		checksum := hex.EncodeToString(sum[:])
		if o.mutate != nil {
			checksum = o.mutate(checksum)
		}
		event["signature"] = map[string]any{
			"properties": []string{"id", "status"},
			"checksum":   checksum,
		}
	}
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return body
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// flipLast changes the last hex character of a checksum.
func flipLast(checksum string) string {
	last := checksum[len(checksum)-1]
	repl := byte('0')
	if last == '0' {
		repl = '1'
	}
	return checksum[:len(checksum)-1] + string(repl)
}
