package services_test

import (
	"context"
	"net/http"
	"sync"
	"time"

	"order-service/models"
	"order-service/repository"
	"order-service/services"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Product repository mock ---

type mockProductRepo struct {
	mu       sync.Mutex
	products map[primitive.ObjectID]*models.Product
	// reserveLosers simulates a concurrent buyer winning the conditional
	// update: reads see enough stock, but the decrement fails.
	reserveLosers map[primitive.ObjectID]bool
}

func newMockProductRepo(products ...*models.Product) *mockProductRepo {
	m := &mockProductRepo{products: make(map[primitive.ObjectID]*models.Product)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockProductRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// AdjustStock mirrors the storage layer's conditional update: a negative
// delta only applies when stock is sufficient at apply time.
func (m *mockProductRepo) AdjustStock(_ context.Context, id primitive.ObjectID, delta int) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if delta < 0 && (p.Stock < -delta || m.reserveLosers[id]) {
		return nil, repository.ErrInsufficientStock
	}
	p.Stock += delta
	p.Version++
	cp := *p
	return &cp, nil
}

// --- Coupon repository mock ---

type mockCouponRepo struct {
	mu      sync.Mutex
	coupons map[primitive.ObjectID]*models.Coupon
}

func newMockCouponRepo(coupons ...*models.Coupon) *mockCouponRepo {
	m := &mockCouponRepo{coupons: make(map[primitive.ObjectID]*models.Coupon)}
	for _, c := range coupons {
		m.coupons[c.ID] = c
	}
	return m
}

func (m *mockCouponRepo) FindValidByID(_ context.Context, id primitive.ObjectID, now time.Time) (*models.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coupons[id]
	if !ok || now.Before(c.StartDate) || now.After(c.EndDate) {
		return nil, repository.ErrNotFound
	}
	cp := *c
	cp.UsedBy = append([]string(nil), c.UsedBy...)
	return &cp, nil
}

func (m *mockCouponRepo) AppendUsedBy(_ context.Context, id primitive.ObjectID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coupons[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.UsedBy = append(c.UsedBy, userID)
	c.Version++
	return nil
}

func (m *mockCouponRepo) RemoveOneUsedBy(_ context.Context, id primitive.ObjectID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coupons[id]
	if !ok {
		return repository.ErrNotFound
	}
	for i, u := range c.UsedBy {
		if u == userID {
			c.UsedBy = append(c.UsedBy[:i], c.UsedBy[i+1:]...)
			c.Version++
			return nil
		}
	}
	return nil
}

// --- Order repository mock ---

type mockOrderRepo struct {
	mu     sync.Mutex
	orders map[primitive.ObjectID]*models.Order
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[primitive.ObjectID]*models.Order)}
}

func (m *mockOrderRepo) Create(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

func (m *mockOrderRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) FindByIDAndUser(_ context.Context, id primitive.ObjectID, userID string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.CreatedBy != userID {
		return nil, repository.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) FindByUser(_ context.Context, userID string, page, limit int) ([]models.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.Order
	for _, o := range m.orders {
		if o.CreatedBy == userID {
			all = append(all, *o)
		}
	}
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (m *mockOrderRepo) FindPendingCardOrder(_ context.Context, id primitive.ObjectID, userID string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.CreatedBy != userID || o.Payment != models.PaymentCard || o.Status != models.OrderStatusPending {
		return nil, repository.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) SetIntentID(_ context.Context, id primitive.ObjectID, intentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	o.IntentID = intentID
	o.Version++
	return nil
}

func (m *mockOrderRepo) MarkPaid(_ context.Context, id primitive.ObjectID, paidAt time.Time) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != models.OrderStatusPending || o.Payment != models.PaymentCard {
		return nil, repository.ErrNotFound
	}
	o.Status = models.OrderStatusPlaced
	o.PaidAt = &paidAt
	o.Version++
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) Cancel(_ context.Context, id primitive.ObjectID, actor, reason string, allowDelivered bool) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	maxStatus := models.OrderStatusDelivered
	if allowDelivered {
		maxStatus = models.OrderStatusCanceled
	}
	if o.Status >= maxStatus {
		return nil, repository.ErrNotFound
	}
	o.Status = models.OrderStatusCanceled
	o.UpdatedBy = actor
	o.CancelReason = reason
	o.Version++
	cp := *o
	return &cp, nil
}

// --- Cart repository mock ---

type mockCartRepo struct {
	mu    sync.Mutex
	carts map[string]*models.Cart
}

func newMockCartRepo(carts ...*models.Cart) *mockCartRepo {
	m := &mockCartRepo{carts: make(map[string]*models.Cart)}
	for _, c := range carts {
		m.carts[c.UserID] = c
	}
	return m
}

func (m *mockCartRepo) GetCart(_ context.Context, userID string) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[userID]
	if !ok {
		return nil, nil
	}
	cp := *c
	cp.Products = append([]models.CartItem(nil), c.Products...)
	return &cp, nil
}

func (m *mockCartRepo) SaveCart(_ context.Context, cart *models.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *cart
	m.carts[cart.UserID] = &cp
	return nil
}

func (m *mockCartRepo) DeleteCart(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, userID)
	return nil
}

// --- Payment repository mock ---

type mockPaymentRepo struct {
	mu   sync.Mutex
	rows []*models.Payment
}

func (m *mockPaymentRepo) Create(_ context.Context, payment *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *payment
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *mockPaymentRepo) MarkSucceeded(_ context.Context, intentID string, at time.Time) error {
	return m.setStatus(intentID, models.PaymentStatusSucceeded, at)
}

func (m *mockPaymentRepo) MarkRefunded(_ context.Context, intentID string, at time.Time) error {
	return m.setStatus(intentID, models.PaymentStatusRefunded, at)
}

func (m *mockPaymentRepo) setStatus(intentID, status string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.StripeIntentID == intentID {
			row.Status = status
			if status == models.PaymentStatusSucceeded {
				row.SucceededAt = &at
			} else {
				row.RefundedAt = &at
			}
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *mockPaymentRepo) byIntent(intentID string) *models.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.StripeIntentID == intentID {
			cp := *row
			return &cp
		}
	}
	return nil
}

// --- Gateway mock ---

type mockGateway struct {
	mu           sync.Mutex
	sessions     int
	intents      int
	coupons      []float64
	confirmCalls []string
	refundCalls  []string
	refundErr    error
	sessionErr   error
	webhookEvent *services.WebhookEvent
	webhookErr   error
	lastCheckout services.CheckoutInput
	lastAmount   int64
}

func (g *mockGateway) CreateCheckoutSession(_ context.Context, in services.CheckoutInput) (*services.GatewaySession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sessionErr != nil {
		return nil, g.sessionErr
	}
	g.sessions++
	g.lastCheckout = in
	return &services.GatewaySession{ID: "cs_test_1", URL: "https://checkout.example/cs_test_1"}, nil
}

func (g *mockGateway) CreatePaymentMethod(_ context.Context) (string, error) {
	return "pm_test_1", nil
}

func (g *mockGateway) CreatePaymentIntent(_ context.Context, amount int64, currency, methodID string) (*services.GatewayIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents++
	g.lastAmount = amount
	return &services.GatewayIntent{ID: "pi_test_1", ClientSecret: "pi_test_1_secret"}, nil
}

func (g *mockGateway) ConfirmPaymentIntent(_ context.Context, intentID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.confirmCalls = append(g.confirmCalls, intentID)
	return nil
}

func (g *mockGateway) Refund(_ context.Context, intentID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refundErr != nil {
		return g.refundErr
	}
	g.refundCalls = append(g.refundCalls, intentID)
	return nil
}

func (g *mockGateway) CreateCoupon(_ context.Context, percentOff float64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.coupons = append(g.coupons, percentOff)
	return "gc_test_1", nil
}

func (g *mockGateway) ParseWebhook(_ *http.Request) (*services.WebhookEvent, error) {
	if g.webhookErr != nil {
		return nil, g.webhookErr
	}
	return g.webhookEvent, nil
}

// --- SNS and stock publisher mocks ---

type mockSNSPublisher struct {
	mu        sync.Mutex
	published []string
}

func (m *mockSNSPublisher) Publish(_ context.Context, topicArn string, _ []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, topicArn)
	return nil
}

type mockStockPublisher struct {
	mu        sync.Mutex
	published [][]models.StockLevel
	err       error
}

func (m *mockStockPublisher) PublishStockChange(_ context.Context, levels []models.StockLevel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, levels)
	return nil
}
