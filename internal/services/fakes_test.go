package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/repositories"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// In-memory repositories. They ignore the executor; the transaction
// lifecycle is asserted through sqlmock instead.

type fakeOrderRepo struct {
	mu             sync.Mutex
	nextOrderID    int64
	nextItemID     int64
	orders         map[int64]*models.Order
	items          map[int64][]models.OrderItem
	failItemInsert int64 // product id whose insert fails
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[int64]*models.Order{}, items: map[int64][]models.OrderItem{}}
}

// seed stores an order with its items and returns the stored copy.
func (r *fakeOrderRepo) seed(o models.Order, items ...models.OrderItem) *models.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextOrderID++
	o.ID = r.nextOrderID
	if o.Version == 0 {
		o.Version = 1
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = models.PaymentStatusPending
	}
	r.orders[o.ID] = &o
	for _, item := range items {
		r.nextItemID++
		item.ID = r.nextItemID
		item.OrderID = o.ID
		r.items[o.ID] = append(r.items[o.ID], item)
	}
	cp := o
	return &cp
}

func (r *fakeOrderRepo) order(id int64) *models.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil
	}
	cp := *o
	return &cp
}

func (r *fakeOrderRepo) itemsOf(id int64) []models.OrderItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.OrderItem(nil), r.items[id]...)
}

func (r *fakeOrderRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

func (r *fakeOrderRepo) CreateOrder(ctx context.Context, _ repositories.SQLExecutor, order *models.Order) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.orders {
		if existing.OrderNumber == order.OrderNumber {
			return 0, fmt.Errorf("%w: order number %s", repositories.ErrDuplicateKey, order.OrderNumber)
		}
	}
	r.nextOrderID++
	order.ID = r.nextOrderID
	order.Version = 1
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
		order.UpdatedAt = order.CreatedAt
	}
	cp := *order
	cp.Items = nil
	r.orders[order.ID] = &cp
	return order.ID, nil
}

func (r *fakeOrderRepo) GetOrderByID(ctx context.Context, orderID int64) (*models.Order, error) {
	if o := r.order(orderID); o != nil {
		return o, nil
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeOrderRepo) GetOrderForUpdate(ctx context.Context, _ repositories.SQLExecutor, orderID int64) (*models.Order, error) {
	return r.GetOrderByID(ctx, orderID)
}

func (r *fakeOrderRepo) GetOrders(ctx context.Context, filters models.OrderFilters) ([]models.Order, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Order{}
	for _, o := range r.orders {
		if filters.Status != nil && string(o.Status) != *filters.Status {
			continue
		}
		if filters.TableID != nil && (o.TableID == nil || *o.TableID != *filters.TableID) {
			continue
		}
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r *fakeOrderRepo) GetChildOrders(ctx context.Context, parentOrderID int64) ([]models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Order{}
	for _, o := range r.orders {
		if o.ParentOrderID != nil && *o.ParentOrderID == parentOrderID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeOrderRepo) UpdateOrder(ctx context.Context, _ repositories.SQLExecutor, order *models.Order, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[order.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return repositories.ErrVersionConflict
	}
	cp := *order
	cp.Items, cp.ChildOrders = nil, nil
	cp.Version = stored.Version + 1
	r.orders[order.ID] = &cp
	order.Version = cp.Version
	return nil
}

func (r *fakeOrderRepo) UpdateOrderTotals(ctx context.Context, _ repositories.SQLExecutor, orderID int64, totals models.OrderTotals, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return repositories.ErrNotFound
	}
	o.ApplyTotals(totals)
	o.UpdatedAt = updatedAt
	o.Version++
	return nil
}

func (r *fakeOrderRepo) UpdateOrderStatus(ctx context.Context, _ repositories.SQLExecutor, orderID int64, newStatus models.OrderStatus, paidAt *time.Time, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return repositories.ErrNotFound
	}
	o.Status = newStatus
	if paidAt != nil {
		o.PaidAt = paidAt
	}
	o.UpdatedAt = updatedAt
	o.Version++
	return nil
}

func (r *fakeOrderRepo) UpdatePayment(ctx context.Context, _ repositories.SQLExecutor, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[order.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	o.Status = order.Status
	o.PaymentMethod = order.PaymentMethod
	o.PaymentStatus = order.PaymentStatus
	o.PaidAt = order.PaidAt
	o.AmountReceived = order.AmountReceived
	o.ChangeAmount = order.ChangeAmount
	o.Version++
	order.Version = o.Version
	return nil
}

func (r *fakeOrderRepo) DeleteOrder(ctx context.Context, _ repositories.SQLExecutor, orderID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[orderID]; !ok {
		return 0, repositories.ErrNotFound
	}
	delete(r.orders, orderID)
	return 1, nil
}

func (r *fakeOrderRepo) CreateOrderItem(ctx context.Context, _ repositories.SQLExecutor, item *models.OrderItem) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[item.OrderID]; !ok {
		return 0, fmt.Errorf("%w: order %d", repositories.ErrForeignKey, item.OrderID)
	}
	if r.failItemInsert != 0 && item.ProductID == r.failItemInsert {
		return 0, fmt.Errorf("%w: injected failure", repositories.ErrDatabaseError)
	}
	r.nextItemID++
	item.ID = r.nextItemID
	r.items[item.OrderID] = append(r.items[item.OrderID], *item)
	return item.ID, nil
}

func (r *fakeOrderRepo) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	items := r.itemsOf(orderID)
	if items == nil {
		items = []models.OrderItem{}
	}
	return items, nil
}

func (r *fakeOrderRepo) DeleteOrderItemsByOrderID(ctx context.Context, _ repositories.SQLExecutor, orderID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.items[orderID]))
	delete(r.items, orderID)
	return n, nil
}

type fakeTableRepo struct {
	mu           sync.Mutex
	tables       map[int64]*models.DiningTable
	orders       *fakeOrderRepo
	failRelease  bool
	countErr     error
	statusWrites int
}

func newFakeTableRepo(orders *fakeOrderRepo) *fakeTableRepo {
	return &fakeTableRepo{tables: map[int64]*models.DiningTable{}, orders: orders}
}

func (r *fakeTableRepo) add(id int64, status models.TableStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[id] = &models.DiningTable{ID: id, Name: fmt.Sprintf("T%d", id), Status: status}
}

func (r *fakeTableRepo) status(id int64) models.TableStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tables[id].Status
}

func (r *fakeTableRepo) CreateTable(ctx context.Context, _ repositories.SQLExecutor, table *models.DiningTable) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tables {
		if t.Name == table.Name {
			return 0, repositories.ErrDuplicateKey
		}
	}
	table.ID = int64(len(r.tables) + 1)
	cp := *table
	r.tables[table.ID] = &cp
	return table.ID, nil
}

func (r *fakeTableRepo) GetTableByID(ctx context.Context, tableID int64) (*models.DiningTable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tables[tableID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTableRepo) GetTables(ctx context.Context, filters models.TableFilters) ([]models.DiningTable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.DiningTable{}
	for _, t := range r.tables {
		if filters.Status != nil && string(t.Status) != *filters.Status {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (r *fakeTableRepo) UpdateTableStatus(ctx context.Context, _ repositories.SQLExecutor, tableID int64, status models.TableStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failRelease && status == models.TableStatusAvailable {
		return fmt.Errorf("%w: injected failure", repositories.ErrDatabaseError)
	}
	t, ok := r.tables[tableID]
	if !ok {
		return repositories.ErrNotFound
	}
	t.Status = status
	r.statusWrites++
	return nil
}

func (r *fakeTableRepo) CountOpenOrdersOnTable(ctx context.Context, _ repositories.SQLExecutor, tableID int64, excludeOrderID int64) (int, error) {
	if r.countErr != nil {
		return 0, r.countErr
	}
	r.orders.mu.Lock()
	defer r.orders.mu.Unlock()
	open := 0
	for _, o := range r.orders.orders {
		if o.ID == excludeOrderID || o.TableID == nil || *o.TableID != tableID {
			continue
		}
		if o.Status.HoldsTable() {
			open++
		}
	}
	return open, nil
}

type fakeProductRepo struct {
	products map[int64]*models.Product
}

func (r *fakeProductRepo) CreateProduct(ctx context.Context, _ repositories.SQLExecutor, product *models.Product) (int64, error) {
	product.ID = int64(len(r.products) + 1)
	cp := *product
	r.products[product.ID] = &cp
	return product.ID, nil
}

func (r *fakeProductRepo) GetProductByID(ctx context.Context, productID int64) (*models.Product, error) {
	p, ok := r.products[productID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProductRepo) GetProducts(ctx context.Context, category *string, onlyAvailable bool) ([]models.Product, error) {
	out := []models.Product{}
	for _, p := range r.products {
		if onlyAvailable && !p.IsAvailable {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

type fakeCustomerRepo struct {
	customers map[int64]*models.Customer
}

func (r *fakeCustomerRepo) CreateCustomer(ctx context.Context, _ repositories.SQLExecutor, customer *models.Customer) (int64, error) {
	customer.ID = int64(len(r.customers) + 1)
	cp := *customer
	r.customers[customer.ID] = &cp
	return customer.ID, nil
}

func (r *fakeCustomerRepo) GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCustomerRepo) GetCustomers(ctx context.Context, page, pageSize int, searchTerm *string) ([]models.Customer, int, error) {
	out := []models.Customer{}
	for _, c := range r.customers {
		out = append(out, *c)
	}
	return out, len(out), nil
}

type fakeSettingsRepo struct {
	settings *models.StoreSettings
}

func (r *fakeSettingsRepo) GetStoreSettings(ctx context.Context, _ repositories.SQLExecutor) (*models.StoreSettings, error) {
	if r.settings == nil {
		return nil, repositories.ErrNotFound
	}
	cp := *r.settings
	return &cp, nil
}

func (r *fakeSettingsRepo) UpsertStoreSettings(ctx context.Context, _ repositories.SQLExecutor, settings *models.StoreSettings) error {
	settings.ID = 1
	cp := *settings
	r.settings = &cp
	return nil
}

type publishedEvent struct {
	routingKey string
	payload    any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{routingKey: routingKey, payload: payload})
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, 0, len(p.events))
	for _, e := range p.events {
		keys = append(keys, e.routingKey)
	}
	return keys
}

// orderFixture wires an orderService to in-memory repositories and a sqlmock
// database used only for Begin/Commit/Rollback.
type orderFixture struct {
	svc       *orderService
	orders    *fakeOrderRepo
	tables    *fakeTableRepo
	products  *fakeProductRepo
	customers *fakeCustomerRepo
	settings  *fakeSettingsRepo
	events    *recordingPublisher
	mock      sqlmock.Sqlmock
	now       time.Time
}

func newOrderFixture(t *testing.T, totalsPolicy string) *orderFixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	orders := newFakeOrderRepo()
	f := &orderFixture{
		orders:    orders,
		tables:    newFakeTableRepo(orders),
		products:  &fakeProductRepo{products: map[int64]*models.Product{}},
		customers: &fakeCustomerRepo{customers: map[int64]*models.Customer{}},
		settings: &fakeSettingsRepo{settings: &models.StoreSettings{
			ID: 1, StoreName: "Test Bistro", TaxRate: decimal.RequireFromString("0.1"), Currency: "USD",
		}},
		events: &recordingPublisher{},
		mock:   mock,
		now:    time.Date(2024, 3, 1, 19, 30, 0, 0, time.UTC),
	}
	svc := NewOrderService(orders, f.tables, f.products, f.customers, f.settings, f.events, NewTotalsChecker(totalsPolicy), db).(*orderService)
	svc.now = func() time.Time { return f.now }
	f.svc = svc
	return f
}

func (f *orderFixture) expectCommittedTx() {
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
}

func (f *orderFixture) expectRolledBackTx() {
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func int64Ptr(v int64) *int64 { return &v }

func strPtr(v string) *string { return &v }

func line(productID int64, qty int, unit, total string) OrderItemInput {
	return OrderItemInput{
		ProductID: productID, Quantity: qty,
		UnitPrice: dec(unit), PriceBeforeTax: dec(unit), Total: dec(total),
		Discount: decimal.Zero, Tax: decimal.Zero,
	}
}

func totals(subtotal, tax, discount, total string) models.OrderTotals {
	return models.OrderTotals{Subtotal: dec(subtotal), Tax: dec(tax), Discount: dec(discount), Total: dec(total)}
}

func hasKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
