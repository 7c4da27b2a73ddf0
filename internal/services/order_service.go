package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"restaurant_pos_backend/internal/events"
	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/repositories"
	"restaurant_pos_backend/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// --- Data Transfer Objects (DTOs) ---

// CreateOrderItemRequest is a line on a new order. Prices are taken from the product.
type CreateOrderItemRequest struct {
	ProductID int64   `json:"product_id" binding:"required,gt=0"`
	Quantity  int     `json:"quantity" binding:"required,gt=0"`
	Notes     *string `json:"notes"`
}

// CreateOrderRequest is used for creating a new order. Every field is
// optional: an empty request produces an empty POS order.
type CreateOrderRequest struct {
	OrderNumber  *string                  `json:"order_number"`
	TableID      *int64                   `json:"table_id" binding:"omitempty,gt=0"`
	CustomerID   *int64                   `json:"customer_id" binding:"omitempty,gt=0"`
	CustomerName *string                  `json:"customer_name"`
	GuestCount   *int                     `json:"guest_count" binding:"omitempty,gt=0"`
	SalesChannel *string                  `json:"sales_channel"`
	Notes        *string                  `json:"notes"`
	Items        []CreateOrderItemRequest `json:"items" binding:"omitempty,dive"`
}

// OrderItemInput is a line whose monetary fields were computed by the
// client. It is stored verbatim.
type OrderItemInput struct {
	ProductID      int64           `json:"product_id" binding:"required,gt=0"`
	Quantity       int             `json:"quantity" binding:"required,gt=0"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Total          decimal.Decimal `json:"total"`
	Discount       decimal.Decimal `json:"discount"`
	Tax            decimal.Decimal `json:"tax"`
	PriceBeforeTax decimal.Decimal `json:"price_before_tax"`
	Notes          *string         `json:"notes"`
}

func (in OrderItemInput) toModel(orderID int64) models.OrderItem {
	return models.OrderItem{
		OrderID:        orderID,
		ProductID:      in.ProductID,
		Quantity:       in.Quantity,
		UnitPrice:      in.UnitPrice,
		Total:          in.Total,
		Discount:       in.Discount,
		Tax:            in.Tax,
		PriceBeforeTax: in.PriceBeforeTax,
		Notes:          in.Notes,
	}
}

// UpdateOrderRequest carries the editable order fields. Nil fields are left
// unchanged. Items, when present, replace the order's lines.
type UpdateOrderRequest struct {
	ExpectedVersion *int              `json:"expected_version" binding:"omitempty,gt=0"`
	TableID         *int64            `json:"table_id" binding:"omitempty,gt=0"`
	CustomerID      *int64            `json:"customer_id" binding:"omitempty,gt=0"`
	CustomerName    *string           `json:"customer_name"`
	GuestCount      *int              `json:"guest_count" binding:"omitempty,gt=0"`
	Notes           *string           `json:"notes"`
	Subtotal        *decimal.Decimal  `json:"subtotal"`
	Tax             *decimal.Decimal  `json:"tax"`
	Discount        *decimal.Decimal  `json:"discount"`
	Total           *decimal.Decimal  `json:"total"`
	Items           *[]OrderItemInput `json:"items" binding:"omitempty,dive"`
}

func (r UpdateOrderRequest) hasTotals() bool {
	return r.Subtotal != nil || r.Tax != nil || r.Discount != nil || r.Total != nil
}

// UpdateOrderStatusRequest is used for updating the status of an order.
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required,order_status"`
}

// CompletePaymentRequest records how an order was settled.
type CompletePaymentRequest struct {
	PaymentMethod  string           `json:"payment_method" binding:"required"`
	AmountReceived *decimal.Decimal `json:"amount_received"`
	Change         *decimal.Decimal `json:"change"`
}

// --- OrderService Interface ---
type OrderService interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest, employeeID *int64) (*models.Order, error)
	GetOrders(ctx context.Context, filters models.OrderFilters) ([]models.Order, int, error)
	GetOrderByID(ctx context.Context, orderID int64) (*models.Order, error)
	UpdateOrder(ctx context.Context, ref models.OrderRef, req UpdateOrderRequest) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, ref models.OrderRef, status models.OrderStatus) (*models.Order, error)
	CompletePayment(ctx context.Context, orderID int64, req CompletePaymentRequest) (*models.Order, error)
	SplitOrder(ctx context.Context, req SplitOrderRequest) (*SplitOrderResult, error)
	DeleteOrder(ctx context.Context, orderID int64) error
}

// --- orderService Implementation ---
type orderService struct {
	orderRepo    repositories.OrderRepository
	tableRepo    repositories.TableRepository
	productRepo  repositories.ProductRepository
	customerRepo repositories.CustomerRepository
	settingsRepo repositories.SettingsRepository
	publisher    events.Publisher
	totals       *TotalsChecker
	db           *sql.DB // For managing transactions
	now          func() time.Time
}

// NewOrderService creates a new instance of OrderService.
func NewOrderService(
	or repositories.OrderRepository,
	tr repositories.TableRepository,
	pr repositories.ProductRepository,
	cr repositories.CustomerRepository,
	sr repositories.SettingsRepository,
	publisher events.Publisher,
	totals *TotalsChecker,
	db *sql.DB,
) OrderService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &orderService{
		orderRepo:    or,
		tableRepo:    tr,
		productRepo:  pr,
		customerRepo: cr,
		settingsRepo: sr,
		publisher:    publisher,
		totals:       totals,
		db:           db,
		now:          time.Now,
	}
}

// --- Method Implementations ---

func (s *orderService) CreateOrder(ctx context.Context, req CreateOrderRequest, employeeID *int64) (*models.Order, error) {
	settings, err := s.settingsRepo.GetStoreSettings(ctx, s.db)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrStoreSettingsNotFound
		}
		return nil, fmt.Errorf("failed to load store settings: %w", err)
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	for _, itemReq := range req.Items {
		if itemReq.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity for product ID %d must be positive", ErrValidation, itemReq.ProductID)
		}
		product, repoErr := s.productRepo.GetProductByID(ctx, itemReq.ProductID)
		if repoErr != nil {
			if errors.Is(repoErr, repositories.ErrNotFound) {
				return nil, fmt.Errorf("%w: product ID %d", ErrProductNotFound, itemReq.ProductID)
			}
			return nil, fmt.Errorf("failed to fetch product %d: %w", itemReq.ProductID, repoErr)
		}
		if !product.IsAvailable {
			return nil, fmt.Errorf("%w: product ID %d", ErrProductNotFound, itemReq.ProductID)
		}

		qty := decimal.NewFromInt(int64(itemReq.Quantity))
		lineTax := product.TaxPerUnit().Mul(qty)
		items = append(items, models.OrderItem{
			ProductID:      product.ID,
			Quantity:       itemReq.Quantity,
			UnitPrice:      product.Price,
			PriceBeforeTax: product.Price,
			Tax:            lineTax,
			Discount:       decimal.Zero,
			Total:          product.Price.Mul(qty).Add(lineTax),
			Notes:          itemReq.Notes,
		})
	}

	if req.CustomerID != nil {
		if _, err := s.customerRepo.GetCustomerByID(ctx, *req.CustomerID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, fmt.Errorf("%w: ID %d", ErrCustomerNotFound, *req.CustomerID)
			}
			return nil, fmt.Errorf("failed to fetch customer %d: %w", *req.CustomerID, err)
		}
	}

	order := models.Order{
		OrderNumber:     s.newOrderNumber(req.OrderNumber),
		TableID:         req.TableID,
		CustomerID:      req.CustomerID,
		EmployeeID:      employeeID,
		Status:          models.OrderStatusPending,
		PriceIncludeTax: settings.PriceIncludeTax,
		PaymentStatus:   models.PaymentStatusPending,
		SalesChannel:    defaultSalesChannel(req.SalesChannel, req.TableID),
		CustomerName:    req.CustomerName,
		GuestCount:      req.GuestCount,
		Notes:           req.Notes,
	}
	order.ApplyTotals(ComputeOrderTotals(items))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	if order.TableID != nil {
		if err := s.occupyTable(ctx, tx, *order.TableID); err != nil {
			return nil, err
		}
	}

	createdOrderID, err := s.orderRepo.CreateOrder(ctx, tx, &order)
	if err != nil {
		return nil, mapOrderWriteError(err, "failed to create order record")
	}

	for i := range items {
		items[i].OrderID = createdOrderID
		if _, err := s.orderRepo.CreateOrderItem(ctx, tx, &items[i]); err != nil {
			return nil, mapOrderWriteError(err, fmt.Sprintf("failed to create order item (product_id: %d)", items[i].ProductID))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order transaction: %w", err)
	}

	utils.LogInfo("Order created", map[string]interface{}{
		"order_id": createdOrderID, "order_number": order.OrderNumber, "items": len(items),
	})
	order.Items = items
	s.publish(ctx, events.OrderCreated, &order)

	return s.GetOrderByID(ctx, createdOrderID)
}

func (s *orderService) GetOrders(ctx context.Context, filters models.OrderFilters) ([]models.Order, int, error) {
	if filters.Status != nil && *filters.Status != "" {
		status, err := models.ParseOrderStatus(*filters.Status)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrInvalidOrderStatus, err)
		}
		normalized := string(status)
		filters.Status = &normalized
	}
	if filters.Date != nil && *filters.Date != "" {
		if _, err := time.Parse("2006-01-02", *filters.Date); err != nil {
			return nil, 0, fmt.Errorf("%w: invalid date filter %q, expected YYYY-MM-DD", ErrValidation, *filters.Date)
		}
	}

	orders, totalCount, err := s.orderRepo.GetOrders(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get orders: %w", err)
	}
	return orders, totalCount, nil
}

// GetOrderByID loads the order header, its items and its split children concurrently.
func (s *orderService) GetOrderByID(ctx context.Context, orderID int64) (*models.Order, error) {
	var (
		order    *models.Order
		items    []models.OrderItem
		children []models.Order
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		order, err = s.orderRepo.GetOrderByID(gctx, orderID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("failed to get order by ID from repository: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		items, err = s.orderRepo.GetOrderItemsByOrderID(gctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to get order items for order ID %d: %w", orderID, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		children, err = s.orderRepo.GetChildOrders(gctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to get child orders for order ID %d: %w", orderID, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	order.Items = items
	order.ChildOrders = children
	return order, nil
}

func (s *orderService) UpdateOrder(ctx context.Context, ref models.OrderRef, req UpdateOrderRequest) (*models.Order, error) {
	if req.Items != nil {
		if err := validateItemInputs(*req.Items, "items"); err != nil {
			return nil, err
		}
	}

	if token, pending := ref.Token(); pending {
		return pendingOrderEcho(token, req), nil
	}
	orderID, _ := ref.ID()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := s.orderRepo.GetOrderForUpdate(ctx, tx, orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to fetch order for update: %w", err)
	}
	if req.ExpectedVersion != nil && *req.ExpectedVersion != current.Version {
		return nil, fmt.Errorf("%w: expected version %d, found %d", ErrOrderVersionConflict, *req.ExpectedVersion, current.Version)
	}

	previousTableID := current.TableID
	updated := *current
	if req.TableID != nil {
		updated.TableID = req.TableID
	}
	if req.CustomerID != nil {
		updated.CustomerID = req.CustomerID
	}
	if req.CustomerName != nil {
		updated.CustomerName = req.CustomerName
	}
	if req.GuestCount != nil {
		updated.GuestCount = req.GuestCount
	}
	if req.Notes != nil {
		updated.Notes = req.Notes
	}
	if req.Subtotal != nil {
		updated.Subtotal = *req.Subtotal
	}
	if req.Tax != nil {
		updated.Tax = *req.Tax
	}
	if req.Discount != nil {
		updated.Discount = *req.Discount
	}
	if req.Total != nil {
		updated.Total = *req.Total
	}
	if req.hasTotals() {
		if err := s.totals.Check(fmt.Sprintf("order %d update", orderID), updated.Totals()); err != nil {
			return nil, err
		}
	}

	tableChanged := updated.TableID != nil && (previousTableID == nil || *previousTableID != *updated.TableID)
	if tableChanged {
		if err := s.occupyTable(ctx, tx, *updated.TableID); err != nil {
			return nil, err
		}
	}

	// Saving exactly as received.
	if err := s.orderRepo.UpdateOrder(ctx, tx, &updated, current.Version); err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return nil, ErrOrderNotFound
		case errors.Is(err, repositories.ErrVersionConflict):
			return nil, ErrOrderVersionConflict
		}
		return nil, mapOrderWriteError(err, "failed to update order")
	}

	if req.Items != nil {
		if _, err := s.orderRepo.DeleteOrderItemsByOrderID(ctx, tx, orderID); err != nil {
			return nil, fmt.Errorf("failed to delete order items: %w", err)
		}
		for _, in := range *req.Items {
			item := in.toModel(orderID)
			if _, err := s.orderRepo.CreateOrderItem(ctx, tx, &item); err != nil {
				return nil, mapOrderWriteError(err, fmt.Sprintf("failed to create order item (product_id: %d)", item.ProductID))
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction for order update: %w", err)
	}

	if tableChanged && previousTableID != nil {
		s.releaseTableIfIdle(ctx, *previousTableID, orderID)
	}
	return s.GetOrderByID(ctx, orderID)
}

func (s *orderService) DeleteOrder(ctx context.Context, orderID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	order, err := s.orderRepo.GetOrderForUpdate(ctx, tx, orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("failed to fetch order for deletion: %w", err)
	}

	if _, err := s.orderRepo.DeleteOrderItemsByOrderID(ctx, tx, orderID); err != nil {
		return fmt.Errorf("failed to delete order items: %w", err)
	}
	if _, err := s.orderRepo.DeleteOrder(ctx, tx, orderID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("failed to delete order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order deletion: %w", err)
	}

	if order.TableID != nil {
		s.releaseTableIfIdle(ctx, *order.TableID, orderID)
	}
	return nil
}

// --- helpers ---

func (s *orderService) newOrderNumber(requested *string) string {
	if requested != nil && strings.TrimSpace(*requested) != "" {
		return strings.TrimSpace(*requested)
	}
	return fmt.Sprintf("ORD-%s-%s", s.now().Format("20060102"), orderNumberSuffix())
}

// orderNumberSuffix returns eight random upper-case hex characters.
func orderNumberSuffix() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func defaultSalesChannel(requested *string, tableID *int64) string {
	if requested != nil && strings.TrimSpace(*requested) != "" {
		return strings.TrimSpace(*requested)
	}
	if tableID != nil {
		return models.SalesChannelTable
	}
	return models.SalesChannelPOS
}

// occupyTable checks the table exists and marks it occupied inside tx.
func (s *orderService) occupyTable(ctx context.Context, tx repositories.SQLExecutor, tableID int64) error {
	if _, err := s.tableRepo.GetTableByID(ctx, tableID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: ID %d", ErrTableNotFound, tableID)
		}
		return fmt.Errorf("failed to fetch table %d: %w", tableID, err)
	}
	if err := s.tableRepo.UpdateTableStatus(ctx, tx, tableID, models.TableStatusOccupied); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: ID %d", ErrTableNotFound, tableID)
		}
		return fmt.Errorf("failed to mark table %d occupied: %w", tableID, err)
	}
	return nil
}

// releaseTableIfIdle marks the table available when no order other than
// orderID is still open on it. Failures are logged and swallowed.
func (s *orderService) releaseTableIfIdle(ctx context.Context, tableID, orderID int64) {
	fields := map[string]interface{}{"table_id": tableID, "order_id": orderID}

	open, err := s.tableRepo.CountOpenOrdersOnTable(ctx, s.db, tableID, orderID)
	if err != nil {
		utils.LogWarn(err, "Table release skipped: could not count open orders", fields)
		return
	}
	if open > 0 {
		fields["open_orders"] = open
		utils.LogDebug("Table still has open orders", fields)
		return
	}
	if err := s.tableRepo.UpdateTableStatus(ctx, s.db, tableID, models.TableStatusAvailable); err != nil {
		utils.LogWarn(err, "Table release failed", fields)
		return
	}

	utils.LogInfo("Table released", fields)
	s.publish(ctx, events.TableReleased, map[string]interface{}{"table_id": tableID, "order_id": orderID})
}

func (s *orderService) publish(ctx context.Context, routingKey string, payload any) {
	if err := s.publisher.Publish(ctx, routingKey, payload); err != nil {
		utils.LogWarn(err, "Failed to publish event", map[string]interface{}{"routing_key": routingKey})
	}
}

// mapOrderWriteError turns repository write failures into service errors.
func mapOrderWriteError(err error, msg string) error {
	switch {
	case errors.Is(err, repositories.ErrDuplicateKey):
		return fmt.Errorf("%w: %v", ErrDuplicateOrderNumber, err)
	case errors.Is(err, repositories.ErrForeignKey):
		return fmt.Errorf("%w: %s: %v", ErrValidation, msg, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func validateItemInputs(items []OrderItemInput, field string) error {
	for i, item := range items {
		if item.ProductID <= 0 {
			return fmt.Errorf("%w: %s[%d].product_id is required", ErrValidation, field, i)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: %s[%d].quantity must be positive", ErrValidation, field, i)
		}
	}
	return nil
}

// pendingOrderEcho answers updates addressed to an order the client has not
// stored yet. Nothing is persisted.
func pendingOrderEcho(token string, req UpdateOrderRequest) *models.Order {
	order := &models.Order{
		OrderNumber:   token,
		ClientToken:   token,
		TableID:       req.TableID,
		CustomerID:    req.CustomerID,
		CustomerName:  req.CustomerName,
		GuestCount:    req.GuestCount,
		Notes:         req.Notes,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
	}
	if req.Subtotal != nil {
		order.Subtotal = *req.Subtotal
	}
	if req.Tax != nil {
		order.Tax = *req.Tax
	}
	if req.Discount != nil {
		order.Discount = *req.Discount
	}
	if req.Total != nil {
		order.Total = *req.Total
	}
	if req.Items != nil {
		for _, in := range *req.Items {
			order.Items = append(order.Items, in.toModel(0))
		}
	}
	return order
}
