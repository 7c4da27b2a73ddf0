package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"restaurant_pos_backend/internal/models"
)

// OrderRepository defines the interface for order-related database operations.
type OrderRepository interface {
	// Order methods
	CreateOrder(ctx context.Context, executor SQLExecutor, order *models.Order) (int64, error)
	GetOrderByID(ctx context.Context, orderID int64) (*models.Order, error)
	GetOrderForUpdate(ctx context.Context, executor SQLExecutor, orderID int64) (*models.Order, error) // Locks the row until the transaction ends
	GetOrders(ctx context.Context, filters models.OrderFilters) ([]models.Order, int, error)      // orders, total count, error
	GetChildOrders(ctx context.Context, parentOrderID int64) ([]models.Order, error)
	UpdateOrder(ctx context.Context, executor SQLExecutor, order *models.Order, expectedVersion int) error
	UpdateOrderTotals(ctx context.Context, executor SQLExecutor, orderID int64, totals models.OrderTotals, updatedAt time.Time) error
	UpdateOrderStatus(ctx context.Context, executor SQLExecutor, orderID int64, newStatus models.OrderStatus, paidAt *time.Time, updatedAt time.Time) error
	UpdatePayment(ctx context.Context, executor SQLExecutor, order *models.Order) error
	DeleteOrder(ctx context.Context, executor SQLExecutor, orderID int64) (int64, error) // Returns rows affected or error

	// OrderItem methods
	CreateOrderItem(ctx context.Context, executor SQLExecutor, item *models.OrderItem) (int64, error)
	GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	DeleteOrderItemsByOrderID(ctx context.Context, executor SQLExecutor, orderID int64) (int64, error) // Returns rows affected or error
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository.
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

const selectOrderFields = `
	o.id, o.order_number, o.table_id, o.customer_id, o.employee_id, o.parent_order_id, o.status,
	o.subtotal, o.tax, o.discount, o.total, o.price_include_tax,
	o.payment_method, o.payment_status, o.paid_at, o.amount_received, o.change_amount,
	o.sales_channel, o.customer_name, o.guest_count, o.notes, o.version,
	o.created_at, o.updated_at`

func orderScanDest(o *models.Order) []interface{} {
	return []interface{}{
		&o.ID, &o.OrderNumber, &o.TableID, &o.CustomerID, &o.EmployeeID, &o.ParentOrderID, &o.Status,
		&o.Subtotal, &o.Tax, &o.Discount, &o.Total, &o.PriceIncludeTax,
		&o.PaymentMethod, &o.PaymentStatus, &o.PaidAt, &o.AmountReceived, &o.ChangeAmount,
		&o.SalesChannel, &o.CustomerName, &o.GuestCount, &o.Notes, &o.Version,
		&o.CreatedAt, &o.UpdatedAt,
	}
}

// scanOrderRow scans a single order row selected with selectOrderFields.
func scanOrderRow(row scanner, orderID int64) (*models.Order, error) {
	order := &models.Order{}
	if err := row.Scan(orderScanDest(order)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	return order, nil
}

// --- Order Methods ---

func (r *orderRepository) CreateOrder(ctx context.Context, executor SQLExecutor, order *models.Order) (int64, error) {
	query := `INSERT INTO orders
	            (order_number, table_id, customer_id, employee_id, parent_order_id, status,
	             subtotal, tax, discount, total, price_include_tax,
	             payment_method, payment_status, sales_channel, customer_name, guest_count, notes,
	             version, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, 1, $18, $19)
	          RETURNING id, version`

	now := time.Now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = now
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = models.PaymentStatusPending
	}

	err := executor.QueryRowContext(ctx, query,
		order.OrderNumber, order.TableID, order.CustomerID, order.EmployeeID, order.ParentOrderID, string(order.Status),
		order.Subtotal, order.Tax, order.Discount, order.Total, order.PriceIncludeTax,
		order.PaymentMethod, order.PaymentStatus, order.SalesChannel, order.CustomerName, order.GuestCount, order.Notes,
		order.CreatedAt, order.UpdatedAt,
	).Scan(&order.ID, &order.Version)
	if err != nil {
		return 0, classifyWriteError(err, "creating order "+order.OrderNumber)
	}
	return order.ID, nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, orderID int64) (*models.Order, error) {
	query := `SELECT ` + selectOrderFields + `, gt.name
	          FROM orders o
	          LEFT JOIN dining_tables gt ON o.table_id = gt.id
	          WHERE o.id = $1`

	order := &models.Order{}
	var tableName sql.NullString
	dest := append(orderScanDest(order), &tableName)
	if err := r.db.QueryRowContext(ctx, query, orderID).Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting order by ID %d: %v", ErrDatabaseError, orderID, err)
	}
	if tableName.Valid {
		order.TableName = &tableName.String
	}
	return order, nil
}

func (r *orderRepository) GetOrderForUpdate(ctx context.Context, executor SQLExecutor, orderID int64) (*models.Order, error) {
	query := `SELECT ` + selectOrderFields + ` FROM orders o WHERE o.id = $1 FOR UPDATE`
	return scanOrderRow(executor.QueryRowContext(ctx, query, orderID), orderID)
}

func (r *orderRepository) GetOrders(ctx context.Context, filters models.OrderFilters) ([]models.Order, int, error) {
	orders := []models.Order{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + selectOrderFields + `, gt.name, COUNT(*) OVER() as total_count
        FROM orders o
        LEFT JOIN dining_tables gt ON o.table_id = gt.id`)

	var conditions []string
	var args []interface{}
	argCounter := 1

	if filters.TableID != nil {
		conditions = append(conditions, fmt.Sprintf("o.table_id = $%d", argCounter))
		args = append(args, *filters.TableID)
		argCounter++
	}
	if filters.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("o.customer_id = $%d", argCounter))
		args = append(args, *filters.CustomerID)
		argCounter++
	}
	if filters.EmployeeID != nil {
		conditions = append(conditions, fmt.Sprintf("o.employee_id = $%d", argCounter))
		args = append(args, *filters.EmployeeID)
		argCounter++
	}
	if filters.ParentOrderID != nil {
		conditions = append(conditions, fmt.Sprintf("o.parent_order_id = $%d", argCounter))
		args = append(args, *filters.ParentOrderID)
		argCounter++
	}
	if filters.Status != nil && *filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("o.status = $%d", argCounter))
		args = append(args, *filters.Status)
		argCounter++
	}
	if filters.Date != nil && *filters.Date != "" {
		parsedDate, err := time.Parse("2006-01-02", *filters.Date)
		if err == nil {
			startOfDay := time.Date(parsedDate.Year(), parsedDate.Month(), parsedDate.Day(), 0, 0, 0, 0, parsedDate.Location())
			endOfDay := startOfDay.AddDate(0, 0, 1)
			conditions = append(conditions, fmt.Sprintf("o.created_at >= $%d AND o.created_at < $%d", argCounter, argCounter+1))
			args = append(args, startOfDay, endOfDay)
			argCounter += 2
		}
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY o.created_at DESC, o.id DESC")

	if filters.PageSize > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argCounter))
		args = append(args, filters.PageSize)
		argCounter++
		if filters.Page > 0 {
			offset := (filters.Page - 1) * filters.PageSize
			queryBuilder.WriteString(fmt.Sprintf(" OFFSET $%d", argCounter))
			args = append(args, offset)
		}
	}

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: querying orders: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var o models.Order
		var tableName sql.NullString
		dest := append(orderScanDest(&o), &tableName, &totalCount)
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning order: %v", ErrDatabaseError, err)
		}
		if tableName.Valid {
			name := tableName.String
			o.TableName = &name
		}
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating order rows: %v", ErrDatabaseError, err)
	}
	return orders, totalCount, nil
}

func (r *orderRepository) GetChildOrders(ctx context.Context, parentOrderID int64) ([]models.Order, error) {
	query := `SELECT ` + selectOrderFields + ` FROM orders o WHERE o.parent_order_id = $1 ORDER BY o.id`
	rows, err := r.db.QueryContext(ctx, query, parentOrderID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying child orders of %d: %v", ErrDatabaseError, parentOrderID, err)
	}
	defer rows.Close()

	children := []models.Order{}
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(orderScanDest(&o)...); err != nil {
			return nil, fmt.Errorf("%w: scanning child order of %d: %v", ErrDatabaseError, parentOrderID, err)
		}
		children = append(children, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating child orders of %d: %v", ErrDatabaseError, parentOrderID, err)
	}
	return children, nil
}

// UpdateOrder writes the caller-editable fields verbatim. The write only
// applies when the stored version still equals expectedVersion.
func (r *orderRepository) UpdateOrder(ctx context.Context, executor SQLExecutor, order *models.Order, expectedVersion int) error {
	query := `UPDATE orders SET
	            table_id = $1, customer_id = $2, customer_name = $3, guest_count = $4, notes = $5,
	            subtotal = $6, tax = $7, discount = $8, total = $9,
	            version = version + 1, updated_at = $10
	          WHERE id = $11 AND version = $12
	          RETURNING version`
	order.UpdatedAt = time.Now()

	err := executor.QueryRowContext(ctx, query,
		order.TableID, order.CustomerID, order.CustomerName, order.GuestCount, order.Notes,
		order.Subtotal, order.Tax, order.Discount, order.Total,
		order.UpdatedAt, order.ID, expectedVersion,
	).Scan(&order.Version)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return classifyWriteError(err, fmt.Sprintf("updating order ID %d", order.ID))
	}

	var exists bool
	if err := executor.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, order.ID).Scan(&exists); err != nil {
		return fmt.Errorf("%w: checking order ID %d: %v", ErrDatabaseError, order.ID, err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrVersionConflict
}

func (r *orderRepository) UpdateOrderTotals(ctx context.Context, executor SQLExecutor, orderID int64, totals models.OrderTotals, updatedAt time.Time) error {
	query := `UPDATE orders SET subtotal = $1, tax = $2, discount = $3, total = $4,
	            version = version + 1, updated_at = $5
	          WHERE id = $6`
	result, err := executor.ExecContext(ctx, query,
		totals.Subtotal, totals.Tax, totals.Discount, totals.Total, updatedAt, orderID)
	if err != nil {
		return fmt.Errorf("%w: updating totals for order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	return expectOneRow(result, fmt.Sprintf("order totals update ID %d", orderID))
}

func (r *orderRepository) UpdateOrderStatus(ctx context.Context, executor SQLExecutor, orderID int64, newStatus models.OrderStatus, paidAt *time.Time, updatedAt time.Time) error {
	query := `UPDATE orders SET status = $1, paid_at = COALESCE($2::timestamptz, paid_at),
	            version = version + 1, updated_at = $3
	          WHERE id = $4`
	result, err := executor.ExecContext(ctx, query, string(newStatus), paidAt, updatedAt, orderID)
	if err != nil {
		return fmt.Errorf("%w: updating order status for ID %d: %v", ErrDatabaseError, orderID, err)
	}
	return expectOneRow(result, fmt.Sprintf("order status update ID %d", orderID))
}

func (r *orderRepository) UpdatePayment(ctx context.Context, executor SQLExecutor, order *models.Order) error {
	query := `UPDATE orders SET status = $1, payment_method = $2, payment_status = $3, paid_at = $4,
	            amount_received = $5, change_amount = $6,
	            version = version + 1, updated_at = $7
	          WHERE id = $8
	          RETURNING version`
	order.UpdatedAt = time.Now()
	err := executor.QueryRowContext(ctx, query,
		string(order.Status), order.PaymentMethod, order.PaymentStatus, order.PaidAt,
		order.AmountReceived, order.ChangeAmount, order.UpdatedAt, order.ID,
	).Scan(&order.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: recording payment for order ID %d: %v", ErrDatabaseError, order.ID, err)
	}
	return nil
}

func (r *orderRepository) DeleteOrder(ctx context.Context, executor SQLExecutor, orderID int64) (int64, error) {
	query := `DELETE FROM orders WHERE id = $1`
	result, err := executor.ExecContext(ctx, query, orderID)
	if err != nil {
		return 0, classifyWriteError(err, fmt.Sprintf("deleting order ID %d", orderID))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: getting rows affected for deleting order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	if rowsAffected == 0 {
		return 0, ErrNotFound
	}
	return rowsAffected, nil
}

// --- OrderItem Methods ---

func (r *orderRepository) CreateOrderItem(ctx context.Context, executor SQLExecutor, item *models.OrderItem) (int64, error) {
	query := `INSERT INTO order_items
	            (order_id, product_id, quantity, unit_price, total, discount, tax, price_before_tax, notes,
	             created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	          RETURNING id`
	now := time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = now
	}

	err := executor.QueryRowContext(ctx, query,
		item.OrderID, item.ProductID, item.Quantity, item.UnitPrice, item.Total, item.Discount, item.Tax,
		item.PriceBeforeTax, item.Notes, item.CreatedAt, item.UpdatedAt,
	).Scan(&item.ID)
	if err != nil {
		return 0, classifyWriteError(err, fmt.Sprintf("creating order item (product %d)", item.ProductID))
	}
	return item.ID, nil
}

func (r *orderRepository) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	items := []models.OrderItem{}
	query := `
		SELECT
		    oi.id, oi.order_id, oi.product_id, oi.quantity, oi.unit_price,
		    oi.total, oi.discount, oi.tax, oi.price_before_tax, oi.notes, oi.created_at, oi.updated_at,
		    p.name
		FROM order_items oi
		LEFT JOIN products p ON oi.product_id = p.id
		WHERE oi.order_id = $1
		ORDER BY oi.id`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying order items for order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		var productName sql.NullString
		err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice,
			&item.Total, &item.Discount, &item.Tax, &item.PriceBeforeTax, &item.Notes, &item.CreatedAt, &item.UpdatedAt,
			&productName,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning order item for order ID %d: %v", ErrDatabaseError, orderID, err)
		}
		if productName.Valid {
			name := productName.String
			item.ProductName = &name
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating order item rows for order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	return items, nil
}

func (r *orderRepository) DeleteOrderItemsByOrderID(ctx context.Context, executor SQLExecutor, orderID int64) (int64, error) {
	query := `DELETE FROM order_items WHERE order_id = $1`
	result, err := executor.ExecContext(ctx, query, orderID)
	if err != nil {
		return 0, fmt.Errorf("%w: deleting order items for order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: getting rows affected for deleting order items for order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	return rowsAffected, nil
}
