package services

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"restaurant_pos_backend/internal/config"
	"restaurant_pos_backend/internal/events"
	"restaurant_pos_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addProduct(f *orderFixture, id int64, price, afterTax string, available bool) {
	f.products.products[id] = &models.Product{
		ID: id, Name: "Item", Price: dec(price), PriceAfterTax: dec(afterTax), IsAvailable: available,
	}
}

func TestCreateOrderComputesTotalsAndOccupiesTable(t *testing.T) {
	f := newOrderFixture(t, config.TotalsCheckReject)
	f.tables.add(3, models.TableStatusAvailable)
	addProduct(f, productA, "10", "11", true)
	f.expectCommittedTx()

	order, err := f.svc.CreateOrder(context.Background(), CreateOrderRequest{
		TableID: int64Ptr(3),
		Items:   []CreateOrderItemRequest{{ProductID: productA, Quantity: 2, Notes: strPtr("well done")}},
	}, int64Ptr(7))
	require.NoError(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())

	assert.Regexp(t, regexp.MustCompile(`^ORD-20240301-[0-9A-F]{8}$`), order.OrderNumber)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.SalesChannelTable, order.SalesChannel)
	assert.Equal(t, int64(7), *order.EmployeeID)
	assert.True(t, order.Subtotal.Equal(dec("20")))
	assert.True(t, order.Tax.Equal(dec("2")))
	assert.True(t, order.Discount.IsZero())
	assert.True(t, order.Total.Equal(dec("22")))

	require.Len(t, order.Items, 1)
	item := order.Items[0]
	assert.True(t, item.UnitPrice.Equal(dec("10")))
	assert.True(t, item.Tax.Equal(dec("2")))
	assert.True(t, item.Total.Equal(dec("22")))
	assert.Equal(t, "well done", *item.Notes)

	assert.Equal(t, models.TableStatusOccupied, f.tables.status(3))
	assert.Equal(t, []string{events.OrderCreated}, f.events.keys())
}

func TestCreateOrderEmptyRequest(t *testing.T) {
	f := newOrderFixture(t, config.TotalsCheckLog)
	f.expectCommittedTx()

	order, err := f.svc.CreateOrder(context.Background(), CreateOrderRequest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.SalesChannelPOS, order.SalesChannel)
	assert.Nil(t, order.TableID)
	assert.Empty(t, order.Items)
	assert.True(t, order.Total.IsZero())
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCreateOrderFailures(t *testing.T) {
	t.Run("store settings missing", func(t *testing.T) {
		f := newOrderFixture(t, config.TotalsCheckLog)
		f.settings.settings = nil

		_, err := f.svc.CreateOrder(context.Background(), CreateOrderRequest{}, nil)
		assert.True(t, errors.Is(err, ErrStoreSettingsNotFound))
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("unavailable product", func(t *testing.T) {
		f := newOrderFixture(t, config.TotalsCheckLog)
		addProduct(f, productA, "10", "11", false)

		_, err := f.svc.CreateOrder(context.Background(), CreateOrderRequest{
			Items: []CreateOrderItemRequest{{ProductID: productA, Quantity: 1}},
		}, nil)
		assert.True(t, errors.Is(err, ErrProductNotFound))
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("unknown customer", func(t *testing.T) {
		f := newOrderFixture(t, config.TotalsCheckLog)

		_, err := f.svc.CreateOrder(context.Background(), CreateOrderRequest{CustomerID: int64Ptr(5)}, nil)
		assert.True(t, errors.Is(err, ErrCustomerNotFound))
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("unknown table", func(t *testing.T) {
		f := newOrderFixture(t, config.TotalsCheckLog)
		f.expectRolledBackTx()

		_, err := f.svc.CreateOrder(context.Background(), CreateOrderRequest{TableID: int64Ptr(9)}, nil)
		assert.True(t, errors.Is(err, ErrTableNotFound))
		assert.Equal(t, 0, f.orders.count())
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("duplicate order number", func(t *testing.T) {
		f := newOrderFixture(t, config.TotalsCheckLog)
		f.orders.seed(models.Order{OrderNumber: "A-1", Status: models.OrderStatusPending})
		f.expectRolledBackTx()

		_, err := f.svc.CreateOrder(context.Background(), CreateOrderRequest{OrderNumber: strPtr("A-1")}, nil)
		assert.True(t, errors.Is(err, ErrDuplicateOrderNumber))
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})
}

func TestUpdateOrderSavesClientValuesAndMovesTable(t *testing.T) {
	f := newOrderFixture(t, config.TotalsCheckLog)
	f.tables.add(1, models.TableStatusOccupied)
	f.tables.add(2, models.TableStatusAvailable)
	order := f.orders.seed(models.Order{OrderNumber: "O1", TableID: int64Ptr(1), Status: models.OrderStatusConfirmed},
		models.OrderItem{ProductID: productA, Quantity: 1, UnitPrice: dec("10"), Total: dec("10")},
	)
	f.expectCommittedTx()

	// Totals deliberately do not add up; the log policy stores them anyway.
	subtotal, tax, discount, total := dec("15"), dec("1.5"), dec("0"), dec("99")
	items := []OrderItemInput{line(productB, 3, "5", "15")}
	updated, err := f.svc.UpdateOrder(context.Background(), models.PersistedRef(order.ID), UpdateOrderRequest{
		ExpectedVersion: &order.Version,
		TableID:         int64Ptr(2),
		GuestCount:      func() *int { n := 4; return &n }(),
		Subtotal:        &subtotal, Tax: &tax, Discount: &discount, Total: &total,
		Items: &items,
	})
	require.NoError(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())

	assert.True(t, updated.Total.Equal(dec("99")))
	assert.True(t, updated.Tax.Equal(dec("1.5")))
	assert.Equal(t, 4, *updated.GuestCount)
	assert.Equal(t, order.Version+1, updated.Version)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, productB, updated.Items[0].ProductID)
	assert.Equal(t, 3, updated.Items[0].Quantity)

	assert.Equal(t, models.TableStatusOccupied, f.tables.status(2))
	assert.Equal(t, models.TableStatusAvailable, f.tables.status(1))
}

func TestUpdateOrderKeepsItemsWhenOmitted(t *testing.T) {
	f := newOrderFixture(t, config.TotalsCheckLog)
	order := f.orders.seed(models.Order{OrderNumber: "O1", Status: models.OrderStatusPending},
		models.OrderItem{ProductID: productA, Quantity: 1, UnitPrice: dec("10"), Total: dec("10")},
	)
	f.expectCommittedTx()

	updated, err := f.svc.UpdateOrder(context.Background(), models.PersistedRef(order.ID), UpdateOrderRequest{Notes: strPtr("window seat")})
	require.NoError(t, err)
	assert.Equal(t, "window seat", *updated.Notes)
	assert.Len(t, updated.Items, 1)
}

func TestUpdateOrderVersionConflict(t *testing.T) {
	f := newOrderFixture(t, config.TotalsCheckLog)
	order := f.orders.seed(models.Order{OrderNumber: "O1", Status: models.OrderStatusPending})
	f.expectRolledBackTx()

	stale := order.Version + 3
	_, err := f.svc.UpdateOrder(context.Background(), models.PersistedRef(order.ID), UpdateOrderRequest{ExpectedVersion: &stale})
	assert.True(t, errors.Is(err, ErrOrderVersionConflict))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestUpdateOrderRejectPolicy(t *testing.T) {
	f := newOrderFixture(t, config.TotalsCheckReject)
	order := f.orders.seed(models.Order{OrderNumber: "O1", Status: models.OrderStatusPending,
		Subtotal: dec("10"), Tax: dec("1"), Discount: dec("0"), Total: dec("11")})
	f.expectRolledBackTx()

	total := dec("12")
	_, err := f.svc.UpdateOrder(context.Background(), models.PersistedRef(order.ID), UpdateOrderRequest{Total: &total})
	assert.True(t, errors.Is(err, ErrTotalsMismatch))
	assert.True(t, f.orders.order(order.ID).Total.Equal(dec("11")))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestUpdateOrderPendingRefEchoesRequest(t *testing.T) {
	f := newOrderFixture(t, config.TotalsCheckLog)

	total := dec("42")
	items := []OrderItemInput{line(productA, 1, "42", "42")}
	echo, err := f.svc.UpdateOrder(context.Background(), models.PendingRef("temp_abc"), UpdateOrderRequest{
		CustomerName: strPtr("Aru"), Total: &total, Items: &items,
	})
	require.NoError(t, err)
	assert.Equal(t, "temp_abc", echo.ClientToken)
	assert.Equal(t, int64(0), echo.ID)
	assert.Equal(t, "Aru", *echo.CustomerName)
	assert.True(t, echo.Total.Equal(total))
	assert.Len(t, echo.Items, 1)
	assert.Equal(t, 0, f.orders.count())
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGetOrderByIDIncludesChildren(t *testing.T) {
	f := newOrderFixture(t, config.TotalsCheckLog)
	parent := f.orders.seed(models.Order{OrderNumber: "P", Status: models.OrderStatusPending},
		models.OrderItem{ProductID: productA, Quantity: 1})
	f.orders.seed(models.Order{OrderNumber: "C1", ParentOrderID: &parent.ID, Status: models.OrderStatusPending})
	f.orders.seed(models.Order{OrderNumber: "C2", ParentOrderID: &parent.ID, Status: models.OrderStatusPending})

	order, err := f.svc.GetOrderByID(context.Background(), parent.ID)
	require.NoError(t, err)
	assert.Len(t, order.Items, 1)
	require.Len(t, order.ChildOrders, 2)
	assert.Equal(t, "C1", order.ChildOrders[0].OrderNumber)

	_, err = f.svc.GetOrderByID(context.Background(), 404)
	assert.True(t, errors.Is(err, ErrOrderNotFound))
}

func TestGetOrdersFilters(t *testing.T) {
	f := newOrderFixture(t, config.TotalsCheckLog)
	f.orders.seed(models.Order{OrderNumber: "A", Status: models.OrderStatusPaid})
	f.orders.seed(models.Order{OrderNumber: "B", Status: models.OrderStatusPending})

	orders, total, err := f.svc.GetOrders(context.Background(), models.OrderFilters{Status: strPtr(" PAID ")})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "A", orders[0].OrderNumber)

	_, _, err = f.svc.GetOrders(context.Background(), models.OrderFilters{Status: strPtr("eaten")})
	assert.True(t, errors.Is(err, ErrInvalidOrderStatus))

	_, _, err = f.svc.GetOrders(context.Background(), models.OrderFilters{Date: strPtr("01/03/2024")})
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestDeleteOrderReleasesTable(t *testing.T) {
	f := newOrderFixture(t, config.TotalsCheckLog)
	f.tables.add(1, models.TableStatusOccupied)
	order := f.orders.seed(models.Order{OrderNumber: "O1", TableID: int64Ptr(1), Status: models.OrderStatusPending},
		models.OrderItem{ProductID: productA, Quantity: 1})
	f.expectCommittedTx()

	require.NoError(t, f.svc.DeleteOrder(context.Background(), order.ID))
	assert.Equal(t, 0, f.orders.count())
	assert.Empty(t, f.orders.itemsOf(order.ID))
	assert.Equal(t, models.TableStatusAvailable, f.tables.status(1))

	f.expectRolledBackTx()
	assert.True(t, errors.Is(f.svc.DeleteOrder(context.Background(), order.ID), ErrOrderNotFound))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}
