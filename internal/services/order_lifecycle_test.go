package services

import (
	"context"
	"errors"
	"testing"

	"restaurant_pos_backend/internal/config"
	"restaurant_pos_backend/internal/events"
	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTableOrder(f *orderFixture, tableID int64, number string, status models.OrderStatus) *models.Order {
	return f.orders.seed(models.Order{
		OrderNumber:  number,
		TableID:      int64Ptr(tableID),
		Status:       status,
		SalesChannel: models.SalesChannelTable,
		Subtotal:     dec("30"), Tax: dec("3"), Discount: dec("0"), Total: dec("33"),
	})
}

func TestUpdateOrderStatusReleasesIdleTable(t *testing.T) {
	for _, status := range []models.OrderStatus{models.OrderStatusPaid, models.OrderStatusCancelled} {
		t.Run(string(status), func(t *testing.T) {
			f := newOrderFixture(t, config.TotalsCheckLog)
			f.tables.add(1, models.TableStatusOccupied)
			order := seedTableOrder(f, 1, "O1", models.OrderStatusServed)
			f.expectCommittedTx()

			updated, err := f.svc.UpdateOrderStatus(context.Background(), models.PersistedRef(order.ID), status)
			require.NoError(t, err)
			require.NoError(t, f.mock.ExpectationsWereMet())

			assert.Equal(t, status, updated.Status)
			assert.Equal(t, models.TableStatusAvailable, f.tables.status(1))
			assert.True(t, hasKey(f.events.keys(), events.OrderStatusChanged))
			assert.True(t, hasKey(f.events.keys(), events.TableReleased))
			assert.Equal(t, status == models.OrderStatusPaid, hasKey(f.events.keys(), events.OrderPaid))
		})
	}
}

func TestUpdateOrderStatusStampsPaidAt(t *testing.T) {
	f := newOrderFixture(t, config.TotalsCheckLog)
	order := f.orders.seed(models.Order{OrderNumber: "POS-1", Status: models.OrderStatusPending})
	f.expectCommittedTx()

	updated, err := f.svc.UpdateOrderStatus(context.Background(), models.PersistedRef(order.ID), models.OrderStatusPaid)
	require.NoError(t, err)
	require.NotNil(t, updated.PaidAt)
	assert.True(t, updated.PaidAt.Equal(f.now))
	assert.False(t, hasKey(f.events.keys(), events.TableReleased))
}

func TestUpdateOrderStatusKeepsTableWithOtherOpenOrders(t *testing.T) {
	f := newOrderFixture(t, config.TotalsCheckLog)
	f.tables.add(1, models.TableStatusOccupied)
	order := seedTableOrder(f, 1, "O1", models.OrderStatusServed)
	seedTableOrder(f, 1, "O2", models.OrderStatusConfirmed)
	seedTableOrder(f, 1, "O3", models.OrderStatusPaid)
	f.expectCommittedTx()

	_, err := f.svc.UpdateOrderStatus(context.Background(), models.PersistedRef(order.ID), models.OrderStatusPaid)
	require.NoError(t, err)

	assert.Equal(t, models.TableStatusOccupied, f.tables.status(1))
	assert.False(t, hasKey(f.events.keys(), events.TableReleased))
}

func TestUpdateOrderStatusReleasesTableNextToCompletedOrder(t *testing.T) {
	f := newOrderFixture(t, config.TotalsCheckLog)
	f.tables.add(1, models.TableStatusOccupied)
	seedTableOrder(f, 1, "O1", models.OrderStatusCompleted)
	order := seedTableOrder(f, 1, "O2", models.OrderStatusServed)
	f.expectCommittedTx()

	_, err := f.svc.UpdateOrderStatus(context.Background(), models.PersistedRef(order.ID), models.OrderStatusPaid)
	require.NoError(t, err)

	assert.Equal(t, models.TableStatusAvailable, f.tables.status(1))
	assert.True(t, hasKey(f.events.keys(), events.TableReleased))
}

func TestUpdateOrderStatusLeavesTableForOpenStatuses(t *testing.T) {
	f := newOrderFixture(t, config.TotalsCheckLog)
	f.tables.add(1, models.TableStatusOccupied)
	order := seedTableOrder(f, 1, "O1", models.OrderStatusPending)
	f.expectCommittedTx()

	updated, err := f.svc.UpdateOrderStatus(context.Background(), models.PersistedRef(order.ID), models.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, updated.Status)
	assert.Nil(t, updated.PaidAt)
	assert.Equal(t, models.TableStatusOccupied, f.tables.status(1))
	assert.Equal(t, 0, f.tables.statusWrites)
}

func TestUpdateOrderStatusAllowsSameStatus(t *testing.T) {
	f := newOrderFixture(t, config.TotalsCheckLog)
	order := f.orders.seed(models.Order{OrderNumber: "POS-1", Status: models.OrderStatusServed})
	f.expectCommittedTx()

	updated, err := f.svc.UpdateOrderStatus(context.Background(), models.PersistedRef(order.ID), models.OrderStatusServed)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusServed, updated.Status)
}

func TestUpdateOrderStatusTableReleaseFailureIsNotFatal(t *testing.T) {
	t.Run("update fails", func(t *testing.T) {
		f := newOrderFixture(t, config.TotalsCheckLog)
		f.tables.add(1, models.TableStatusOccupied)
		f.tables.failRelease = true
		order := seedTableOrder(f, 1, "O1", models.OrderStatusServed)
		f.expectCommittedTx()

		updated, err := f.svc.UpdateOrderStatus(context.Background(), models.PersistedRef(order.ID), models.OrderStatusPaid)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusPaid, updated.Status)
		assert.Equal(t, models.TableStatusOccupied, f.tables.status(1))
	})

	t.Run("count fails", func(t *testing.T) {
		f := newOrderFixture(t, config.TotalsCheckLog)
		f.tables.add(1, models.TableStatusOccupied)
		f.tables.countErr = repositories.ErrDatabaseError
		order := seedTableOrder(f, 1, "O1", models.OrderStatusServed)
		f.expectCommittedTx()

		_, err := f.svc.UpdateOrderStatus(context.Background(), models.PersistedRef(order.ID), models.OrderStatusCancelled)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusCancelled, f.orders.order(order.ID).Status)
		assert.Equal(t, models.TableStatusOccupied, f.tables.status(1))
	})
}

func TestUpdateOrderStatusPublishFailureIsNotFatal(t *testing.T) {
	f := newOrderFixture(t, config.TotalsCheckLog)
	f.events.err = errors.New("broker unavailable")
	order := f.orders.seed(models.Order{OrderNumber: "POS-1", Status: models.OrderStatusPending})
	f.expectCommittedTx()

	_, err := f.svc.UpdateOrderStatus(context.Background(), models.PersistedRef(order.ID), models.OrderStatusConfirmed)
	assert.NoError(t, err)
}

func TestUpdateOrderStatusPendingRef(t *testing.T) {
	f := newOrderFixture(t, config.TotalsCheckLog)

	updated, err := f.svc.UpdateOrderStatus(context.Background(), models.PendingRef("temp_42"), models.OrderStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, "temp_42", updated.ClientToken)
	assert.Equal(t, models.OrderStatusPaid, updated.Status)
	assert.Equal(t, models.PaymentStatusPaid, updated.PaymentStatus)
	require.NotNil(t, updated.PaidAt)

	assert.Equal(t, 0, f.orders.count())
	assert.Empty(t, f.events.keys())
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestUpdateOrderStatusRejectsInvalidTransition(t *testing.T) {
	f := newOrderFixture(t, config.TotalsCheckLog)
	f.tables.add(1, models.TableStatusOccupied)
	order := seedTableOrder(f, 1, "O1", models.OrderStatusCompleted)
	f.expectRolledBackTx()

	_, err := f.svc.UpdateOrderStatus(context.Background(), models.PersistedRef(order.ID), models.OrderStatusPending)
	assert.True(t, errors.Is(err, ErrInvalidStatusTransition))
	assert.Equal(t, models.OrderStatusCompleted, f.orders.order(order.ID).Status)
	assert.Equal(t, 0, f.tables.statusWrites)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestUpdateOrderStatusRejectsUnknownStatus(t *testing.T) {
	f := newOrderFixture(t, config.TotalsCheckLog)

	_, err := f.svc.UpdateOrderStatus(context.Background(), models.PersistedRef(1), models.OrderStatus("eaten"))
	assert.True(t, errors.Is(err, ErrInvalidOrderStatus))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestUpdateOrderStatusNotFound(t *testing.T) {
	f := newOrderFixture(t, config.TotalsCheckLog)
	f.expectRolledBackTx()

	_, err := f.svc.UpdateOrderStatus(context.Background(), models.PersistedRef(99), models.OrderStatusPaid)
	assert.True(t, errors.Is(err, ErrOrderNotFound))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCompletePaymentDerivesChange(t *testing.T) {
	f := newOrderFixture(t, config.TotalsCheckLog)
	f.tables.add(1, models.TableStatusOccupied)
	order := seedTableOrder(f, 1, "O1", models.OrderStatusServed)
	f.expectCommittedTx()

	received := dec("50")
	paid, err := f.svc.CompletePayment(context.Background(), order.ID, CompletePaymentRequest{
		PaymentMethod: " cash ", AmountReceived: &received,
	})
	require.NoError(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())

	assert.Equal(t, models.OrderStatusPaid, paid.Status)
	assert.Equal(t, models.PaymentStatusPaid, paid.PaymentStatus)
	require.NotNil(t, paid.PaymentMethod)
	assert.Equal(t, "cash", *paid.PaymentMethod)
	assert.True(t, paid.AmountReceived.Valid)
	assert.True(t, paid.ChangeAmount.Decimal.Equal(dec("17")))
	assert.True(t, paid.PaidAt.Equal(f.now))
	assert.Equal(t, models.TableStatusAvailable, f.tables.status(1))
	assert.Equal(t, []string{events.OrderStatusChanged, events.OrderPaid, events.TableReleased}, f.events.keys())
}

func TestCompletePaymentExplicitChange(t *testing.T) {
	f := newOrderFixture(t, config.TotalsCheckLog)
	order := f.orders.seed(models.Order{OrderNumber: "POS-1", Status: models.OrderStatusPending, Total: dec("33")})
	f.expectCommittedTx()

	received, change := dec("40"), dec("5")
	paid, err := f.svc.CompletePayment(context.Background(), order.ID, CompletePaymentRequest{
		PaymentMethod: "card", AmountReceived: &received, Change: &change,
	})
	require.NoError(t, err)
	assert.True(t, paid.ChangeAmount.Decimal.Equal(change))
}

func TestCompletePaymentWithoutAmount(t *testing.T) {
	f := newOrderFixture(t, config.TotalsCheckLog)
	order := f.orders.seed(models.Order{OrderNumber: "POS-1", Status: models.OrderStatusConfirmed, Total: dec("33")})
	f.expectCommittedTx()

	paid, err := f.svc.CompletePayment(context.Background(), order.ID, CompletePaymentRequest{PaymentMethod: "card"})
	require.NoError(t, err)
	assert.Equal(t, decimal.NullDecimal{}, paid.AmountReceived)
	assert.Equal(t, decimal.NullDecimal{}, paid.ChangeAmount)
}

func TestCompletePaymentInsufficientAmount(t *testing.T) {
	f := newOrderFixture(t, config.TotalsCheckLog)
	order := f.orders.seed(models.Order{OrderNumber: "POS-1", Status: models.OrderStatusServed, Total: dec("33")})
	f.expectRolledBackTx()

	received := dec("20")
	_, err := f.svc.CompletePayment(context.Background(), order.ID, CompletePaymentRequest{
		PaymentMethod: "cash", AmountReceived: &received,
	})
	assert.True(t, errors.Is(err, ErrInsufficientPayment))
	assert.Equal(t, models.OrderStatusServed, f.orders.order(order.ID).Status)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCompletePaymentValidation(t *testing.T) {
	f := newOrderFixture(t, config.TotalsCheckLog)
	negative := dec("-1")

	cases := map[string]CompletePaymentRequest{
		"missing method":    {PaymentMethod: "  "},
		"negative received": {PaymentMethod: "cash", AmountReceived: &negative},
		"negative change":   {PaymentMethod: "cash", Change: &negative},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CompletePayment(context.Background(), 1, req)
			assert.True(t, errors.Is(err, ErrValidation))
		})
	}
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCompletePaymentRejectsSettledOrder(t *testing.T) {
	f := newOrderFixture(t, config.TotalsCheckLog)
	order := f.orders.seed(models.Order{OrderNumber: "POS-1", Status: models.OrderStatusCancelled})
	f.expectRolledBackTx()

	_, err := f.svc.CompletePayment(context.Background(), order.ID, CompletePaymentRequest{PaymentMethod: "cash"})
	assert.True(t, errors.Is(err, ErrInvalidStatusTransition))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}
