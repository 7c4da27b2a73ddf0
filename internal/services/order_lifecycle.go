package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"restaurant_pos_backend/internal/events"
	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/repositories"
	"restaurant_pos_backend/pkg/utils"

	"github.com/shopspring/decimal"
)

// StatusChangedEvent is published for every committed status write.
type StatusChangedEvent struct {
	OrderID     int64              `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	TableID     *int64             `json:"table_id,omitempty"`
	From        models.OrderStatus `json:"from"`
	To          models.OrderStatus `json:"to"`
}

// UpdateOrderStatus writes a new status. A transition to paid stamps paidAt,
// and once the order no longer holds its table the table is released if no
// other order on it is still open. Pending references are answered without
// touching the store.
func (s *orderService) UpdateOrderStatus(ctx context.Context, ref models.OrderRef, status models.OrderStatus) (*models.Order, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidOrderStatus, status)
	}

	if token, pending := ref.Token(); pending {
		order := &models.Order{
			OrderNumber:   token,
			ClientToken:   token,
			Status:        status,
			PaymentStatus: models.PaymentStatusPending,
		}
		if status == models.OrderStatusPaid {
			paidAt := s.now()
			order.PaidAt = &paidAt
			order.PaymentStatus = models.PaymentStatusPaid
		}
		utils.LogDebug("Status update for unsaved order acknowledged", map[string]interface{}{"client_token": token, "status": status})
		return order, nil
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
		return nil, fmt.Errorf("failed to fetch order for status update: %w", err)
	}
	if !current.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, current.Status, status)
	}

	now := s.now()
	var paidAt *time.Time
	if status == models.OrderStatusPaid {
		paidAt = &now
	}
	if err := s.orderRepo.UpdateOrderStatus(ctx, tx, orderID, status, paidAt, now); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to update order status in repository: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction for order status update: %w", err)
	}

	s.publish(ctx, events.OrderStatusChanged, StatusChangedEvent{
		OrderID: orderID, OrderNumber: current.OrderNumber, TableID: current.TableID,
		From: current.Status, To: status,
	})
	if status == models.OrderStatusPaid {
		s.publish(ctx, events.OrderPaid, map[string]interface{}{"order_id": orderID, "total": current.Total.String()})
	}
	if status.ReleasesTable() && current.TableID != nil {
		s.releaseTableIfIdle(ctx, *current.TableID, orderID)
	}

	return s.GetOrderByID(ctx, orderID)
}

// CompletePayment marks the order paid and records the payment details.
// When change is omitted it is derived from the amount received.
func (s *orderService) CompletePayment(ctx context.Context, orderID int64, req CompletePaymentRequest) (*models.Order, error) {
	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		return nil, fmt.Errorf("%w: payment_method is required", ErrValidation)
	}
	if req.AmountReceived != nil && req.AmountReceived.IsNegative() {
		return nil, fmt.Errorf("%w: amount_received must not be negative", ErrValidation)
	}
	if req.Change != nil && req.Change.IsNegative() {
		return nil, fmt.Errorf("%w: change must not be negative", ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	order, err := s.orderRepo.GetOrderForUpdate(ctx, tx, orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to fetch order for payment: %w", err)
	}
	previousStatus := order.Status
	if !previousStatus.CanTransitionTo(models.OrderStatusPaid) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, previousStatus, models.OrderStatusPaid)
	}

	order.AmountReceived = decimal.NullDecimal{}
	order.ChangeAmount = decimal.NullDecimal{}
	if req.AmountReceived != nil {
		if req.AmountReceived.LessThan(order.Total) {
			return nil, fmt.Errorf("%w: received %s, total %s", ErrInsufficientPayment, req.AmountReceived, order.Total)
		}
		order.AmountReceived = decimal.NewNullDecimal(*req.AmountReceived)
		order.ChangeAmount = decimal.NewNullDecimal(req.AmountReceived.Sub(order.Total))
	}
	if req.Change != nil {
		order.ChangeAmount = decimal.NewNullDecimal(*req.Change)
	}

	paidAt := s.now()
	order.Status = models.OrderStatusPaid
	order.PaymentMethod = &method
	order.PaymentStatus = models.PaymentStatusPaid
	order.PaidAt = &paidAt

	if err := s.orderRepo.UpdatePayment(ctx, tx, order); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit payment transaction: %w", err)
	}

	utils.LogInfo("Payment completed", map[string]interface{}{
		"order_id": orderID, "payment_method": method, "total": order.Total.String(),
	})
	if previousStatus != models.OrderStatusPaid {
		s.publish(ctx, events.OrderStatusChanged, StatusChangedEvent{
			OrderID: orderID, OrderNumber: order.OrderNumber, TableID: order.TableID,
			From: previousStatus, To: models.OrderStatusPaid,
		})
	}
	s.publish(ctx, events.OrderPaid, map[string]interface{}{
		"order_id": orderID, "total": order.Total.String(), "payment_method": method,
	})
	if order.TableID != nil {
		s.releaseTableIfIdle(ctx, *order.TableID, orderID)
	}

	return s.GetOrderByID(ctx, orderID)
}
