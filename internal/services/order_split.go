package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"restaurant_pos_backend/internal/events"
	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/repositories"
	"restaurant_pos_backend/pkg/utils"
)

// SplitGroup describes one order to carve out of the original. Totals are
// computed by the client and stored as received.
type SplitGroup struct {
	Name         *string          `json:"name"` // order number for the new order
	TableID      *int64           `json:"table_id" binding:"omitempty,gt=0"`
	CustomerID   *int64           `json:"customer_id" binding:"omitempty,gt=0"`
	CustomerName *string          `json:"customer_name"`
	GuestCount   *int             `json:"guest_count" binding:"omitempty,gt=0"`
	Items        []OrderItemInput `json:"items" binding:"dive"`
	models.OrderTotals
}

// SplitOrderRequest partitions the items of OriginalOrderID.
type SplitOrderRequest struct {
	OriginalOrderID     int64               `json:"original_order_id" binding:"required,gt=0"`
	ExpectedVersion     *int                `json:"expected_version" binding:"omitempty,gt=0"`
	SplitItems          []SplitGroup        `json:"split_items" binding:"required,min=1,dive"`
	RemainingItems      []OrderItemInput    `json:"remaining_items" binding:"omitempty,dive"`
	OriginalOrderUpdate *models.OrderTotals `json:"original_order_update"`
}

// SplitOrderResult lists the orders a split produced.
type SplitOrderResult struct {
	CreatedOrders     []models.Order `json:"created_orders"`
	OriginalOrderID   int64          `json:"original_order_id"`
	OriginalCancelled bool           `json:"original_cancelled"`
}

// OrderSplitEvent is published after a split commits.
type OrderSplitEvent struct {
	OriginalOrderID   int64   `json:"original_order_id"`
	CreatedOrderIDs   []int64 `json:"created_order_ids"`
	OriginalCancelled bool    `json:"original_cancelled"`
}

func validateSplitRequest(req SplitOrderRequest) error {
	if req.OriginalOrderID <= 0 {
		return fmt.Errorf("%w: original_order_id is required", ErrValidation)
	}
	if len(req.SplitItems) == 0 {
		return fmt.Errorf("%w: split_items must not be empty", ErrValidation)
	}
	names := make(map[string]int, len(req.SplitItems))
	for i, group := range req.SplitItems {
		if err := validateItemInputs(group.Items, fmt.Sprintf("split_items[%d].items", i)); err != nil {
			return err
		}
		if group.Name == nil || len(group.Items) == 0 {
			continue
		}
		name := strings.TrimSpace(*group.Name)
		if name == "" {
			continue
		}
		if first, dup := names[name]; dup {
			return fmt.Errorf("%w: split_items[%d] reuses name %q from split_items[%d]", ErrValidation, i, name, first)
		}
		names[name] = i
	}
	return validateItemInputs(req.RemainingItems, "remaining_items")
}

// SplitOrder moves the original order's items into new child orders inside a
// single transaction. The original order's items are always replaced by
// RemainingItems. The original keeps living with OriginalOrderUpdate totals
// when items remain and an update was supplied, and is cancelled otherwise.
func (s *orderService) SplitOrder(ctx context.Context, req SplitOrderRequest) (*SplitOrderResult, error) {
	if err := validateSplitRequest(req); err != nil {
		return nil, err
	}
	keepOriginal := len(req.RemainingItems) > 0 && req.OriginalOrderUpdate != nil

	for i, group := range req.SplitItems {
		if len(group.Items) == 0 {
			continue
		}
		if err := s.totals.Check(fmt.Sprintf("split group %d", i), group.OrderTotals); err != nil {
			return nil, err
		}
	}
	if keepOriginal {
		if err := s.totals.Check("original order update", *req.OriginalOrderUpdate); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start split transaction: %w", err)
	}
	defer tx.Rollback()

	original, err := s.orderRepo.GetOrderForUpdate(ctx, tx, req.OriginalOrderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %d", ErrOrderNotFound, req.OriginalOrderID)
		}
		return nil, fmt.Errorf("failed to load original order: %w", err)
	}
	if req.ExpectedVersion != nil && *req.ExpectedVersion != original.Version {
		return nil, fmt.Errorf("%w: expected version %d, found %d", ErrOrderVersionConflict, *req.ExpectedVersion, original.Version)
	}
	if !original.Status.IsSplittable() {
		return nil, fmt.Errorf("%w: order %d is %s", ErrOrderNotSplittable, original.ID, original.Status)
	}

	now := s.now()
	fallbackBase := now.UnixMilli()
	fallbackBatch := orderNumberSuffix()
	created := make([]models.Order, 0, len(req.SplitItems))
	occupied := map[int64]bool{}
	if original.TableID != nil {
		occupied[*original.TableID] = true
	}

	for _, group := range req.SplitItems {
		if len(group.Items) == 0 {
			continue
		}

		child := models.Order{
			OrderNumber:     splitOrderNumber(group.Name, fallbackBase, len(created), fallbackBatch),
			TableID:         firstInt64(group.TableID, original.TableID),
			CustomerID:      firstInt64(group.CustomerID, original.CustomerID),
			EmployeeID:      original.EmployeeID,
			ParentOrderID:   &original.ID,
			Status:          original.Status,
			PriceIncludeTax: original.PriceIncludeTax,
			PaymentStatus:   models.PaymentStatusPending,
			SalesChannel:    original.SalesChannel,
			CustomerName:    firstString(group.CustomerName, original.CustomerName),
			GuestCount:      firstInt(group.GuestCount, original.GuestCount),
			Notes:           utils.NewNullString(fmt.Sprintf("Split from order %s", original.OrderNumber)),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		child.ApplyTotals(group.OrderTotals)

		if child.TableID != nil && !occupied[*child.TableID] {
			if err := s.occupyTable(ctx, tx, *child.TableID); err != nil {
				return nil, err
			}
			occupied[*child.TableID] = true
		}

		childID, err := s.orderRepo.CreateOrder(ctx, tx, &child)
		if err != nil {
			return nil, mapOrderWriteError(err, fmt.Sprintf("failed to create split order %s", child.OrderNumber))
		}

		child.Items = make([]models.OrderItem, 0, len(group.Items))
		for _, in := range group.Items {
			item := in.toModel(childID)
			if _, err := s.orderRepo.CreateOrderItem(ctx, tx, &item); err != nil {
				return nil, mapOrderWriteError(err, fmt.Sprintf("failed to copy item (product_id: %d) to split order %s", item.ProductID, child.OrderNumber))
			}
			child.Items = append(child.Items, item)
		}
		created = append(created, child)
	}

	if _, err := s.orderRepo.DeleteOrderItemsByOrderID(ctx, tx, original.ID); err != nil {
		return nil, fmt.Errorf("failed to clear items of original order %d: %w", original.ID, err)
	}

	for _, in := range req.RemainingItems {
		item := in.toModel(original.ID)
		item.Notes = nil
		if _, err := s.orderRepo.CreateOrderItem(ctx, tx, &item); err != nil {
			return nil, mapOrderWriteError(err, fmt.Sprintf("failed to re-attach item (product_id: %d) to original order", item.ProductID))
		}
	}

	if keepOriginal {
		err = s.orderRepo.UpdateOrderTotals(ctx, tx, original.ID, *req.OriginalOrderUpdate, now)
	} else {
		err = s.orderRepo.UpdateOrderStatus(ctx, tx, original.ID, models.OrderStatusCancelled, nil, now)
	}
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %d", ErrOrderNotFound, original.ID)
		}
		return nil, fmt.Errorf("failed to update original order %d: %w", original.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit split transaction: %w", err)
	}

	result := &SplitOrderResult{
		CreatedOrders:     created,
		OriginalOrderID:   original.ID,
		OriginalCancelled: !keepOriginal,
	}
	createdIDs := make([]int64, 0, len(created))
	for _, o := range created {
		createdIDs = append(createdIDs, o.ID)
	}
	utils.LogInfo("Order split", map[string]interface{}{
		"original_order_id": original.ID, "created_orders": createdIDs, "original_cancelled": result.OriginalCancelled,
	})
	s.publish(ctx, events.OrderSplit, OrderSplitEvent{
		OriginalOrderID: original.ID, CreatedOrderIDs: createdIDs, OriginalCancelled: result.OriginalCancelled,
	})
	if result.OriginalCancelled && original.TableID != nil {
		s.releaseTableIfIdle(ctx, *original.TableID, original.ID)
	}

	return result, nil
}

// splitOrderNumber uses the group name when given. Otherwise it derives a
// number from base offset by seq, tagged with the split's batch suffix so
// separate splits landing on the same millisecond do not collide.
func splitOrderNumber(name *string, base int64, seq int, batch string) string {
	if name != nil && strings.TrimSpace(*name) != "" {
		return strings.TrimSpace(*name)
	}
	return fmt.Sprintf("SPLIT-%d-%s", base+int64(seq), batch)
}

func firstInt64(values ...*int64) *int64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstInt(values ...*int) *int {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstString(values ...*string) *string {
	for _, v := range values {
		if v != nil && *v != "" {
			return v
		}
	}
	return nil
}
