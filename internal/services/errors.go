package services

import "errors"

// Service level errors. Handlers map these onto HTTP statuses.
var (
	ErrValidation              = errors.New("validation failed")
	ErrOrderNotFound           = errors.New("order not found")
	ErrTableNotFound           = errors.New("table not found")
	ErrProductNotFound         = errors.New("product not found or not available")
	ErrCustomerNotFound        = errors.New("customer not found")
	ErrEmployeeNotFound        = errors.New("employee not found")
	ErrInvalidOrderStatus      = errors.New("invalid order status")
	ErrInvalidTableStatus      = errors.New("invalid table status")
	ErrInvalidStatusTransition = errors.New("order status transition not allowed")
	ErrOrderNotSplittable      = errors.New("order cannot be split in its current status")
	ErrOrderVersionConflict    = errors.New("order was modified by another request")
	ErrStoreSettingsNotFound   = errors.New("store settings not found")
	ErrTotalsMismatch          = errors.New("order totals do not add up")
	ErrInsufficientPayment     = errors.New("amount received is less than the order total")
	ErrDuplicateOrderNumber    = errors.New("order number already exists")
	ErrDuplicateRecord         = errors.New("record already exists")
	ErrInvalidCredentials      = errors.New("invalid username or password")
	ErrInvalidToken            = errors.New("invalid or expired token")
)
