package models

import "time"

// TableStatus defines the type for dining table statuses
type TableStatus string

const (
	TableStatusAvailable   TableStatus = "available"
	TableStatusOccupied    TableStatus = "occupied"
	TableStatusReserved    TableStatus = "reserved"
	TableStatusMaintenance TableStatus = "maintenance"
)

// IsValidTableStatus checks if the provided status string is a valid TableStatus.
func IsValidTableStatus(status string) bool {
	switch TableStatus(status) {
	case TableStatusAvailable,
		TableStatusOccupied,
		TableStatusReserved,
		TableStatusMaintenance:
		return true
	default:
		return false
	}
}

// DiningTable represents a physical table on a floor of the restaurant
type DiningTable struct {
	ID        int64       `json:"id" db:"id"`
	Name      string      `json:"name" db:"name" binding:"required"`
	Floor     *string     `json:"floor,omitempty" db:"floor"`
	Status    TableStatus `json:"status" db:"status"`
	Capacity  *int        `json:"capacity,omitempty" db:"capacity"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

// TableFilters defines the available filters for querying tables.
type TableFilters struct {
	Status *string `form:"status"`
	Floor  *string `form:"floor"`
}
