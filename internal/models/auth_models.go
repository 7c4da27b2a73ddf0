package models

import "time"

// Employee roles.
const (
	RoleAdmin   = "Admin"
	RoleManager = "Manager"
	RoleCashier = "Cashier"
	RoleWaiter  = "Waiter"
)

// Employee is a staff member able to log into the POS.
type Employee struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"` // '-' means don't send in JSON response
	FullName     *string   `json:"full_name,omitempty" db:"full_name"`
	Role         string    `json:"role" db:"role"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
