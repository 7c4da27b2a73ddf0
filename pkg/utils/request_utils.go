package utils

// Context keys and headers shared by middleware and handlers.
const (
	RequestIDKey    = "requestID"
	RequestIDHeader = "X-Request-ID"

	EmployeeIDKey = "employeeID"
	UsernameKey   = "username"
	RoleKey       = "userRole"
)
