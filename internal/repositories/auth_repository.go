package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"restaurant_pos_backend/internal/models"
)

// EmployeeRepository defines the interface for employee lookups used by authentication.
type EmployeeRepository interface {
	CreateEmployee(ctx context.Context, executor SQLExecutor, employee *models.Employee) (int64, error)
	FindEmployeeByUsername(ctx context.Context, username string) (*models.Employee, error)
	FindEmployeeByID(ctx context.Context, employeeID int64) (*models.Employee, error)
}

type employeeRepository struct {
	db *sql.DB
}

// NewEmployeeRepository creates a new instance of EmployeeRepository.
func NewEmployeeRepository(db *sql.DB) EmployeeRepository {
	return &employeeRepository{db: db}
}

const selectEmployeeFields = `id, username, password_hash, full_name, role, is_active, created_at, updated_at`

// CreateEmployee inserts a new employee. PasswordHash must already be hashed.
func (r *employeeRepository) CreateEmployee(ctx context.Context, executor SQLExecutor, employee *models.Employee) (int64, error) {
	query := `INSERT INTO employees (username, password_hash, full_name, role, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING id`

	currentTime := time.Now()
	employee.CreatedAt = currentTime
	employee.UpdatedAt = currentTime

	err := executor.QueryRowContext(ctx, query,
		employee.Username, employee.PasswordHash, employee.FullName, employee.Role, employee.IsActive,
		employee.CreatedAt, employee.UpdatedAt,
	).Scan(&employee.ID)
	if err != nil {
		return 0, classifyWriteError(err, "creating employee "+employee.Username)
	}
	return employee.ID, nil
}

// FindEmployeeByUsername retrieves an employee, including the password hash.
func (r *employeeRepository) FindEmployeeByUsername(ctx context.Context, username string) (*models.Employee, error) {
	employee := &models.Employee{}
	query := `SELECT ` + selectEmployeeFields + ` FROM employees WHERE username = $1`

	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&employee.ID, &employee.Username, &employee.PasswordHash, &employee.FullName,
		&employee.Role, &employee.IsActive, &employee.CreatedAt, &employee.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: finding employee by username %s: %v", ErrDatabaseError, username, err)
	}
	return employee, nil
}

// FindEmployeeByID retrieves an employee profile. The password hash is not populated.
func (r *employeeRepository) FindEmployeeByID(ctx context.Context, employeeID int64) (*models.Employee, error) {
	employee := &models.Employee{}
	query := `SELECT ` + selectEmployeeFields + ` FROM employees WHERE id = $1`

	var passwordHash string
	err := r.db.QueryRowContext(ctx, query, employeeID).Scan(
		&employee.ID, &employee.Username, &passwordHash, &employee.FullName,
		&employee.Role, &employee.IsActive, &employee.CreatedAt, &employee.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: finding employee by ID %d: %v", ErrDatabaseError, employeeID, err)
	}
	return employee, nil
}
