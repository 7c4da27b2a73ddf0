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

// ProductRepository defines the interface for menu product operations.
type ProductRepository interface {
	CreateProduct(ctx context.Context, executor SQLExecutor, product *models.Product) (int64, error)
	GetProductByID(ctx context.Context, productID int64) (*models.Product, error)
	GetProducts(ctx context.Context, category *string, onlyAvailable bool) ([]models.Product, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository.
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const selectProductFields = `id, name, sku, category, price, price_after_tax, is_available, created_at, updated_at`

func scanProduct(row scanner, p *models.Product) error {
	return row.Scan(&p.ID, &p.Name, &p.SKU, &p.Category, &p.Price, &p.PriceAfterTax, &p.IsAvailable, &p.CreatedAt, &p.UpdatedAt)
}

func (r *productRepository) CreateProduct(ctx context.Context, executor SQLExecutor, product *models.Product) (int64, error) {
	query := `INSERT INTO products (name, sku, category, price, price_after_tax, is_available, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	product.CreatedAt = time.Now()
	product.UpdatedAt = product.CreatedAt

	err := executor.QueryRowContext(ctx, query,
		product.Name, product.SKU, product.Category, product.Price, product.PriceAfterTax, product.IsAvailable,
		product.CreatedAt, product.UpdatedAt,
	).Scan(&product.ID)
	if err != nil {
		return 0, classifyWriteError(err, "creating product "+product.Name)
	}
	return product.ID, nil
}

func (r *productRepository) GetProductByID(ctx context.Context, productID int64) (*models.Product, error) {
	var p models.Product
	query := `SELECT ` + selectProductFields + ` FROM products WHERE id = $1`
	if err := scanProduct(r.db.QueryRowContext(ctx, query, productID), &p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting product ID %d: %v", ErrDatabaseError, productID, err)
	}
	return &p, nil
}

func (r *productRepository) GetProducts(ctx context.Context, category *string, onlyAvailable bool) ([]models.Product, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + selectProductFields + ` FROM products`)

	var conditions []string
	var args []interface{}
	if category != nil && *category != "" {
		args = append(args, *category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if onlyAvailable {
		conditions = append(conditions, "is_available = TRUE")
	}
	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY name")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying products: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("%w: scanning product: %v", ErrDatabaseError, err)
		}
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating product rows: %v", ErrDatabaseError, err)
	}
	return products, nil
}

// CustomerRepository defines the interface for customer-related database operations.
type CustomerRepository interface {
	CreateCustomer(ctx context.Context, executor SQLExecutor, customer *models.Customer) (int64, error)
	GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error)
	GetCustomers(ctx context.Context, page, pageSize int, searchTerm *string) ([]models.Customer, int, error) // Customers, total count, error
}

type customerRepository struct {
	db *sql.DB
}

// NewCustomerRepository creates a new instance of CustomerRepository.
func NewCustomerRepository(db *sql.DB) CustomerRepository {
	return &customerRepository{db: db}
}

// CreateCustomer inserts a new customer into the database.
func (r *customerRepository) CreateCustomer(ctx context.Context, executor SQLExecutor, customer *models.Customer) (int64, error) {
	query := `INSERT INTO customers (full_name, phone_number, email, loyalty_points, notes, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING id`

	currentTime := time.Now()
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = currentTime
	}
	if customer.UpdatedAt.IsZero() {
		customer.UpdatedAt = currentTime
	}

	err := executor.QueryRowContext(ctx, query,
		customer.FullName, customer.PhoneNumber, customer.Email,
		customer.LoyaltyPoints, customer.Notes, customer.CreatedAt, customer.UpdatedAt,
	).Scan(&customer.ID)
	if err != nil {
		return 0, classifyWriteError(err, "creating customer")
	}
	return customer.ID, nil
}

// GetCustomerByID retrieves a customer by their ID.
func (r *customerRepository) GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error) {
	customer := &models.Customer{}
	query := `SELECT id, full_name, phone_number, email, loyalty_points, notes, created_at, updated_at
	          FROM customers WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&customer.ID, &customer.FullName, &customer.PhoneNumber, &customer.Email,
		&customer.LoyaltyPoints, &customer.Notes, &customer.CreatedAt, &customer.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting customer by ID %d: %v", ErrDatabaseError, id, err)
	}
	return customer, nil
}

// GetCustomers retrieves a list of customers with pagination and optional search.
func (r *customerRepository) GetCustomers(ctx context.Context, page, pageSize int, searchTerm *string) ([]models.Customer, int, error) {
	customers := []models.Customer{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT id, full_name, phone_number, email, loyalty_points, notes, created_at, updated_at, COUNT(*) OVER() as total_count
	                          FROM customers`)

	var args []interface{}
	argCount := 1

	if searchTerm != nil && *searchTerm != "" {
		searchPattern := "%" + strings.ToLower(*searchTerm) + "%"
		queryBuilder.WriteString(fmt.Sprintf(" WHERE (full_name ILIKE $%d OR phone_number ILIKE $%d OR email ILIKE $%d)", argCount, argCount, argCount))
		args = append(args, searchPattern)
		argCount++
	}

	queryBuilder.WriteString(" ORDER BY full_name ASC")

	if pageSize > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argCount))
		args = append(args, pageSize)
		argCount++
		if page > 0 {
			offset := (page - 1) * pageSize
			queryBuilder.WriteString(fmt.Sprintf(" OFFSET $%d", argCount))
			args = append(args, offset)
		}
	}

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: querying customers: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var customer models.Customer
		if err := rows.Scan(
			&customer.ID, &customer.FullName, &customer.PhoneNumber, &customer.Email,
			&customer.LoyaltyPoints, &customer.Notes, &customer.CreatedAt, &customer.UpdatedAt, &totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning customer: %v", ErrDatabaseError, err)
		}
		customers = append(customers, customer)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating customer rows: %v", ErrDatabaseError, err)
	}
	return customers, totalCount, nil
}

// SettingsRepository reads and writes the single store settings row.
type SettingsRepository interface {
	GetStoreSettings(ctx context.Context, executor SQLExecutor) (*models.StoreSettings, error)
	UpsertStoreSettings(ctx context.Context, executor SQLExecutor, settings *models.StoreSettings) error
}

type settingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository creates a new instance of SettingsRepository.
func NewSettingsRepository(db *sql.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) GetStoreSettings(ctx context.Context, executor SQLExecutor) (*models.StoreSettings, error) {
	var s models.StoreSettings
	query := `SELECT id, store_name, price_include_tax, tax_rate, currency, created_at, updated_at
	          FROM store_settings ORDER BY id LIMIT 1`
	err := executor.QueryRowContext(ctx, query).Scan(
		&s.ID, &s.StoreName, &s.PriceIncludeTax, &s.TaxRate, &s.Currency, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting store settings: %v", ErrDatabaseError, err)
	}
	return &s, nil
}

// UpsertStoreSettings writes the settings row with id 1.
func (r *settingsRepository) UpsertStoreSettings(ctx context.Context, executor SQLExecutor, settings *models.StoreSettings) error {
	query := `INSERT INTO store_settings (id, store_name, price_include_tax, tax_rate, currency, created_at, updated_at)
	          VALUES (1, $1, $2, $3, $4, $5, $5)
	          ON CONFLICT (id) DO UPDATE SET
	            store_name = EXCLUDED.store_name, price_include_tax = EXCLUDED.price_include_tax,
	            tax_rate = EXCLUDED.tax_rate, currency = EXCLUDED.currency, updated_at = EXCLUDED.updated_at
	          RETURNING id, created_at, updated_at`
	err := executor.QueryRowContext(ctx, query,
		settings.StoreName, settings.PriceIncludeTax, settings.TaxRate, settings.Currency, time.Now(),
	).Scan(&settings.ID, &settings.CreatedAt, &settings.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: upserting store settings: %v", ErrDatabaseError, err)
	}
	return nil
}
