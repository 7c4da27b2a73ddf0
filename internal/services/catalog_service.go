package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/repositories"

	"github.com/shopspring/decimal"
)

// --- Product ---

// CreateProductRequest is used for adding a menu product.
type CreateProductRequest struct {
	Name          string           `json:"name" binding:"required"`
	SKU           *string          `json:"sku"`
	Category      *string          `json:"category"`
	Price         decimal.Decimal  `json:"price"`
	PriceAfterTax *decimal.Decimal `json:"price_after_tax"`
	IsAvailable   *bool            `json:"is_available"`
}

type ProductService interface {
	CreateProduct(ctx context.Context, req CreateProductRequest) (*models.Product, error)
	GetProductByID(ctx context.Context, productID int64) (*models.Product, error)
	GetProducts(ctx context.Context, category *string, onlyAvailable bool) ([]models.Product, error)
}

type productService struct {
	productRepo  repositories.ProductRepository
	settingsRepo repositories.SettingsRepository
	db           *sql.DB
}

// NewProductService creates a new instance of ProductService.
func NewProductService(repo repositories.ProductRepository, settingsRepo repositories.SettingsRepository, db *sql.DB) ProductService {
	return &productService{productRepo: repo, settingsRepo: settingsRepo, db: db}
}

// CreateProduct stores a product. When no after-tax price is given it is
// derived from the store tax rate, if settings exist.
func (s *productService) CreateProduct(ctx context.Context, req CreateProductRequest) (*models.Product, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if req.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", ErrValidation)
	}

	product := models.Product{
		Name:          strings.TrimSpace(req.Name),
		SKU:           req.SKU,
		Category:      req.Category,
		Price:         req.Price,
		PriceAfterTax: req.Price,
		IsAvailable:   true,
	}
	if req.IsAvailable != nil {
		product.IsAvailable = *req.IsAvailable
	}
	switch {
	case req.PriceAfterTax != nil:
		if req.PriceAfterTax.LessThan(req.Price) {
			return nil, fmt.Errorf("%w: price_after_tax must not be below price", ErrValidation)
		}
		product.PriceAfterTax = *req.PriceAfterTax
	default:
		settings, err := s.settingsRepo.GetStoreSettings(ctx, s.db)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("failed to load store settings: %w", err)
		}
		if settings != nil && settings.TaxRate.IsPositive() {
			product.PriceAfterTax = req.Price.Mul(decimal.NewFromInt(1).Add(settings.TaxRate)).Round(moneyPlaces)
		}
	}

	if _, err := s.productRepo.CreateProduct(ctx, s.db, &product); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: product sku", ErrDuplicateRecord)
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return &product, nil
}

func (s *productService) GetProductByID(ctx context.Context, productID int64) (*models.Product, error) {
	product, err := s.productRepo.GetProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

func (s *productService) GetProducts(ctx context.Context, category *string, onlyAvailable bool) ([]models.Product, error) {
	products, err := s.productRepo.GetProducts(ctx, category, onlyAvailable)
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	return products, nil
}

// --- Customer ---

// CreateCustomerRequest is used for registering a guest.
type CreateCustomerRequest struct {
	FullName    string  `json:"full_name" binding:"required"`
	PhoneNumber *string `json:"phone_number"`
	Email       *string `json:"email" binding:"omitempty,email"`
	Notes       *string `json:"notes"`
}

type CustomerService interface {
	CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*models.Customer, error)
	GetCustomerByID(ctx context.Context, customerID int64) (*models.Customer, error)
	GetCustomers(ctx context.Context, page, pageSize int, searchTerm *string) ([]models.Customer, int, error)
}

type customerService struct {
	customerRepo repositories.CustomerRepository
	db           *sql.DB
}

// NewCustomerService creates a new instance of CustomerService.
func NewCustomerService(repo repositories.CustomerRepository, db *sql.DB) CustomerService {
	return &customerService{customerRepo: repo, db: db}
}

func (s *customerService) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*models.Customer, error) {
	if strings.TrimSpace(req.FullName) == "" {
		return nil, fmt.Errorf("%w: full_name is required", ErrValidation)
	}
	customer := models.Customer{
		FullName:    strings.TrimSpace(req.FullName),
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		Notes:       req.Notes,
	}
	if _, err := s.customerRepo.CreateCustomer(ctx, s.db, &customer); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: phone number or email already registered", ErrDuplicateRecord)
		}
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return &customer, nil
}

func (s *customerService) GetCustomerByID(ctx context.Context, customerID int64) (*models.Customer, error) {
	customer, err := s.customerRepo.GetCustomerByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return customer, nil
}

func (s *customerService) GetCustomers(ctx context.Context, page, pageSize int, searchTerm *string) ([]models.Customer, int, error) {
	customers, total, err := s.customerRepo.GetCustomers(ctx, page, pageSize, searchTerm)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get customers: %w", err)
	}
	return customers, total, nil
}

// --- Store settings ---

// UpdateStoreSettingsRequest replaces the store settings.
type UpdateStoreSettingsRequest struct {
	StoreName       string          `json:"store_name" binding:"required"`
	PriceIncludeTax bool            `json:"price_include_tax"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
	Currency        string          `json:"currency" binding:"required,len=3"`
}

type SettingsService interface {
	GetStoreSettings(ctx context.Context) (*models.StoreSettings, error)
	UpdateStoreSettings(ctx context.Context, req UpdateStoreSettingsRequest) (*models.StoreSettings, error)
}

type settingsService struct {
	settingsRepo repositories.SettingsRepository
	db           *sql.DB
}

// NewSettingsService creates a new instance of SettingsService.
func NewSettingsService(repo repositories.SettingsRepository, db *sql.DB) SettingsService {
	return &settingsService{settingsRepo: repo, db: db}
}

func (s *settingsService) GetStoreSettings(ctx context.Context) (*models.StoreSettings, error) {
	settings, err := s.settingsRepo.GetStoreSettings(ctx, s.db)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrStoreSettingsNotFound
		}
		return nil, fmt.Errorf("failed to get store settings: %w", err)
	}
	return settings, nil
}

func (s *settingsService) UpdateStoreSettings(ctx context.Context, req UpdateStoreSettingsRequest) (*models.StoreSettings, error) {
	if req.TaxRate.IsNegative() || req.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("%w: tax_rate must be a fraction between 0 and 1", ErrValidation)
	}
	settings := models.StoreSettings{
		StoreName:       strings.TrimSpace(req.StoreName),
		PriceIncludeTax: req.PriceIncludeTax,
		TaxRate:         req.TaxRate,
		Currency:        strings.ToUpper(strings.TrimSpace(req.Currency)),
	}
	if err := s.settingsRepo.UpsertStoreSettings(ctx, s.db, &settings); err != nil {
		return nil, fmt.Errorf("failed to save store settings: %w", err)
	}
	return &settings, nil
}
