package handlers

import (
	"net/http"
	"strconv"

	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// ProductHandler holds the product service.
type ProductHandler struct {
	productService services.ProductService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(ps services.ProductService) *ProductHandler {
	return &ProductHandler{productService: ps}
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req services.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "CreateProduct")
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "Failed to create product.")
		return
	}
	c.JSON(http.StatusCreated, product)
}

// GetProducts lists the menu. ?category= filters by category and
// ?available=true hides products that cannot be ordered.
func (h *ProductHandler) GetProducts(c *gin.Context) {
	var category *string
	if v := c.Query("category"); v != "" {
		category = &v
	}
	onlyAvailable, _ := strconv.ParseBool(c.DefaultQuery("available", "false"))

	products, err := h.productService.GetProducts(c.Request.Context(), category, onlyAvailable)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch products.")
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) GetProductByID(c *gin.Context) {
	productID, ok := pathID(c, "product")
	if !ok {
		return
	}

	product, err := h.productService.GetProductByID(c.Request.Context(), productID)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch product.")
		return
	}
	c.JSON(http.StatusOK, product)
}

// CustomerHandler holds the customer service.
type CustomerHandler struct {
	customerService services.CustomerService
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(cs services.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: cs}
}

// CreateCustomer handles the creation of a new customer.
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req services.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "CreateCustomer")
		return
	}

	customer, err := h.customerService.CreateCustomer(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "Failed to create customer.")
		return
	}
	c.JSON(http.StatusCreated, customer)
}

// GetCustomers handles fetching all customers with pagination and search.
func (h *CustomerHandler) GetCustomers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 10
	}

	var searchTerm *string
	if search := c.Query("search"); search != "" {
		searchTerm = &search
	}

	customers, totalCount, err := h.customerService.GetCustomers(c.Request.Context(), page, pageSize, searchTerm)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch customers.")
		return
	}
	if customers == nil {
		customers = []models.Customer{}
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      customers,
		"total":     totalCount,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetCustomerByID handles fetching a single customer by ID.
func (h *CustomerHandler) GetCustomerByID(c *gin.Context) {
	customerID, ok := pathID(c, "customer")
	if !ok {
		return
	}

	customer, err := h.customerService.GetCustomerByID(c.Request.Context(), customerID)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch customer.")
		return
	}
	c.JSON(http.StatusOK, customer)
}
