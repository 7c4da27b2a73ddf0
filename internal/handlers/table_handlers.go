package handlers

import (
	"net/http"

	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// TableHandler holds the dining table service.
type TableHandler struct {
	tableService services.TableService
}

// NewTableHandler creates a new TableHandler.
func NewTableHandler(ts services.TableService) *TableHandler {
	return &TableHandler{tableService: ts}
}

func (h *TableHandler) CreateTable(c *gin.Context) {
	var req services.CreateTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "CreateTable")
		return
	}

	table, err := h.tableService.CreateTable(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "Failed to create table.")
		return
	}
	c.JSON(http.StatusCreated, table)
}

func (h *TableHandler) GetTables(c *gin.Context) {
	var filters models.TableFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		respondBindError(c, err, "GetTables")
		return
	}

	tables, err := h.tableService.GetTables(c.Request.Context(), filters)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch tables.")
		return
	}
	if tables == nil {
		tables = []models.DiningTable{}
	}
	c.JSON(http.StatusOK, tables)
}

func (h *TableHandler) GetTableByID(c *gin.Context) {
	tableID, ok := pathID(c, "table")
	if !ok {
		return
	}

	table, err := h.tableService.GetTableByID(c.Request.Context(), tableID)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch table.")
		return
	}
	c.JSON(http.StatusOK, table)
}

// UpdateTableStatus sets a table's status by hand, e.g. to reserve it.
func (h *TableHandler) UpdateTableStatus(c *gin.Context) {
	tableID, ok := pathID(c, "table")
	if !ok {
		return
	}

	var req services.UpdateTableStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "UpdateTableStatus")
		return
	}

	table, err := h.tableService.UpdateTableStatus(c.Request.Context(), tableID, req.Status)
	if err != nil {
		respondServiceError(c, err, "Failed to update table status.")
		return
	}
	c.JSON(http.StatusOK, table)
}
