package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/repositories"
)

// CreateTableRequest is used for adding a dining table.
type CreateTableRequest struct {
	Name     string  `json:"name" binding:"required"`
	Floor    *string `json:"floor"`
	Capacity *int    `json:"capacity" binding:"omitempty,gt=0"`
}

// UpdateTableStatusRequest is used for a manual table status change.
type UpdateTableStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// --- TableService Interface ---
type TableService interface {
	CreateTable(ctx context.Context, req CreateTableRequest) (*models.DiningTable, error)
	GetTableByID(ctx context.Context, tableID int64) (*models.DiningTable, error)
	GetTables(ctx context.Context, filters models.TableFilters) ([]models.DiningTable, error)
	UpdateTableStatus(ctx context.Context, tableID int64, status string) (*models.DiningTable, error)
}

type tableService struct {
	tableRepo repositories.TableRepository
	db        *sql.DB
}

// NewTableService creates a new instance of TableService.
func NewTableService(repo repositories.TableRepository, db *sql.DB) TableService {
	return &tableService{tableRepo: repo, db: db}
}

func (s *tableService) CreateTable(ctx context.Context, req CreateTableRequest) (*models.DiningTable, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	table := models.DiningTable{
		Name:     strings.TrimSpace(req.Name),
		Floor:    req.Floor,
		Capacity: req.Capacity,
		Status:   models.TableStatusAvailable,
	}
	if _, err := s.tableRepo.CreateTable(ctx, s.db, &table); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: table %q", ErrDuplicateRecord, table.Name)
		}
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return &table, nil
}

func (s *tableService) GetTableByID(ctx context.Context, tableID int64) (*models.DiningTable, error) {
	table, err := s.tableRepo.GetTableByID(ctx, tableID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("failed to get table: %w", err)
	}
	return table, nil
}

func (s *tableService) GetTables(ctx context.Context, filters models.TableFilters) ([]models.DiningTable, error) {
	if filters.Status != nil && *filters.Status != "" && !models.IsValidTableStatus(*filters.Status) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTableStatus, *filters.Status)
	}
	tables, err := s.tableRepo.GetTables(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to get tables: %w", err)
	}
	return tables, nil
}

func (s *tableService) UpdateTableStatus(ctx context.Context, tableID int64, status string) (*models.DiningTable, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !models.IsValidTableStatus(status) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTableStatus, status)
	}
	if err := s.tableRepo.UpdateTableStatus(ctx, s.db, tableID, models.TableStatus(status)); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("failed to update table status: %w", err)
	}
	return s.GetTableByID(ctx, tableID)
}
