package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"restaurant_pos_backend/internal/models"

	"github.com/lib/pq"
)

// TableRepository defines the interface for dining table operations.
type TableRepository interface {
	CreateTable(ctx context.Context, executor SQLExecutor, table *models.DiningTable) (int64, error)
	GetTableByID(ctx context.Context, tableID int64) (*models.DiningTable, error)
	GetTables(ctx context.Context, filters models.TableFilters) ([]models.DiningTable, error)
	UpdateTableStatus(ctx context.Context, executor SQLExecutor, tableID int64, status models.TableStatus) error
	// CountOpenOrdersOnTable counts orders on the table that still hold it,
	// ignoring excludeOrderID.
	CountOpenOrdersOnTable(ctx context.Context, executor SQLExecutor, tableID int64, excludeOrderID int64) (int, error)
}

type tableRepository struct {
	db *sql.DB
}

// NewTableRepository creates a new instance of TableRepository.
func NewTableRepository(db *sql.DB) TableRepository {
	return &tableRepository{db: db}
}

func (r *tableRepository) CreateTable(ctx context.Context, executor SQLExecutor, table *models.DiningTable) (int64, error) {
	query := `INSERT INTO dining_tables (name, floor, status, capacity, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`

	table.CreatedAt = time.Now()
	table.UpdatedAt = table.CreatedAt
	if table.Status == "" {
		table.Status = models.TableStatusAvailable
	}

	err := executor.QueryRowContext(ctx, query,
		table.Name, table.Floor, string(table.Status), table.Capacity, table.CreatedAt, table.UpdatedAt,
	).Scan(&table.ID)
	if err != nil {
		return 0, classifyWriteError(err, "creating dining table "+table.Name)
	}
	return table.ID, nil
}

func (r *tableRepository) GetTableByID(ctx context.Context, tableID int64) (*models.DiningTable, error) {
	var tbl models.DiningTable
	query := `SELECT id, name, floor, status, capacity, created_at, updated_at FROM dining_tables WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, tableID).Scan(
		&tbl.ID, &tbl.Name, &tbl.Floor, &tbl.Status, &tbl.Capacity, &tbl.CreatedAt, &tbl.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting dining table ID %d: %v", ErrDatabaseError, tableID, err)
	}
	return &tbl, nil
}

func (r *tableRepository) GetTables(ctx context.Context, filters models.TableFilters) ([]models.DiningTable, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString("SELECT id, name, floor, status, capacity, created_at, updated_at FROM dining_tables")

	var conditions []string
	var args []interface{}
	if filters.Status != nil && *filters.Status != "" {
		args = append(args, *filters.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filters.Floor != nil && *filters.Floor != "" {
		args = append(args, *filters.Floor)
		conditions = append(conditions, fmt.Sprintf("floor = $%d", len(args)))
	}
	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY floor, name")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying dining tables: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	tables := []models.DiningTable{}
	for rows.Next() {
		var tbl models.DiningTable
		if err := rows.Scan(
			&tbl.ID, &tbl.Name, &tbl.Floor, &tbl.Status, &tbl.Capacity, &tbl.CreatedAt, &tbl.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning dining table: %v", ErrDatabaseError, err)
		}
		tables = append(tables, tbl)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating dining table rows: %v", ErrDatabaseError, err)
	}
	return tables, nil
}

func (r *tableRepository) UpdateTableStatus(ctx context.Context, executor SQLExecutor, tableID int64, status models.TableStatus) error {
	query := `UPDATE dining_tables SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := executor.ExecContext(ctx, query, string(status), time.Now(), tableID)
	if err != nil {
		return fmt.Errorf("%w: updating status of dining table ID %d: %v", ErrDatabaseError, tableID, err)
	}
	return expectOneRow(result, fmt.Sprintf("dining table status update ID %d", tableID))
}

func (r *tableRepository) CountOpenOrdersOnTable(ctx context.Context, executor SQLExecutor, tableID int64, excludeOrderID int64) (int, error) {
	query := `SELECT COUNT(*) FROM orders
	          WHERE table_id = $1 AND id != $2
	          AND status <> ALL($3)`
	closed := make([]string, 0, len(models.ClosedOrderStatuses))
	for _, s := range models.ClosedOrderStatuses {
		closed = append(closed, string(s))
	}
	var count int
	err := executor.QueryRowContext(ctx, query, tableID, excludeOrderID, pq.Array(closed)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: counting open orders on table ID %d: %v", ErrDatabaseError, tableID, err)
	}
	return count, nil
}
