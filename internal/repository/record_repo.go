package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/coop-records-api/internal/database"
	"github.com/coop-records-api/internal/models"
	"github.com/lib/pq"
)

// recordRepo is the concrete implementation of RecordRepository
type recordRepo struct {
	db *database.DB
}

// NewRecordRepo creates a new record repository
func NewRecordRepo(db *database.DB) RecordRepository {
	return &recordRepo{db: db}
}

// Query runs a constrained select over the domain's table. Filters are
// combined with AND; an absent filter field applies no constraint.
// Results come back newest first by date, capped at limit.
func (r *recordRepo) Query(ctx context.Context, d models.Domain, f models.QueryFilter, limit int) ([]models.Record, error) {
	var conds []string
	var args []any

	if f.OwnerID != "" {
		args = append(args, f.OwnerID)
		conds = append(conds, fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(models.ColOwnerID), len(args)))
	}
	if f.PlateContains != "" {
		args = append(args, "%"+f.PlateContains+"%")
		conds = append(conds, fmt.Sprintf("%s ILIKE $%d", pq.QuoteIdentifier(models.ColPlate), len(args)))
	}
	if f.DateStart != "" {
		args = append(args, f.DateStart)
		conds = append(conds, fmt.Sprintf("%s >= $%d", pq.QuoteIdentifier(models.ColDate), len(args)))
	}
	if f.DateEnd != "" {
		args = append(args, f.DateEnd)
		conds = append(conds, fmt.Sprintf("%s <= $%d", pq.QuoteIdentifier(models.ColDate), len(args)))
	}

	query := "SELECT * FROM " + pq.QuoteIdentifier(d.Table())
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY %s DESC LIMIT %d", pq.QuoteIdentifier(models.ColDate), limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var records []models.Record
	values := make([]any, len(cols))
	scanTargets := make([]any, len(cols))
	for i := range values {
		scanTargets[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, err
		}
		record := make(models.Record, len(cols))
		for i, col := range cols {
			// Surrogate key and bookkeeping columns are storage detail,
			// not part of the record shape.
			if col == "id" || col == "created_at" {
				continue
			}
			record[col] = normalizeValue(values[i])
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// normalizeValue converts driver types to the record value types.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case int64:
		return float64(t)
	default:
		return t
	}
}

// InsertChunk inserts one chunk of reconciled rows using PostgreSQL COPY.
// Each chunk is its own transaction: a failed chunk rolls back alone and
// rows committed by prior chunks stay committed.
func (r *recordRepo) InsertChunk(ctx context.Context, d models.Domain, cols []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(d.Table(), cols...))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return err
		}
	}

	// Execute the COPY
	if _, err := stmt.ExecContext(ctx); err != nil {
		return err
	}

	return tx.Commit()
}

// Truncate removes every row of the domain's table ahead of a
// replace-mode import.
func (r *recordRepo) Truncate(ctx context.Context, d models.Domain) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM "+pq.QuoteIdentifier(d.Table()))
	return err
}

// ListColumns asks the backend for the authoritative column listing of
// a table, in definition order.
func (r *recordRepo) ListColumns(ctx context.Context, table string) ([]string, error) {
	query := `
		SELECT column_name FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position
	`
	rows, err := r.db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

// OwnerPlate resolves an owner's linked plate from their most recent
// dues record. Returns "" without error when the owner has no dues rows.
func (r *recordRepo) OwnerPlate(ctx context.Context, ownerID string) (string, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE %s = $1 ORDER BY %s DESC LIMIT 1`,
		pq.QuoteIdentifier(models.ColPlate),
		pq.QuoteIdentifier(models.DomainDues.Table()),
		pq.QuoteIdentifier(models.ColOwnerID),
		pq.QuoteIdentifier(models.ColDate),
	)

	var plate sql.NullString
	err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&plate)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return plate.String, nil
}

// OwnerHasDues reports whether the owner ID appears in the dues table
// at all. This gates numeric-ID self-enrollment.
func (r *recordRepo) OwnerHasDues(ctx context.Context, ownerID string) (bool, error) {
	query := fmt.Sprintf(
		`SELECT EXISTS(SELECT 1 FROM %s WHERE %s = $1)`,
		pq.QuoteIdentifier(models.DomainDues.Table()),
		pq.QuoteIdentifier(models.ColOwnerID),
	)

	var exists bool
	err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&exists)
	return exists, err
}

// Count returns the total number of rows in the domain's table.
func (r *recordRepo) Count(ctx context.Context, d models.Domain) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+pq.QuoteIdentifier(d.Table())).Scan(&count)
	return count, err
}
