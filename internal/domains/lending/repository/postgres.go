package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"library-backend/internal/domains/lending/model"
	"library-backend/pkg/database"
)

const discrepancyColumns = `id, book_id, user_id, kind, delta, reason, created_at, resolved_at, resolved_by`

type postgresDiscrepancyRepository struct {
	db database.DBTX
}

func NewPostgresDiscrepancyRepository(db database.DBTX) DiscrepancyRepository {
	return &postgresDiscrepancyRepository{db: db}
}

func (r *postgresDiscrepancyRepository) Create(ctx context.Context, d *model.Discrepancy) error {
	query := `
		INSERT INTO stock_discrepancies (id, book_id, user_id, kind, delta, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING created_at
	`

	err := r.db.QueryRow(ctx, query,
		d.ID, d.BookID, d.UserID, string(d.Kind), d.Delta, d.Reason,
	).Scan(&d.CreatedAt)
	if err != nil {
		return fmt.Errorf("create discrepancy: %w", err)
	}
	return nil
}

func (r *postgresDiscrepancyRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Discrepancy, error) {
	query := `SELECT ` + discrepancyColumns + ` FROM stock_discrepancies WHERE id = $1`

	d, err := scanDiscrepancy(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrDiscrepancyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find discrepancy: %w", err)
	}
	return d, nil
}

func (r *postgresDiscrepancyRepository) List(ctx context.Context, filter model.ListFilter) ([]model.Discrepancy, error) {
	query := `SELECT ` + discrepancyColumns + ` FROM stock_discrepancies`
	if filter.OnlyOpen {
		query += ` WHERE resolved_at IS NULL`
	}
	query += ` ORDER BY created_at ASC`

	args := []interface{}{}
	if filter.Limit > 0 {
		query += ` LIMIT $1`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list discrepancies: %w", err)
	}
	defer rows.Close()

	out := make([]model.Discrepancy, 0)
	for rows.Next() {
		d, err := scanDiscrepancy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan discrepancy: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *postgresDiscrepancyRepository) MarkResolved(ctx context.Context, id uuid.UUID, resolvedBy *uuid.UUID) (*model.Discrepancy, error) {
	query := `
		UPDATE stock_discrepancies
		SET resolved_at = NOW(), resolved_by = $2
		WHERE id = $1
		  AND resolved_at IS NULL
		RETURNING ` + discrepancyColumns

	d, err := scanDiscrepancy(r.db.QueryRow(ctx, query, id, resolvedBy))
	if errors.Is(err, pgx.ErrNoRows) {
		if _, findErr := r.FindByID(ctx, id); findErr != nil {
			return nil, findErr
		}
		return nil, model.ErrDiscrepancyResolved
	}
	if err != nil {
		return nil, fmt.Errorf("resolve discrepancy: %w", err)
	}
	return d, nil
}

func scanDiscrepancy(row pgx.Row) (*model.Discrepancy, error) {
	var d model.Discrepancy
	var kind string
	if err := row.Scan(
		&d.ID, &d.BookID, &d.UserID, &kind, &d.Delta, &d.Reason,
		&d.CreatedAt, &d.ResolvedAt, &d.ResolvedBy,
	); err != nil {
		return nil, err
	}
	d.Kind = model.DiscrepancyKind(kind)
	return &d, nil
}
