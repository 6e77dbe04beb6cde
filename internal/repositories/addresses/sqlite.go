package addresses

import (
	"context"
	"database/sql"
	"fmt"

	"storefront/internal/dbx"
	"storefront/internal/models"
)

// SQLiteRepository implements Repository over a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const insertQuery = `
	INSERT INTO addresses
		(id, full_name, phone, address_line1, address_line2, city, state, zip_code, country, address_type, is_default, position)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		full_name = excluded.full_name,
		phone = excluded.phone,
		address_line1 = excluded.address_line1,
		address_line2 = excluded.address_line2,
		city = excluded.city,
		state = excluded.state,
		zip_code = excluded.zip_code,
		country = excluded.country,
		address_type = excluded.address_type,
		is_default = excluded.is_default
`

// ReplaceAll swaps the whole cached collection for list. When the repository
// is backed by a plain *sql.DB, the swap runs in a transaction so a failed
// insert never leaves the cache half-replaced.
func (r *SQLiteRepository) ReplaceAll(ctx context.Context, list []models.Address) error {
	if db, ok := r.db.(*sql.DB); ok {
		return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			return replaceAll(ctx, tx, list)
		})
	}
	return replaceAll(ctx, r.db, list)
}

func replaceAll(ctx context.Context, db dbx.DBTX, list []models.Address) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM addresses`); err != nil {
		return fmt.Errorf("failed to clear addresses: %w", err)
	}
	for i, a := range list {
		if _, err := db.ExecContext(ctx, insertQuery,
			a.ID, a.FullName, a.Phone, a.AddressLine1, a.AddressLine2,
			a.City, a.State, a.ZipCode, a.Country, string(a.Type), a.IsDefault, i,
		); err != nil {
			return fmt.Errorf("failed to insert address %s: %w", a.ID, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, a models.Address) error {
	// New rows go to the end of the collection; existing rows keep their slot.
	var position int
	err := r.db.QueryRowContext(ctx, `SELECT position FROM addresses WHERE id = ?`, a.ID).Scan(&position)
	if err == sql.ErrNoRows {
		if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(position)+1, 0) FROM addresses`).Scan(&position); err != nil {
			return fmt.Errorf("failed to compute address position: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to look up address %s: %w", a.ID, err)
	}

	if _, err := r.db.ExecContext(ctx, insertQuery,
		a.ID, a.FullName, a.Phone, a.AddressLine1, a.AddressLine2,
		a.City, a.State, a.ZipCode, a.Country, string(a.Type), a.IsDefault, position,
	); err != nil {
		return fmt.Errorf("failed to upsert address %s: %w", a.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Address, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, full_name, phone, address_line1, address_line2, city, state, zip_code, country, address_type, is_default
		FROM addresses ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to select addresses: %w", err)
	}
	defer rows.Close()

	var result []models.Address
	for rows.Next() {
		var a models.Address
		var addrType string
		if err := rows.Scan(&a.ID, &a.FullName, &a.Phone, &a.AddressLine1, &a.AddressLine2,
			&a.City, &a.State, &a.ZipCode, &a.Country, &addrType, &a.IsDefault); err != nil {
			return nil, err
		}
		a.Type = models.AddressType(addrType)
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM addresses WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete address %s: %w", id, err)
	}
	return nil
}

// SetDefault flips is_default across the whole collection in one statement,
// so the cache can never hold two defaults.
func (r *SQLiteRepository) SetDefault(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE addresses SET is_default = (id = ?)`, id); err != nil {
		return fmt.Errorf("failed to set default address %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM addresses`); err != nil {
		return fmt.Errorf("failed to clear addresses: %w", err)
	}
	return nil
}
