package registry

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// StoredValue is a persisted host value of one parameter.
type StoredValue struct {
	Name      string    `json:"name"`
	HostIdx   int       `json:"host_idx"`
	HostValue float64   `json:"host_value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository persists parameter values per configuration UID.
type Repository interface {
	// SaveValues replaces the values stored for a configuration UID.
	SaveValues(ctx context.Context, configUID int, values []StoredValue) error

	// LoadValues returns the values stored for a configuration UID, ordered
	// by host slot. An unknown UID returns no values.
	LoadValues(ctx context.Context, configUID int) ([]StoredValue, error)

	// DeleteValues removes the values stored for a configuration UID.
	DeleteValues(ctx context.Context, configUID int) error
}

// SQLiteRepository implements Repository using the parameter_values table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a SQLite-backed repository.
// The db parameter should be an open, migrated SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// SaveValues replaces the values stored for a configuration UID in one
// transaction.
func (r *SQLiteRepository) SaveValues(ctx context.Context, configUID int, values []StoredValue) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM parameter_values WHERE config_uid = ?", configUID); err != nil {
		return fmt.Errorf("clearing parameter values: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO parameter_values (config_uid, name, host_idx, host_value, updated_at)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, v := range values {
		updatedAt := v.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, configUID, v.Name, v.HostIdx, v.HostValue,
			updatedAt.UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("inserting value for %s: %w", v.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing parameter values: %w", err)
	}
	return nil
}

// LoadValues returns the values stored for a configuration UID.
func (r *SQLiteRepository) LoadValues(ctx context.Context, configUID int) ([]StoredValue, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, host_idx, host_value, updated_at
		 FROM parameter_values
		 WHERE config_uid = ?
		 ORDER BY host_idx, name`,
		configUID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying parameter values: %w", err)
	}
	defer rows.Close()

	var values []StoredValue
	for rows.Next() {
		var v StoredValue
		var updatedAt string

		if err := rows.Scan(&v.Name, &v.HostIdx, &v.HostValue, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning parameter value: %w", err)
		}

		v.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}

		values = append(values, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating parameter values: %w", err)
	}

	return values, nil
}

// DeleteValues removes the values stored for a configuration UID.
func (r *SQLiteRepository) DeleteValues(ctx context.Context, configUID int) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM parameter_values WHERE config_uid = ?", configUID); err != nil {
		return fmt.Errorf("deleting parameter values: %w", err)
	}
	return nil
}
