// Package clientdata provides persistent caching for external API client responses.
// All data is stored as JSON blobs with expiration timestamps for cache-first behavior.
package clientdata

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// TableOpenFIGI caches CUSIP to FIGI mapping results.
const TableOpenFIGI = "openfigi"

// AllTables lists all tables in client_data.db for cleanup operations.
var AllTables = []string{
	TableOpenFIGI,
}

// keyColumns maps each table to its primary key column.
var keyColumns = map[string]string{
	TableOpenFIGI: "cusip",
}

// Repository provides cache operations for client data.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new client data repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// keyColumn validates the table name against the allowed list and returns its key column.
// Table names are interpolated into SQL, so only known tables pass.
func keyColumn(table string) (string, error) {
	col, ok := keyColumns[table]
	if !ok {
		return "", fmt.Errorf("invalid table name: %s", table)
	}
	return col, nil
}

// Store saves data with expiration = now + ttl.
func (r *Repository) Store(table, key string, data interface{}, ttl time.Duration) error {
	keyCol, err := keyColumn(table)
	if err != nil {
		return err
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	expiresAt := r.now().Add(ttl).Unix()

	query := fmt.Sprintf(
		"INSERT OR REPLACE INTO %s (%s, data, expires_at) VALUES (?, ?, ?)",
		table, keyCol,
	)

	if _, err := r.db.Exec(query, key, string(jsonData), expiresAt); err != nil {
		return fmt.Errorf("failed to store data in %s: %w", table, err)
	}

	return nil
}

// GetIfFresh returns data only if expires_at > now.
// Returns nil, nil if the key doesn't exist or data is expired.
// Use Get() to retrieve stale data as a fallback when API calls fail.
func (r *Repository) GetIfFresh(table, key string) (json.RawMessage, error) {
	keyCol, err := keyColumn(table)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		"SELECT data FROM %s WHERE %s = ? AND expires_at > ?",
		table, keyCol,
	)

	return r.queryOne(table, query, key, r.now().Unix())
}

// Get returns data regardless of expiration status.
// Returns nil, nil if the key doesn't exist.
func (r *Repository) Get(table, key string) (json.RawMessage, error) {
	keyCol, err := keyColumn(table)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT data FROM %s WHERE %s = ?", table, keyCol)

	return r.queryOne(table, query, key)
}

func (r *Repository) queryOne(table, query string, args ...interface{}) (json.RawMessage, error) {
	var data string
	err := r.db.QueryRow(query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get data from %s: %w", table, err)
	}
	return json.RawMessage(data), nil
}

// Delete removes a specific entry.
func (r *Repository) Delete(table, key string) error {
	keyCol, err := keyColumn(table)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, keyCol)
	if _, err := r.db.Exec(query, key); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}

	return nil
}

// DeleteExpired removes rows that expired more than grace ago.
// A zero grace removes every expired row. Returns the number of rows deleted.
func (r *Repository) DeleteExpired(table string, grace time.Duration) (int64, error) {
	if _, err := keyColumn(table); err != nil {
		return 0, err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE expires_at < ?", table)

	result, err := r.db.Exec(query, r.now().Add(-grace).Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired from %s: %w", table, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for %s: %w", table, err)
	}

	return deleted, nil
}

// DeleteAllExpired applies DeleteExpired with the same grace to every table.
// Returns a map of table name to number of rows deleted.
func (r *Repository) DeleteAllExpired(grace time.Duration) (map[string]int64, error) {
	results := make(map[string]int64)

	for _, table := range AllTables {
		deleted, err := r.DeleteExpired(table, grace)
		if err != nil {
			return results, err
		}
		results[table] = deleted
	}

	return results, nil
}

// TableStats counts the rows of a cache table by freshness.
type TableStats struct {
	Fresh int64
	Stale int64 // expired but still served when the API fails
}

// Stats returns the fresh and stale row counts of table.
func (r *Repository) Stats(table string) (TableStats, error) {
	if _, err := keyColumn(table); err != nil {
		return TableStats{}, err
	}

	query := fmt.Sprintf(
		"SELECT COALESCE(SUM(CASE WHEN expires_at > ? THEN 1 ELSE 0 END), 0), "+
			"COALESCE(SUM(CASE WHEN expires_at > ? THEN 0 ELSE 1 END), 0) FROM %s",
		table,
	)

	now := r.now().Unix()
	var stats TableStats
	if err := r.db.QueryRow(query, now, now).Scan(&stats.Fresh, &stats.Stale); err != nil {
		return TableStats{}, fmt.Errorf("failed to count rows of %s: %w", table, err)
	}
	return stats, nil
}
