package command

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record is a single dispatched-command audit entry.
//
// Tokens are never stored in clear; only a SHA-256 hash is kept so history
// can be scoped to a caller without persisting the secret itself.
type Record struct {
	ID           string    `json:"id"`
	TokenHash    string    `json:"-"`
	Duration     int       `json:"duration"`
	Side         Side      `json:"side"`
	DispatchedAt time.Time `json:"dispatched_at"`
}

// HashToken derives the storable hash for a bearer token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Filter controls which audit records to return.
type Filter struct {
	TokenHash string // required: scope to one caller
	Side      Side   // optional: filter by side
	Limit     int    // default 50, max 200
	Offset    int    // pagination offset
}

// ListResult contains the paginated audit results.
type ListResult struct {
	Commands []Record `json:"commands"`
	Total    int      `json:"total"`
	Limit    int      `json:"limit"`
	Offset   int      `json:"offset"`
}

// Repository defines the interface for command audit operations.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository persists command audit records in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new audit repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new audit record. The ID and DispatchedAt are generated
// if empty.
func (r *SQLiteRepository) Create(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = "cmd-" + uuid.NewString()[:8]
	}
	if rec.DispatchedAt.IsZero() {
		rec.DispatchedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO whip_commands (id, token_hash, duration, side, dispatched_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.TokenHash, rec.Duration, string(rec.Side),
		rec.DispatchedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting command record: %w", err)
	}

	return nil
}

// List returns audit records matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	// Clamp limit.
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 {
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	conditions := []string{"token_hash = ?"}
	args := []any{filter.TokenHash}

	if filter.Side != "" {
		conditions = append(conditions, "side = ?")
		args = append(args, string(filter.Side))
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	// WHERE clause is built from parameterised conditions (? placeholders).
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM whip_commands %s", where)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting command records: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT id, token_hash, duration, side, dispatched_at FROM whip_commands %s ORDER BY dispatched_at DESC LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying command records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var side, dispatchedAt string

		if err := rows.Scan(&rec.ID, &rec.TokenHash, &rec.Duration, &side, &dispatchedAt); err != nil {
			return nil, fmt.Errorf("scanning command record: %w", err)
		}
		rec.Side = Side(side)

		t, err := time.Parse(time.RFC3339, dispatchedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing command timestamp %q: %w", dispatchedAt, err)
		}
		rec.DispatchedAt = t

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating command records: %w", err)
	}

	if records == nil {
		records = []Record{}
	}

	return &ListResult{
		Commands: records,
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}, nil
}
