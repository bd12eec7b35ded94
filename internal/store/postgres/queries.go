package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/alfredjeanlab/pipeline/internal/model"
	"github.com/alfredjeanlab/pipeline/internal/store"
)

// clientColumns is the column list used for SELECT statements on the clients table.
const clientColumns = `id, name, email, phone, company, franchise,
	status, assignee, version, created_at, created_by, updated_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryCreateClient(ctx context.Context, db executor, c *model.Client) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO clients (
			id, name, email, phone, company, franchise,
			status, assignee, version, created_at, created_by, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12
		)`,
		c.ID,
		c.Name,
		nullString(c.Email),
		nullString(c.Phone),
		nullString(c.Company),
		nullString(c.Franchise),
		string(c.Status),
		nullString(c.Assignee),
		c.Version,
		c.CreatedAt,
		nullString(c.CreatedBy),
		c.UpdatedAt,
	)
	return err
}

func queryGetClient(ctx context.Context, db executor, id string) (*model.Client, error) {
	row := db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id)
	c, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func queryListClients(ctx context.Context, db executor, filter model.ClientFilter) ([]*model.Client, int, error) {
	var (
		whereClauses []string
		args         []any
		argIdx       int
	)

	nextArg := func() string {
		argIdx++
		return fmt.Sprintf("$%d", argIdx)
	}

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			placeholders[i] = nextArg()
			args = append(args, string(s))
		}
		whereClauses = append(whereClauses, "status IN ("+strings.Join(placeholders, ", ")+")")
	}

	if filter.Assignee != "" {
		whereClauses = append(whereClauses, "assignee = "+nextArg())
		args = append(args, filter.Assignee)
	}

	if filter.Franchise != "" {
		whereClauses = append(whereClauses, "franchise = "+nextArg())
		args = append(args, filter.Franchise)
	}

	if filter.Search != "" {
		p := nextArg()
		whereClauses = append(whereClauses, fmt.Sprintf(
			"(name ILIKE '%%' || %s || '%%' OR email ILIKE '%%' || %s || '%%' "+
				"OR phone ILIKE '%%' || %s || '%%' OR company ILIKE '%%' || %s || '%%')",
			p, p, p, p))
		args = append(args, filter.Search)
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	// Single query with COUNT(*) OVER() to get total and rows atomically.
	dataQuery := "SELECT COUNT(*) OVER() AS total_count, " + clientColumns + " FROM clients" + whereSQL + " ORDER BY " + parseSortClause(filter.Sort)

	if filter.Limit > 0 {
		dataQuery += " LIMIT " + nextArg()
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		dataQuery += " OFFSET " + nextArg()
		args = append(args, filter.Offset)
	}

	rows, err := db.QueryContext(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var clients []*model.Client
	var total int
	for rows.Next() {
		c, t, err := scanClientWithTotal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan clients: %w", err)
		}
		total = t
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan clients: %w", err)
	}

	return clients, total, nil
}

func queryUpdateClient(ctx context.Context, db executor, c *model.Client) error {
	err := db.QueryRowContext(ctx, `
		UPDATE clients SET
			name = $2,
			email = $3,
			phone = $4,
			company = $5,
			franchise = $6,
			status = $7,
			assignee = $8,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1
		RETURNING version, updated_at`,
		c.ID,
		c.Name,
		nullString(c.Email),
		nullString(c.Phone),
		nullString(c.Company),
		nullString(c.Franchise),
		string(c.Status),
		nullString(c.Assignee),
	).Scan(&c.Version, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// queryUpdateClientStatus applies a version-guarded status move. When the
// guarded UPDATE matches no row, a follow-up existence check distinguishes
// a stale version from a missing client.
func queryUpdateClientStatus(ctx context.Context, db executor, id string, to model.Status, expectedVersion int64) (*model.Client, error) {
	row := db.QueryRowContext(ctx, `
		UPDATE clients
		SET status = $2, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $3
		RETURNING `+clientColumns,
		id, string(to), expectedVersion,
	)
	c, err := scanClient(row)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	var exists bool
	if err := db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM clients WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, store.ErrVersionConflict
	}
	return nil, store.ErrNotFound
}

func queryDeleteClient(ctx context.Context, db executor, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func queryCountByStatus(ctx context.Context, db executor) (map[model.Status]int, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM clients GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.Status]int, len(model.AllStatuses))
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("count by status: %w", err)
		}
		counts[model.Status(status)] = n
	}
	return counts, rows.Err()
}

func parseSortClause(sort string) string {
	if sort == "" {
		return "created_at DESC"
	}
	desc := strings.HasPrefix(sort, "-")
	col := strings.TrimPrefix(sort, "-")
	allowed := map[string]bool{
		"name": true, "created_at": true, "updated_at": true,
		"status": true, "company": true, "assignee": true,
	}
	if !allowed[col] {
		return "created_at DESC"
	}
	if desc {
		return col + " DESC"
	}
	return col + " ASC"
}
