package postgres

import (
	"database/sql"

	"github.com/alfredjeanlab/pipeline/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanClient scans a single row into a model.Client.
// The row must contain columns in the order defined by clientColumns.
func scanClient(row scannable) (*model.Client, error) {
	var c model.Client
	var (
		email     sql.NullString
		phone     sql.NullString
		company   sql.NullString
		franchise sql.NullString
		assignee  sql.NullString
		createdBy sql.NullString
	)

	err := row.Scan(
		&c.ID,
		&c.Name,
		&email,
		&phone,
		&company,
		&franchise,
		&c.Status,
		&assignee,
		&c.Version,
		&c.CreatedAt,
		&createdBy,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Email = email.String
	c.Phone = phone.String
	c.Company = company.String
	c.Franchise = franchise.String
	c.Assignee = assignee.String
	c.CreatedBy = createdBy.String

	return &c, nil
}

// scanClientWithTotal scans a row that has a leading total_count column
// followed by the standard client columns. Used by queryListClients with
// COUNT(*) OVER().
func scanClientWithTotal(row scannable) (*model.Client, int, error) {
	var total int
	var c model.Client
	var (
		email     sql.NullString
		phone     sql.NullString
		company   sql.NullString
		franchise sql.NullString
		assignee  sql.NullString
		createdBy sql.NullString
	)

	err := row.Scan(
		&total,
		&c.ID,
		&c.Name,
		&email,
		&phone,
		&company,
		&franchise,
		&c.Status,
		&assignee,
		&c.Version,
		&c.CreatedAt,
		&createdBy,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, 0, err
	}

	c.Email = email.String
	c.Phone = phone.String
	c.Company = company.String
	c.Franchise = franchise.String
	c.Assignee = assignee.String
	c.CreatedBy = createdBy.String

	return &c, total, nil
}

// nullString converts a string to sql.NullString; empty string is null.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
