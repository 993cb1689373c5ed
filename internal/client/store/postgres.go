package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"intia/internal/client/models"
	platformpg "intia/internal/platform/postgres"
	"intia/pkg/domain"
	"intia/pkg/pagination"
	"intia/pkg/platform/sentinel"
	"intia/pkg/platform/tx"
)

// Filter narrows client listings. Both fields are optional; List and
// Count apply the identical clause set.
type Filter struct {
	BranchID *domain.BranchID
	Search   string
}

// Postgres persists clients. Mutations go through the context transaction
// when one is present.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) runner(ctx context.Context) execer {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

const clientColumns = `id, branch_id, first_name, last_name, email, phone, address, date_of_birth, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, client *models.Client) error {
	_, err := s.runner(ctx).ExecContext(ctx, `
		INSERT INTO clients (`+clientColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		uuid.UUID(client.ID),
		uuid.UUID(client.BranchID),
		client.FirstName,
		client.LastName,
		client.Email,
		client.Phone,
		client.Address,
		client.DateOfBirth,
		client.CreatedAt,
		client.UpdatedAt,
	)
	if err != nil {
		if platformpg.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, clientID domain.ClientID) (*models.Client, error) {
	row := s.runner(ctx).QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = $1`, uuid.UUID(clientID))
	return scanClient(row)
}

func (s *Postgres) FindByEmail(ctx context.Context, email string) (*models.Client, error) {
	row := s.runner(ctx).QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE lower(email) = lower($1)`, email)
	return scanClient(row)
}

func (s *Postgres) List(ctx context.Context, filter Filter, page pagination.Page) ([]*models.Client, error) {
	where, args := buildFilter(filter)
	query := `SELECT ` + clientColumns + ` FROM clients` + where +
		fmt.Sprintf(` ORDER BY last_name, first_name LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, page.Limit, page.Skip)

	rows, err := s.runner(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	var clients []*models.Client
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients: %w", err)
	}
	return clients, nil
}

func (s *Postgres) Count(ctx context.Context, filter Filter) (int, error) {
	where, args := buildFilter(filter)
	var total int
	err := s.runner(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM clients`+where, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count clients: %w", err)
	}
	return total, nil
}

func (s *Postgres) Update(ctx context.Context, client *models.Client) error {
	res, err := s.runner(ctx).ExecContext(ctx, `
		UPDATE clients
		SET branch_id = $2, first_name = $3, last_name = $4, email = $5,
		    phone = $6, address = $7, date_of_birth = $8, updated_at = $9
		WHERE id = $1
	`,
		uuid.UUID(client.ID),
		uuid.UUID(client.BranchID),
		client.FirstName,
		client.LastName,
		client.Email,
		client.Phone,
		client.Address,
		client.DateOfBirth,
		client.UpdatedAt,
	)
	if err != nil {
		if platformpg.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("update client: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update client rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, clientID domain.ClientID) error {
	res, err := s.runner(ctx).ExecContext(ctx,
		`DELETE FROM clients WHERE id = $1`, uuid.UUID(clientID))
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete client rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// buildFilter renders the WHERE clause shared by List and Count so their
// results stay consistent.
func buildFilter(filter Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if filter.BranchID != nil {
		args = append(args, uuid.UUID(*filter.BranchID))
		clauses = append(clauses, fmt.Sprintf("branch_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(
			"(first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d)", n, n, n))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (*models.Client, error) {
	var (
		client     models.Client
		id, branch uuid.UUID
		dob        sql.Null[domain.Date]
	)
	err := row.Scan(
		&id,
		&branch,
		&client.FirstName,
		&client.LastName,
		&client.Email,
		&client.Phone,
		&client.Address,
		&dob,
		&client.CreatedAt,
		&client.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan client: %w", err)
	}
	client.ID = domain.ClientID(id)
	client.BranchID = domain.BranchID(branch)
	if dob.Valid {
		d := dob.V
		client.DateOfBirth = &d
	}
	return &client, nil
}
