package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	platformpg "intia/internal/platform/postgres"
	"intia/internal/policy/models"
	"intia/pkg/domain"
	"intia/pkg/pagination"
	"intia/pkg/platform/sentinel"
	"intia/pkg/platform/tx"
)

// Filter narrows policy listings. All fields are optional; List and Count
// apply the identical clause set.
type Filter struct {
	ClientID *domain.ClientID
	Status   *models.Status
	BranchID *domain.BranchID
}

// Postgres persists insurance policies. Mutations go through the context
// transaction when one is present.
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

const policyColumns = `id, policy_number, client_id, branch_id, type, coverage, premium, start_date, end_date, status, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, policy *models.Policy) error {
	_, err := s.runner(ctx).ExecContext(ctx, `
		INSERT INTO insurance_policies (`+policyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		uuid.UUID(policy.ID),
		policy.PolicyNumber,
		uuid.UUID(policy.ClientID),
		uuid.UUID(policy.BranchID),
		policy.Type,
		policy.Coverage,
		policy.Premium,
		policy.StartDate,
		policy.EndDate,
		string(policy.Status),
		policy.CreatedAt,
		policy.UpdatedAt,
	)
	if err != nil {
		if platformpg.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert policy: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, policyID domain.PolicyID) (*models.Policy, error) {
	row := s.runner(ctx).QueryRowContext(ctx,
		`SELECT `+policyColumns+` FROM insurance_policies WHERE id = $1`, uuid.UUID(policyID))
	return scanPolicy(row)
}

func (s *Postgres) FindByNumber(ctx context.Context, policyNumber string) (*models.Policy, error) {
	row := s.runner(ctx).QueryRowContext(ctx,
		`SELECT `+policyColumns+` FROM insurance_policies WHERE policy_number = $1`, policyNumber)
	return scanPolicy(row)
}

func (s *Postgres) List(ctx context.Context, filter Filter, page pagination.Page) ([]*models.Policy, error) {
	where, args := buildFilter(filter)
	query := `SELECT ` + policyColumns + ` FROM insurance_policies` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, page.Limit, page.Skip)

	rows, err := s.runner(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query policies: %w", err)
	}
	defer rows.Close()
	return collectPolicies(rows)
}

func (s *Postgres) Count(ctx context.Context, filter Filter) (int, error) {
	where, args := buildFilter(filter)
	var total int
	err := s.runner(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM insurance_policies`+where, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count policies: %w", err)
	}
	return total, nil
}

func (s *Postgres) ListByClient(ctx context.Context, clientID domain.ClientID) ([]*models.Policy, error) {
	rows, err := s.runner(ctx).QueryContext(ctx,
		`SELECT `+policyColumns+` FROM insurance_policies WHERE client_id = $1 ORDER BY created_at DESC`,
		uuid.UUID(clientID))
	if err != nil {
		return nil, fmt.Errorf("query client policies: %w", err)
	}
	defer rows.Close()
	return collectPolicies(rows)
}

// HasActive reports whether the client holds at least one active policy.
func (s *Postgres) HasActive(ctx context.Context, clientID domain.ClientID) (bool, error) {
	var exists bool
	err := s.runner(ctx).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM insurance_policies WHERE client_id = $1 AND status = $2
		)
	`, uuid.UUID(clientID), string(models.StatusActive)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check active policies: %w", err)
	}
	return exists, nil
}

func (s *Postgres) Update(ctx context.Context, policy *models.Policy) error {
	res, err := s.runner(ctx).ExecContext(ctx, `
		UPDATE insurance_policies
		SET type = $2, coverage = $3, premium = $4, start_date = $5,
		    end_date = $6, status = $7, updated_at = $8
		WHERE id = $1
	`,
		uuid.UUID(policy.ID),
		policy.Type,
		policy.Coverage,
		policy.Premium,
		policy.StartDate,
		policy.EndDate,
		string(policy.Status),
		policy.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update policy: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update policy rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, policyID domain.PolicyID) error {
	res, err := s.runner(ctx).ExecContext(ctx,
		`DELETE FROM insurance_policies WHERE id = $1`, uuid.UUID(policyID))
	if err != nil {
		return fmt.Errorf("delete policy: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete policy rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func buildFilter(filter Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if filter.ClientID != nil {
		args = append(args, uuid.UUID(*filter.ClientID))
		clauses = append(clauses, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.BranchID != nil {
		args = append(args, uuid.UUID(*filter.BranchID))
		clauses = append(clauses, fmt.Sprintf("branch_id = $%d", len(args)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func collectPolicies(rows *sql.Rows) ([]*models.Policy, error) {
	var policies []*models.Policy
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, policy)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate policies: %w", err)
	}
	return policies, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPolicy(row rowScanner) (*models.Policy, error) {
	var (
		policy             models.Policy
		id, client, branch uuid.UUID
		status             string
	)
	err := row.Scan(
		&id,
		&policy.PolicyNumber,
		&client,
		&branch,
		&policy.Type,
		&policy.Coverage,
		&policy.Premium,
		&policy.StartDate,
		&policy.EndDate,
		&status,
		&policy.CreatedAt,
		&policy.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan policy: %w", err)
	}
	policy.ID = domain.PolicyID(id)
	policy.ClientID = domain.ClientID(client)
	policy.BranchID = domain.BranchID(branch)
	policy.Status = models.Status(status)
	return &policy, nil
}
