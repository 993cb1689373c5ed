package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"intia/internal/branch/models"
	platformpg "intia/internal/platform/postgres"
	"intia/pkg/domain"
	"intia/pkg/platform/sentinel"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const branchColumns = `id, name, code, address, phone, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, branch *models.Branch) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO branches (`+branchColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		uuid.UUID(branch.ID),
		branch.Name,
		branch.Code,
		branch.Address,
		branch.Phone,
		branch.CreatedAt,
		branch.UpdatedAt,
	)
	if err != nil {
		if platformpg.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert branch: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, branchID domain.BranchID) (*models.Branch, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+branchColumns+` FROM branches WHERE id = $1`, uuid.UUID(branchID))
	return scanBranch(row)
}

func (s *Postgres) FindByCode(ctx context.Context, code string) (*models.Branch, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+branchColumns+` FROM branches WHERE code = $1`, code)
	return scanBranch(row)
}

func (s *Postgres) List(ctx context.Context) ([]*models.Branch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+branchColumns+` FROM branches ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("query branches: %w", err)
	}
	defer rows.Close()

	var branches []*models.Branch
	for rows.Next() {
		branch, err := scanBranch(rows)
		if err != nil {
			return nil, err
		}
		branches = append(branches, branch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate branches: %w", err)
	}
	return branches, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBranch(row rowScanner) (*models.Branch, error) {
	var (
		branch models.Branch
		id     uuid.UUID
	)
	err := row.Scan(
		&id,
		&branch.Name,
		&branch.Code,
		&branch.Address,
		&branch.Phone,
		&branch.CreatedAt,
		&branch.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan branch: %w", err)
	}
	branch.ID = domain.BranchID(id)
	return &branch, nil
}
