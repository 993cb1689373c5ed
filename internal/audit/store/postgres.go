package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"intia/internal/audit/models"
	"intia/pkg/domain"
	"intia/pkg/pagination"
	"intia/pkg/platform/tx"
)

// Postgres persists audit entries. Inserts go through the context
// transaction when one is present so an entry commits with the mutation
// it describes.
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

const auditColumns = `id, user_id, username, action, resource_type, resource_id, old_values, new_values, ip_address, user_agent, timestamp`

func (s *Postgres) Append(ctx context.Context, entry *models.Entry) error {
	oldValues, err := marshalSnapshot(entry.OldValues)
	if err != nil {
		return fmt.Errorf("marshal old values: %w", err)
	}
	newValues, err := marshalSnapshot(entry.NewValues)
	if err != nil {
		return fmt.Errorf("marshal new values: %w", err)
	}

	_, err = s.runner(ctx).ExecContext(ctx, `
		INSERT INTO audit_logs (`+auditColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		uuid.UUID(entry.ID),
		uuid.UUID(entry.UserID),
		entry.Username,
		string(entry.Action),
		string(entry.ResourceType),
		entry.ResourceID,
		oldValues,
		newValues,
		nullString(entry.IPAddress),
		nullString(entry.UserAgent),
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *Postgres) List(ctx context.Context, filter models.Filter, page pagination.Page) ([]models.Entry, error) {
	where, args := buildFilter(filter)
	query := `SELECT ` + auditColumns + ` FROM audit_logs` + where +
		fmt.Sprintf(` ORDER BY timestamp DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, page.Limit, page.Skip)

	rows, err := s.runner(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []models.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

func (s *Postgres) Count(ctx context.Context, filter models.Filter) (int, error) {
	where, args := buildFilter(filter)
	var total int
	err := s.runner(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_logs`+where, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return total, nil
}

// buildFilter renders the WHERE clause shared by List and Count. The two
// must stay in lockstep or pagination metadata drifts from the page content.
func buildFilter(filter models.Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if filter.ActorID != nil {
		add("user_id = $%d", uuid.UUID(*filter.ActorID))
	}
	if filter.Action != nil {
		add("action = $%d", string(*filter.Action))
	}
	if filter.ResourceType != nil {
		add("resource_type = $%d", string(*filter.ResourceType))
	}
	if filter.From != nil {
		add("timestamp >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("timestamp <= $%d", *filter.To)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	var (
		entry        models.Entry
		id, userID   uuid.UUID
		action       string
		resourceType string
		oldValues    []byte
		newValues    []byte
		ipAddress    sql.NullString
		userAgent    sql.NullString
	)
	err := row.Scan(
		&id,
		&userID,
		&entry.Username,
		&action,
		&resourceType,
		&entry.ResourceID,
		&oldValues,
		&newValues,
		&ipAddress,
		&userAgent,
		&entry.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("scan audit entry: %w", err)
	}
	entry.ID = domain.AuditLogID(id)
	entry.UserID = domain.UserID(userID)
	entry.Action = models.Action(action)
	entry.ResourceType = models.ResourceType(resourceType)
	entry.IPAddress = ipAddress.String
	entry.UserAgent = userAgent.String
	if len(oldValues) > 0 {
		if err := json.Unmarshal(oldValues, &entry.OldValues); err != nil {
			return nil, fmt.Errorf("unmarshal old values: %w", err)
		}
	}
	if len(newValues) > 0 {
		if err := json.Unmarshal(newValues, &entry.NewValues); err != nil {
			return nil, fmt.Errorf("unmarshal new values: %w", err)
		}
	}
	return &entry, nil
}

func marshalSnapshot(values map[string]any) (any, error) {
	if values == nil {
		return nil, nil
	}
	return json.Marshal(values)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
