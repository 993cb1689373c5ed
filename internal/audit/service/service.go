// Package service records and lists audit trail entries. Writes join the
// caller's transaction when one is carried on the context, so an entry and
// the mutation it describes commit or roll back together.
package service

import (
	"context"
	"log/slog"

	"intia/internal/audit/models"
	"intia/internal/platform/metrics"
	"intia/pkg/domain"
	dErrors "intia/pkg/domain-errors"
	"intia/pkg/pagination"
	"intia/pkg/requestcontext"
)

// Store persists audit entries. Append must honor a context transaction.
type Store interface {
	Append(ctx context.Context, entry *models.Entry) error
	List(ctx context.Context, filter models.Filter, page pagination.Page) ([]models.Entry, error)
	Count(ctx context.Context, filter models.Filter) (int, error)
}

// Record describes one auditable event. IP address, user agent, and the
// timestamp are taken from the request context, not from the caller.
type Record struct {
	ActorID      domain.UserID
	Username     string
	Action       models.Action
	ResourceType models.ResourceType
	ResourceID   string
	OldValues    map[string]any
	NewValues    map[string]any
}

type Service struct {
	store   Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(store Store, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{store: store, metrics: m, logger: logger}
}

// Append persists one immutable entry. Snapshots are normalized to plain
// structured data before storage.
func (s *Service) Append(ctx context.Context, rec Record) (*models.Entry, error) {
	entry := &models.Entry{
		ID:           domain.NewAuditLogID(),
		UserID:       rec.ActorID,
		Username:     rec.Username,
		Action:       rec.Action,
		ResourceType: rec.ResourceType,
		ResourceID:   rec.ResourceID,
		OldValues:    models.NormalizeSnapshot(rec.OldValues),
		NewValues:    models.NormalizeSnapshot(rec.NewValues),
		IPAddress:    requestcontext.ClientIP(ctx),
		UserAgent:    requestcontext.UserAgent(ctx),
		Timestamp:    requestcontext.Now(ctx),
	}

	if err := s.store.Append(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to append audit entry",
			"action", rec.Action,
			"resource_type", rec.ResourceType,
			"resource_id", rec.ResourceID,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit entry")
	}

	s.metrics.IncrementAudit(string(rec.Action))
	return entry, nil
}

// List returns entries matching the filter, most recent first, with a
// total count computed over the same filter.
func (s *Service) List(ctx context.Context, filter models.Filter, page pagination.Page) ([]models.Entry, int, error) {
	entries, err := s.store.List(ctx, filter, page)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries")
	}
	total, err := s.store.Count(ctx, filter)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count audit entries")
	}
	return entries, total, nil
}
