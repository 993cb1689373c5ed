package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/mssola/useragent"

	"intia/internal/audit/models"
	"intia/pkg/domain"
	dErrors "intia/pkg/domain-errors"
	"intia/pkg/pagination"
	"intia/pkg/platform/httputil"
)

// Lister reads the audit trail.
type Lister interface {
	List(ctx context.Context, filter models.Filter, page pagination.Page) ([]models.Entry, int, error)
}

type Handler struct {
	audit  Lister
	logger *slog.Logger
}

func New(audit Lister, logger *slog.Logger) *Handler {
	return &Handler{audit: audit, logger: logger}
}

// deviceInfo is a parsed rendering of the raw user agent so operators can
// read the trail without decoding UA strings themselves.
type deviceInfo struct {
	Browser string `json:"browser"`
	OS      string `json:"os"`
	Mobile  bool   `json:"mobile"`
}

type entryResponse struct {
	models.Entry
	Device *deviceInfo `json:"device,omitempty"`
}

type listResponse struct {
	Data []entryResponse `json:"data"`
	Meta pagination.Meta `json:"meta"`
}

// List serves GET /audit-logs. Admin-only; the router mounts this behind
// the admin gate so no query runs for other roles.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, err := pagination.FromQuery(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	filter, err := filterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, total, err := h.audit.List(r.Context(), filter, page)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list audit entries", "error", err)
		httputil.WriteError(w, err)
		return
	}

	data := make([]entryResponse, 0, len(entries))
	for _, entry := range entries {
		data = append(data, entryResponse{Entry: entry, Device: parseDevice(entry.UserAgent)})
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{Data: data, Meta: page.MetaFor(total)})
}

func filterFromQuery(r *http.Request) (models.Filter, error) {
	var filter models.Filter
	q := r.URL.Query()

	if raw := q.Get("user_id"); raw != "" {
		actorID, err := domain.ParseUserID(raw)
		if err != nil {
			return models.Filter{}, dErrors.New(dErrors.CodeBadRequest, "invalid user_id filter")
		}
		filter.ActorID = &actorID
	}
	if raw := q.Get("action"); raw != "" {
		action, err := models.ParseAction(raw)
		if err != nil {
			return models.Filter{}, err
		}
		filter.Action = &action
	}
	if raw := q.Get("resource_type"); raw != "" {
		rt, err := models.ParseResourceType(raw)
		if err != nil {
			return models.Filter{}, err
		}
		filter.ResourceType = &rt
	}
	if raw := q.Get("start_date"); raw != "" {
		from, err := parseTimestamp(raw)
		if err != nil {
			return models.Filter{}, dErrors.New(dErrors.CodeBadRequest, "invalid start_date filter")
		}
		filter.From = &from
	}
	if raw := q.Get("end_date"); raw != "" {
		to, err := parseTimestamp(raw)
		if err != nil {
			return models.Filter{}, dErrors.New(dErrors.CodeBadRequest, "invalid end_date filter")
		}
		filter.To = &to
	}
	return filter, nil
}

// parseTimestamp accepts full RFC 3339 timestamps and bare dates.
func parseTimestamp(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	return time.Parse(domain.DateLayout, raw)
}

func parseDevice(rawUA string) *deviceInfo {
	if rawUA == "" {
		return nil
	}
	ua := useragent.New(rawUA)
	browser, version := ua.Browser()
	if version != "" {
		browser += " " + version
	}
	return &deviceInfo{
		Browser: browser,
		OS:      ua.OS(),
		Mobile:  ua.Mobile(),
	}
}
