package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Camillus83/eventmanager/internal/app/events"
	domain "github.com/Camillus83/eventmanager/internal/domain/event"
	"github.com/Camillus83/eventmanager/internal/logging"
)

// ListEvents: GET /events?name__icontains=sign&created_at__gte=2024-01-01T00:00:00Z&limit=20
func (h *EventHandlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	f, p, err := parseListQuery(r.URL.Query())
	if err != nil {
		logging.LogError("Invalid list query", err, logrus.Fields{"method": "ListEvents"})
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.svc.ListEvents(r.Context(), f, p)
	if err != nil {
		writeServiceError(w, "ListEvents", err)
		return
	}
	logging.LogDebug("Events found", logrus.Fields{"method": "ListEvents", "count": len(list)})
	writeJSON(w, http.StatusOK, ToResponseList(list))
}

func (h *EventHandlers) AllEvents(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.AllEvents(r.Context())
	if err != nil {
		writeServiceError(w, "AllEvents", err)
		return
	}
	writeJSON(w, http.StatusOK, ToResponseList(list))
}

func parseListQuery(q url.Values) (events.ListFilters, events.PageRequest, error) {
	var (
		f events.ListFilters
		p events.PageRequest
	)

	textFilter(q, "name", &f.Name, true)
	textFilter(q, "description", &f.Description, true)
	textFilter(q, "source", &f.Source, false)
	if f.Source.Exact != nil {
		src, err := domain.ParseSource(*f.Source.Exact)
		if err != nil {
			return f, p, err
		}
		exact := src.String()
		f.Source.Exact = &exact
	}

	if err := timeFilter(q, "created_at", &f.CreatedAt); err != nil {
		return f, p, err
	}
	if err := timeFilter(q, "updated_at", &f.UpdatedAt); err != nil {
		return f, p, err
	}

	var err error
	if p.Limit, err = intParam(q, "limit"); err != nil {
		return f, p, err
	}
	if p.Offset, err = intParam(q, "offset"); err != nil {
		return f, p, err
	}
	p.SortBy = q.Get("sort_by")
	p.SortDir = q.Get("sort_dir")
	return f, p, nil
}

func textFilter(q url.Values, field string, f *events.TextFilter, startsWith bool) {
	f.Exact = strptr(q.Get(field))
	f.Contains = strptr(q.Get(field + "__icontains"))
	if startsWith {
		f.StartsWith = strptr(q.Get(field + "__istartswith"))
	}
}

func timeFilter(q url.Values, field string, f *events.TimeFilter) error {
	for suffix, dst := range map[string]**time.Time{"": &f.Exact, "__gte": &f.From, "__lte": &f.To} {
		s := q.Get(field + suffix)
		if s == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("invalid %s%s (RFC3339 expected)", field, suffix)
		}
		*dst = &t
	}
	return nil
}

func intParam(q url.Values, name string) (int, error) {
	s := q.Get(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", name, s)
	}
	return n, nil
}

func strptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
