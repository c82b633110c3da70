package transport

import (
	"net/http"
	"strconv"
	"time"

	"farmapos/internal/repository"

	"github.com/go-chi/chi/v5"
)

// dateLayout is the calendar-day format accepted on filters and line items
const dateLayout = "2006-01-02"

// urlID parses the {id} route parameter
func urlID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// queryInt parses an optional integer query parameter, returning def when absent
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// orderFilterFromQuery builds the order listing filter from query parameters.
// counterparty is the name of the client/supplier parameter.
func orderFilterFromQuery(r *http.Request, counterparty string) (repository.OrderFilter, error) {
	var filter repository.OrderFilter
	q := r.URL.Query()

	if raw := q.Get(counterparty); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, err
		}
		filter.CounterpartyID = &id
	}
	if raw := q.Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, err
		}
		filter.UserID = &id
	}
	if raw := q.Get("start_date"); raw != "" {
		from, err := time.Parse(dateLayout, raw)
		if err != nil {
			return filter, err
		}
		filter.From = &from
	}
	if raw := q.Get("end_date"); raw != "" {
		to, err := time.Parse(dateLayout, raw)
		if err != nil {
			return filter, err
		}
		// Inclusive end of day
		to = to.Add(24*time.Hour - time.Nanosecond)
		filter.To = &to
	}

	return filter, nil
}
