package httptransport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"hoslink/pkg/domain"
	dErrors "hoslink/pkg/domain-errors"
)

func driverIDParam(r *http.Request) (domain.DriverID, error) {
	return domain.ParseDriverID(chi.URLParam(r, "driverID"))
}

// timeQuery parses an RFC3339 query parameter. A missing value yields the zero time.
func timeQuery(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, dErrors.Newf(dErrors.CodeBadRequest, "%s must be an RFC3339 timestamp", name)
	}
	return t.UTC(), nil
}

func floatQuery(r *http.Request, name string) (float64, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, dErrors.Newf(dErrors.CodeBadRequest, "%s must be a number", name)
	}
	return v, true, nil
}
