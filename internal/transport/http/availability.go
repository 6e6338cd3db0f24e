package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hoslink/internal/availability/models"
	availabilityservice "hoslink/internal/availability/service"
	hosmodels "hoslink/internal/hos/models"
	"hoslink/pkg/domain"
	dErrors "hoslink/pkg/domain-errors"
	"hoslink/pkg/geo"
	"hoslink/pkg/platform/httputil"
)

// AvailabilityService is the read model surface exposed over HTTP.
type AvailabilityService interface {
	Get(ctx context.Context, id domain.DriverID) (*models.DriverAvailability, error)
	FindAvailable(ctx context.Context, criteria models.Criteria) ([]*models.DriverAvailability, error)
	FindNear(ctx context.Context, point geo.Point, radiusMiles float64, opts ...availabilityservice.NearOption) ([]*models.DriverAvailability, error)
	CheckForLoad(ctx context.Context, id domain.DriverID, load models.LoadDetails) (*models.LoadCheck, error)
	UpdateLocation(ctx context.Context, id domain.DriverID, point geo.Point, at time.Time) (*models.DriverAvailability, error)
	UpdateWindow(ctx context.Context, id domain.DriverID, w models.Window) (*models.DriverAvailability, error)
	Rebuild(ctx context.Context, id domain.DriverID) (*models.DriverAvailability, error)
}

type AvailabilityHandler struct {
	availability AvailabilityService
	logger       *slog.Logger
}

func NewAvailabilityHandler(availability AvailabilityService, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability, logger: logger}
}

func (h *AvailabilityHandler) Register(r chi.Router) {
	r.Post("/availability/search", h.handleFindAvailable)
	r.Get("/availability/near", h.handleFindNear)
	r.Get("/drivers/{driverID}/availability", h.handleGet)
	r.Post("/drivers/{driverID}/availability/load-check", h.handleCheckForLoad)
	r.Put("/drivers/{driverID}/availability/window", h.handleUpdateWindow)
	r.Post("/drivers/{driverID}/availability/rebuild", h.handleRebuild)
	r.Put("/drivers/{driverID}/location", h.handleUpdateLocation)
}

type locationRequest struct {
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	At        *time.Time `json:"at,omitempty"`
}

func (h *AvailabilityHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := driverIDParam(r)
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	row, err := h.availability.Get(r.Context(), id)
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, row)
}

func (h *AvailabilityHandler) handleFindAvailable(w http.ResponseWriter, r *http.Request) {
	var criteria models.Criteria
	if err := httputil.DecodeJSON(r, &criteria); err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	rows, err := h.availability.FindAvailable(r.Context(), criteria)
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rows)
}

// handleFindNear takes lat, lon and radius_miles, plus optional repeated status
// filters and sort=distance.
func (h *AvailabilityHandler) handleFindNear(w http.ResponseWriter, r *http.Request) {
	lat, okLat, err := floatQuery(r, "lat")
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	lon, okLon, err := floatQuery(r, "lon")
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	radius, okRadius, err := floatQuery(r, "radius_miles")
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	if !okLat || !okLon || !okRadius {
		writeFailure(h.logger, w, r, dErrors.New(dErrors.CodeBadRequest, "lat, lon and radius_miles are required"))
		return
	}

	var opts []availabilityservice.NearOption
	for _, raw := range r.URL.Query()["status"] {
		status, err := hosmodels.ParseStatus(raw)
		if err != nil {
			writeFailure(h.logger, w, r, err)
			return
		}
		opts = append(opts, availabilityservice.WithStatuses(status))
	}
	if r.URL.Query().Get("sort") == "distance" {
		opts = append(opts, availabilityservice.SortedByDistance())
	}

	rows, err := h.availability.FindNear(r.Context(), geo.Point{Latitude: lat, Longitude: lon}, radius, opts...)
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rows)
}

func (h *AvailabilityHandler) handleCheckForLoad(w http.ResponseWriter, r *http.Request) {
	id, err := driverIDParam(r)
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	var load models.LoadDetails
	if err := httputil.DecodeJSON(r, &load); err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	check, err := h.availability.CheckForLoad(r.Context(), id, load)
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, check)
}

func (h *AvailabilityHandler) handleUpdateLocation(w http.ResponseWriter, r *http.Request) {
	id, err := driverIDParam(r)
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	var req locationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		writeFailure(h.logger, w, r, dErrors.New(dErrors.CodeValidation, "latitude and longitude are required"))
		return
	}
	var at time.Time
	if req.At != nil {
		at = req.At.UTC()
	}
	row, err := h.availability.UpdateLocation(r.Context(), id, geo.Point{Latitude: *req.Latitude, Longitude: *req.Longitude}, at)
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, row)
}

func (h *AvailabilityHandler) handleUpdateWindow(w http.ResponseWriter, r *http.Request) {
	id, err := driverIDParam(r)
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	var window models.Window
	if err := httputil.DecodeJSON(r, &window); err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	row, err := h.availability.UpdateWindow(r.Context(), id, window)
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, row)
}

func (h *AvailabilityHandler) handleRebuild(w http.ResponseWriter, r *http.Request) {
	id, err := driverIDParam(r)
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	row, err := h.availability.Rebuild(r.Context(), id)
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, row)
}
