package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hoslink/internal/hos/models"
	"hoslink/pkg/domain"
	dErrors "hoslink/pkg/domain-errors"
	"hoslink/pkg/geo"
	"hoslink/pkg/platform/httputil"
)

// HOSService is the engine surface exposed over HTTP.
type HOSService interface {
	GetCurrent(ctx context.Context, driverID domain.DriverID) (*models.HOSRecord, error)
	GetHistory(ctx context.Context, driverID domain.DriverID, from, to time.Time) ([]*models.HOSRecord, error)
	RecordUpdate(ctx context.Context, driverID domain.DriverID, candidate models.Candidate) (*models.HOSRecord, error)
	CheckCompliance(ctx context.Context, driverID domain.DriverID) (*models.ComplianceResult, error)
	PredictAvailability(ctx context.Context, driverID domain.DriverID, at time.Time) (*models.Prediction, error)
	ValidateForLoad(ctx context.Context, driverID domain.DriverID, estimatedDrivingMinutes int, pickupTime time.Time) (*models.LoadValidation, error)
	SyncFromELD(ctx context.Context, driverID domain.DriverID, vendor, deviceID string) (*models.HOSRecord, error)
}

// HOSHandler serves driver HOS state and the checks derived from it.
type HOSHandler struct {
	hos    HOSService
	logger *slog.Logger
}

func NewHOSHandler(hos HOSService, logger *slog.Logger) *HOSHandler {
	return &HOSHandler{hos: hos, logger: logger}
}

func (h *HOSHandler) Register(r chi.Router) {
	r.Get("/drivers/{driverID}/hos", h.handleGetCurrent)
	r.Post("/drivers/{driverID}/hos", h.handleRecordUpdate)
	r.Get("/drivers/{driverID}/hos/history", h.handleGetHistory)
	r.Post("/drivers/{driverID}/hos/sync", h.handleSync)
	r.Get("/drivers/{driverID}/compliance", h.handleCompliance)
	r.Get("/drivers/{driverID}/prediction", h.handlePrediction)
	r.Post("/drivers/{driverID}/load-validation", h.handleValidateForLoad)
}

type recordUpdateRequest struct {
	Status                  string     `json:"status"`
	StatusSince             *time.Time `json:"status_since,omitempty"`
	DrivingMinutesRemaining *int       `json:"driving_minutes_remaining"`
	DutyMinutesRemaining    *int       `json:"duty_minutes_remaining"`
	CycleMinutesRemaining   *int       `json:"cycle_minutes_remaining"`
	Location                *geo.Point `json:"location,omitempty"`
	VehicleID               string     `json:"vehicle_id,omitempty"`
	EldLogID                string     `json:"eld_log_id,omitempty"`
	RecordedAt              *time.Time `json:"recorded_at,omitempty"`
}

func (req recordUpdateRequest) candidate() (models.Candidate, error) {
	if req.DrivingMinutesRemaining == nil || req.DutyMinutesRemaining == nil || req.CycleMinutesRemaining == nil {
		return models.Candidate{}, dErrors.New(dErrors.CodeValidation,
			"driving_minutes_remaining, duty_minutes_remaining and cycle_minutes_remaining are required")
	}
	status, err := models.ParseStatus(req.Status)
	if err != nil {
		return models.Candidate{}, err
	}
	c := models.Candidate{
		Status:                  status,
		StatusSince:             req.StatusSince,
		DrivingMinutesRemaining: *req.DrivingMinutesRemaining,
		DutyMinutesRemaining:    *req.DutyMinutesRemaining,
		CycleMinutesRemaining:   *req.CycleMinutesRemaining,
		Location:                req.Location,
		RecordedAt:              req.RecordedAt,
	}
	if req.VehicleID != "" {
		if c.VehicleID, err = domain.ParseVehicleID(req.VehicleID); err != nil {
			return models.Candidate{}, err
		}
	}
	if req.EldLogID != "" {
		if c.EldLogID, err = domain.ParseEldLogID(req.EldLogID); err != nil {
			return models.Candidate{}, err
		}
	}
	return c, nil
}

type syncRequest struct {
	Vendor   string `json:"vendor"`
	DeviceID string `json:"device_id"`
}

type loadValidationRequest struct {
	EstimatedDrivingMinutes int       `json:"estimated_driving_minutes"`
	PickupTime              time.Time `json:"pickup_time"`
}

func (h *HOSHandler) handleGetCurrent(w http.ResponseWriter, r *http.Request) {
	id, err := driverIDParam(r)
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	rec, err := h.hos.GetCurrent(r.Context(), id)
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *HOSHandler) handleRecordUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := driverIDParam(r)
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	var req recordUpdateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	candidate, err := req.candidate()
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	rec, err := h.hos.RecordUpdate(r.Context(), id, candidate)
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, rec)
}

func (h *HOSHandler) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	id, err := driverIDParam(r)
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	from, err := timeQuery(r, "from")
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	to, err := timeQuery(r, "to")
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	if from.IsZero() || to.IsZero() {
		writeFailure(h.logger, w, r, dErrors.New(dErrors.CodeBadRequest, "from and to are required"))
		return
	}
	records, err := h.hos.GetHistory(r.Context(), id, from, to)
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, records)
}

func (h *HOSHandler) handleSync(w http.ResponseWriter, r *http.Request) {
	id, err := driverIDParam(r)
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	var req syncRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	if req.Vendor == "" || req.DeviceID == "" {
		writeFailure(h.logger, w, r, dErrors.New(dErrors.CodeValidation, "vendor and device_id are required"))
		return
	}
	rec, err := h.hos.SyncFromELD(r.Context(), id, req.Vendor, req.DeviceID)
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *HOSHandler) handleCompliance(w http.ResponseWriter, r *http.Request) {
	id, err := driverIDParam(r)
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	result, err := h.hos.CheckCompliance(r.Context(), id)
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *HOSHandler) handlePrediction(w http.ResponseWriter, r *http.Request) {
	id, err := driverIDParam(r)
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	at, err := timeQuery(r, "at")
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	if at.IsZero() {
		writeFailure(h.logger, w, r, dErrors.New(dErrors.CodeBadRequest, "at is required"))
		return
	}
	prediction, err := h.hos.PredictAvailability(r.Context(), id, at)
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, prediction)
}

func (h *HOSHandler) handleValidateForLoad(w http.ResponseWriter, r *http.Request) {
	id, err := driverIDParam(r)
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	var req loadValidationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	result, err := h.hos.ValidateForLoad(r.Context(), id, req.EstimatedDrivingMinutes, req.PickupTime)
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// writeFailure logs client errors at Warn and everything else at Error, then writes
// the translated response.
func writeFailure(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeValidation, dErrors.CodeBadRequest, dErrors.CodeNotFound, dErrors.CodeConflict:
		logger.WarnContext(r.Context(), "request rejected", "path", r.URL.Path, "error", err)
	default:
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	httputil.WriteError(w, err)
}
