package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hoslink/internal/drivers/models"
	"hoslink/pkg/domain"
	dErrors "hoslink/pkg/domain-errors"
	"hoslink/pkg/platform/httputil"
)

// DriverService is the driver directory surface exposed over HTTP.
type DriverService interface {
	Register(ctx context.Context, reg models.Registration) (*models.Driver, error)
	Get(ctx context.Context, id domain.DriverID) (*models.Driver, error)
	UpdateScore(ctx context.Context, id domain.DriverID, score float64) (*models.Driver, error)
	Delete(ctx context.Context, id domain.DriverID) error
}

type DriverHandler struct {
	drivers DriverService
	logger  *slog.Logger
}

func NewDriverHandler(drivers DriverService, logger *slog.Logger) *DriverHandler {
	return &DriverHandler{drivers: drivers, logger: logger}
}

func (h *DriverHandler) Register(r chi.Router) {
	r.Post("/drivers", h.handleRegister)
	r.Get("/drivers/{driverID}", h.handleGet)
	r.Delete("/drivers/{driverID}", h.handleDelete)
	r.Put("/drivers/{driverID}/score", h.handleUpdateScore)
}

type scoreRequest struct {
	Score *float64 `json:"score"`
}

func (h *DriverHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg models.Registration
	if err := httputil.DecodeJSON(r, &reg); err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	driver, err := h.drivers.Register(r.Context(), reg)
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, driver)
}

func (h *DriverHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := driverIDParam(r)
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	driver, err := h.drivers.Get(r.Context(), id)
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, driver)
}

func (h *DriverHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := driverIDParam(r)
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	if err := h.drivers.Delete(r.Context(), id); err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DriverHandler) handleUpdateScore(w http.ResponseWriter, r *http.Request) {
	id, err := driverIDParam(r)
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	var req scoreRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	if req.Score == nil {
		writeFailure(h.logger, w, r, dErrors.New(dErrors.CodeValidation, "score is required"))
		return
	}
	driver, err := h.drivers.UpdateScore(r.Context(), id, *req.Score)
	if err != nil {
		writeFailure(h.logger, w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, driver)
}
