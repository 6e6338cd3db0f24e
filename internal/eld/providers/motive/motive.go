// Package motive adapts the Motive ELD HOS API.
package motive

import (
	"context"
	"net/http"
	"net/url"

	"hoslink/internal/eld/providers"
	"hoslink/internal/hos/models"
	"hoslink/internal/platform/config"
	"hoslink/pkg/domain"
)

const secretHeader = "X-Api-Secret"

type hosResponse struct {
	HOS *struct {
		DutyStatus            string   `json:"duty_status"`
		DriveRemainingSeconds *float64 `json:"drive_remaining_seconds"`
		ShiftRemainingSeconds *float64 `json:"shift_remaining_seconds"`
		CycleRemainingSeconds *float64 `json:"cycle_remaining_seconds"`
		StatusStartedAt       string   `json:"status_started_at"`
		Lat                   *float64 `json:"lat"`
		Lng                   *float64 `json:"lng"`
		VehicleNumber         string   `json:"vehicle_number"`
		LogID                 string   `json:"log_id"`
	} `json:"hos"`
}

type Provider struct {
	cfg    config.EldProviderConfig
	client *providers.HTTPClient
	deps   providers.Deps
}

var _ providers.Provider = (*Provider)(nil)

func New(cfg config.EldProviderConfig, deps providers.Deps) (providers.Provider, error) {
	client, err := providers.NewHTTPClient(cfg, deps)
	if err != nil {
		return nil, err
	}
	return &Provider{cfg: cfg, client: client, deps: deps}, nil
}

func (p *Provider) Vendor() string { return p.cfg.Name }

func (p *Provider) GetDriverHOS(ctx context.Context, driverID domain.DriverID, deviceID string) (*models.HOSRecord, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	header.Set(secretHeader, p.cfg.APISecret)
	query := url.Values{}
	if deviceID != "" {
		query.Set("device_id", deviceID)
	}

	var resp hosResponse
	if err := p.client.GetJSON(ctx, []string{"v1", "drivers", driverID.String(), "hos"}, query, header, &resp); err != nil {
		return nil, err
	}
	return p.toRecord(ctx, driverID, &resp)
}

func (p *Provider) toRecord(ctx context.Context, driverID domain.DriverID, resp *hosResponse) (*models.HOSRecord, error) {
	vendor := p.cfg.Name
	h := resp.HOS
	if h == nil || h.DriveRemainingSeconds == nil || h.ShiftRemainingSeconds == nil ||
		h.CycleRemainingSeconds == nil || h.Lat == nil || h.Lng == nil {
		return nil, providers.NewProviderError(providers.ErrorContractMismatch, vendor, "response missing required hos fields", nil)
	}

	driving, err := providers.MinutesFromSeconds(vendor, models.BudgetDriving, *h.DriveRemainingSeconds)
	if err != nil {
		return nil, err
	}
	duty, err := providers.MinutesFromSeconds(vendor, models.BudgetDuty, *h.ShiftRemainingSeconds)
	if err != nil {
		return nil, err
	}
	cycle, err := providers.MinutesFromSeconds(vendor, models.BudgetCycle, *h.CycleRemainingSeconds)
	if err != nil {
		return nil, err
	}
	loc, err := providers.ParseLocation(vendor, *h.Lat, *h.Lng)
	if err != nil {
		return nil, err
	}
	since, err := providers.ParseTime(vendor, "status_started_at", h.StatusStartedAt)
	if err != nil {
		return nil, err
	}

	rec := &models.HOSRecord{
		DriverID:                driverID,
		Status:                  providers.MapStatus(ctx, p.deps.Logger, vendor, h.DutyStatus),
		DrivingMinutesRemaining: driving,
		DutyMinutesRemaining:    duty,
		CycleMinutesRemaining:   cycle,
		Location:                loc,
		VehicleID:               domain.VehicleID(h.VehicleNumber),
		EldLogID:                domain.EldLogID(h.LogID),
	}
	if since != nil {
		rec.StatusSince = *since
	}
	return rec, nil
}
