// Package samsara adapts the Samsara fleet HOS clocks API.
package samsara

import (
	"context"
	"net/http"
	"net/url"

	"hoslink/internal/eld/providers"
	"hoslink/internal/hos/models"
	"hoslink/internal/platform/config"
	"hoslink/pkg/domain"
)

const secretHeader = "X-Samsara-Secret"

type clocksResponse struct {
	Data []driverClocks `json:"data"`
}

type driverClocks struct {
	Driver struct {
		ID string `json:"id"`
	} `json:"driver"`
	CurrentDutyStatus struct {
		HOSStatusType string `json:"hosStatusType"`
		StartTime     string `json:"startTime"`
	} `json:"currentDutyStatus"`
	Clocks struct {
		Drive struct {
			DriveRemainingDurationMs *int64 `json:"driveRemainingDurationMs"`
		} `json:"drive"`
		Shift struct {
			ShiftRemainingDurationMs *int64 `json:"shiftRemainingDurationMs"`
		} `json:"shift"`
		Cycle struct {
			CycleRemainingDurationMs *int64 `json:"cycleRemainingDurationMs"`
		} `json:"cycle"`
	} `json:"clocks"`
	Location *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	Vehicle struct {
		ID string `json:"id"`
	} `json:"vehicle"`
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
	query.Set("driverIds", driverID.String())
	if deviceID != "" {
		query.Set("vehicleId", deviceID)
	}

	var resp clocksResponse
	if err := p.client.GetJSON(ctx, []string{"fleet", "hos", "clocks"}, query, header, &resp); err != nil {
		return nil, err
	}
	for i := range resp.Data {
		if resp.Data[i].Driver.ID == driverID.String() {
			return p.toRecord(ctx, driverID, &resp.Data[i])
		}
	}
	return nil, providers.NewProviderError(providers.ErrorNotFound, p.cfg.Name, "driver absent from clocks response", nil)
}

func (p *Provider) toRecord(ctx context.Context, driverID domain.DriverID, d *driverClocks) (*models.HOSRecord, error) {
	vendor := p.cfg.Name
	if d.Clocks.Drive.DriveRemainingDurationMs == nil || d.Clocks.Shift.ShiftRemainingDurationMs == nil ||
		d.Clocks.Cycle.CycleRemainingDurationMs == nil || d.Location == nil {
		return nil, providers.NewProviderError(providers.ErrorContractMismatch, vendor, "clocks entry missing required fields", nil)
	}

	driving, err := providers.MinutesFromMillis(vendor, models.BudgetDriving, *d.Clocks.Drive.DriveRemainingDurationMs)
	if err != nil {
		return nil, err
	}
	duty, err := providers.MinutesFromMillis(vendor, models.BudgetDuty, *d.Clocks.Shift.ShiftRemainingDurationMs)
	if err != nil {
		return nil, err
	}
	cycle, err := providers.MinutesFromMillis(vendor, models.BudgetCycle, *d.Clocks.Cycle.CycleRemainingDurationMs)
	if err != nil {
		return nil, err
	}
	loc, err := providers.ParseLocation(vendor, d.Location.Latitude, d.Location.Longitude)
	if err != nil {
		return nil, err
	}
	since, err := providers.ParseTime(vendor, "startTime", d.CurrentDutyStatus.StartTime)
	if err != nil {
		return nil, err
	}

	rec := &models.HOSRecord{
		DriverID:                driverID,
		Status:                  providers.MapStatus(ctx, p.deps.Logger, vendor, d.CurrentDutyStatus.HOSStatusType),
		DrivingMinutesRemaining: driving,
		DutyMinutesRemaining:    duty,
		CycleMinutesRemaining:   cycle,
		Location:                loc,
		VehicleID:               domain.VehicleID(d.Vehicle.ID),
	}
	if since != nil {
		rec.StatusSince = *since
	}
	return rec, nil
}
