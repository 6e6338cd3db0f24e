// Package omnitracs adapts the Omnitracs HOS availability API. Requests carry a
// short-lived JWT assertion as the bearer token.
package omnitracs

import (
	"context"
	"net/http"
	"net/url"

	"hoslink/internal/eld/providers"
	"hoslink/internal/hos/models"
	"hoslink/internal/platform/config"
	"hoslink/pkg/domain"
)

const secretHeader = "X-Omnitracs-Secret"

type availabilityResponse struct {
	DriverStatus           string `json:"driverStatus"`
	AvailableDriveMinutes  *int   `json:"availableDriveMinutes"`
	AvailableOnDutyMinutes *int   `json:"availableOnDutyMinutes"`
	AvailableCycleMinutes  *int   `json:"availableCycleMinutes"`
	StatusStartTime        string `json:"statusStartTime"`
	Position               *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"position"`
	UnitID string `json:"unitId"`
	LogID  string `json:"logId"`
}

type Provider struct {
	cfg    config.EldProviderConfig
	client *providers.HTTPClient
	signer *tokenSigner
	deps   providers.Deps
}

var _ providers.Provider = (*Provider)(nil)

func New(cfg config.EldProviderConfig, deps providers.Deps) (providers.Provider, error) {
	client, err := providers.NewHTTPClient(cfg, deps)
	if err != nil {
		return nil, err
	}
	return &Provider{
		cfg:    cfg,
		client: client,
		signer: newTokenSigner(cfg.APIKey, cfg.APISecret, deps.Now),
		deps:   deps,
	}, nil
}

func (p *Provider) Vendor() string { return p.cfg.Name }

func (p *Provider) GetDriverHOS(ctx context.Context, driverID domain.DriverID, deviceID string) (*models.HOSRecord, error) {
	token, err := p.signer.sign()
	if err != nil {
		return nil, providers.NewProviderError(providers.ErrorAuthentication, p.cfg.Name, "sign bearer assertion", err)
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	header.Set(secretHeader, p.cfg.APISecret)
	query := url.Values{}
	if deviceID != "" {
		query.Set("unit", deviceID)
	}

	var resp availabilityResponse
	path := []string{"api", "hos", "drivers", driverID.String(), "availability"}
	if err := p.client.GetJSON(ctx, path, query, header, &resp); err != nil {
		return nil, err
	}
	return p.toRecord(ctx, driverID, &resp)
}

func (p *Provider) toRecord(ctx context.Context, driverID domain.DriverID, r *availabilityResponse) (*models.HOSRecord, error) {
	vendor := p.cfg.Name
	if r.AvailableDriveMinutes == nil || r.AvailableOnDutyMinutes == nil || r.AvailableCycleMinutes == nil || r.Position == nil {
		return nil, providers.NewProviderError(providers.ErrorContractMismatch, vendor, "availability response missing required fields", nil)
	}

	driving, err := providers.ClampMinutes(vendor, models.BudgetDriving, *r.AvailableDriveMinutes)
	if err != nil {
		return nil, err
	}
	duty, err := providers.ClampMinutes(vendor, models.BudgetDuty, *r.AvailableOnDutyMinutes)
	if err != nil {
		return nil, err
	}
	cycle, err := providers.ClampMinutes(vendor, models.BudgetCycle, *r.AvailableCycleMinutes)
	if err != nil {
		return nil, err
	}
	loc, err := providers.ParseLocation(vendor, r.Position.Lat, r.Position.Lon)
	if err != nil {
		return nil, err
	}
	since, err := providers.ParseTime(vendor, "statusStartTime", r.StatusStartTime)
	if err != nil {
		return nil, err
	}

	rec := &models.HOSRecord{
		DriverID:                driverID,
		Status:                  providers.MapStatus(ctx, p.deps.Logger, vendor, r.DriverStatus),
		DrivingMinutesRemaining: driving,
		DutyMinutesRemaining:    duty,
		CycleMinutesRemaining:   cycle,
		Location:                loc,
		VehicleID:               domain.VehicleID(r.UnitID),
		EldLogID:                domain.EldLogID(r.LogID),
	}
	if since != nil {
		rec.StatusSince = *since
	}
	return rec, nil
}
