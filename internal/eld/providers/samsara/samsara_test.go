package samsara

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hoslink/internal/eld/providers"
	"hoslink/internal/eld/providers/contract"
	"hoslink/internal/platform/config"
	"hoslink/internal/platform/logger"
	"hoslink/pkg/domain"
)

func render(driverID domain.DriverID, fx contract.Fixture) any {
	return map[string]any{"data": []any{
		map[string]any{"driver": map[string]any{"id": "someone-else"}},
		map[string]any{
			"driver":            map[string]any{"id": driverID.String()},
			"currentDutyStatus": map[string]any{"hosStatusType": fx.RawStatus, "startTime": fx.Since.Format(time.RFC3339)},
			"clocks": map[string]any{
				"drive": map[string]any{"driveRemainingDurationMs": int64(fx.Driving) * 60_000},
				"shift": map[string]any{"shiftRemainingDurationMs": int64(fx.Duty) * 60_000},
				"cycle": map[string]any{"cycleRemainingDurationMs": int64(fx.Cycle) * 60_000},
			},
			"location": map[string]any{"latitude": fx.Location.Latitude, "longitude": fx.Location.Longitude},
			"vehicle":  map[string]any{"id": "281474"},
		},
	}}
}

func newProvider(t *testing.T, baseURL string) providers.Provider {
	p, err := New(config.EldProviderConfig{
		Name: config.VendorSamsara, BaseURL: baseURL, APIKey: "samsara-key", APISecret: "samsara-secret", Timeout: time.Second,
	}, providers.Deps{Logger: logger.Discard()})
	require.NoError(t, err)
	return p
}

func TestSamsaraContract(t *testing.T) {
	contract.Suite{
		Vendor: config.VendorSamsara,
		Render: render,
		Authorize: func(r *http.Request, driverID domain.DriverID) bool {
			return r.URL.Path == "/fleet/hos/clocks" &&
				r.URL.Query().Get("driverIds") == driverID.String() &&
				r.Header.Get("Authorization") == "Bearer samsara-key" &&
				r.Header.Get(secretHeader) == "samsara-secret"
		},
		NewProvider: newProvider,
	}.Run(t)
}

func TestSamsara_IncompleteEntryIsContractMismatch(t *testing.T) {
	sp := newProvider(t, "http://unused.invalid").(*Provider)
	rec, err := sp.toRecord(t.Context(), "D1", &driverClocks{})
	assert.Nil(t, rec)
	assert.Equal(t, providers.ErrorContractMismatch, providers.GetCategory(err))
}

func TestSamsara_DriverAbsentIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(render("someone-else", contract.Fixture{RawStatus: "driving"}))
	}))
	defer srv.Close()

	_, err := newProvider(t, srv.URL).GetDriverHOS(t.Context(), "D1", "")
	require.Error(t, err)
	assert.Equal(t, providers.ErrorNotFound, providers.GetCategory(err))
	assert.False(t, providers.IsRetryable(err))
}
