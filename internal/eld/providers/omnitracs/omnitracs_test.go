package omnitracs

import (
	"net/http"
	"strings"
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

func TestOmnitracsContract(t *testing.T) {
	verifier := newTokenSigner("omni-key", "omni-secret", nil)

	contract.Suite{
		Vendor: config.VendorOmnitracs,
		Render: func(_ domain.DriverID, fx contract.Fixture) any {
			return map[string]any{
				"driverStatus":           fx.RawStatus,
				"availableDriveMinutes":  fx.Driving,
				"availableOnDutyMinutes": fx.Duty,
				"availableCycleMinutes":  fx.Cycle,
				"statusStartTime":        fx.Since.Format(time.RFC3339),
				"position":               map[string]any{"lat": fx.Location.Latitude, "lon": fx.Location.Longitude},
				"unitId":                 "U-88",
				"logId":                  "L-1",
			}
		},
		Authorize: func(r *http.Request, driverID domain.DriverID) bool {
			if r.URL.Path != "/api/hos/drivers/"+driverID.String()+"/availability" || r.Header.Get(secretHeader) != "omni-secret" {
				return false
			}
			claims, err := verifier.verify(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
			return err == nil && claims.Subject == "omni-key"
		},
		NewProvider: func(t *testing.T, baseURL string) providers.Provider {
			p, err := New(config.EldProviderConfig{
				Name: config.VendorOmnitracs, BaseURL: baseURL, APIKey: "omni-key", APISecret: "omni-secret", Timeout: time.Second,
			}, providers.Deps{Logger: logger.Discard()})
			require.NoError(t, err)
			return p
		},
	}.Run(t)
}

func TestTokenSigner(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	signer := newTokenSigner("k", "s", clock)

	token, err := signer.sign()
	require.NoError(t, err)

	claims, err := signer.verify(token)
	require.NoError(t, err)
	assert.Equal(t, "k", claims.Subject)
	assert.NotEmpty(t, claims.ID)

	t.Run("wrong secret rejected", func(t *testing.T) {
		_, err := newTokenSigner("k", "other", clock).verify(token)
		assert.Error(t, err)
	})

	t.Run("expired assertion rejected", func(t *testing.T) {
		later := newTokenSigner("k", "s", func() time.Time { return now.Add(tokenLifetime + time.Minute) })
		_, err := later.verify(token)
		assert.Error(t, err)
	})
}
