package eld

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hoslink/internal/eld/providers"
	"hoslink/internal/platform/config"
	"hoslink/internal/platform/logger"
)

func TestNewFactory_RegistersSupportedVendors(t *testing.T) {
	cfgs := map[string]config.EldProviderConfig{}
	for _, v := range config.SupportedVendors() {
		cfgs[v] = config.EldProviderConfig{Name: v, BaseURL: "https://" + v + ".example.com"}
	}
	f := NewFactory(cfgs, providers.Deps{Logger: logger.Discard()})

	assert.ElementsMatch(t, config.SupportedVendors(), f.Supported())
	for _, v := range config.SupportedVendors() {
		p, err := f.Provider(v)
		require.NoError(t, err, v)
		assert.Equal(t, v, p.Vendor())
	}
}
