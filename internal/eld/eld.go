// Package eld wires the vendor adapters into a provider factory.
package eld

import (
	"hoslink/internal/eld/providers"
	"hoslink/internal/eld/providers/motive"
	"hoslink/internal/eld/providers/omnitracs"
	"hoslink/internal/eld/providers/samsara"
	"hoslink/internal/platform/config"
)

// NewFactory registers every supported vendor adapter against its configuration.
func NewFactory(cfgs map[string]config.EldProviderConfig, deps providers.Deps) *providers.Factory {
	f := providers.NewFactory(cfgs, deps)
	f.Register(config.VendorMotive, motive.New)
	f.Register(config.VendorSamsara, samsara.New)
	f.Register(config.VendorOmnitracs, omnitracs.New)
	return f
}
