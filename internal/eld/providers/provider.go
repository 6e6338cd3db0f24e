// Package providers normalizes ELD vendor Hours-of-Service data into the canonical
// HOS model.
//
// Each vendor adapter lives in its own subpackage and implements Provider. Adapters
// own their vendor's path, header and payload conventions; everything they return is
// either a canonical *models.HOSRecord or a *ProviderError.
package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"hoslink/internal/hos/models"
	"hoslink/internal/platform/config"
	"hoslink/internal/platform/metrics"
	"hoslink/pkg/domain"
	dErrors "hoslink/pkg/domain-errors"
)

// Provider fetches a driver's current HOS snapshot from one vendor.
//
// The returned record has no ID and a zero RecordedAt; the engine stamps both when it
// accepts the update.
type Provider interface {
	Vendor() string
	GetDriverHOS(ctx context.Context, driverID domain.DriverID, deviceID string) (*models.HOSRecord, error)
}

// Deps are the shared collaborators handed to every adapter.
type Deps struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Transport http.RoundTripper
	Now       func() time.Time
}

// Constructor builds an adapter from its static configuration.
type Constructor func(cfg config.EldProviderConfig, deps Deps) (Provider, error)

// Factory resolves vendor names to adapters. Adapters are built on first use and
// reused so per-vendor state such as the circuit breaker survives across calls.
type Factory struct {
	deps    Deps
	configs map[string]config.EldProviderConfig

	mu        sync.Mutex
	ctors     map[string]Constructor
	instances map[string]Provider
}

func NewFactory(configs map[string]config.EldProviderConfig, deps Deps) *Factory {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	normalized := make(map[string]config.EldProviderConfig, len(configs))
	for name, cfg := range configs {
		normalized[strings.ToLower(name)] = cfg
	}
	return &Factory{
		deps:      deps,
		configs:   normalized,
		ctors:     make(map[string]Constructor),
		instances: make(map[string]Provider),
	}
}

// Register adds an adapter constructor under a vendor name.
func (f *Factory) Register(vendor string, ctor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctors[strings.ToLower(vendor)] = ctor
}

// Supported lists registered vendor names in sorted order.
func (f *Factory) Supported() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.ctors))
	for name := range f.ctors {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Provider returns the adapter for vendor. Unknown names fail with a validation error
// listing the supported vendors.
func (f *Factory) Provider(vendor string) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(vendor))
	supported := f.Supported()

	f.mu.Lock()
	defer f.mu.Unlock()

	if p, ok := f.instances[name]; ok {
		return p, nil
	}
	ctor, ok := f.ctors[name]
	if !ok {
		return nil, dErrors.Wrap(ErrUnsupportedVendor, dErrors.CodeValidation,
			fmt.Sprintf("unsupported ELD vendor %q; supported vendors: %s", vendor, strings.Join(supported, ", ")))
	}
	cfg, ok := f.configs[name]
	if !ok || cfg.BaseURL == "" {
		return nil, dErrors.Wrap(ErrVendorNotConfigured, dErrors.CodeValidation,
			fmt.Sprintf("ELD vendor %q has no configuration", name))
	}
	if cfg.Name == "" {
		cfg.Name = name
	}
	p, err := ctor(cfg, f.deps)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("failed to build ELD adapter %q", name))
	}
	f.instances[name] = p
	return p, nil
}
