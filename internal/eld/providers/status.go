package providers

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"hoslink/internal/hos/models"
)

type statusRule struct {
	needle string
	status models.Status
}

// Checked in this order; the first substring hit wins, so "OFF_DUTY_DRIVING" maps to
// DRIVING and "SLEEPER_BERTH_OFF_DUTY" to SLEEPER_BERTH.
var statusRules = []statusRule{
	{needle: "driving", status: models.StatusDriving},
	{needle: "on_duty", status: models.StatusOnDuty},
	{needle: "sleeper_berth", status: models.StatusSleeperBerth},
	{needle: "off_duty", status: models.StatusOffDuty},
}

// MapStatus maps a vendor duty status onto the canonical enum by case-insensitive
// substring match. Unmatched values map to OFF_DUTY and are logged at warn.
func MapStatus(ctx context.Context, logger *slog.Logger, vendor, raw string) models.Status {
	lower := normalizeToken(raw)
	for _, rule := range statusRules {
		if strings.Contains(lower, rule.needle) {
			return rule.status
		}
	}
	if logger != nil {
		logger.WarnContext(ctx, "unmapped ELD duty status defaulted to OFF_DUTY",
			"vendor", vendor,
			"raw_status", raw,
		)
	}
	return models.StatusOffDuty
}

// normalizeToken lowercases raw and turns camelCase humps, spaces and hyphens into
// underscores: "onDuty", "On Duty" and "on-duty" all become "on_duty".
func normalizeToken(raw string) string {
	var b strings.Builder
	b.Grow(len(raw) + 4)
	var prev rune
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r == ' ' || r == '-':
			b.WriteByte('_')
		case unicode.IsUpper(r):
			if unicode.IsLower(prev) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
		prev = r
	}
	return b.String()
}
