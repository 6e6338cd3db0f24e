package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "hoslink/pkg/domain-errors"
)

func TestParseDriverID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"short vendor id", "D1", false},
		{"uuid", "550e8400-e29b-41d4-a716-446655440000", false},
		{"namespaced", "motive:drv_1029.a", false},

		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"sql injection", "'; DROP TABLE drivers;--", true},
		{"path traversal", "../../etc/passwd", true},
		{"null byte", "D1\x00", true},
		{"oversized", strings.Repeat("a", 65), true},
		{"zero width space", "D\u200B1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseDriverID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, id.String())
		})
	}
}

func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	_, errDriver := ParseDriverID("")
	_, errVehicle := ParseVehicleID("")
	_, errLog := ParseEldLogID("")
	assert.Error(t, errDriver)
	assert.Error(t, errVehicle)
	assert.Error(t, errLog)

	assert.Contains(t, errVehicle.Error(), "vehicle_id")
	assert.Contains(t, errLog.Error(), "eld_log_id")

	v, err := ParseVehicleID("TRK-42")
	require.NoError(t, err)
	assert.Equal(t, VehicleID("TRK-42"), v)
}
