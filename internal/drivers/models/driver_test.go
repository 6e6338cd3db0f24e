package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "hoslink/pkg/domain-errors"
)

func TestNewDriver(t *testing.T) {
	now := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)

	t.Run("normalises endorsements", func(t *testing.T) {
		d, err := NewDriver(Registration{ID: "D1", Name: "  Ana  ", Endorsements: []string{"h", " H ", "n", ""}}, now)
		require.NoError(t, err)
		assert.Equal(t, "Ana", d.Name)
		assert.Equal(t, []string{"H", "N"}, d.Endorsements)
		assert.Equal(t, now, d.CreatedAt)
		assert.True(t, d.IsActive())
	})

	t.Run("empty endorsements are not nil", func(t *testing.T) {
		d, err := NewDriver(Registration{ID: "D1"}, now)
		require.NoError(t, err)
		assert.NotNil(t, d.Endorsements)
	})

	t.Run("invalid id", func(t *testing.T) {
		_, err := NewDriver(Registration{ID: "bad id"}, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("negative distance", func(t *testing.T) {
		_, err := NewDriver(Registration{ID: "D1", MaxDistanceMiles: -1}, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestValidateScore(t *testing.T) {
	assert.NoError(t, ValidateScore(0))
	assert.NoError(t, ValidateScore(MaxScore))
	assert.Error(t, ValidateScore(-0.1))
	assert.Error(t, ValidateScore(100.5))
	assert.Error(t, ValidateScore(math.NaN()))
}
