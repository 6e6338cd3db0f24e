package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name   string
		input  []string
		expect []string
	}{
		{"nil stays nil", nil, nil},
		{"empty stays empty", []string{}, []string{}},
		{"trims and drops blanks", []string{"  hazmat ", "", "   ", "tanker"}, []string{"hazmat", "tanker"}},
		{"keeps first occurrence order", []string{"b", "a", "b", "c", "a"}, []string{"b", "a", "c"}},
		{"case sensitive", []string{"H", "h"}, []string{"H", "h"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, DedupeAndTrim(tt.input))
		})
	}
}

func TestDedupeAndTrimUpper(t *testing.T) {
	assert.Equal(t, []string{"H", "N", "X"}, DedupeAndTrimUpper([]string{"h", " H ", "N", "x", "n"}))
}

func TestContainsAll(t *testing.T) {
	have := []string{"H", "N", "T"}
	assert.True(t, ContainsAll(have, nil))
	assert.True(t, ContainsAll(have, []string{"H", "T"}))
	assert.False(t, ContainsAll(have, []string{"H", "X"}))
	assert.False(t, ContainsAll(nil, []string{"H"}))
}
