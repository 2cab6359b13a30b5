package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"international format", "628123456789", "628123456789"},
		{"local leading zero", "08123456789", "628123456789"},
		{"plus prefix", "+628123456789", "628123456789"},
		{"spaces and dashes", "0812-3456 789", "628123456789"},
		{"parentheses", "(0812) 3456789", "628123456789"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizePhoneRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"letters only", "not a phone"},
		{"too short", "0812345"},
		{"too long", "6281234567890123456"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizePhone(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestValidateGroupName(t *testing.T) {
	assert.NoError(t, ValidateGroupName("Family"))
	assert.NoError(t, ValidateGroupName("x"))
	assert.NoError(t, ValidateGroupName(strings.Repeat("a", 25)))

	assert.Error(t, ValidateGroupName(""))
	assert.Error(t, ValidateGroupName("   "))
	assert.Error(t, ValidateGroupName(strings.Repeat("a", 26)))
}

func TestValidateGroupNameCountsRunes(t *testing.T) {
	// 25 multibyte characters are still within bounds.
	assert.NoError(t, ValidateGroupName(strings.Repeat("ü", 25)))
	assert.Error(t, ValidateGroupName(strings.Repeat("ü", 26)))
}
