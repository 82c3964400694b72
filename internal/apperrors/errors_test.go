package apperrors

import (
	"fmt"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("year %d out of range", 1800), KindValidation},
		{"not found", NotFound("bundle", "abc"), KindNotFound},
		{"invalid state", InvalidState("bundle is %s", "approved"), KindInvalidState},
		{"duplicate", Duplicate("set", 4, "2024 Topps"), KindDuplicate},
		{"wrapped with fmt", fmt.Errorf("approve: %w", InvalidState("nope")), KindInvalidState},
		{"wrapped with eris", eris.Wrap(NotFound("card", 9), "review: load card"), KindNotFound},
		{"plain error", fmt.Errorf("disk full"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestDuplicateCarriesExistingID(t *testing.T) {
	err := Duplicate("color", 12, "Gold")

	var appErr *Error
	require.ErrorAs(t, err, &appErr)
	require.NotNil(t, appErr.ExistingID)
	assert.Equal(t, uint(12), *appErr.ExistingID)
	assert.Equal(t, "duplicate", appErr.ErrorKind())
	assert.Contains(t, err.Error(), `"Gold"`)
}
