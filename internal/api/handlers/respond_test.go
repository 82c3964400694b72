package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/cardcatalog/internal/apperrors"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
		wantID     bool
	}{
		{"validation", apperrors.Validation("bad year"), http.StatusBadRequest, "validation", false},
		{"not found", apperrors.NotFound("bundle", "x"), http.StatusNotFound, "not_found", false},
		{"invalid state", apperrors.InvalidState("already approved"), http.StatusConflict, "invalid_state", false},
		{"duplicate", apperrors.Duplicate("set", 4, "2024 Topps"), http.StatusConflict, "duplicate", true},
		{"wrapped", eris.Wrap(apperrors.NotFound("card", 1), "lookup"), http.StatusNotFound, "not_found", false},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError, "internal", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantKind, body["kind"])
			_, hasID := body["existing_id"]
			assert.Equal(t, tt.wantID, hasID)
			if tt.name == "internal" {
				assert.Equal(t, "internal error", body["error"], "internal details stay in the logs")
			}
		})
	}
}
