package httputil

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/sessionsig/internal/errors"
)

func TestHandleErrorGin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name          string
		err           error
		expectedCode  int
		expectedError string
		expectedField string
	}{
		{
			name:          "not found",
			err:           apperrors.Wrap(apperrors.ErrNotFound, "action"),
			expectedCode:  http.StatusNotFound,
			expectedError: "not_found",
		},
		{
			name:          "invalid input with field",
			err:           apperrors.Field(apperrors.ErrInvalidInput, "digest", "must be 32 bytes"),
			expectedCode:  http.StatusUnprocessableEntity,
			expectedError: "invalid_input",
			expectedField: "digest",
		},
		{
			name:          "unauthorized",
			err:           apperrors.Wrap(apperrors.ErrUnauthorized, "session expired"),
			expectedCode:  http.StatusUnauthorized,
			expectedError: "unauthorized",
		},
		{
			name:          "forbidden",
			err:           apperrors.Field(apperrors.ErrForbidden, "ability", "lit-pkp://*#pkp-signing"),
			expectedCode:  http.StatusForbidden,
			expectedError: "forbidden",
			expectedField: "ability",
		},
		{
			name:          "unavailable",
			err:           apperrors.Wrap(apperrors.ErrUnavailable, "wallet offline"),
			expectedCode:  http.StatusServiceUnavailable,
			expectedError: "unavailable",
		},
		{
			name:          "unknown",
			err:           stderrors.New("boom"),
			expectedCode:  http.StatusInternalServerError,
			expectedError: "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

			HandleErrorGin(c, tt.err, logger)

			assert.Equal(t, tt.expectedCode, w.Code)
			var response ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.expectedError, response.Error)
			assert.Equal(t, tt.expectedField, response.Field)
		})
	}

	t.Run("internal error hides details", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

		HandleErrorGin(c, stderrors.New("db password is hunter2"), logger)

		assert.NotContains(t, w.Body.String(), "hunter2")
	})

	t.Run("nil error writes nothing", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		HandleErrorGin(c, nil, logger)

		assert.Empty(t, w.Body.String())
	})
}

func TestHandleBadRequestGin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	HandleBadRequestGin(c, stderrors.New("unexpected EOF"), nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"bad_request","message":"unexpected EOF"}`, w.Body.String())
}
