package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/flintflours/storefront-backend/pkg/errors"
	"github.com/flintflours/storefront-backend/pkg/logger"
	"github.com/flintflours/storefront-backend/pkg/types"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body.Error
}

func TestWriteSuccessWrapsData(t *testing.T) {
	w := httptest.NewRecorder()
	WriteCreated(w, map[string]string{"hello": "world"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var body struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "world", body.Data["hello"])
}

func TestWriteErrorMapsTypedError(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "bad input").
		WithDetails(map[string]string{"pincode": "is invalid"})
	WriteError(context.Background(), nil, w, err)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	apiErr := decodeError(t, w)
	assert.Equal(t, string(pkgerrors.CodeValidation), apiErr.Code)
	assert.Equal(t, "bad input", apiErr.Message)
	assert.NotNil(t, apiErr.Details)
}

func TestWriteErrorHidesInternalMessages(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.InfoLevel, Output: &buf, Format: "json"})

	w := httptest.NewRecorder()
	WriteError(context.Background(), logg, w, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	apiErr := decodeError(t, w)
	assert.Equal(t, string(pkgerrors.CodeInternal), apiErr.Code)
	assert.Equal(t, "internal server error", apiErr.Message)
	assert.Contains(t, buf.String(), "connection refused")
}

func TestWriteErrorPaymentFailure(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, pkgerrors.New(pkgerrors.CodePayment, "invalid payment signature"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid payment signature", decodeError(t, w).Message)
}
