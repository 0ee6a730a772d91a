package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ssargent/savelayout/pkg/codec"
	"github.com/ssargent/savelayout/pkg/journal"
	"github.com/ssargent/savelayout/pkg/memmap"
)

func TestAPIKeyMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		apiKey         string
		requestHeader  string
		expectedStatus int
	}{
		{
			name:           "valid API key",
			apiKey:         "test-key",
			requestHeader:  "test-key",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing API key header",
			apiKey:         "test-key",
			requestHeader:  "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid API key",
			apiKey:         "test-key",
			requestHeader:  "wrong-key",
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			handler := apiKeyMiddleware(tt.apiKey)(testHandler)

			req := httptest.NewRequest("GET", "/test", nil)
			if tt.requestHeader != "" {
				req.Header.Set(apiKeyHeader, tt.requestHeader)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestSendSuccess(t *testing.T) {
	w := httptest.NewRecorder()

	sendSuccess(w, map[string]string{"message": "test"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":true,"data":{"message":"test"}}`, w.Body.String())
}

func TestSendError(t *testing.T) {
	tests := []struct {
		name       string
		message    string
		statusCode int
	}{
		{"bad request error", "Invalid request", http.StatusBadRequest},
		{"unauthorized error", "Not authorized", http.StatusUnauthorized},
		{"internal server error", "Server error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			sendError(w, tt.message, tt.statusCode)

			assert.Equal(t, tt.statusCode, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var resp APIResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.message, resp.Error)
			assert.Empty(t, resp.Kind)
		})
	}
}

func TestStatusFor(t *testing.T) {
	codecErr := func(kind codec.ErrorKind) error {
		return fmt.Errorf("region Hero: %w", &codec.Error{Kind: kind, Schema: "character"})
	}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unknown region", fmt.Errorf("%w: Nobody", memmap.ErrUnknownRegion), http.StatusNotFound},
		{"journal miss", journal.ErrNotFound, http.StatusNotFound},
		{"bad journal region", journal.ErrInvalidRegion, http.StatusBadRequest},
		{"length mismatch", codecErr(codec.LengthMismatch), http.StatusBadRequest},
		{"unknown field", codecErr(codec.UnknownField), http.StatusBadRequest},
		{"invalid json", codecErr(codec.InvalidJSON), http.StatusBadRequest},
		{"missing field", codecErr(codec.MissingField), http.StatusUnprocessableEntity},
		{"out of range", codecErr(codec.ValueOutOfRange), http.StatusUnprocessableEntity},
		{"incomplete bit group", codecErr(codec.IncompleteBitGroup), http.StatusUnprocessableEntity},
		{"malformed string", codecErr(codec.MalformedString), http.StatusUnprocessableEntity},
		{"invalid schema", codecErr(codec.InvalidSchema), http.StatusInternalServerError},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestSendFailure(t *testing.T) {
	w := httptest.NewRecorder()

	sendFailure(w, &codec.Error{Kind: codec.MalformedString, Schema: "character", Field: "Name"})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "malformed_string", resp.Kind)
	assert.Contains(t, resp.Error, "character.Name")
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	handler := requestLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/regions", nil))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/api/v1/regions", fields["path"])
	assert.EqualValues(t, http.StatusTeapot, fields["status"])
	assert.EqualValues(t, 15, fields["bytes"])
}
