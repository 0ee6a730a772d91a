package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ssargent/savelayout/pkg/codec"
	"github.com/ssargent/savelayout/pkg/journal"
	"github.com/ssargent/savelayout/pkg/memmap"
)

const apiKeyHeader = "X-API-Key"

// apiKeyMiddleware validates the X-API-Key header
func apiKeyMiddleware(expectedKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get(apiKeyHeader)
			if apiKey == "" {
				sendError(w, "Missing X-API-Key header", http.StatusUnauthorized)
				return
			}
			if apiKey != expectedKey {
				sendError(w, "Invalid API key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger logs one line per request
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

// sendSuccess sends a successful JSON response
func sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	response := APIResponse{
		Success: true,
		Data:    data,
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// sendError sends an error JSON response
func sendError(w http.ResponseWriter, message string, statusCode int) {
	sendErrorKind(w, message, "", statusCode)
}

func sendErrorKind(w http.ResponseWriter, message, kind string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := APIResponse{
		Success: false,
		Error:   message,
		Kind:    kind,
	}
	_ = json.NewEncoder(w).Encode(response)
}

// statusFor maps library errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, memmap.ErrUnknownRegion), errors.Is(err, journal.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, journal.ErrInvalidRegion):
		return http.StatusBadRequest
	}

	kind, ok := codec.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case codec.LengthMismatch, codec.UnknownField, codec.InvalidJSON:
		return http.StatusBadRequest
	case codec.MissingField, codec.ValueOutOfRange, codec.IncompleteBitGroup, codec.MalformedString:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// sendFailure sends err with the status and kind it maps to
func sendFailure(w http.ResponseWriter, err error) {
	kind, _ := codec.KindOf(err)
	sendErrorKind(w, err.Error(), string(kind), statusFor(err))
}
