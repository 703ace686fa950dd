package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ryanbastic/offers-retriever/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// storeError maps an offers store failure to a client-facing error.
func storeError(ctx context.Context, logger *slog.Logger, op string, err error) error {
	switch {
	case errors.Is(err, storage.ErrInvalidCursor):
		return huma.Error400BadRequest("invalid cursor")
	case errors.Is(err, context.DeadlineExceeded):
		logger.WarnContext(ctx, "offers store timed out", "op", op, "error", err)
		return huma.Error504GatewayTimeout("offers store timed out")
	case errors.Is(err, context.Canceled):
		logger.DebugContext(ctx, "request canceled", "op", op)
		return huma.Error503ServiceUnavailable("request canceled")
	}
	logger.ErrorContext(ctx, "offers store failed", "op", op, "error", err)
	return huma.Error503ServiceUnavailable("offers store unavailable")
}
