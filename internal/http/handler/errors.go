package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"rankwise.app/analyst/internal/http/dto"
	"rankwise.app/analyst/internal/orchestrator"
	"rankwise.app/analyst/internal/service"
	"rankwise.app/analyst/internal/store"
)

// StatusClientClosedRequest is the nginx convention for a caller that went away.
const StatusClientClosedRequest = 499

// writeError maps a service error to a status code and error body.
func writeError(c *gin.Context, err error) {
	ctx := c.Request.Context()
	kind := orchestrator.KindOf(err)

	status := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case kind == orchestrator.KindInvalidTarget:
		status, msg = http.StatusBadRequest, err.Error()
	case kind == orchestrator.KindStoreUnavailable:
		status, msg = http.StatusServiceUnavailable, "analysis store unavailable"
	case kind == orchestrator.KindProviderUnavailable, kind == orchestrator.KindSynthesisMalformed:
		status, msg = http.StatusBadGateway, "no signals could be collected"
	case kind == orchestrator.KindCanceled:
		status, msg = http.StatusGatewayTimeout, "analysis timed out"
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			status, msg = StatusClientClosedRequest, "request canceled"
		}
	case errors.Is(err, store.ErrNotFound):
		status, msg = http.StatusNotFound, "target not found"
	case errors.Is(err, service.ErrAsyncUnavailable):
		status, msg = http.StatusServiceUnavailable, err.Error()
	}

	if status >= 500 {
		slog.ErrorContext(ctx, "request failed", "error", err, "kind", kind)
	}
	_ = c.Error(err)
	c.JSON(status, dto.ErrorResponse{Error: msg, Kind: string(kind)})
}

func badRequest(c *gin.Context, err error) {
	slog.WarnContext(c.Request.Context(), "invalid request", "error", err)
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
}
