package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"github.com/sells-group/pharma-pipeline/pkg/apperr"
)

// respondError maps err to an HTTP status and the stable error-tag body
// spec §6 requires, never leaking the underlying message for internal
// errors.
func respondError(c *gin.Context, err error) {
	if errors.Is(err, pgx.ErrNoRows) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "not_found"})
		return
	}

	switch apperr.TagOf(err) {
	case apperr.ClientBadRequest:
		c.JSON(http.StatusBadRequest, errorResponse{Error: "bad_request"})
	case apperr.InvalidTransition:
		c.JSON(http.StatusConflict, errorResponse{Error: "invalid_transition"})
	case apperr.TransientExternal:
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "upstream_unavailable"})
	default:
		slog.ErrorContext(c.Request.Context(), "unhandled api error", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal_error"})
	}
}
