package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"github.com/sells-group/pharma-pipeline/pkg/apperr"
	"github.com/sells-group/pharma-pipeline/pkg/database"
	"github.com/sells-group/pharma-pipeline/pkg/models"
)

// health reports liveness and database reachability.
func (s *Server) health(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	dbStatus, err := database.Health(reqCtx, s.pool)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": dbStatus, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "database": dbStatus})
}

// submit handles POST /v1/requests.
func (s *Server) submit(c *gin.Context) {
	var body SubmitRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid_request_body"})
		return
	}

	deliveryMethod := body.DeliveryMethod
	if deliveryMethod == "" {
		deliveryMethod = models.DeliveryTransdermal
	}
	priority := body.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}
	correlationID := body.CorrelationID

	var first models.Request
	for i, name := range body.DrugNames {
		req := models.Request{
			DrugName: name, DeliveryMethod: deliveryMethod, Priority: priority,
			CallbackURL: body.CallbackURL, CorrelationID: correlationID,
		}
		created, err := s.engine.Submit(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		if i == 0 {
			first = created
			correlationID = created.CorrelationID
		}
	}

	eta := s.engine.EstimateSubmissionCompletion(len(body.DrugNames))
	c.JSON(http.StatusAccepted, SubmitResponse{
		RequestID: first.ID, CorrelationID: first.CorrelationID, Status: string(models.StatusSubmitted),
		Message: "request accepted for processing", DrugCount: len(body.DrugNames),
		CategoryCount: s.engine.CategoryCount(), EstimatedCompletionTimeMS: eta.Milliseconds(),
		ResultsURL: "/v1/requests/" + first.ID + "/results",
	})
}

// getStatus handles GET /v1/requests/:id/status.
func (s *Server) getStatus(c *gin.Context) {
	id := c.Param("id")
	req, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	tracking, err := s.store.TrackingGet(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toStatusResponse(req, tracking))
}

// getHistory handles GET /v1/requests/:id/history.
func (s *Server) getHistory(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.store.Get(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	tracking, err := s.store.TrackingGet(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	entries := make([]HistoryEntry, 0, len(tracking.StageTimestamps))
	for _, stage := range models.StageOrder {
		ts, ok := tracking.StageTimestamps[stage]
		if !ok || ts.StartedAt == nil {
			continue
		}
		entry := HistoryEntry{Stage: string(stage), EnteredAt: *ts.StartedAt}
		if ts.CompletedAt != nil {
			entry.Duration = ts.CompletedAt.Sub(*ts.StartedAt).Milliseconds()
		}
		entries = append(entries, entry)
	}
	c.JSON(http.StatusOK, HistoryResponse{RequestID: id, Entries: entries})
}

// getResults handles GET /v1/requests/:id/results.
func (s *Server) getResults(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.store.Get(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	out, err := s.store.FinalOutput(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusAccepted, gin.H{"status": "processing"})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// bulkStatus handles POST /v1/requests/bulk-status.
func (s *Server) bulkStatus(c *gin.Context) {
	var body BulkStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid_request_body"})
		return
	}

	trackings, err := s.store.BulkGet(c.Request.Context(), body.RequestIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := BulkStatusResponse{Statuses: make(map[string]ProcessStatusResponse, len(trackings))}
	for _, id := range body.RequestIDs {
		tracking, ok := trackings[id]
		if !ok {
			resp.NotFound = append(resp.NotFound, id)
			continue
		}
		req, err := s.store.Get(c.Request.Context(), id)
		if err != nil {
			resp.NotFound = append(resp.NotFound, id)
			continue
		}
		resp.Found = append(resp.Found, id)
		resp.Statuses[id] = toStatusResponse(req, tracking)
	}
	c.JSON(http.StatusOK, resp)
}

// cancel handles POST /v1/requests/:id/cancel.
func (s *Server) cancel(c *gin.Context) {
	id := c.Param("id")
	if err := s.engine.Cancel(c.Request.Context(), id); err != nil {
		if apperr.Is(err, apperr.InvalidTransition) {
			c.JSON(http.StatusConflict, errorResponse{Error: "invalid_state"})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// reprocess handles POST /v1/requests/:id/reprocess (SPEC_FULL.md §12).
func (s *Server) reprocess(c *gin.Context) {
	id := c.Param("id")
	if err := s.engine.Reprocess(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"ok": true})
}

func toStatusResponse(req models.Request, tracking models.ProcessTracking) ProcessStatusResponse {
	return ProcessStatusResponse{
		RequestID: req.ID, DrugName: req.DrugName, Status: string(tracking.Status),
		ProgressPercent: tracking.ProgressPercent, CategoriesTotal: tracking.CategoriesTotal,
		CategoriesCompleted: tracking.CategoriesCompleted, EstimatedCompletionAt: tracking.EstimatedCompletionAt,
		ErrorDetails: tracking.ErrorDetails,
	}
}
