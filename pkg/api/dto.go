package api

import (
	"time"

	"github.com/sells-group/pharma-pipeline/pkg/models"
)

// SubmitRequest is the body of POST /v1/requests (spec §6).
type SubmitRequest struct {
	DrugNames      []string              `json:"drug_names" binding:"required,min=1,max=10"`
	DeliveryMethod models.DeliveryMethod `json:"delivery_method"`
	Categories     []string              `json:"categories"`
	Priority       models.Priority       `json:"priority"`
	CorrelationID  string                `json:"correlation_id"`
	CallbackURL    string                `json:"callback_url"`
}

// SubmitResponse is the 202 acknowledgement body (spec §6).
type SubmitResponse struct {
	RequestID                 string `json:"request_id"`
	CorrelationID             string `json:"correlation_id"`
	Status                    string `json:"status"`
	Message                   string `json:"message"`
	DrugCount                 int    `json:"drug_count"`
	CategoryCount             int    `json:"category_count"`
	EstimatedCompletionTimeMS int64  `json:"estimated_completion_time_ms"`
	ResultsURL                string `json:"results_url"`
}

// ProcessStatusResponse mirrors models.ProcessTracking plus the parent
// request's identity fields (spec §4.10).
type ProcessStatusResponse struct {
	RequestID             string     `json:"request_id"`
	DrugName              string     `json:"drug_name"`
	Status                string     `json:"status"`
	ProgressPercent       int        `json:"progress_percent"`
	CategoriesTotal       int        `json:"categories_total"`
	CategoriesCompleted   int        `json:"categories_completed"`
	EstimatedCompletionAt *time.Time `json:"estimated_completion_at,omitempty"`
	ErrorDetails          string     `json:"error_details,omitempty"`
}

// HistoryEntry is one reconstructed stage-entry event (spec §4.10).
type HistoryEntry struct {
	Stage     string    `json:"stage"`
	EnteredAt time.Time `json:"entered_at"`
	Duration  int64     `json:"duration_ms"`
}

// HistoryResponse is the get_history payload.
type HistoryResponse struct {
	RequestID string         `json:"request_id"`
	Entries   []HistoryEntry `json:"entries"`
}

// BulkStatusRequest is the body of POST /v1/requests/bulk-status.
type BulkStatusRequest struct {
	RequestIDs []string `json:"request_ids" binding:"required,min=1,max=100"`
}

// BulkStatusResponse groups lookups by outcome (spec §4.13).
type BulkStatusResponse struct {
	Found        []string                         `json:"found"`
	NotFound     []string                         `json:"not_found"`
	Unauthorized []string                          `json:"unauthorized"`
	Statuses     map[string]ProcessStatusResponse `json:"statuses"`
}

// errorResponse is the stable, internals-free error body (spec §6).
type errorResponse struct {
	Error string `json:"error"`
}
