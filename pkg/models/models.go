// Package models defines the domain entities shared across the pipeline
// engine. Shapes mirror the entity definitions in ent/schema; this package
// is what repositories, services, and the HTTP layer actually pass around.
package models

import "time"

// DeliveryMethod is the route a drug is evaluated for.
type DeliveryMethod string

const (
	DeliveryTransdermal  DeliveryMethod = "transdermal"
	DeliveryTransmucosal DeliveryMethod = "transmucosal"
)

// Priority controls queueing/urgency hints; it is not used to preempt
// in-flight work.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// RequestStatus is the state-machine value tracked by pkg/status.
type RequestStatus string

const (
	StatusSubmitted   RequestStatus = "submitted"
	StatusCollecting  RequestStatus = "collecting"
	StatusVerifying   RequestStatus = "verifying"
	StatusMerging     RequestStatus = "merging"
	StatusSummarizing RequestStatus = "summarizing"
	StatusCompleted   RequestStatus = "completed"
	StatusFailed      RequestStatus = "failed"
	StatusCancelled   RequestStatus = "cancelled"
)

// Request is the top-level unit of work: one drug, one delivery route.
type Request struct {
	ID             string
	DrugName       string
	DeliveryMethod DeliveryMethod
	Priority       Priority
	CallbackURL    string
	CorrelationID  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
}

// Stage names, fixed order per spec §4.6.
type Stage string

const (
	StageCollect   Stage = "collect"
	StageVerify    Stage = "verify"
	StageMerge     Stage = "merge"
	StageSummarize Stage = "summarize"
)

// StageOrder is the fixed pipeline order for a Phase-1 category.
var StageOrder = []Stage{StageCollect, StageVerify, StageMerge, StageSummarize}

// ProcessTracking is the 1:1 progress/status record for a Request.
type ProcessTracking struct {
	RequestID             string
	Status                RequestStatus
	ProgressPercent       int
	CategoriesTotal       int
	CategoriesCompleted   int
	EstimatedCompletionAt *time.Time
	StageTimestamps       map[Stage]StageTimestamp
	ErrorDetails          string
}

// StageTimestamp tracks when a stage started/completed across the whole
// request (used for the history projection, not per-category timing).
type StageTimestamp struct {
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// CategoryPhase distinguishes Phase-1 data collection from Phase-2 analysis.
type CategoryPhase int

const (
	Phase1 CategoryPhase = 1
	Phase2 CategoryPhase = 2
)

// PharmaceuticalCategory is reference data (not per-request).
type PharmaceuticalCategory struct {
	ID                        string
	Name                      string
	Phase                     CategoryPhase
	DisplayOrder              int
	IsActive                  bool
	PromptTemplate            string
	VerificationCriteria      []string
	ProcessingRules           map[string]any
	ConflictResolutionStrategy string
	StageToggles              StageToggles
	SummaryStyle              SummaryStyle
}

// StageToggles enables/disables each of the 4 stages for a category.
type StageToggles struct {
	Collect   bool
	Verify    bool
	Merge     bool
	Summarize bool
}

// SummaryLength is the target verbosity for C5.
type SummaryLength string

const (
	LengthCompact  SummaryLength = "compact"
	LengthStandard SummaryLength = "standard"
	LengthDeep     SummaryLength = "deep"
)

// SummaryStyle configures the Summary Generator for one category.
type SummaryStyle struct {
	Name             string
	SystemPrompt     string
	UserTemplate     string
	Length           SummaryLength
	TargetWordCount  int
}

// CategoryDependency is a directed edge dependent -> required.
type CategoryDependency struct {
	Dependent string
	Required  string
}

// CategoryResultStatus mirrors spec §3 CategoryResult.status.
type CategoryResultStatus string

const (
	CategoryPending    CategoryResultStatus = "pending"
	CategoryProcessing CategoryResultStatus = "processing"
	CategoryCompleted  CategoryResultStatus = "completed"
	CategoryFailed     CategoryResultStatus = "failed"
	CategorySkipped    CategoryResultStatus = "skipped"
)

// CategoryResult is one (Request, Category) outcome.
type CategoryResult struct {
	ID                string
	RequestID         string
	CategoryID        string
	CategoryName      string
	Summary           string
	ConfidenceScore   float64
	DataQualityScore  float64
	Status            CategoryResultStatus
	ProcessingTimeMS  int64
	RetryCount        int
	ErrorMessage      string
	SkipReason        string
	StartedAt         *time.Time
	CompletedAt       *time.Time
	APICallsMade      int
	TokenCount        int
	CostEstimate      float64
	StructuredDataKeys int
}

// ProviderKind classifies the authority hierarchy input for C2.
type ProviderKind string

const (
	ProviderLicensedAI    ProviderKind = "licensed_ai"
	ProviderGovernment    ProviderKind = "government"
	ProviderPeerReviewed  ProviderKind = "peer_reviewed"
	ProviderIndustry      ProviderKind = "industry"
	ProviderCompanyOwned  ProviderKind = "company_owned"
	ProviderNews          ProviderKind = "news"
	ProviderUnknown       ProviderKind = "unknown"
)

// ProviderResponse is the raw, persisted record of one provider call.
type ProviderResponse struct {
	ID                  string
	CategoryResultID    string
	Provider            string
	Model               string
	Temperature         float64
	QueryParameters      map[string]any
	RawText             string
	CitedURLs           []string
	LatencyMS           int64
	TokenCount          int
	Cost                float64
	Checksum            string
	RetentionExpiresAt  time.Time
	Kind                ProviderKind
	AuthorityWeight     int
	Credibility         float64
}

// MergeMethod is how MergedData was produced.
type MergeMethod string

const (
	MergeLLMAssisted      MergeMethod = "llm_assisted"
	MergeFallbackWeighted MergeMethod = "fallback_weighted"
	MergeSummaryExtraction MergeMethod = "summary_extraction"
	MergeNone             MergeMethod = "none"
)

// SourceReference records one contributing source's weight in a merge.
type SourceReference struct {
	Provider        string
	Model           string
	Weight          int
	AuthorityScore  int
}

// ConflictResolution records one conflict the merger resolved.
type ConflictResolution struct {
	Field   string
	Sources []string
	Chosen  string
	Reason  string
}

// MergedData is the canonical per-category merge artifact.
type MergedData struct {
	ID               string
	CategoryResultID string
	MergedText       string
	StructuredData   map[string]any
	Confidence       float64
	DataQualityScore float64
	SourceReferences []SourceReference
	ConflictsResolved []ConflictResolution
	KeyFindings      []string
	MergeMethod      MergeMethod
}

// SourceConflict is a child record of CategoryResult.
type SourceConflict struct {
	ID                    string
	CategoryResultID      string
	ConflictType          string
	Description           string
	ConflictingSourceIDs  []string
	ResolutionStrategy    string
	ResolvedAt            *time.Time
	ConfidenceImpact      float64
	IsCritical            bool
}

// Parameter is one of the four scored physicochemical values.
type Parameter string

const (
	ParamDose           Parameter = "Dose"
	ParamMolecularWeight Parameter = "MolecularWeight"
	ParamMeltingPoint   Parameter = "MeltingPoint"
	ParamLogP           Parameter = "LogP"
)

// ParameterWeights are the fixed weights from spec §4.8.
var ParameterWeights = map[Parameter]float64{
	ParamDose:            0.40,
	ParamMolecularWeight: 0.30,
	ParamMeltingPoint:    0.20,
	ParamLogP:            0.10,
}

// ExtractionMethod records which waterfall step produced a parameter value.
type ExtractionMethod string

const (
	ExtractPhase1Summary ExtractionMethod = "phase1_summary"
	ExtractDedicatedLLM  ExtractionMethod = "dedicated_llm"
	ExtractLiveSearch    ExtractionMethod = "live_search"
	ExtractNone          ExtractionMethod = "none"
)

// Phase2ParameterResult is one row per (Request, Parameter).
type Phase2ParameterResult struct {
	RequestID        string
	Parameter        Parameter
	ExtractedValue   *float64
	Unit             string
	Score            *int
	WeightedScore    float64
	Rationale        string
	ExtractionMethod ExtractionMethod
}

// Verdict is the Go/No-Go decision derived from the weighted total.
type Verdict string

const (
	VerdictGo            Verdict = "Go"
	VerdictConditionalGo Verdict = "Conditional-Go"
	VerdictNoGo          Verdict = "No-Go"
)

// RouteScore is the aggregated scoring outcome for one delivery route.
type RouteScore struct {
	Route             DeliveryMethod
	Parameters        []Phase2ParameterResult
	Total             float64
	Verdict           Verdict
	DecisionCategory  string
	InvestmentPriority string
	RiskLevel         string
	SuccessProbability string
}

// RequestFinalOutput is the snapshot composed by C9.
type RequestFinalOutput struct {
	RequestID          string
	Document           map[string]any
	TDScore            float64
	TMScore            float64
	TDVerdict          Verdict
	TMVerdict          Verdict
	GoDecision         bool
	InvestmentPriority string
	RiskLevel          string
	Version            int
	GeneratedAt        time.Time
}

// AuditEventType enumerates the audit taxonomy from spec §3.
type AuditEventType string

const (
	AuditCreate              AuditEventType = "create"
	AuditUpdate              AuditEventType = "update"
	AuditDelete              AuditEventType = "delete"
	AuditProcessStart        AuditEventType = "process_start"
	AuditProcessComplete     AuditEventType = "process_complete"
	AuditProcessError        AuditEventType = "process_error"
	AuditSourceVerification  AuditEventType = "source_verification"
	AuditConflictResolution  AuditEventType = "conflict_resolution"
	AuditDataExport          AuditEventType = "data_export"
	AuditUserAccess          AuditEventType = "user_access"
)

// AuditEvent is an immutable, append-only log entry.
type AuditEvent struct {
	ID            string
	EventType     AuditEventType
	EntityType    string
	EntityID      string
	RequestID     string
	OldValues     map[string]any
	NewValues     map[string]any
	Actor         string
	CorrelationID string
	Timestamp     time.Time
	IPAddress     string
	UserAgent     string
}

// PipelineStageEvent records one stage execution (or skip) for audit/replay.
type PipelineStageEvent struct {
	ID          string
	RequestID   string
	CategoryID  string
	StageName   Stage
	Order       int
	Executed    bool
	Skipped     bool
	InputDigest string
	OutputDigest string
	DurationMS  int64
	Timestamp   time.Time
}
