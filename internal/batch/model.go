package batch

import (
	"encoding/json"
	"time"
)

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
)

// Job is one batch valuation run over an uploaded CSV.
type Job struct {
	ID                string       `json:"id"`
	UserID            string       `json:"userId"`
	Status            string       `json:"status"`
	MinValue          float64      `json:"minMarketplaceValue"`
	TotalDomains      int          `json:"totalDomains"`
	FilteredDomains   int          `json:"filteredDomains"`
	ProcessedDomains  int          `json:"processedDomains"`
	QualifyingDomains int          `json:"qualifyingDomains"`
	SkippedRows       int          `json:"skippedRows"`
	CurrentBatch      int          `json:"currentBatch"`
	TotalBatches      int          `json:"totalBatches"`
	Progress          int          `json:"progress"`
	CancelRequested   bool         `json:"cancelRequested"`
	DownloadURL       string       `json:"downloadUrl,omitempty"`
	BatchErrors       []BatchError `json:"batchErrors,omitempty"`
	Errors            []JobError   `json:"errors,omitempty"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
	CompletedAt       *time.Time   `json:"completedAt,omitempty"`
}

// BatchError records one recoverable per-batch failure. The run continues
// after recording it.
type BatchError struct {
	Batch     int       `json:"batch"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// JobError records a fatal failure that ended the job.
type JobError struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// SubmitRequest is the payload that starts a batch valuation job. Rows carry
// the original CSV data so the result file can preserve it.
type SubmitRequest struct {
	CSVData             []json.RawMessage `json:"csvData"`
	CSVHeaders          []string          `json:"csvHeaders"`
	ColumnMappings      ColumnMappings    `json:"columnMappings"`
	MinMarketplaceValue float64           `json:"minMarketplaceValue"`
	APIKey              string            `json:"apiKey"`
}

// ColumnMappings names the CSV column that holds the domain.
type ColumnMappings struct {
	DomainColumn string `json:"domainColumn"`
}

// SubmitResponse acknowledges an accepted job.
type SubmitResponse struct {
	Success      bool   `json:"success"`
	JobID        string `json:"jobId"`
	TotalDomains int    `json:"totalDomains"`
}
