package models

import "time"

const (
	JobStatusValidating = "VALIDATING"
	JobStatusAssembled  = "ASSEMBLED"
	JobStatusSplitting  = "SPLITTING"
	JobStatusGenerated  = "GENERATED"
	JobStatusCompleted  = "COMPLETED"
	JobStatusFailed     = "FAILED"
)

// Job is the Firestore record of a single generation or assembly run.
type Job struct {
	FileHash            string    `firestore:"fileHash,omitempty"`
	SourceObject        string    `firestore:"sourceObject,omitempty"`
	DocType             string    `firestore:"docType,omitempty"`
	Format              string    `firestore:"format,omitempty"`
	Status              string    `firestore:"status,omitempty"`
	ErrorDetails        string    `firestore:"errorDetails,omitempty"`
	PageCount           int       `firestore:"pageCount,omitempty"`
	OutputGCSUri        string    `firestore:"outputGcsUri,omitempty"`
	WorkflowExecutionID string    `firestore:"workflowExecutionId,omitempty"`
	CreatedAt           time.Time `firestore:"createdAt,omitempty"`
}
