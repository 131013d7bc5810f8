package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/docassembly/internal/gcp"
	"github.com/Lllllllleong/docassembly/internal/models"
)

type AssemblerConfig struct {
	ProjectID         string
	OutputBucket      string
	CollectionName    string
	WorkflowID        string
	WorkflowLocation  string
	UploadConcurrency int
	Orientation       models.Orientation
}

// AssemblerFunction turns uploaded court order scans into the combined
// layout and publishes the result page by page.
type AssemblerFunction struct {
	storageClient    *storage.Client
	firestoreClient  *firestore.Client
	executionsClient *executions.Client
	docs             *DocumentService
	config           AssemblerConfig
}

type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// LoadAssemblerConfig reads the assembler configuration from the environment.
func LoadAssemblerConfig() (AssemblerConfig, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return AssemblerConfig{}, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	concurrency, err := strconv.Atoi(gcp.GetEnv("UPLOAD_CONCURRENCY", "10"))
	if err != nil || concurrency < 1 {
		return AssemblerConfig{}, fmt.Errorf("UPLOAD_CONCURRENCY must be a positive integer")
	}
	orientation, err := models.ParseOrientation(gcp.GetEnv("COMBINE_ORIENTATION", "portrait"))
	if err != nil {
		return AssemblerConfig{}, fmt.Errorf("COMBINE_ORIENTATION: %w", err)
	}

	config := AssemblerConfig{
		ProjectID:         projectID,
		OutputBucket:      gcp.GetEnv("OUTPUT_BUCKET", ""),
		CollectionName:    gcp.GetEnv("FIRESTORE_COLLECTION", "document_jobs"),
		WorkflowLocation:  gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
		WorkflowID:        gcp.GetEnv("WORKFLOW_ID", ""),
		UploadConcurrency: concurrency,
		Orientation:       orientation,
	}
	if config.OutputBucket == "" {
		return AssemblerConfig{}, fmt.Errorf("OUTPUT_BUCKET environment variable must be set")
	}
	return config, nil
}

func NewAssembler(ctx context.Context) (*AssemblerFunction, error) {
	config, err := LoadAssemblerConfig()
	if err != nil {
		return nil, err
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	f := &AssemblerFunction{
		firestoreClient: firestoreClient,
		storageClient:   storageClient,
		docs:            NewDocumentService(nil, nil, nil),
		config:          config,
	}
	if config.WorkflowID != "" {
		if f.executionsClient, err = executions.NewClient(ctx); err != nil {
			return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
		}
	}
	slog.Info("PDF assembler logic initialized.", "workflowId", config.WorkflowID, "orientation", config.Orientation.String())
	return f, nil
}

func (f *AssemblerFunction) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	if !strings.EqualFold(path.Ext(e.Name), ".pdf") {
		logCtx.Info("Ignoring non-PDF object.")
		return nil
	}
	logCtx.Info("Processing new GCS object.")

	source, err := gcp.ReadObject(ctx, f.storageClient.Bucket(e.Bucket), e.Name)
	if err != nil {
		logCtx.Error("Failed to download source PDF", "error", err)
		return err
	}

	fileHash := calculateHash(source)
	logCtx = logCtx.With("fileHash", fileHash)

	isDuplicate, docID, err := f.isDuplicate(ctx, fileHash)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return err
	}
	if isDuplicate {
		logCtx.Info("Duplicate file detected. Skipping.", "existingDocId", docID)
		return nil
	}

	docRef, err := f.createInitialDocument(ctx, fileHash, e.Name)
	if err != nil {
		logCtx.Error("Failed to create initial Firestore document", "error", err)
		return err
	}
	logCtx = logCtx.With("documentId", docRef.ID)
	logCtx.Info("Created job document in Firestore.")

	assembled, pageCount, err := f.assemble(ctx, logCtx, docRef, source)
	if err != nil {
		return err
	}

	if err := f.uploadPages(ctx, logCtx, docRef, assembled, pageCount); err != nil {
		return err
	}

	assembledURI := fmt.Sprintf("gs://%s/%s", f.config.OutputBucket, assembledObject(docRef.ID))
	if err := f.triggerWorkflow(ctx, logCtx, docRef, pageCount, assembledURI); err != nil {
		return err
	}

	if err := f.updateStatus(ctx, docRef, models.JobStatusCompleted, ""); err != nil {
		logCtx.Error("Failed to update status to COMPLETED", "error", err)
		return err
	}
	logCtx.Info("Assembly complete.")
	return nil
}

func (f *AssemblerFunction) isDuplicate(ctx context.Context, fileHash string) (bool, string, error) {
	docs, err := f.firestoreClient.Collection(f.config.CollectionName).Where("fileHash", "==", fileHash).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return false, "", fmt.Errorf("failed to query for duplicates: %w", err)
	}
	if len(docs) > 0 {
		return true, docs[0].Ref.ID, nil
	}
	return false, "", nil
}

func (f *AssemblerFunction) createInitialDocument(ctx context.Context, fileHash, filename string) (*firestore.DocumentRef, error) {
	newDoc := models.Job{
		FileHash:     fileHash,
		SourceObject: filename,
		DocType:      string(models.DocTypeCourtOrder),
		Format:       models.FormatPDF.String(),
		Status:       models.JobStatusValidating,
		CreatedAt:    time.Now(),
	}
	docRef, _, err := f.firestoreClient.Collection(f.config.CollectionName).Add(ctx, newDoc)
	if err != nil {
		return nil, fmt.Errorf("failed to create job document: %w", err)
	}
	return docRef, nil
}

// assemble runs the court order recipe and stores the combined PDF.
func (f *AssemblerFunction) assemble(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, source []byte) ([]byte, int, error) {
	req := CourtOrderRequest{
		PDF:         source,
		Options:     models.Options{NeedCombine: true},
		Orientation: f.config.Orientation,
	}
	content, err := f.docs.Get(ctx, models.DocTypeCourtOrder, req, models.FormatPDF)
	if err != nil {
		return nil, 0, f.handleError(ctx, logCtx, docRef, "failed to assemble court order", err)
	}
	assembled, err := models.Drain(content)
	if err != nil {
		return nil, 0, f.handleError(ctx, logCtx, docRef, "failed to read assembled PDF", err)
	}
	pageCount, err := f.docs.CountPages(models.FormatPDF, assembled)
	if err != nil {
		return nil, 0, f.handleError(ctx, logCtx, docRef, "failed to get page count", err)
	}

	if err := f.uploadFile(ctx, assembledObject(docRef.ID), assembled); err != nil {
		return nil, 0, f.handleError(ctx, logCtx, docRef, "failed to store assembled PDF", err)
	}
	extra := map[string]interface{}{
		"pageCount":    pageCount,
		"outputGcsUri": fmt.Sprintf("gs://%s/%s", f.config.OutputBucket, assembledObject(docRef.ID)),
	}
	if _, err := docRef.Update(ctx, gcp.JobUpdates(models.JobStatusAssembled, "", extra)); err != nil {
		return nil, 0, f.handleError(ctx, logCtx, docRef, "failed to update status to ASSEMBLED", err)
	}
	logCtx.Info("Court order assembled.", "pageCount", pageCount, "sourceBytes", len(source), "assembledBytes", len(assembled))
	return assembled, pageCount, nil
}

func (f *AssemblerFunction) uploadPages(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, assembled []byte, pageCount int) error {
	if err := f.updateStatus(ctx, docRef, models.JobStatusSplitting, ""); err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to update status to SPLITTING", err)
	}
	logCtx.Info("Starting concurrent upload of pages.", "pageCount", pageCount)
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(f.config.UploadConcurrency)

	for i := 1; i <= pageCount; i++ {
		pageNumber := i
		eg.Go(func() error {
			page, err := f.docs.Split(assembled, pageNumber, pageNumber)
			if err != nil {
				return fmt.Errorf("page %d: %w", pageNumber, err)
			}
			data, err := models.Drain(page)
			if err != nil {
				return fmt.Errorf("page %d: %w", pageNumber, err)
			}
			if err := f.uploadFile(gctx, PageObject(docRef.ID, pageNumber), data); err != nil {
				return fmt.Errorf("page %d: %w", pageNumber, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return f.handleError(ctx, logCtx, docRef, "one or more pages failed to upload", err)
	}
	logCtx.Info("All pages uploaded successfully.")
	return nil
}

func (f *AssemblerFunction) triggerWorkflow(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, pageCount int, assembledURI string) error {
	if f.executionsClient == nil {
		logCtx.Info("No workflow configured. Skipping hand-off.")
		return nil
	}
	logCtx.Info("Triggering workflow.")
	payloadBytes, err := json.Marshal(WorkflowPayload(docRef.ID, pageCount, assembledURI))
	if err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to marshal workflow payload", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", f.config.ProjectID, f.config.WorkflowLocation, f.config.WorkflowID),
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	}
	execution, err := f.executionsClient.CreateExecution(ctx, req)
	if err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to trigger workflow execution", err)
	}
	if _, err := docRef.Update(ctx, []firestore.Update{{Path: "workflowExecutionId", Value: execution.GetName()}}); err != nil {
		logCtx.Warn("Failed to record workflow execution.", "error", err)
	}
	return nil
}

func (f *AssemblerFunction) handleError(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	if err := f.updateStatus(ctx, docRef, models.JobStatusFailed, fullError); err != nil {
		logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s", fullError)
}

func (f *AssemblerFunction) updateStatus(ctx context.Context, docRef *firestore.DocumentRef, status, errDetails string) error {
	_, err := docRef.Update(ctx, gcp.JobUpdates(status, errDetails, nil))
	return err
}

func (f *AssemblerFunction) uploadFile(ctx context.Context, destObject string, data []byte) error {
	const maxRetries = 4
	var backoff = 1 * time.Second
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := func() error {
			writeCtx, cancel := context.WithTimeout(ctx, time.Second*50)
			defer cancel()

			gcsWriter := f.storageClient.Bucket(f.config.OutputBucket).Object(destObject).NewWriter(writeCtx)
			gcsWriter.ContentType = models.FormatPDF.ContentType()

			if _, err := io.Copy(gcsWriter, bytes.NewReader(data)); err != nil {
				_ = gcsWriter.Close()
				return fmt.Errorf("io.Copy to GCS failed: %w", err)
			}

			if err := gcsWriter.Close(); err != nil {
				return fmt.Errorf("failed to close GCS writer (finalize upload): %w", err)
			}
			return nil
		}()

		if err == nil {
			return nil
		}

		lastErr = err
		slog.Warn(
			"Upload failed, will retry.",
			"gcsObject", destObject,
			"attempt", i+1,
			"maxRetries", maxRetries,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			slog.Error("Context cancelled during backoff. Aborting retries.", "gcsObject", destObject, "error", ctx.Err())
			return ctx.Err()
		}
	}
	slog.Error("Upload failed after all retries.", "gcsObject", destObject, "error", lastErr)
	return fmt.Errorf("upload for %s failed after all retries: %w", destObject, lastErr)
}

// PageObject is the object name of a single published page.
func PageObject(documentID string, page int) string {
	return fmt.Sprintf("%s/pages/%05d.pdf", documentID, page)
}

func assembledObject(documentID string) string {
	return documentID + "/assembled.pdf"
}

// WorkflowPayload is the argument handed to the downstream workflow.
func WorkflowPayload(documentID string, pageCount int, assembledURI string) map[string]interface{} {
	return map[string]interface{}{
		"documentId":      documentID,
		"pageCount":       pageCount,
		"assembledGcsUri": assembledURI,
	}
}

func calculateHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
