package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/Lllllllleong/docassembly/internal/archive"
	"github.com/Lllllllleong/docassembly/internal/conversion"
	"github.com/Lllllllleong/docassembly/internal/gcp"
	"github.com/Lllllllleong/docassembly/internal/models"
)

// GeneratorConfig holds configuration for the generator service.
type GeneratorConfig struct {
	ProjectID      string
	TemplateBucket string
	OutputBucket   string
	CollectionName string
	ConverterURLs  []string
}

// GeneratorFunction fills templates stored in GCS and publishes the results.
type GeneratorFunction struct {
	storageClient   *storage.Client
	firestoreClient *firestore.Client
	docs            *DocumentService
	config          GeneratorConfig
}

// NewGenerator creates a new GeneratorFunction instance.
func NewGenerator(ctx context.Context) (*GeneratorFunction, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	config := GeneratorConfig{
		ProjectID:      projectID,
		TemplateBucket: gcp.GetEnv("TEMPLATE_BUCKET", ""),
		OutputBucket:   gcp.GetEnv("OUTPUT_BUCKET", ""),
		CollectionName: gcp.GetEnv("FIRESTORE_COLLECTION", "document_jobs"),
		ConverterURLs:  gcp.SplitList(gcp.GetEnv("CONVERTER_URLS", "")),
	}
	if config.TemplateBucket == "" || config.OutputBucket == "" {
		return nil, fmt.Errorf("TEMPLATE_BUCKET and OUTPUT_BUCKET must be set")
	}

	gateway, err := conversion.NewGateway(config.ConverterURLs)
	if err != nil {
		return nil, fmt.Errorf("CONVERTER_URLS: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	modifiers, renderers := NewRequestRegistries()
	slog.Info("Document generator initialized.", "converterBackends", len(config.ConverterURLs))
	return &GeneratorFunction{
		storageClient:   storageClient,
		firestoreClient: firestoreClient,
		docs:            NewDocumentService(gateway, modifiers, renderers),
		config:          config,
	}, nil
}

// Process generates the document described by req and stores it under
// OUTPUT_BUCKET/<jobId>/.
func (f *GeneratorFunction) Process(ctx context.Context, req *models.GenerateRequest) (*models.GenerateResponse, error) {
	jobID := uuid.NewString()
	logCtx := slog.With("jobId", jobID, "format", req.Format, "docType", req.DocType)
	logCtx.Info("Starting generation.")

	format, err := models.ParseFormat(req.Format)
	if err != nil {
		logCtx.Warn("Rejected request.", "error", err)
		return nil, err
	}

	docRef := f.firestoreClient.Collection(f.config.CollectionName).Doc(jobID)
	job := models.Job{
		SourceObject: req.TemplateObject,
		DocType:      req.DocType,
		Format:       format.String(),
		Status:       models.JobStatusValidating,
		CreatedAt:    time.Now(),
	}
	if _, err := docRef.Set(ctx, job); err != nil {
		logCtx.Error("Failed to create job document", "error", err)
		return nil, fmt.Errorf("failed to create job document: %w", err)
	}

	content, err := f.generate(ctx, req, format)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to generate document", err)
	}
	pageCount, _ := pageCountOf(content)

	data, err := models.Drain(content)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to read generated content", err)
	}
	name := req.OutputName
	if name == "" {
		name = "document"
	}
	objectName := fmt.Sprintf("%s/%s%s", jobID, name, content.Format().Extension())
	bucket := f.storageClient.Bucket(f.config.OutputBucket)
	if err := gcp.SaveToGCSAtomically(ctx, bucket, objectName, data, content.Format().ContentType()); err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to store generated document", err)
	}

	outputGCSUri := fmt.Sprintf("gs://%s/%s", f.config.OutputBucket, objectName)
	extra := map[string]interface{}{"outputGcsUri": outputGCSUri}
	if pageCount > 0 {
		extra["pageCount"] = pageCount
	}
	if _, err := docRef.Update(ctx, gcp.JobUpdates(models.JobStatusGenerated, "", extra)); err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to update status to GENERATED", err)
	}

	logCtx.Info("Generation complete.", "gcsObject", objectName, "bytes", len(data))
	return &models.GenerateResponse{
		Status:       "success",
		JobID:        jobID,
		OutputGCSUri: outputGCSUri,
		PageCount:    pageCount,
	}, nil
}

func (f *GeneratorFunction) generate(ctx context.Context, req *models.GenerateRequest, format models.Format) (models.Content, error) {
	switch {
	case req.DocType != "":
		return f.recipe(ctx, req, format)
	case req.SourcePrefix != "":
		if format != models.FormatPDF {
			return nil, models.NewUnsupportedFormatError("merge", format)
		}
		return f.MergePrefix(ctx, f.config.TemplateBucket, req.SourcePrefix, req.CountPages)
	}

	switch format {
	case models.FormatZIP:
		return f.zip(ctx, req)
	case models.FormatDOCX, models.FormatPDF, models.FormatTXT, models.FormatXLSX:
	default:
		return nil, models.NewUnsupportedFormatError("generate", format)
	}

	src, err := f.loadSource(ctx, req)
	if err != nil {
		return nil, err
	}
	switch format {
	case models.FormatDOCX:
		return f.docs.Docx(ctx, src, req.CountPages)
	case models.FormatPDF:
		return f.docs.PDF(ctx, src, req.CountPages)
	case models.FormatTXT:
		return f.docs.Txt(src)
	}
	return f.docs.Xlsx(src)
}

func (f *GeneratorFunction) recipe(ctx context.Context, req *models.GenerateRequest, format models.Format) (models.Content, error) {
	docType, err := models.ParseDocType(req.DocType)
	if err != nil {
		return nil, err
	}
	orientation, err := models.ParseOrientation(req.Orientation)
	if err != nil {
		return nil, err
	}
	if req.SourceObject == "" {
		return nil, fmt.Errorf("sourceObject must be set for document type %s", docType)
	}
	pdf, err := gcp.ReadObject(ctx, f.storageClient.Bucket(f.config.TemplateBucket), req.SourceObject)
	if err != nil {
		return nil, err
	}
	return f.docs.Get(ctx, docType, CourtOrderRequest{PDF: pdf, Options: req.Options, Orientation: orientation}, format)
}

func (f *GeneratorFunction) zip(ctx context.Context, req *models.GenerateRequest) (models.Content, error) {
	if len(req.Archive) == 0 {
		return nil, fmt.Errorf("archive must list at least one entry")
	}
	var src *RequestSource
	if needsTemplate(req.Archive) {
		var err error
		if src, err = f.loadSource(ctx, req); err != nil {
			return nil, err
		}
	}

	bucket := f.storageClient.Bucket(f.config.TemplateBucket)
	externals := make(map[string]ExternalObject)
	for _, e := range req.Archive {
		switch e.Kind {
		case "docx", "pdf":
			continue
		case "external":
		default:
			return nil, models.NewUnknownValueError("archive entry kind", e.Kind)
		}
		if _, ok := externals[e.Object]; ok {
			continue
		}
		format, err := models.FormatFromPath(e.Object)
		if err != nil {
			return nil, err
		}
		data, err := gcp.ReadObject(ctx, bucket, e.Object)
		if err != nil {
			return nil, models.NewMissingResourceError(e.Object, err)
		}
		externals[e.Object] = ExternalObject{Data: data, Format: format}
	}

	return f.docs.Zip(ctx, ArchiveRecipe(req.Archive, src, externals))
}

// ExternalObject is a stored file copied into an archive as is.
type ExternalObject struct {
	Data   []byte
	Format models.Format
}

// ArchiveRecipe registers entries in request order. Every external entry
// gets a stream of its own, so one object may be listed more than once.
func ArchiveRecipe(entries []models.ArchiveEntry, src *RequestSource, externals map[string]ExternalObject) func(*archive.Builder) {
	return func(b *archive.Builder) {
		for _, e := range entries {
			naming := EntryNaming(e.Name)
			switch e.Kind {
			case "docx":
				b.Docx(src, e.CountPages, naming)
			case "pdf":
				b.PDF(src, e.CountPages, naming)
			case "external":
				ext := externals[e.Object]
				if e.Name == "" {
					naming = models.ConstantName(strings.TrimSuffix(path.Base(e.Object), path.Ext(e.Object)))
				}
				b.External(bytes.NewReader(ext.Data), ext.Format, naming)
			}
		}
	}
}

func needsTemplate(entries []models.ArchiveEntry) bool {
	for _, e := range entries {
		if e.Kind == "docx" || e.Kind == "pdf" {
			return true
		}
	}
	return false
}

// loadSource reads the template and images named by req.
func (f *GeneratorFunction) loadSource(ctx context.Context, req *models.GenerateRequest) (*RequestSource, error) {
	if req.TemplateObject == "" {
		return nil, fmt.Errorf("templateObject must be set")
	}
	bucket := f.storageClient.Bucket(f.config.TemplateBucket)
	template, err := gcp.ReadObject(ctx, bucket, req.TemplateObject)
	if err != nil {
		return nil, models.NewMissingResourceError(req.TemplateObject, err)
	}
	images := make(map[string][]byte, len(req.Images))
	for name, object := range req.Images {
		data, err := gcp.ReadObject(ctx, bucket, object)
		if err != nil {
			return nil, models.NewMissingResourceError(object, err)
		}
		images[name] = data
	}
	return NewRequestSource(req, template, images), nil
}

// MergePrefix concatenates the PDFs stored under prefix in object name order.
func (f *GeneratorFunction) MergePrefix(ctx context.Context, bucketName, prefix string, countPages bool) (*models.Document, error) {
	logCtx := slog.With("gcsBucket", bucketName, "prefix", prefix)
	bucket := f.storageClient.Bucket(bucketName)

	names, err := gcp.ListObjects(ctx, bucket, prefix)
	if err != nil {
		logCtx.Error("Failed to list objects in source bucket", "error", err)
		return nil, err
	}
	var parts [][]byte
	for _, name := range names {
		if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
			continue
		}
		data, err := gcp.ReadObject(ctx, bucket, name)
		if err != nil {
			return nil, err
		}
		parts = append(parts, data)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("no pdf objects found under %s", prefix)
	}
	logCtx.Info("Found and sorted files for merging.", "fileCount", len(parts))

	return f.docs.Merge(ctx, countPages, func(m *archive.MergedBuilder) {
		for _, p := range parts {
			m.PDFBytes(p)
		}
	})
}

func (f *GeneratorFunction) handleError(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	if _, err := docRef.Update(ctx, gcp.JobUpdates(models.JobStatusFailed, fullError, nil)); err != nil {
		logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s: %w", message, originalErr)
}

func pageCountOf(c models.Content) (int, bool) {
	if doc, ok := c.(*models.Document); ok {
		return doc.PageCount()
	}
	return 0, false
}
