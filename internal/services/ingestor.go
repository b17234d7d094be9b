package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/documentingest/internal/gcp"
	"github.com/Lllllllleong/documentingest/internal/models"
)

// ObjectFetcher returns the content and content type of one stored object.
type ObjectFetcher interface {
	Fetch(ctx context.Context, bucket, object string) ([]byte, string, error)
}

// Extractor runs one document-understanding call and returns the
// extracted properties.
type Extractor interface {
	Extract(ctx context.Context, prompt string, content []byte, mediaType string) (map[string]any, error)
}

// RecordWriter persists one flattened ingestion record.
type RecordWriter interface {
	Put(ctx context.Context, id string, fields map[string]any) error
}

// IngestorConfig holds all configuration for the ingestion service.
type IngestorConfig struct {
	ProjectID        string
	CollectionName   string
	VertexAIRegion   string
	ModelID          string
	Temperature      float32
	ResourceDir      string
	Concurrency      int
	WorkflowID       string
	WorkflowLocation string
}

// IngestorFunction holds the dependencies for the batch ingestion logic.
type IngestorFunction struct {
	fetcher          ObjectFetcher
	extractor        Extractor
	writer           RecordWriter
	executionsClient *executions.Client
	templates        *TemplateSet
	config           IngestorConfig

	now   func() time.Time
	newID func() string
}

// loadIngestorConfig loads and validates all environment variables for
// this service.
func loadIngestorConfig() (*IngestorConfig, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	collection := gcp.GetEnv("FIRESTORE_COLLECTION", "")
	if collection == "" {
		return nil, fmt.Errorf("FIRESTORE_COLLECTION environment variable must be set")
	}
	temperature, err := strconv.ParseFloat(gcp.GetEnv("EXTRACTION_TEMPERATURE", "0.0"), 32)
	if err != nil {
		return nil, fmt.Errorf("EXTRACTION_TEMPERATURE must be a number: %w", err)
	}
	concurrency, err := strconv.Atoi(gcp.GetEnv("INGEST_CONCURRENCY", "4"))
	if err != nil || concurrency < 1 {
		return nil, fmt.Errorf("INGEST_CONCURRENCY must be a positive integer")
	}

	return &IngestorConfig{
		ProjectID:        projectID,
		CollectionName:   collection,
		VertexAIRegion:   gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		ModelID:          gcp.GetEnv("EXTRACTION_MODEL_ID", "gemini-1.5-pro"),
		Temperature:      float32(temperature),
		ResourceDir:      gcp.GetEnv("RESOURCE_DIR", "."),
		Concurrency:      concurrency,
		WorkflowID:       gcp.GetEnv("WORKFLOW_ID", ""),
		WorkflowLocation: gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
	}, nil
}

// NewIngestor creates a fully wired IngestorFunction instance.
func NewIngestor(ctx context.Context) (*IngestorFunction, error) {
	config, err := loadIngestorConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	templates, err := LoadTemplates(config.ResourceDir)
	if err != nil {
		return nil, err
	}

	fetcher, err := gcp.NewStorageFetcher(ctx)
	if err != nil {
		return nil, err
	}
	vertexClient, err := gcp.NewVertexClient(ctx, config.ProjectID, config.VertexAIRegion, config.ModelID, config.Temperature)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}
	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, err
	}

	var executionsClient *executions.Client
	if config.WorkflowID != "" {
		executionsClient, err = executions.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
		}
	}

	f := &IngestorFunction{
		fetcher:          fetcher,
		extractor:        NewVertexExtractor(vertexClient),
		writer:           &firestoreRecordWriter{client: firestoreClient, collection: config.CollectionName},
		executionsClient: executionsClient,
		templates:        templates,
		config:           *config,
		now:              time.Now,
		newID:            uuid.NewString,
	}
	slog.Info("Ingestor initialized.", "collection", config.CollectionName, "model", config.ModelID)
	return f, nil
}

// firestoreRecordWriter writes flattened records into one collection.
// Firestore accepts the open-ended field map directly, so extracted
// properties become queryable fields without a migration.
type firestoreRecordWriter struct {
	client     *firestore.Client
	collection string
}

func (w *firestoreRecordWriter) Put(ctx context.Context, id string, fields map[string]any) error {
	_, err := w.client.Collection(w.collection).Doc(id).Set(ctx, fields)
	return err
}

// ProcessDocument runs the full pipeline for one document: fetch,
// fingerprint, inspect, prompt, extract, assemble, persist. Exactly
// one record write happens on success and none on failure; the record
// is assembled fully in memory before the write. Page-count inspection
// is best-effort and never fails the document.
func (f *IngestorFunction) ProcessDocument(ctx context.Context, bucket, object, uploadTime string) (*models.IngestionRecord, error) {
	logCtx := slog.With("bucket", bucket, "object", object)
	logCtx.Info("Processing document.")

	content, contentType, err := f.fetcher.Fetch(ctx, bucket, object)
	if err != nil {
		logCtx.Error("Download failed", "error", err)
		return nil, fmt.Errorf("failed to download document: %w", err)
	}

	fileHash := CalculateFileHash(content)
	pageCount, hasPageCount := PageCount(content, contentType)

	prompt, err := f.templates.RenderPrompt()
	if err != nil {
		logCtx.Error("Prompt rendering failed", "error", err)
		return nil, err
	}

	logCtx.Info("Invoking extraction model.", "contentType", contentType, "fileSize", len(content))
	extracted, err := f.extractor.Extract(ctx, prompt, content, contentType)
	if err != nil {
		logCtx.Error("Extraction failed", "error", err)
		return nil, err
	}

	record := &models.IngestionRecord{
		ID:             f.newID(),
		DocumentName:   object,
		Bucket:         bucket,
		UploadTime:     uploadTime,
		ProcessingTime: f.now().UTC().Format(time.RFC3339Nano),
		FileHash:       fileHash,
		FileSize:       len(content),
		ContentType:    contentType,
		PageCount:      pageCount,
		HasPageCount:   hasPageCount,
		Extracted:      extracted,
	}
	for _, name := range record.OverwrittenFixedFields() {
		logCtx.Debug("Extracted property shadows a fixed record field.", "field", name)
	}

	if err := f.writer.Put(ctx, record.ID, record.Flatten()); err != nil {
		logCtx.Error("Record write failed", "error", err)
		return nil, fmt.Errorf("failed to store record: %w", err)
	}
	logCtx.Info("Stored record.", "recordId", record.ID)

	f.maybeTriggerWorkflow(ctx, logCtx, record)
	return record, nil
}

// maybeTriggerWorkflow hands a persisted record off to the downstream
// workflow, if one is configured. The record is already stored at this
// point, so a trigger failure is logged and not surfaced.
func (f *IngestorFunction) maybeTriggerWorkflow(ctx context.Context, logCtx *slog.Logger, record *models.IngestionRecord) {
	if f.executionsClient == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"recordId": record.ID,
		"bucket":   record.Bucket,
		"document": record.DocumentName,
	})
	if err != nil {
		logCtx.Error("Failed to marshal workflow payload", "error", err)
		return
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s",
			f.config.ProjectID, f.config.WorkflowLocation, f.config.WorkflowID),
		Execution: &executionspb.Execution{
			Argument: string(payload),
		},
	}
	if _, err := f.executionsClient.CreateExecution(ctx, req); err != nil {
		logCtx.Error("Failed to trigger downstream workflow", "error", err, "workflowId", f.config.WorkflowID)
		return
	}
	logCtx.Info("Triggered downstream workflow.", "workflowId", f.config.WorkflowID)
}

// HandleBatch unwraps the transport envelopes of one invocation and
// processes every document they reference. Failures are isolated: a
// malformed envelope contributes one failure entry at its own level,
// and a failed document never stops its siblings.
func (f *IngestorFunction) HandleBatch(ctx context.Context, batch *models.BatchEvent) *models.BatchResponse {
	response := &models.BatchResponse{}

	for _, message := range batch.Messages {
		event, err := decodeStorageEvent(message.Body)
		if err != nil {
			slog.Error("Failed to unwrap queue message", "messageId", message.MessageID, "error", err)
			response.AddFailure("", err.Error())
			continue
		}
		f.processStorageEvent(ctx, event, response)
	}

	slog.Info("Batch complete.", "processed", response.Processed, "errors", response.Errors)
	return response
}

// decodeStorageEvent unwraps the two envelope layers inside a queue
// message body. Each layer is decoded separately so the failure entry
// names the level that was malformed.
func decodeStorageEvent(body string) (*models.StorageEvent, error) {
	var notification models.Notification
	if err := json.Unmarshal([]byte(body), &notification); err != nil {
		return nil, fmt.Errorf("failed to decode notification envelope: %w", err)
	}
	if notification.Message == "" {
		return nil, fmt.Errorf("notification envelope is missing its message field")
	}

	var event models.StorageEvent
	if err := json.Unmarshal([]byte(notification.Message), &event); err != nil {
		return nil, fmt.Errorf("failed to decode storage event: %w", err)
	}
	return &event, nil
}

type documentOutcome struct {
	document string
	recordID string
	err      error
}

// processStorageEvent fans out over the document-change records of one
// storage event with a bounded number of workers. Outcomes are written
// to indexed slots and appended afterwards, so the response preserves
// input order regardless of completion order.
func (f *IngestorFunction) processStorageEvent(ctx context.Context, event *models.StorageEvent, response *models.BatchResponse) {
	outcomes := make([]documentOutcome, len(event.Records))

	var eg errgroup.Group
	eg.SetLimit(f.config.Concurrency)

	for i, rec := range event.Records {
		outcomes[i].document = decodeObjectKey(rec.Object)
		eg.Go(func() error {
			record, err := f.ProcessDocument(ctx, rec.Bucket, outcomes[i].document, rec.EventTime)
			if err != nil {
				outcomes[i].err = err
				return nil
			}
			outcomes[i].recordID = record.ID
			return nil
		})
	}
	_ = eg.Wait()

	for _, outcome := range outcomes {
		if outcome.err != nil {
			response.AddFailure(outcome.document, outcome.err.Error())
			continue
		}
		response.AddSuccess(outcome.document, outcome.recordID)
	}
}

// decodeObjectKey percent-decodes an object key ("+" encodes a space).
// A malformed escape falls back to the raw key: the notification
// source never produces one, and rejecting the document outright would
// lose it entirely.
func decodeObjectKey(raw string) string {
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		slog.Warn("Object key is not valid percent-encoding; using raw key.", "key", raw)
		return raw
	}
	return decoded
}

// GCSEvent is the payload of a direct storage-object trigger.
type GCSEvent struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	TimeCreated string `json:"timeCreated"`
}

// IngestObject processes one object delivered by a direct storage
// trigger, bypassing the queue and notification envelopes. Returning
// an error marks the invocation as failed.
func (f *IngestorFunction) IngestObject(ctx context.Context, e GCSEvent) error {
	record, err := f.ProcessDocument(ctx, e.Bucket, e.Name, e.TimeCreated)
	if err != nil {
		return err
	}
	slog.Info("Object ingested.", "bucket", e.Bucket, "object", e.Name, "recordId", record.ID)
	return nil
}
