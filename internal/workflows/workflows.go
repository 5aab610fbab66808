package workflows

import (
	"errors"
	"time"

	"edurag/internal/activities"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	QueryGetDocumentStatus = "GetDocumentStatus"

	ResultCompleted = "completed"
	ResultError     = "error"

	stepMarkProcessing = "mark_processing"
	stepExtract        = "extract_text"
	stepChunk          = "chunk_text"
	stepEmbed          = "embed_chunks"
	stepStore          = "replace_chunks"
	stepComplete       = "complete_document"
)

// WorkflowID is the Temporal workflow id for a document's processing run.
func WorkflowID(documentID string) string {
	return "document-" + documentID
}

// single attempt: extraction and chunking are deterministic, embedding
// retries inside the generator
func computeOptions(timeout time.Duration) workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	}
}

func storageOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	}
}

// DocumentProcessWorkflow runs extract, chunk, embed and store for one
// document. A failing step hands over to FailDocumentActivity and the
// workflow returns "error"; document errors never fail the workflow itself.
func DocumentProcessWorkflow(ctx workflow.Context, input DocumentProcessInput) (string, error) {
	progress := DocumentProgress{
		DocumentID:  input.DocumentID,
		CurrentStep: "init",
		Status:      "processing",
		Steps:       map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetDocumentStatus, func() (DocumentProgress, error) {
		return progress, nil
	}); err != nil {
		return "", err
	}
	logger := workflow.GetLogger(ctx)
	storeCtx := workflow.WithActivityOptions(ctx, storageOptions())
	computeCtx := workflow.WithActivityOptions(ctx, computeOptions(5*time.Minute))
	embedCtx := workflow.WithActivityOptions(ctx, computeOptions(30*time.Minute))
	doc := activities.DocumentInput{DocumentID: input.DocumentID}

	begin := func(step string) {
		progress.CurrentStep = step
		progress.Steps[step] = "processing"
	}
	fail := func(err error) (string, error) {
		step := progress.CurrentStep
		progress.Steps[step] = "failed"
		progress.Status = ResultError
		progress.Error = failureMessage(err)
		logger.Warn("document step failed", "DocumentID", input.DocumentID, "Step", step, "Error", err)
		if ferr := workflow.ExecuteActivity(storeCtx, "FailDocumentActivity", activities.FailDocumentInput{
			DocumentID: input.DocumentID,
			Step:       step,
			Message:    progress.Error,
		}).Get(ctx, nil); ferr != nil {
			return "", ferr
		}
		return ResultError, nil
	}

	begin(stepMarkProcessing)
	if err := workflow.ExecuteActivity(storeCtx, "MarkProcessingActivity", doc).Get(ctx, nil); err != nil {
		// the document never entered processing, so there is nothing to fail
		return "", err
	}
	progress.Steps[stepMarkProcessing] = "done"

	begin(stepExtract)
	var textOut activities.ExtractTextOutput
	if err := workflow.ExecuteActivity(computeCtx, "ExtractTextActivity", doc).Get(ctx, &textOut); err != nil {
		return fail(err)
	}
	progress.Steps[stepExtract] = "done"

	begin(stepChunk)
	var chunkOut activities.ChunkTextOutput
	if err := workflow.ExecuteActivity(computeCtx, "ChunkTextActivity", activities.ChunkTextInput{
		DocumentID:   input.DocumentID,
		ContextID:    input.ContextID,
		Text:         textOut.Text,
		ChunkSize:    input.ChunkSize,
		ChunkOverlap: input.ChunkOverlap,
	}).Get(ctx, &chunkOut); err != nil {
		return fail(err)
	}
	progress.Steps[stepChunk] = "done"

	begin(stepEmbed)
	var embedOut activities.EmbedChunksOutput
	if err := workflow.ExecuteActivity(embedCtx, "EmbedChunksActivity", activities.EmbedChunksInput{
		DocumentID: input.DocumentID,
		Chunks:     chunkOut.Chunks,
	}).Get(ctx, &embedOut); err != nil {
		return fail(err)
	}
	progress.Steps[stepEmbed] = "done"

	begin(stepStore)
	var storeOut activities.ReplaceChunksOutput
	if err := workflow.ExecuteActivity(storeCtx, "ReplaceChunksActivity", activities.ReplaceChunksInput{
		DocumentID: input.DocumentID,
		Chunks:     embedOut.Chunks,
	}).Get(ctx, &storeOut); err != nil {
		return fail(err)
	}
	progress.Steps[stepStore] = "done"

	begin(stepComplete)
	if err := workflow.ExecuteActivity(storeCtx, "CompleteDocumentActivity", activities.CompleteDocumentInput{
		DocumentID:  input.DocumentID,
		TotalChunks: storeOut.Written,
	}).Get(ctx, nil); err != nil {
		return fail(err)
	}
	progress.Steps[stepComplete] = "done"
	progress.CurrentStep = "done"
	progress.Status = ResultCompleted
	progress.TotalChunks = storeOut.Written
	return ResultCompleted, nil
}

// failureMessage prefers the activity's own message over Temporal's wrapping.
func failureMessage(err error) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) && appErr.Message() != "" {
		return appErr.Message()
	}
	var timeoutErr *temporal.TimeoutError
	if errors.As(err, &timeoutErr) {
		return "step timed out: " + timeoutErr.Error()
	}
	return err.Error()
}
