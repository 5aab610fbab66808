package activities

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/temporal"
)

// RunInline drives one document through the processing steps in-process,
// in the order DocumentProcessWorkflow uses. A failing step is recorded on
// the document and returned.
func (a *Activities) RunInline(ctx context.Context, documentID, contextID string) error {
	doc := DocumentInput{DocumentID: documentID}
	if err := a.MarkProcessingActivity(ctx, doc); err != nil {
		return err
	}
	fail := func(step string, err error) error {
		msg := err.Error()
		var appErr *temporal.ApplicationError
		if errors.As(err, &appErr) && appErr.Message() != "" {
			msg = appErr.Message()
		}
		if ferr := a.FailDocumentActivity(ctx, FailDocumentInput{DocumentID: documentID, Step: step, Message: msg}); ferr != nil {
			return ferr
		}
		return fmt.Errorf("%s: %s", step, msg)
	}

	text, err := a.ExtractTextActivity(ctx, doc)
	if err != nil {
		return fail("extract_text", err)
	}
	chunks, err := a.ChunkTextActivity(ctx, ChunkTextInput{DocumentID: documentID, ContextID: contextID, Text: text.Text})
	if err != nil {
		return fail("chunk_text", err)
	}
	embedded, err := a.EmbedChunksActivity(ctx, EmbedChunksInput{DocumentID: documentID, Chunks: chunks.Chunks})
	if err != nil {
		return fail("embed_chunks", err)
	}
	stored, err := a.ReplaceChunksActivity(ctx, ReplaceChunksInput{DocumentID: documentID, Chunks: embedded.Chunks})
	if err != nil {
		return fail("replace_chunks", err)
	}
	if err := a.CompleteDocumentActivity(ctx, CompleteDocumentInput{DocumentID: documentID, TotalChunks: stored.Written}); err != nil {
		return fail("complete_document", err)
	}
	return nil
}
