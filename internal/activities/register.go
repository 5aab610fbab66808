package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.MarkProcessingActivity)
	w.RegisterActivity(a.ExtractTextActivity)
	w.RegisterActivity(a.ChunkTextActivity)
	w.RegisterActivity(a.EmbedChunksActivity)
	w.RegisterActivity(a.ReplaceChunksActivity)
	w.RegisterActivity(a.CompleteDocumentActivity)
	w.RegisterActivity(a.FailDocumentActivity)
}
