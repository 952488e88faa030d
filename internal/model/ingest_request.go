package model

// IngestRequest is the queue message that triggers ingestion of one source
// object. It carries the object location and the tenant context; the worker
// fetches the object bytes itself.
type IngestRequest struct {
	SourceBucket string            `json:"source_bucket"`
	SourceKey    string            `json:"source_key"`
	DocumentName string            `json:"document_name,omitempty"`
	TenantID     string            `json:"tenant_id"`
	UserID       string            `json:"user_id"`
	ProjectID    string            `json:"project_id,omitempty"`
	ThreadID     string            `json:"thread_id,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}
