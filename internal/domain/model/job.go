package model

// IngestStatus is the outcome of one ingestion attempt.
type IngestStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Ingestion outcomes.
const (
	StatusSuccess   = "success"
	StatusDuplicate = "duplicate"
	StatusNotFound  = "not_found"
	StatusMalformed = "malformed"
	StatusError     = "error"
)

// IngestJob is a telemetry payload waiting for asynchronous ingestion.
// When Reply is non-nil the worker sends the outcome on it without
// blocking, so callers should give it a buffer of one.
type IngestJob struct {
	JobID      string
	ScheduleID string
	Telemetry  Telemetry
	Reply      chan IngestStatus
}
