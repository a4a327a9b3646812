package logging

// Standardized field names shared across components.
const (
	FieldComponent = "component"
	FieldJobID     = "job_id"
	FieldPlatform  = "platform"
	FieldWorkerID  = "worker_id"
	FieldRequestID = "request_id"
	FieldEventType = "event_type"
	FieldErrorCode = "error_code"
	FieldErrorHint = "error_hint"
	FieldAttempt   = "attempt"
)
