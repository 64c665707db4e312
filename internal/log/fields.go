package log

// Common field names for structured logging.
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldUserID      = "user_id"
	FieldUpdateID    = "update_id"
	FieldTxID        = "transaction_id"
	FieldCategory    = "category"
	FieldAmountCents = "amount_cents"
	FieldTxType      = "transaction_type"
)

// Components defines standard component names.
const (
	ComponentApp    = "app"
	ComponentWorker = "worker"
)
