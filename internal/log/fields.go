package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldIngestionID   = "ingestion_id"
	FieldSource        = "source"
	FieldChatID        = "chat_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldDurationHuman = "duration_human"
	FieldUserAgent     = "user_agent"
	FieldReferer       = "referer"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldErrorType     = "error_type"
	FieldOperation     = "operation"
	FieldOutcome       = "outcome"
	FieldPartitionKey  = "partition_key"
	FieldPartitionID   = "partition_id"
	FieldDescription   = "description"
	FieldAmount        = "amount"
	FieldCategory      = "category"
	FieldPayment       = "payment_method"
	FieldLedgerRef     = "ledger_ref"
)

// Components defines standard component names
const (
	ComponentApp         = "app"
	ComponentHTTP        = "http"
	ComponentTelegram    = "telegram"
	ComponentIngress     = "ingress"
	ComponentPipeline    = "pipeline"
	ComponentSummarizer  = "summarizer"
	ComponentTranscriber = "transcriber"
	ComponentLedger      = "ledger"
	ComponentPartition   = "partition"
	ComponentStorage     = "storage"
	ComponentAMQP        = "amqp"
	ComponentWorker      = "worker"
	ComponentSheets      = "sheets"
	ComponentNotion      = "notion"
	ComponentRateLimit   = "rate_limit"
	ComponentTrace       = "trace"
	ComponentBackend     = "backend"
)

// Operations defines standard operation names
const (
	OpIngest     = "ingest"
	OpTranscribe = "transcribe"
	OpExtract    = "extract"
	OpSummarize  = "summarize"
	OpResolve    = "resolve"
	OpCreate     = "create"
	OpReply      = "reply"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeUserInput     = "user_input_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeExternal      = "external_service_error"
	ErrorTypeValidation    = "validation_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithClientIP adds client IP field
func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithErrorType adds the error taxonomy field
func (f LogFields) WithErrorType(kind string) LogFields {
	f[FieldErrorType] = kind
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithRecord adds ledger record fields
func (f LogFields) WithRecord(desc, amount, category, payment string) LogFields {
	f[FieldDescription] = desc
	f[FieldAmount] = amount
	f[FieldCategory] = category
	f[FieldPayment] = payment
	return f
}

// WithPartition adds partition fields
func (f LogFields) WithPartition(key, id string) LogFields {
	f[FieldPartitionKey] = key
	if id != "" {
		f[FieldPartitionID] = id
	}
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent, referer string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	f[FieldReferer] = referer
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
