package log

import "fintrack/internal/core"

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldUserID     = "user_id"
	FieldCategoryID = "category_id"
	FieldMetric     = "metric"
	FieldRangeStart = "range_start"
	FieldRangeEnd   = "range_end"
	FieldPreset     = "preset"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentAnalytics = "analytics"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentRecurring = "recurring"
	ComponentAlerts    = "alerts"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpRead     = "read"
	OpCompute  = "compute"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpValidate = "validate"
	OpParse    = "parse"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error text; a nil error adds nothing.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithRequest adds the user and range of an analytics request.
func (f LogFields) WithRequest(req core.Request) LogFields {
	f[FieldUserID] = req.UserID
	f[FieldRangeStart] = req.Range.From.String()
	f[FieldRangeEnd] = req.Range.To.String()
	if req.Preset != "" {
		f[FieldPreset] = string(req.Preset)
	}
	return f
}

func (f LogFields) WithMetric(metric string) LogFields {
	f[FieldMetric] = metric
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice flattens the fields into slog key/value arguments.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
