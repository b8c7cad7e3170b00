package log

import "strings"

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldSource     = "source"
	FieldLocation   = "location"
	FieldMissing    = "missing_columns"
	FieldRows       = "rows"
	FieldYear       = "year"
	FieldMonth      = "month"
	FieldUser       = "user"
	FieldCategory   = "category"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentNormalize = "normalize"
	ComponentMerge     = "merge"
	ComponentTargets   = "targets"
	ComponentSources   = "sources"
	ComponentCache     = "cache"
	ComponentDashboard = "dashboard"
	ComponentUsers     = "users"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentRateLimit = "rate_limit"
)

// Operations defines standard operation names
const (
	OpLoad      = "load"
	OpNormalize = "normalize"
	OpMerge     = "merge"
	OpRefresh   = "refresh"
	OpLogin     = "login"
	OpPassword  = "change_password"
	OpPublish   = "publish"
	OpConsume   = "consume"
	OpStartup   = "startup"
	OpShutdown  = "shutdown"
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

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithSource adds the source tag and where it was read from
func (f LogFields) WithSource(source, location string) LogFields {
	f[FieldSource] = source
	if location != "" {
		f[FieldLocation] = location
	}
	return f
}

// WithMissing adds the list of missing columns
func (f LogFields) WithMissing(cols []string) LogFields {
	f[FieldMissing] = strings.Join(cols, ", ")
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
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
