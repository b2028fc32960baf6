package log

// Attribute keys shared across packages.
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldDurationHuman = "duration_human"
	FieldUserAgent     = "user_agent"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldErrorType     = "error_type"
	FieldOperation     = "operation"
	FieldProjectID     = "project_id"
	FieldCustomer      = "customer"
	FieldEntryKind     = "entry_kind"
	FieldAmountCents   = "amount_cents"
	FieldCategory      = "category"
	FieldEventType     = "event_type"
)

const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentProject  = "project"
	ComponentStorage  = "storage"
	ComponentWorker   = "worker"
	ComponentSheets   = "sheets"
	ComponentCache    = "cache"
	ComponentBackend  = "backend"
	ComponentTemplate = "template"
)

const (
	OpCreate = "create"
	OpRead   = "read"
	OpUpdate = "update"
	OpDelete = "delete"
	OpList   = "list"
	OpAppend = "append"
	OpExport = "export"
	OpRender = "render"
)

// Values for the error_type attribute.
const (
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
)

// LogFields collects attributes before handing them to slog.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError stores err's message; nil leaves f unchanged.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithErrorType(kind string) LogFields {
	f[FieldErrorType] = kind
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithProject adds the project identity. An empty customer is omitted.
func (f LogFields) WithProject(id, customer string) LogFields {
	f[FieldProjectID] = id
	if customer != "" {
		f[FieldCustomer] = customer
	}
	return f
}

// WithLedgerEntry describes an appended payment, expense or category.
// Empty category and zero amount are omitted.
func (f LogFields) WithLedgerEntry(kind string, amountCents int64, category string) LogFields {
	f[FieldEntryKind] = kind
	if amountCents != 0 {
		f[FieldAmountCents] = amountCents
	}
	if category != "" {
		f[FieldCategory] = category
	}
	return f
}

// ToSlice flattens f into alternating key/value pairs.
func (f LogFields) ToSlice() []any {
	out := make([]any, 0, len(f)*2)
	for k, v := range f {
		out = append(out, k, v)
	}
	return out
}
