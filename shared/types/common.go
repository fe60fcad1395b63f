package types

import (
	"time"

	"github.com/google/uuid"
)

// TenantID represents a unique tenant identifier
type TenantID uuid.UUID

// UserID represents a unique user identifier
type UserID uuid.UUID

// CorrelationID represents a unique request correlation identifier
type CorrelationID uuid.UUID

// FileID represents an opaque file identifier issued by the data-access layer
type FileID string

// ParsedFileID represents an opaque parsed-file identifier
type ParsedFileID string

// MappingID represents a unique data-mapping invocation identifier
type MappingID string

// WorkflowID represents a workflow correlation identifier
type WorkflowID string

// SessionID represents a user session identifier
type SessionID string

// SagaID represents a running saga execution identifier
type SagaID string

// JourneyID represents a designed saga journey identifier
type JourneyID string

// String returns the string representation of TenantID
func (t TenantID) String() string {
	return uuid.UUID(t).String()
}

// String returns the string representation of UserID
func (u UserID) String() string {
	return uuid.UUID(u).String()
}

// String returns the string representation of CorrelationID
func (c CorrelationID) String() string {
	return uuid.UUID(c).String()
}

// Severity levels for data-quality issues
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Severities lists every severity in report order. Issue aggregation
// initializes all of them so counts are always present, even at zero.
var Severities = []Severity{SeverityError, SeverityWarning, SeverityInfo}

// Status represents the status of pipeline operations
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// SagaStepStatus is the outcome reported to the saga coordinator on step advance
type SagaStepStatus string

const (
	SagaStepComplete SagaStepStatus = "complete"
	SagaStepFailed   SagaStepStatus = "failed"
)

// contextKey is a private type for context values defined in this package.
type contextKey string

// RequestContextKey carries the RequestContext through a context.Context.
const RequestContextKey contextKey = "request_context"

// RequestContext contains common request context information carried
// through every pipeline invocation.
type RequestContext struct {
	CorrelationID CorrelationID `json:"correlation_id"`
	TenantID      TenantID      `json:"tenant_id"`
	UserID        *UserID       `json:"user_id,omitempty"`
	WorkflowID    WorkflowID    `json:"workflow_id,omitempty"`
	SessionID     SessionID     `json:"session_id,omitempty"`
	TraceID       string        `json:"trace_id,omitempty"`
	SpanID        string        `json:"span_id,omitempty"`
	IPAddress     string        `json:"ip_address,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}

// NewRequestContext creates a request context with a fresh correlation ID
func NewRequestContext() *RequestContext {
	return &RequestContext{
		CorrelationID: CorrelationID(uuid.New()),
		Timestamp:     time.Now().UTC(),
	}
}

// UserIDString returns the user ID or "anonymous" when none is attached.
// The saga coordinator requires a non-empty user identity on every call.
func (rc *RequestContext) UserIDString() string {
	if rc == nil || rc.UserID == nil {
		return "anonymous"
	}
	return rc.UserID.String()
}
