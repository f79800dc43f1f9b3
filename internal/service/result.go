package service

import "fmt"

// FailureKind classifies a soft failure.
type FailureKind string

// Failure kinds.
const (
	KindQuotaExceeded          FailureKind = "quota_exceeded"
	KindPlanRequired           FailureKind = "plan_required"
	KindNoFileUploaded         FailureKind = "no_file_uploaded"
	KindUnsupportedFileType    FailureKind = "unsupported_file_type"
	KindExtractionFailed       FailureKind = "extraction_failed"
	KindInvalidInput           FailureKind = "invalid_input"
	KindUpstreamError          FailureKind = "upstream_error"
	KindPersistenceError       FailureKind = "persistence_error"
	KindEntitlementUnavailable FailureKind = "entitlement_unavailable"
)

// User-facing failure messages.
const (
	MsgQuotaExceeded          = "Limit reached. Upgrade to continue."
	MsgPlanRequired           = "This feature is only available for premium subscriptions"
	MsgNoFileUploaded         = "No file uploaded."
	MsgUnsupportedFileType    = "Unsupported file type."
	MsgExtractionFailed       = "Failed to analyze resume."
	MsgPersistenceError       = "Failed to save creation."
	MsgUsageNotRecorded       = "Failed to record usage. Please try again."
	MsgEntitlementUnavailable = "Unable to verify your plan. Please try again."
	MsgUpstreamDefault        = "The AI service is unavailable. Please try again."
	MsgTimeout                = "The request timed out. Please try again."
)

// Failure is the error half of a Result.
type Failure struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func fail(kind FailureKind, message string, err error) *Failure {
	return &Failure{Kind: kind, Message: message, Err: err}
}

// Result is the outcome of one pipeline run: either content or a Failure.
type Result struct {
	content string
	failure *Failure
}

// Ok returns a successful result.
func Ok(content string) Result {
	return Result{content: content}
}

// Err returns a failed result.
func Err(kind FailureKind, message string) Result {
	return Result{failure: &Failure{Kind: kind, Message: message}}
}

func errResult(f *Failure) Result {
	return Result{failure: f}
}

// IsOk reports whether the run succeeded.
func (r Result) IsOk() bool {
	return r.failure == nil
}

// Content is the generated text or hosted URL. Empty on failure.
func (r Result) Content() string {
	return r.content
}

// Failure is nil on success.
func (r Result) Failure() *Failure {
	return r.failure
}
