package models

import "fmt"

// Error codes used across the pipeline and at the bot boundary.
const (
	ErrCodeRenderFailed    = "RENDER_FAILED"
	ErrCodeGated           = "PAGE_GATED"
	ErrCodeExtractionEmpty = "EXTRACTION_EMPTY"
	ErrCodeDownstream      = "DOWNSTREAM_FAILED"
	ErrCodeStore           = "STORE_FAILED"
	ErrCodeInvalidInput    = "INVALID_INPUT"
)

// PipelineError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type PipelineError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError creates a new PipelineError.
func NewPipelineError(code, message string, err error) *PipelineError {
	return &PipelineError{Code: code, Message: message, Err: err}
}
