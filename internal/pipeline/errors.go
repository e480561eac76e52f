package pipeline

import "fmt"

// Stage identifies which step of the upload pipeline failed
type Stage string

const (
	StageIngest        Stage = "ingest"
	StageConversion    Stage = "conversion"
	StageTranscription Stage = "transcription"
	StageSummarization Stage = "summarization"
	StageGeneration    Stage = "generation"
)

// ValidationError reports malformed client input; handlers map it to a 400
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// StageError reports a pipeline stage failure; handlers map it to a 500 with
// the short Message as "error" and the downstream Detail as "details".
type StageError struct {
	Stage   Stage
	Message string
	Detail  string
	Err     error
}

func (e *StageError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Detail)
	}
	return e.Message
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func newStageError(stage Stage, message string, err error) *StageError {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return &StageError{
		Stage:   stage,
		Message: message,
		Detail:  detail,
		Err:     err,
	}
}
