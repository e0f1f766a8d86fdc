package pipeline

import (
	"errors"
	"fmt"

	"github.com/lexcodex/scriptforge/llm"
)

// Stage identifies which pipeline step produced a failure.
type Stage string

const (
	StagePlan    Stage = "plan"
	StageCode    Stage = "code"
	StagePersist Stage = "persist"
	StageConfirm Stage = "confirm"
	StageExecute Stage = "execute"
	StageHistory Stage = "history"
)

// ErrorKind is the operator-facing classification of a stage failure.
type ErrorKind string

const (
	KindTransportUnreachable ErrorKind = "transport-unreachable"
	KindTransportTimeout     ErrorKind = "transport-timeout"
	KindEmptyResponse        ErrorKind = "empty-response"
	KindNoCodeFound          ErrorKind = "no-code-found"
	KindAmbiguousBlocks      ErrorKind = "ambiguous-code-blocks"
	KindIO                   ErrorKind = "io"
	KindInternal             ErrorKind = "internal"
)

// StageError wraps a failure with the stage it happened in. The orchestrator
// surfaces it untouched so the CLI can name both stage and kind.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Kind classifies the wrapped error for reporting.
func (e *StageError) Kind() ErrorKind {
	switch {
	case errors.Is(e.Err, llm.ErrTimeout):
		return KindTransportTimeout
	case errors.Is(e.Err, llm.ErrUnreachable):
		return KindTransportUnreachable
	case errors.Is(e.Err, llm.ErrEmptyResponse):
		return KindEmptyResponse
	case errors.Is(e.Err, ErrNoCodeFound):
		return KindNoCodeFound
	case errors.Is(e.Err, ErrAmbiguousBlocks):
		return KindAmbiguousBlocks
	case e.Stage == StagePersist || e.Stage == StageHistory:
		return KindIO
	default:
		return KindInternal
	}
}

func stageErr(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// isTransient reports whether a model call failed at the transport layer and
// is worth the single bounded retry.
func isTransient(err error) bool {
	return errors.Is(err, llm.ErrUnreachable) || errors.Is(err, llm.ErrTimeout)
}
