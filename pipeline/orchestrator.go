package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunStatus is the terminal state of a single pipeline run. Aborts are normal
// outcomes, not failures.
type RunStatus string

const (
	StatusCompleted      RunStatus = "completed"
	StatusAbortedReview  RunStatus = "aborted-review"
	StatusAbortedExecute RunStatus = "aborted-execute"
)

// RunOutcome is everything a finished run produced. The script file is the
// only artifact that outlives the run; it stays on disk even after an abort.
type RunOutcome struct {
	Request    string
	Status     RunStatus
	Plan       *PlanArtifact
	Code       *CodeArtifact
	ScriptPath string
	Execution  *ExecutionResult
	StartedAt  time.Time
}

// Reporter receives intermediate artifacts so the operator can read the plan
// and the saved script before the confirmation gates block on input.
type Reporter interface {
	PlanReady(plan *PlanArtifact)
	ScriptSaved(code *CodeArtifact, path string)
}

type nopReporter struct{}

func (nopReporter) PlanReady(*PlanArtifact)           {}
func (nopReporter) ScriptSaved(*CodeArtifact, string) {}

// RunRecorder persists finished runs. Recording is best effort; a history
// failure never fails the run itself.
type RunRecorder interface {
	Record(ctx context.Context, outcome *RunOutcome) error
}

// Orchestrator drives one request through plan, code, persist, the two
// confirmation gates, and optional execution. Every stage failure
// short-circuits into a *StageError naming the stage.
type Orchestrator struct {
	Planner  *PlanStage
	Coder    *CodeStage
	Sink     *ScriptSink
	Gate     *ConfirmationGate
	Executor *ScriptExecutor
	Reporter Reporter
	Recorder RunRecorder
	Logger   *zap.Logger
}

// Run executes the full pipeline for a single request.
func (o *Orchestrator) Run(ctx context.Context, request string) (*RunOutcome, error) {
	logger := o.logger()
	reporter := o.reporter()
	outcome := &RunOutcome{Request: request, StartedAt: time.Now().UTC()}

	logger.Info("planning", zap.String("request", request))
	plan, err := o.Planner.Run(ctx, request)
	if err != nil {
		return nil, err
	}
	outcome.Plan = plan
	reporter.PlanReady(plan)

	logger.Info("generating code")
	code, err := o.Coder.Run(ctx, plan)
	if err != nil {
		return nil, err
	}
	outcome.Code = code
	logger.Info("code extracted",
		zap.String("confidence", string(code.Confidence)),
		zap.Int("bytes", len(code.Code)))

	path, err := o.Sink.Write(code.Code)
	if err != nil {
		return nil, stageErr(StagePersist, err)
	}
	outcome.ScriptPath = path
	logger.Info("script saved", zap.String("path", path))
	reporter.ScriptSaved(code, path)

	decision, err := o.Gate.ConfirmReview(ctx, path)
	if err != nil {
		return nil, stageErr(StageConfirm, err)
	}
	if decision == DecisionRejected {
		outcome.Status = StatusAbortedReview
		logger.Info("aborted by operator at review gate")
		o.record(ctx, outcome)
		return outcome, nil
	}

	decision, err = o.Gate.ConfirmExecute(ctx)
	if err != nil {
		return nil, stageErr(StageConfirm, err)
	}
	if decision == DecisionRejected {
		outcome.Status = StatusAbortedExecute
		logger.Info("aborted by operator at execute gate")
		o.record(ctx, outcome)
		return outcome, nil
	}

	logger.Info("executing script", zap.String("path", path))
	result, err := o.Executor.Run(ctx, path)
	if err != nil {
		return nil, stageErr(StageExecute, err)
	}
	outcome.Execution = result
	outcome.Status = StatusCompleted
	logger.Info("execution finished",
		zap.Int("exit_code", result.ExitCode),
		zap.Bool("timed_out", result.TimedOut),
		zap.Duration("duration", result.Duration))
	o.record(ctx, outcome)
	return outcome, nil
}

func (o *Orchestrator) record(ctx context.Context, outcome *RunOutcome) {
	if o.Recorder == nil {
		return
	}
	if err := o.Recorder.Record(ctx, outcome); err != nil {
		staged := stageErr(StageHistory, err)
		o.logger().Warn("history record failed",
			zap.String("kind", string(staged.Kind())),
			zap.Error(staged))
	}
}

func (o *Orchestrator) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}

func (o *Orchestrator) reporter() Reporter {
	if o.Reporter != nil {
		return o.Reporter
	}
	return nopReporter{}
}
