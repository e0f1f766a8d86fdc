// Package render prints pipeline artifacts and outcomes for the operator.
package render

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lexcodex/scriptforge/pipeline"
)

// Console implements pipeline.Reporter and renders terminal sections for the
// plan, the saved script, and the final outcome.
type Console struct {
	Out io.Writer
}

// NewConsole builds a reporter writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{Out: out}
}

// PlanReady prints the plan so the operator can read it before the gates.
func (c *Console) PlanReady(plan *pipeline.PlanArtifact) {
	fmt.Fprintln(c.Out, sectionHeaderStyle.Render("Plan"))
	fmt.Fprintln(c.Out, planBoxStyle.Render(plan.Text))
}

// ScriptSaved prints the extracted code and where it was written.
func (c *Console) ScriptSaved(code *pipeline.CodeArtifact, path string) {
	header := fmt.Sprintf("Generated %s script", code.Language)
	fmt.Fprintln(c.Out, sectionHeaderStyle.Render(header))
	fmt.Fprintln(c.Out, codeBoxStyle.Render(code.Code))
	if code.Confidence == pipeline.ConfidenceHeuristic {
		fmt.Fprintln(c.Out, warningStyle.Render("note: no fenced block in the model output; the whole response was taken as code"))
	}
	fmt.Fprintf(c.Out, "%s %s\n", dimStyle.Render("saved to"), filePathStyle.Render(path))
}

// Outcome prints the terminal report for a finished run.
func (c *Console) Outcome(outcome *pipeline.RunOutcome) {
	switch outcome.Status {
	case pipeline.StatusAbortedReview:
		fmt.Fprintln(c.Out, warningStyle.Render("aborted by operator at the review gate; the script was not executed"))
	case pipeline.StatusAbortedExecute:
		fmt.Fprintln(c.Out, warningStyle.Render("aborted by operator before execution; the script was not executed"))
	case pipeline.StatusCompleted:
		c.execution(outcome.Execution)
	}
}

func (c *Console) execution(result *pipeline.ExecutionResult) {
	fmt.Fprintln(c.Out, sectionHeaderStyle.Render("Execution"))
	elapsed := result.Duration.Round(time.Millisecond)
	switch {
	case result.TimedOut:
		fmt.Fprintln(c.Out, errorStyle.Render(fmt.Sprintf("timed out after %s; the script was killed", elapsed)))
	case result.ExitCode == 0:
		fmt.Fprintln(c.Out, successStyle.Render(fmt.Sprintf("exit code 0 (%s)", elapsed)))
	default:
		fmt.Fprintln(c.Out, errorStyle.Render(fmt.Sprintf("exit code %d (%s)", result.ExitCode, elapsed)))
	}
	if strings.TrimSpace(result.Stdout) != "" {
		fmt.Fprintln(c.Out, dimStyle.Render("stdout:"))
		fmt.Fprintln(c.Out, strings.TrimRight(result.Stdout, "\n"))
	}
	if strings.TrimSpace(result.Stderr) != "" {
		fmt.Fprintln(c.Out, dimStyle.Render("stderr:"))
		fmt.Fprintln(c.Out, strings.TrimRight(result.Stderr, "\n"))
	}
}

// Failure prints a terminal failure report naming the failing stage and kind.
func (c *Console) Failure(err error) {
	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		fmt.Fprintln(c.Out, errorStyle.Render(fmt.Sprintf("%s stage failed (%s): %v", stageErr.Stage, stageErr.Kind(), stageErr.Err)))
		return
	}
	fmt.Fprintln(c.Out, errorStyle.Render(fmt.Sprintf("run failed: %v", err)))
}
