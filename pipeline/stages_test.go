package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/scriptforge/llm"
)

// scriptedModel returns canned responses (or errors) in order and records
// every prompt it saw.
type scriptedModel struct {
	replies []any // string or error
	prompts []string
}

func (m *scriptedModel) Generate(ctx context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if len(m.replies) == 0 {
		return "", errors.New("scripted model exhausted")
	}
	next := m.replies[0]
	m.replies = m.replies[1:]
	if err, ok := next.(error); ok {
		return "", err
	}
	return next.(string), nil
}

func TestPlanStageEmbedsRequestVerbatim(t *testing.T) {
	request := `create a folder named "weird & wonderful" (with spaces, ümlauts, 100% verbatim)`
	model := &scriptedModel{replies: []any{"1. do the thing"}}
	stage := &PlanStage{Model: model}

	plan, err := stage.Run(context.Background(), request)
	require.NoError(t, err)
	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], request)
	assert.Equal(t, request, plan.Request)
	assert.Equal(t, "1. do the thing", plan.Text)
}

func TestPlanStageRetriesTransportOnce(t *testing.T) {
	model := &scriptedModel{replies: []any{
		fmt.Errorf("%w: connection refused", llm.ErrUnreachable),
		"plan after retry",
	}}
	stage := &PlanStage{Model: model}

	plan, err := stage.Run(context.Background(), "make a file")
	require.NoError(t, err)
	assert.Equal(t, "plan after retry", plan.Text)
	assert.Len(t, model.prompts, 2)
}

func TestPlanStageSurfacesTransportAfterOneRetry(t *testing.T) {
	model := &scriptedModel{replies: []any{
		fmt.Errorf("%w: slow model", llm.ErrTimeout),
		fmt.Errorf("%w: slow model", llm.ErrTimeout),
	}}
	stage := &PlanStage{Model: model}

	_, err := stage.Run(context.Background(), "make a file")
	require.Error(t, err)
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StagePlan, stageErr.Stage)
	assert.Equal(t, KindTransportTimeout, stageErr.Kind())
	assert.Len(t, model.prompts, 2)
}

func TestPlanStageDoesNotRetryEmptyResponse(t *testing.T) {
	model := &scriptedModel{replies: []any{llm.ErrEmptyResponse}}
	stage := &PlanStage{Model: model}

	_, err := stage.Run(context.Background(), "make a file")
	require.Error(t, err)
	assert.Len(t, model.prompts, 1)
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, KindEmptyResponse, stageErr.Kind())
}

func TestPlanStageRejectsEmptyRequest(t *testing.T) {
	stage := &PlanStage{Model: &scriptedModel{}}
	_, err := stage.Run(context.Background(), "   ")
	assert.Error(t, err)
}

func TestCodeStagePromptIncludesPlanAndRequest(t *testing.T) {
	model := &scriptedModel{replies: []any{"```python\nprint('hi')\n```"}}
	stage := &CodeStage{Model: model}
	plan := &PlanArtifact{Request: "print a greeting", Text: "1. call print"}

	code, err := stage.Run(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], "print a greeting")
	assert.Contains(t, model.prompts[0], "1. call print")
	assert.Contains(t, model.prompts[0], "exactly one fenced code block")
	assert.Equal(t, "print('hi')", code.Code)
	assert.Equal(t, "python", code.Language)
	assert.Equal(t, ConfidenceFenced, code.Confidence)
	assert.Equal(t, "```python\nprint('hi')\n```", code.RawOutput)
}

func TestCodeStagePropagatesExtractionErrors(t *testing.T) {
	cases := []struct {
		name  string
		reply string
		want  error
	}{
		{"no code", "I cannot help with that request because it is unclear to me.", ErrNoCodeFound},
		{"ambiguous", "```\nprint(1)\n```\nor\n```\nprint(2)\n```", ErrAmbiguousBlocks},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			model := &scriptedModel{replies: []any{tc.reply}}
			stage := &CodeStage{Model: model}

			_, err := stage.Run(context.Background(), &PlanArtifact{Request: "x", Text: "y"})
			assert.ErrorIs(t, err, tc.want)
			var stageErr *StageError
			require.ErrorAs(t, err, &stageErr)
			assert.Equal(t, StageCode, stageErr.Stage)
		})
	}
}

func TestCodeStageLanguageDefault(t *testing.T) {
	stage := &CodeStage{}
	assert.Equal(t, "python", stage.language())
	stage.Language = "sh"
	assert.Equal(t, "sh", stage.language())
}
