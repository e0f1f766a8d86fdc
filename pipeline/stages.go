package pipeline

import (
	"context"
	"fmt"
	"strings"
)

// LanguageModel is the single capability the stages need from an inference
// backend. llm.Client satisfies it.
type LanguageModel interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// PlanArtifact is the model-produced plan for a request. Read-only once built.
type PlanArtifact struct {
	Request string
	Text    string
}

// CodeArtifact carries the extracted script plus the raw model output so the
// run history can keep both.
type CodeArtifact struct {
	RawOutput  string
	Code       string
	Language   string
	Confidence Confidence
}

const planPromptTemplate = `You are an AI agent that generates a step-by-step plan for a given file or folder creation request.
You must detail each step and justify your choices.

User request:
%s

Plan:`

const codePromptTemplate = `You are an AI that generates %s code based on the given plan and request.
- Use standard libraries only (no 3rd-party).
- Handle edge cases (existing files, permission issues).
- Respond with exactly one fenced code block and nothing else.

Plan:
%s

User request:
%s

Code:`

// PlanStage turns a request into a human-readable plan.
type PlanStage struct {
	Model LanguageModel
}

// Run builds the planning prompt, embedding the request verbatim, and returns
// the plan text. Transport failures get one retry; nothing else does.
func (s *PlanStage) Run(ctx context.Context, request string) (*PlanArtifact, error) {
	if strings.TrimSpace(request) == "" {
		return nil, stageErr(StagePlan, fmt.Errorf("empty request"))
	}
	prompt := fmt.Sprintf(planPromptTemplate, request)
	text, err := generateWithRetry(ctx, s.Model, prompt)
	if err != nil {
		return nil, stageErr(StagePlan, err)
	}
	return &PlanArtifact{Request: request, Text: strings.TrimSpace(text)}, nil
}

// CodeStage turns a request plus plan into an extracted script.
type CodeStage struct {
	Model LanguageModel
	// Language tags the generated artifact and the prompt. Defaults to python.
	Language string
}

// Run builds the code prompt, invokes the model, and extracts the single code
// block. Extraction failures propagate unchanged; no artifact is produced for
// an empty or ambiguous response.
func (s *CodeStage) Run(ctx context.Context, plan *PlanArtifact) (*CodeArtifact, error) {
	if plan == nil {
		return nil, stageErr(StageCode, fmt.Errorf("plan artifact required"))
	}
	language := s.language()
	prompt := fmt.Sprintf(codePromptTemplate, language, plan.Text, plan.Request)
	raw, err := generateWithRetry(ctx, s.Model, prompt)
	if err != nil {
		return nil, stageErr(StageCode, err)
	}
	extraction, err := ExtractCode(raw)
	if err != nil {
		return nil, stageErr(StageCode, err)
	}
	return &CodeArtifact{
		RawOutput:  raw,
		Code:       extraction.Code,
		Language:   language,
		Confidence: extraction.Confidence,
	}, nil
}

func (s *CodeStage) language() string {
	if s.Language != "" {
		return s.Language
	}
	return "python"
}

// generateWithRetry performs the model call with at most one retry, and only
// when the first attempt failed at the transport layer.
func generateWithRetry(ctx context.Context, model LanguageModel, prompt string) (string, error) {
	text, err := model.Generate(ctx, prompt)
	if err == nil {
		return text, nil
	}
	if !isTransient(err) || ctx.Err() != nil {
		return "", err
	}
	return model.Generate(ctx, prompt)
}
