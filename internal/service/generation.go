package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/testloom-ai/testloom/internal/domain"
	"github.com/testloom-ai/testloom/internal/telemetry"
)

const (
	testCaseChunks = 5
	scriptChunks   = 3
	// htmlSnippetChars caps how much of the target page is inlined into the
	// script prompt.
	htmlSnippetChars = 2000
	// defaultContextChars caps the assembled retrieval context.
	defaultContextChars = 8000
)

const testCaseSystemPrompt = "You are a senior QA engineer. You design precise, testable QA test cases grounded in the provided documentation. Always respond with valid JSON only."

const scriptSystemPrompt = "You are a Selenium automation expert. You write clean, runnable Python Selenium scripts. Always respond with only the Python code."

// CompletionProvider produces a chat completion for a system and user prompt.
type CompletionProvider interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Retriever answers similarity searches against a session's knowledge base.
type Retriever interface {
	Retrieve(ctx context.Context, input RetrieveInput) ([]*RetrievedChunk, error)
}

// GenerateTestCasesInput contains the parameters for test case generation.
type GenerateTestCasesInput struct {
	SessionID string
	Query     string
}

// GenerateScriptInput contains the parameters for Selenium script generation.
// HTML overrides the session's stored page when set.
type GenerateScriptInput struct {
	SessionID string
	TestCase  domain.TestCase
	HTML      string
}

// GenerationService turns retrieved knowledge base chunks into QA artifacts
// via a completion model.
type GenerationService struct {
	completions  CompletionProvider
	retriever    Retriever
	sessions     *SessionStore
	contextChars int
}

// NewGenerationService creates a new GenerationService instance
func NewGenerationService(completions CompletionProvider, retriever Retriever, sessions *SessionStore) *GenerationService {
	return &GenerationService{
		completions:  completions,
		retriever:    retriever,
		sessions:     sessions,
		contextChars: defaultContextChars,
	}
}

// GenerateTestCases retrieves the most relevant chunks for the query,
// assembles them into a context and asks the completion model for structured
// test cases. Output that does not parse as the expected JSON shape is an
// INVALID_COMPLETION error carrying the raw model output.
func (s *GenerationService) GenerateTestCases(ctx context.Context, input GenerateTestCasesInput) (*domain.TestCaseSet, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.generation.test_cases", telemetry.SpanAttributes{
		SessionID: input.SessionID,
		Operation: "generate_test_cases",
	})
	defer span.End()

	if strings.TrimSpace(input.Query) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeInvalidArgument, "query is required")
	}

	chunks, err := s.retriever.Retrieve(ctx, RetrieveInput{
		SessionID: input.SessionID,
		Query:     input.Query,
		NResults:  testCaseChunks,
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	prompt := fmt.Sprintf(`Based on the following context from support documents and the target web page, generate comprehensive QA test cases for: %s

Context:
%s

Respond with JSON of this exact shape:
{"test_cases": [{"test_id": "TC001", "feature": "...", "test_scenario": "...", "test_type": "functional|ui|integration|edge_case", "steps": ["..."], "expected_result": "...", "grounded_in": ["source ids from the context"]}]}

Respond with ONLY the JSON, no other text.`, input.Query, BuildContext(chunks, s.contextChars))

	raw, err := s.completions.Complete(ctx, testCaseSystemPrompt, prompt)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "completion request failed", err)
	}

	var set domain.TestCaseSet
	if err := json.Unmarshal([]byte(stripFences(raw)), &set); err != nil {
		derr := domain.NewDomainErrorWithCause(domain.ErrCodeInvalidCompletion,
			"model returned unparseable test cases", fmt.Errorf("%w; raw output: %s", err, raw))
		span.SetError(derr)
		return nil, derr
	}
	return &set, nil
}

// GenerateScript retrieves context for the chosen test case and asks the
// completion model for a runnable Python Selenium script against the
// session's target page.
func (s *GenerationService) GenerateScript(ctx context.Context, input GenerateScriptInput) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.generation.script", telemetry.SpanAttributes{
		SessionID: input.SessionID,
		Operation: "generate_script",
	})
	defer span.End()

	page := input.HTML
	if page == "" {
		stored, ok := s.sessions.HTML(input.SessionID)
		if !ok {
			return "", domain.ErrHTMLNotFound
		}
		page = stored
	}

	query := input.TestCase.TestScenario
	if strings.TrimSpace(query) == "" {
		return "", domain.NewDomainError(domain.ErrCodeInvalidArgument, "test case scenario is required")
	}

	chunks, err := s.retriever.Retrieve(ctx, RetrieveInput{
		SessionID: input.SessionID,
		Query:     query,
		NResults:  scriptChunks,
	})
	if err != nil {
		span.SetError(err)
		return "", err
	}

	testCaseJSON, err := json.MarshalIndent(input.TestCase, "", "  ")
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to encode test case", err)
	}

	prompt := fmt.Sprintf(`Generate a Python Selenium script for the following test case:
%s

HTML of the target page (truncated):
%s

Relevant context:
%s

Requirements:
- Use selenium with the Chrome webdriver
- Use explicit waits (WebDriverWait) instead of sleeps
- Assert the expected result
- The script must be runnable as-is
- Respond with ONLY the Python code, no explanations`,
		testCaseJSON, headRunes(page, htmlSnippetChars), BuildContext(chunks, s.contextChars))

	raw, err := s.completions.Complete(ctx, scriptSystemPrompt, prompt)
	if err != nil {
		span.SetError(err)
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "completion request failed", err)
	}

	script := stripFences(raw)
	if strings.TrimSpace(script) == "" {
		derr := domain.NewDomainError(domain.ErrCodeInvalidCompletion, "model returned an empty script")
		span.SetError(derr)
		return "", derr
	}
	return script, nil
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag, from model output.
func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	} else {
		return strings.TrimSpace(strings.TrimPrefix(text, "```"))
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func headRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
