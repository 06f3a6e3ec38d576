package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/testloom-ai/testloom/internal/domain"
)

// MockCompletionProvider mocks the chat completion provider
type MockCompletionProvider struct {
	mock.Mock
}

func (m *MockCompletionProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	args := m.Called(ctx, system, prompt)
	return args.String(0), args.Error(1)
}

// MockRetriever mocks the knowledge base retriever
type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) Retrieve(ctx context.Context, input RetrieveInput) ([]*RetrievedChunk, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*RetrievedChunk), args.Error(1)
}

const testCasesJSON = `{"test_cases": [{"test_id": "TC001", "feature": "login", "test_scenario": "valid login", "test_type": "functional", "steps": ["open page", "submit form"], "expected_result": "dashboard shown", "grounded_in": ["manual.txt"]}]}`

func TestGenerationService_GenerateTestCases_Success(t *testing.T) {
	mockCompletions := new(MockCompletionProvider)
	mockRetriever := new(MockRetriever)
	svc := NewGenerationService(mockCompletions, mockRetriever, NewSessionStore())

	retrieved := []*RetrievedChunk{chunk("manual.txt", "users log in with email")}
	mockRetriever.On("Retrieve", mock.Anything, RetrieveInput{
		SessionID: "s1",
		Query:     "login flow",
		NResults:  5,
	}).Return(retrieved, nil)
	mockCompletions.On("Complete", mock.Anything, mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "login flow") && strings.Contains(prompt, "Source: manual.txt")
	})).Return(testCasesJSON, nil)

	set, err := svc.GenerateTestCases(context.Background(), GenerateTestCasesInput{SessionID: "s1", Query: "login flow"})

	require.NoError(t, err)
	require.Len(t, set.TestCases, 1)
	tc := set.TestCases[0]
	assert.Equal(t, "TC001", tc.TestID)
	assert.Equal(t, "functional", tc.TestType)
	assert.Equal(t, []string{"open page", "submit form"}, tc.Steps)
	assert.Equal(t, []string{"manual.txt"}, tc.GroundedIn)
}

func TestGenerationService_GenerateTestCases_StripsFences(t *testing.T) {
	mockCompletions := new(MockCompletionProvider)
	mockRetriever := new(MockRetriever)
	svc := NewGenerationService(mockCompletions, mockRetriever, NewSessionStore())

	mockRetriever.On("Retrieve", mock.Anything, mock.Anything).Return([]*RetrievedChunk{}, nil)
	mockCompletions.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Return("```json\n"+testCasesJSON+"\n```", nil)

	set, err := svc.GenerateTestCases(context.Background(), GenerateTestCasesInput{SessionID: "s1", Query: "q"})

	require.NoError(t, err)
	require.Len(t, set.TestCases, 1)
}

func TestGenerationService_GenerateTestCases_UnparseableOutput(t *testing.T) {
	mockCompletions := new(MockCompletionProvider)
	mockRetriever := new(MockRetriever)
	svc := NewGenerationService(mockCompletions, mockRetriever, NewSessionStore())

	mockRetriever.On("Retrieve", mock.Anything, mock.Anything).Return([]*RetrievedChunk{}, nil)
	mockCompletions.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Return("Sorry, I cannot help with that.", nil)

	_, err := svc.GenerateTestCases(context.Background(), GenerateTestCasesInput{SessionID: "s1", Query: "q"})

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeInvalidCompletion, domainErr.Code)
	assert.Contains(t, err.Error(), "Sorry, I cannot help", "raw output is carried in the error")
}

func TestGenerationService_GenerateTestCases_RetrieveErrorPropagates(t *testing.T) {
	mockCompletions := new(MockCompletionProvider)
	mockRetriever := new(MockRetriever)
	svc := NewGenerationService(mockCompletions, mockRetriever, NewSessionStore())

	wantErr := domain.NewDomainError(domain.ErrCodeIndexUnavailable, "index offline")
	mockRetriever.On("Retrieve", mock.Anything, mock.Anything).Return(nil, wantErr)

	_, err := svc.GenerateTestCases(context.Background(), GenerateTestCasesInput{SessionID: "s1", Query: "q"})

	assert.ErrorIs(t, err, wantErr)
	mockCompletions.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerationService_GenerateTestCases_EmptyQuery(t *testing.T) {
	svc := NewGenerationService(new(MockCompletionProvider), new(MockRetriever), NewSessionStore())

	_, err := svc.GenerateTestCases(context.Background(), GenerateTestCasesInput{SessionID: "s1", Query: "  "})

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeInvalidArgument, domainErr.Code)
}

func TestGenerationService_GenerateScript_Success(t *testing.T) {
	mockCompletions := new(MockCompletionProvider)
	mockRetriever := new(MockRetriever)
	sessions := NewSessionStore()
	sessions.SetHTML("s1", "<html><body><form id=\"login\"></form></body></html>")
	svc := NewGenerationService(mockCompletions, mockRetriever, sessions)

	testCase := domain.TestCase{
		TestID:       "TC001",
		TestScenario: "valid login",
		Steps:        []string{"open page"},
	}

	mockRetriever.On("Retrieve", mock.Anything, RetrieveInput{
		SessionID: "s1",
		Query:     "valid login",
		NResults:  3,
	}).Return([]*RetrievedChunk{chunk("manual.txt", "login docs")}, nil)
	mockCompletions.On("Complete", mock.Anything, mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "form id=\"login\"") && strings.Contains(prompt, "TC001")
	})).Return("```python\nfrom selenium import webdriver\n```", nil)

	script, err := svc.GenerateScript(context.Background(), GenerateScriptInput{SessionID: "s1", TestCase: testCase})

	require.NoError(t, err)
	assert.Equal(t, "from selenium import webdriver", script)
}

func TestGenerationService_GenerateScript_HTMLOverride(t *testing.T) {
	mockCompletions := new(MockCompletionProvider)
	mockRetriever := new(MockRetriever)
	svc := NewGenerationService(mockCompletions, mockRetriever, NewSessionStore())

	mockRetriever.On("Retrieve", mock.Anything, mock.Anything).Return([]*RetrievedChunk{}, nil)
	mockCompletions.On("Complete", mock.Anything, mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "override-page")
	})).Return("print('ok')", nil)

	script, err := svc.GenerateScript(context.Background(), GenerateScriptInput{
		SessionID: "s1",
		TestCase:  domain.TestCase{TestScenario: "anything"},
		HTML:      "<html>override-page</html>",
	})

	require.NoError(t, err)
	assert.Equal(t, "print('ok')", script)
}

func TestGenerationService_GenerateScript_TruncatesHTML(t *testing.T) {
	mockCompletions := new(MockCompletionProvider)
	mockRetriever := new(MockRetriever)
	svc := NewGenerationService(mockCompletions, mockRetriever, NewSessionStore())

	longHTML := "<html>" + strings.Repeat("a", 5000) + "MARKER</html>"

	mockRetriever.On("Retrieve", mock.Anything, mock.Anything).Return([]*RetrievedChunk{}, nil)
	mockCompletions.On("Complete", mock.Anything, mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return !strings.Contains(prompt, "MARKER")
	})).Return("print('ok')", nil)

	_, err := svc.GenerateScript(context.Background(), GenerateScriptInput{
		SessionID: "s1",
		TestCase:  domain.TestCase{TestScenario: "anything"},
		HTML:      longHTML,
	})

	require.NoError(t, err)
	mockCompletions.AssertExpectations(t)
}

func TestGenerationService_GenerateScript_NoHTML(t *testing.T) {
	svc := NewGenerationService(new(MockCompletionProvider), new(MockRetriever), NewSessionStore())

	_, err := svc.GenerateScript(context.Background(), GenerateScriptInput{
		SessionID: "s1",
		TestCase:  domain.TestCase{TestScenario: "anything"},
	})

	assert.ErrorIs(t, err, domain.ErrHTMLNotFound)
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `{"a": 1}`, `{"a": 1}`},
		{"plain fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"python fence", "```python\nprint('hi')\n```", "print('hi')"},
		{"surrounding whitespace", "  ```json\n{}\n```  ", "{}"},
		{"unterminated fence", "```json\n{}", "{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripFences(tt.in))
		})
	}
}
