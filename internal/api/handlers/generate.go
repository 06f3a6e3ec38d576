package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/testloom-ai/testloom/internal/api"
	"github.com/testloom-ai/testloom/internal/api/middleware"
	"github.com/testloom-ai/testloom/internal/domain"
	"github.com/testloom-ai/testloom/internal/service"
)

type Generator interface {
	GenerateTestCases(ctx context.Context, input service.GenerateTestCasesInput) (*domain.TestCaseSet, error)
	GenerateScript(ctx context.Context, input service.GenerateScriptInput) (string, error)
}

type GenerateHandler struct {
	svc Generator
}

func NewGenerateHandler(svc Generator) *GenerateHandler {
	return &GenerateHandler{svc: svc}
}

type GenerateTestCasesRequest struct {
	Query string `json:"query"`
}

type GenerateScriptRequest struct {
	TestCase domain.TestCase `json:"test_case"`
	HTML     string          `json:"html,omitempty"`
}

type GenerateScriptResponse struct {
	Script string `json:"script"`
}

// TestCases handles POST /generate/test-cases.
func (h *GenerateHandler) TestCases(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())

	var req GenerateTestCasesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	set, err := h.svc.GenerateTestCases(r.Context(), service.GenerateTestCasesInput{
		SessionID: sessionID,
		Query:     req.Query,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, set)
}

// Script handles POST /generate/script.
func (h *GenerateHandler) Script(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())

	var req GenerateScriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TestCase.TestScenario == "" {
		api.Error(w, http.StatusBadRequest, "test_case.test_scenario is required")
		return
	}

	script, err := h.svc.GenerateScript(r.Context(), service.GenerateScriptInput{
		SessionID: sessionID,
		TestCase:  req.TestCase,
		HTML:      req.HTML,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, GenerateScriptResponse{Script: script})
}
