package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"snapintake/internal/config"
	"snapintake/internal/model"
)

// ErrOracleDegraded marks a coverage evaluation that fell back to all-false
// because both the primary and fallback oracle calls failed. Callers still
// receive a usable coverage value; the error is a status signal, not a stop.
var ErrOracleDegraded = errors.New("coverage oracle degraded")

// OracleClient wraps the external coverage classification service. Given a
// transcript it returns boolean coverage flags for the five interview
// sections. Stateless; one outbound call per Evaluate (two on retry).
type OracleClient struct {
	config *config.AIConfig
	client *http.Client
}

func NewOracleClient(cfg *config.AIConfig) *OracleClient {
	return &OracleClient{
		config: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		},
	}
}

// oracleResponse is the payload shape the oracle is instructed to return.
// Missing keys unmarshal to false, which is the conservative default.
type oracleResponse struct {
	Sections model.SectionCoverage `json:"sections"`
}

// Evaluate judges section coverage for the transcript. Empty input
// short-circuits to all-false without a network call. If the primary model
// fails for any reason the fallback model is tried once; if both fail the
// result degrades to all-false and the error wraps ErrOracleDegraded.
func (s *OracleClient) Evaluate(ctx context.Context, transcriptText string) (model.SectionCoverage, error) {
	if strings.TrimSpace(transcriptText) == "" {
		return model.SectionCoverage{}, nil
	}

	if !s.config.IsEnabled() {
		// No API key configured: the keyword heuristic stands in.
		return KeywordCoverage(transcriptText), nil
	}

	prompt := buildCoveragePrompt(transcriptText)

	coverage, primaryErr := s.evaluateWith(ctx, s.config.Models.Coverage, prompt)
	if primaryErr == nil {
		return coverage, nil
	}

	coverage, fallbackErr := s.evaluateWith(ctx, s.config.Models.CoverageFallback, prompt)
	if fallbackErr == nil {
		return coverage, nil
	}

	return model.SectionCoverage{}, fmt.Errorf("%w: primary: %v, fallback: %v", ErrOracleDegraded, primaryErr, fallbackErr)
}

func (s *OracleClient) evaluateWith(ctx context.Context, modelName, prompt string) (model.SectionCoverage, error) {
	response, err := s.callGemini(ctx, modelName, prompt)
	if err != nil {
		return model.SectionCoverage{}, err
	}

	var result oracleResponse
	if err := json.Unmarshal([]byte(response), &result); err != nil {
		return model.SectionCoverage{}, fmt.Errorf("unparseable oracle response: %w", err)
	}

	return result.Sections, nil
}

// callGemini makes a request to the Gemini API
func (s *OracleClient) callGemini(ctx context.Context, modelName, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]string{
					{"text": prompt},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"responseMimeType": "application/json",
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s?key=%s", s.config.ModelEndpoint(modelName), s.config.APIKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	// Parse Gemini response structure
	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}

	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", err
	}

	if len(geminiResp.Candidates) > 0 && len(geminiResp.Candidates[0].Content.Parts) > 0 {
		return geminiResp.Candidates[0].Content.Parts[0].Text, nil
	}

	return "", fmt.Errorf("empty response from Gemini")
}

func buildCoveragePrompt(transcriptText string) string {
	return fmt.Sprintf(`You are reviewing a benefits-eligibility interview transcript. Decide which topics have been substantively discussed. Return ONLY valid JSON matching this schema:
{
  "sections": {
    "household": true or false,
    "income": true or false,
    "expenses": true or false,
    "assets": true or false,
    "special": true or false
  }
}

A section counts as covered only if the applicant actually provided information about it, not if it was merely mentioned or asked about.

- household: who lives in the home, household composition
- income: wages, benefits, or other money coming in
- expenses: rent, utilities, or other regular costs
- assets: savings, vehicles, property
- special: disabilities, pregnancy, or other special circumstances

Transcript:
%s`, transcriptText)
}
