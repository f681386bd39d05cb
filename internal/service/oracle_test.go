package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"snapintake/internal/config"
	"snapintake/internal/model"
)

func oracleTestConfig(baseURL string) *config.AIConfig {
	return &config.AIConfig{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Models: config.GeminiModels{
			Coverage:         "primary-model",
			CoverageFallback: "fallback-model",
		},
		TimeoutMS: 2000,
	}
}

func geminiPayload(t *testing.T, inner string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"candidates": []map[string]interface{}{
			{
				"content": map[string]interface{}{
					"parts": []map[string]string{{"text": inner}},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return body
}

func TestOracleEmptyInputMakesNoCalls(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	oracle := NewOracleClient(oracleTestConfig(srv.URL))

	for _, text := range []string{"", "   ", "\n\t "} {
		cov, err := oracle.Evaluate(context.Background(), text)
		if err != nil {
			t.Fatalf("evaluate %q: %v", text, err)
		}
		if cov != (model.SectionCoverage{}) {
			t.Fatalf("expected all-false for %q, got %+v", text, cov)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Fatalf("empty input must not reach the network, saw %d calls", n)
	}
}

func TestOracleParsesCoverage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(geminiPayload(t, `{"sections":{"household":true,"income":true,"expenses":false,"assets":false,"special":false}}`))
	}))
	defer srv.Close()

	oracle := NewOracleClient(oracleTestConfig(srv.URL))

	cov, err := oracle.Evaluate(context.Background(), "user: I live with my spouse and earn a salary")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !cov.Household || !cov.Income || cov.Expenses || cov.Assets || cov.Special {
		t.Fatalf("unexpected coverage %+v", cov)
	}
}

func TestOracleMissingKeysDefaultFalse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(geminiPayload(t, `{"sections":{"income":true}}`))
	}))
	defer srv.Close()

	oracle := NewOracleClient(oracleTestConfig(srv.URL))

	cov, err := oracle.Evaluate(context.Background(), "user: hello")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if cov.Household || !cov.Income || cov.Expenses || cov.Assets || cov.Special {
		t.Fatalf("missing keys must read false, got %+v", cov)
	}
}

func TestOracleFallsBackOnPrimaryFailure(t *testing.T) {
	t.Parallel()

	var models []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		models = append(models, r.URL.Path)
		if strings.Contains(r.URL.Path, "primary-model") {
			w.Write(geminiPayload(t, "not json at all"))
			return
		}
		w.Write(geminiPayload(t, `{"sections":{"assets":true}}`))
	}))
	defer srv.Close()

	oracle := NewOracleClient(oracleTestConfig(srv.URL))

	cov, err := oracle.Evaluate(context.Background(), "user: I have some savings")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !cov.Assets {
		t.Fatalf("expected fallback result, got %+v", cov)
	}
	if len(models) != 2 {
		t.Fatalf("expected primary then fallback, got %v", models)
	}
	if !strings.Contains(models[0], "primary-model") || !strings.Contains(models[1], "fallback-model") {
		t.Fatalf("wrong model order: %v", models)
	}
}

func TestOracleDegradesWhenBothModelsFail(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	oracle := NewOracleClient(oracleTestConfig(srv.URL))

	cov, err := oracle.Evaluate(context.Background(), "user: hello there")
	if !errors.Is(err, ErrOracleDegraded) {
		t.Fatalf("expected ErrOracleDegraded, got %v", err)
	}
	if cov != (model.SectionCoverage{}) {
		t.Fatalf("degraded result must be all-false, got %+v", cov)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("expected exactly one retry, got %d calls", n)
	}
}

func TestOracleDisabledUsesKeywordHeuristic(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	cfg := oracleTestConfig(srv.URL)
	cfg.APIKey = ""
	oracle := NewOracleClient(cfg)

	cov, err := oracle.Evaluate(context.Background(), "user: my rent and my salary")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !cov.Income || !cov.Expenses {
		t.Fatalf("expected keyword coverage, got %+v", cov)
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Fatalf("disabled oracle must not reach the network, saw %d calls", n)
	}
}
