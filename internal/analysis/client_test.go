package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"convocoach/internal/config"
	"convocoach/internal/services"
	"convocoach/internal/testsupport"
)

func analysisConfig(baseURL string) config.Analysis {
	return config.Analysis{
		Enabled:        true,
		APIKey:         "test",
		BaseURL:        baseURL,
		Model:          "demo-model",
		TimeoutSeconds: 5,
	}
}

func completionResponse(content string) map[string]any {
	return map[string]any{
		"choices": []any{
			map[string]any{
				"message": map[string]any{
					"content": content,
				},
			},
		},
	}
}

func TestClientAnalyze(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test" {
			t.Fatalf("missing auth header")
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "demo-model" {
			t.Fatalf("model = %q", req.Model)
		}
		if len(req.Messages) != 2 || !strings.Contains(req.Messages[1].Content, "conv-500") {
			t.Fatalf("unexpected messages: %#v", req.Messages)
		}
		payload := completionResponse(`{"summary":"Agent stayed calm and resolved the billing question."}`)
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(analysisConfig(server.URL))
	summary, err := client.Analyze(context.Background(),
		testsupport.SampleTranscript("conv-500"), testsupport.SampleMetadata("conv-500"))
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if summary.Text != "Agent stayed calm and resolved the billing question." {
		t.Fatalf("summary = %q", summary.Text)
	}
	if summary.Model != "demo-model" {
		t.Fatalf("model = %q", summary.Model)
	}
	if summary.GeneratedAt.IsZero() {
		t.Fatal("generated_at not set")
	}
}

func TestClientAnalyzeCodeFence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := completionResponse("```json\n{\"summary\":\"Solid call handling.\"}\n```")
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(analysisConfig(server.URL))
	summary, err := client.Analyze(context.Background(),
		testsupport.SampleTranscript("conv-501"), testsupport.SampleMetadata("conv-501"))
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if summary.Text != "Solid call handling." {
		t.Fatalf("summary = %q", summary.Text)
	}
}

func TestClientAnalyzeRetriesServerErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		payload := completionResponse(`{"summary":"Recovered after retries."}`)
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(analysisConfig(server.URL),
		WithRetryBackoff(time.Millisecond, 5*time.Millisecond),
		WithSleeper(func(time.Duration) {}),
	)
	summary, err := client.Analyze(context.Background(),
		testsupport.SampleTranscript("conv-502"), testsupport.SampleMetadata("conv-502"))
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if summary.Text != "Recovered after retries." {
		t.Fatalf("summary = %q", summary.Text)
	}
}

func TestClientAnalyzeRetriesRequestTimeouts(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			time.Sleep(300 * time.Millisecond)
			return
		}
		payload := completionResponse(`{"summary":"Recovered after a slow upstream."}`)
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(analysisConfig(server.URL),
		WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}),
		WithRetryBackoff(time.Millisecond, 5*time.Millisecond),
		WithSleeper(func(time.Duration) {}),
	)
	summary, err := client.Analyze(context.Background(),
		testsupport.SampleTranscript("conv-505"), testsupport.SampleMetadata("conv-505"))
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if got := attempts.Load(); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
	if summary.Text != "Recovered after a slow upstream." {
		t.Fatalf("summary = %q", summary.Text)
	}
}

func TestClientAnalyzeWrapsExhaustedTimeouts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(analysisConfig(server.URL),
		WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}),
		WithRetryMaxAttempts(2),
		WithRetryBackoff(time.Millisecond, 5*time.Millisecond),
		WithSleeper(func(time.Duration) {}),
	)
	_, err := client.Analyze(context.Background(),
		testsupport.SampleTranscript("conv-506"), testsupport.SampleMetadata("conv-506"))
	if !errors.Is(err, services.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if !services.IsRetryable(err) {
		t.Fatalf("timeout should be retryable, got %v", err)
	}
}

func TestClientAnalyzeDoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(analysisConfig(server.URL), WithSleeper(func(time.Duration) {}))
	_, err := client.Analyze(context.Background(),
		testsupport.SampleTranscript("conv-503"), testsupport.SampleMetadata("conv-503"))
	if !errors.Is(err, services.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestClientAnalyzeHonorsRetryAfter(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		payload := completionResponse(`{"summary":"After throttling."}`)
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	var slept time.Duration
	client := NewClient(analysisConfig(server.URL), WithSleeper(func(d time.Duration) { slept = d }))
	if _, err := client.Analyze(context.Background(),
		testsupport.SampleTranscript("conv-504"), testsupport.SampleMetadata("conv-504")); err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if slept != time.Second {
		t.Fatalf("expected Retry-After sleep of 1s, got %v", slept)
	}
}

func TestClientAnalyzeRequiresAPIKey(t *testing.T) {
	cfg := analysisConfig("http://127.0.0.1:0")
	cfg.APIKey = ""
	client := NewClient(cfg)

	_, err := client.Analyze(context.Background(),
		testsupport.SampleTranscript("conv-505"), testsupport.SampleMetadata("conv-505"))
	if !errors.Is(err, services.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestNoopProvider(t *testing.T) {
	summary, err := Noop{}.Analyze(context.Background(),
		testsupport.SampleTranscript("conv-506"), testsupport.SampleMetadata("conv-506"))
	if err != nil {
		t.Fatalf("Noop.Analyze: %v", err)
	}
	if summary.Text != "" {
		t.Fatalf("expected empty summary, got %q", summary.Text)
	}
}
