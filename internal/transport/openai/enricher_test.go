package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tripnote/tripnote/internal/domain"
	"github.com/tripnote/tripnote/internal/domain/enrichment"
	"github.com/tripnote/tripnote/internal/domain/record"
	"github.com/tripnote/tripnote/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEnrichmentMetrics()
	os.Exit(m.Run())
}

// chatServer replies to /chat/completions with the given assistant content.
func chatServer(t *testing.T, content string, inspect func(body map[string]any)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		if inspect != nil {
			raw, _ := io.ReadAll(r.Body)
			var body map[string]any
			_ = json.Unmarshal(raw, &body)
			inspect(body)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
			"usage": map[string]any{"prompt_tokens": 80, "completion_tokens": 20, "total_tokens": 100},
		})
	}))
}

func newTestEnricher(url string, rpm int) *Enricher {
	return NewEnricher(&Config{
		APIKey:            "test-key",
		BaseURL:           url,
		Model:             "test-model",
		RequestsPerMinute: rpm,
		Logger:            zap.NewNop(),
	})
}

func TestEnricher_Enrich(t *testing.T) {
	var sawJSONMode bool
	var userMsg string
	server := chatServer(t, `{"searchTerms":["ramen","shinjuku"],"filters":{"location":"Tokyo"},"suggestions":["try noodles"]}`,
		func(body map[string]any) {
			if rf, ok := body["response_format"].(map[string]any); ok && rf["type"] == "json_object" {
				sawJSONMode = true
			}
			msgs, _ := body["messages"].([]any)
			if len(msgs) == 2 {
				userMsg, _ = msgs[1].(map[string]any)["content"].(string)
			}
		})
	defer server.Close()

	e := newTestEnricher(server.URL, 0)
	resp, err := e.Enrich(context.Background(), enrichment.Request{
		Query:   "noodle place near the station",
		Context: []record.Record{{ID: "f1", Type: record.Food, Title: "Ramen bar"}},
	})
	if err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}
	if len(resp.SearchTerms) != 2 || resp.SearchTerms[0] != "ramen" {
		t.Errorf("SearchTerms = %v", resp.SearchTerms)
	}
	if resp.Filters["location"] != "Tokyo" {
		t.Errorf("Filters = %v", resp.Filters)
	}
	if !sawJSONMode {
		t.Error("request must ask for a JSON object reply")
	}
	if !strings.Contains(userMsg, `"query":"noodle place near the station"`) || !strings.Contains(userMsg, "Ramen bar") {
		t.Errorf("user message = %s", userMsg)
	}
}

func TestEnricher_RecordsUsage(t *testing.T) {
	server := chatServer(t, `{"searchTerms":["ramen"]}`, nil)
	defer server.Close()

	ctx, usage := enrichment.NewContextWithUsage(context.Background())
	if _, err := newTestEnricher(server.URL, 0).Enrich(ctx, enrichment.Request{Query: "ramen"}); err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if usage.Tokens() != 100 {
		t.Errorf("Tokens() = %d, want 100", usage.Tokens())
	}
}

func TestEnricher_FencedReply(t *testing.T) {
	server := chatServer(t, "```json\n{\"searchTerms\":[\"gelato\"]}\n```", nil)
	defer server.Close()

	resp, err := newTestEnricher(server.URL, 0).Enrich(context.Background(), enrichment.Request{Query: "ice cream"})
	if err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}
	if len(resp.SearchTerms) != 1 || resp.SearchTerms[0] != "gelato" {
		t.Errorf("SearchTerms = %v", resp.SearchTerms)
	}
	if resp.Filters == nil || resp.Suggestions == nil {
		t.Error("missing filters and suggestions must decode as empty, not nil")
	}
}

func TestEnricher_MalformedReply(t *testing.T) {
	server := chatServer(t, "sure! here are some terms: ramen, udon", nil)
	defer server.Close()

	_, err := newTestEnricher(server.URL, 0).Enrich(context.Background(), enrichment.Request{Query: "noodles"})
	if !errors.Is(err, domain.ErrEnrichmentUnavailable) {
		t.Errorf("err = %v, want ErrEnrichmentUnavailable", err)
	}
}

func TestEnricher_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"detail":"model is overloaded"}`))
	}))
	defer server.Close()

	_, err := newTestEnricher(server.URL, 0).Enrich(context.Background(), enrichment.Request{Query: "noodles"})
	if !errors.Is(err, domain.ErrEnrichmentUnavailable) {
		t.Fatalf("err = %v, want ErrEnrichmentUnavailable", err)
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("err = %v, want the status code in the message", err)
	}
}

func TestEnricher_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := newTestEnricher(server.URL, 0).Enrich(ctx, enrichment.Request{Query: "noodles"})
	if !errors.Is(err, domain.ErrEnrichmentUnavailable) {
		t.Errorf("err = %v, want ErrEnrichmentUnavailable", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("Enrich() ignored the context deadline")
	}
}

func TestEnricher_RateLimited(t *testing.T) {
	server := chatServer(t, `{"searchTerms":["x"]}`, nil)
	defer server.Close()

	e := newTestEnricher(server.URL, 1)
	if _, err := e.Enrich(context.Background(), enrichment.Request{Query: "first"}); err != nil {
		t.Fatalf("first call error = %v", err)
	}
	_, err := e.Enrich(context.Background(), enrichment.Request{Query: "second"})
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
}
