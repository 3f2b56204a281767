package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cloud-backend/internal/models"
)

func TestParseImageURLArray(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			"bare array",
			`["https://a/1.jpg","https://a/2.jpg"]`,
			[]string{"https://a/1.jpg", "https://a/2.jpg"},
		},
		{
			"array inside prose",
			"Here you go:\n[\"https://a/1.jpg\"]\nEnjoy!",
			[]string{"https://a/1.jpg"},
		},
		{
			"filters non-http entries",
			`["https://a/1.jpg", "ftp://b/2.jpg", 42, "https://c/3.jpg"]`,
			[]string{"https://a/1.jpg", "https://c/3.jpg"},
		},
		{
			"caps at five",
			`["http://a/1","http://a/2","http://a/3","http://a/4","http://a/5","http://a/6","http://a/7"]`,
			[]string{"http://a/1", "http://a/2", "http://a/3", "http://a/4", "http://a/5"},
		},
		{"no array at all", "sorry, I can't do that", nil},
		{"unparseable array", `[not json at all]`, nil},
		{"empty input", "", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseImageURLArray(tc.text)
			if len(got) != len(tc.want) {
				t.Fatalf("Expected %d URLs, got %d: %v", len(tc.want), len(got), got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("URL %d: expected %q, got %q", i, tc.want[i], got[i])
				}
			}
		})
	}
}

func completionJSON(content string, extra string) string {
	msg := `{"role":"assistant","content":` + mustJSON(content)
	if extra != "" {
		msg += "," + extra
	}
	msg += `}`
	return `{"id":"cmpl-1","object":"chat.completion","created":1,"model":"test",` +
		`"choices":[{"index":0,"message":` + msg + `,"finish_reason":"stop"}]}`
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestSearchImages_ParsesModelReply(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, completionJSON(`["https://a/1.jpg","https://a/2.jpg"]`, ""))
	}))
	defer ts.Close()

	svc := NewGatewayService(ts.URL, "test-key", "test-model", "test-image-model")
	urls := svc.SearchImages(context.Background(), "red pandas")

	if len(urls) != 2 || urls[0] != "https://a/1.jpg" {
		t.Errorf("Expected 2 parsed URLs, got %v", urls)
	}
}

func TestSearchImages_SoftFailsToEmpty(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	svc := NewGatewayService(ts.URL, "test-key", "test-model", "test-image-model")
	if urls := svc.SearchImages(context.Background(), "anything"); urls != nil {
		t.Errorf("Expected nil on upstream failure, got %v", urls)
	}
}

func TestGenerateImage_ReadsImagesExtension(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"modalities"`) {
			t.Errorf("Expected modalities extension in request body, got %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		extra := `"images":[{"type":"image_url","image_url":{"url":"https://img.example/out.png"}}]`
		io.WriteString(w, completionJSON("here it is", extra))
	}))
	defer ts.Close()

	svc := NewGatewayService(ts.URL, "test-key", "test-model", "test-image-model")
	url, err := svc.GenerateImage(context.Background(), "a sunset")
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if url != "https://img.example/out.png" {
		t.Errorf("Expected generated image URL, got %q", url)
	}
}

func TestGenerateImage_MissingImagesIsError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, completionJSON("no image for you", ""))
	}))
	defer ts.Close()

	svc := NewGatewayService(ts.URL, "test-key", "test-model", "test-image-model")
	if _, err := svc.GenerateImage(context.Background(), "a sunset"); err == nil {
		t.Error("Expected error when response has no images field")
	}
}

func TestStreamChat_PassesThroughBody(t *testing.T) {
	stream := "data: {\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}\n\ndata: [DONE]\n\n"

	var gotBody []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected bearer auth, got %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, stream)
	}))
	defer ts.Close()

	svc := NewGatewayService(ts.URL, "test-key", "test-model", "test-image-model")
	turns := []models.ChatTurn{models.TextTurn("user", "hello")}

	resp, err := svc.StreamChat(context.Background(), "system prompt here", turns, true)
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	defer resp.Body.Close()

	out, _ := io.ReadAll(resp.Body)
	if string(out) != stream {
		t.Errorf("Expected byte-for-byte pass-through, got %q", out)
	}

	var req struct {
		Model    string `json:"model"`
		Stream   bool   `json:"stream"`
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
		Tools []map[string]any `json:"tools"`
	}
	if err := json.Unmarshal(gotBody, &req); err != nil {
		t.Fatalf("Failed to parse upstream request: %v", err)
	}
	if req.Model != "test-model" || !req.Stream {
		t.Errorf("Expected model and stream flag set, got %+v", req)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
		t.Errorf("Expected system message first, got %+v", req.Messages)
	}
	if len(req.Tools) != 1 {
		t.Errorf("Expected web search tool attached, got %+v", req.Tools)
	}
}

func TestStreamChat_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"429 is rate limit", http.StatusTooManyRequests, func(err error) bool {
			var e *RateLimitError
			return errors.As(err, &e)
		}},
		{"402 is quota", http.StatusPaymentRequired, func(err error) bool {
			var e *QuotaError
			return errors.As(err, &e)
		}},
		{"503 is generic upstream", http.StatusServiceUnavailable, func(err error) bool {
			var e *UpstreamError
			return errors.As(err, &e) && e.Status == http.StatusServiceUnavailable
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tc.status)
			}))
			defer ts.Close()

			svc := NewGatewayService(ts.URL, "test-key", "test-model", "test-image-model")
			_, err := svc.StreamChat(context.Background(), "sys", nil, false)
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !tc.check(err) {
				t.Errorf("Wrong error type: %v", err)
			}
		})
	}
}
