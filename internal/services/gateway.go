package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"cloud-backend/internal/models"
)

// Typed upstream failures. The chat handler maps these to the three caller
// visible statuses; everything else is masked as a generic 500.
type RateLimitError struct{ Message string }

func (e *RateLimitError) Error() string { return e.Message }

type QuotaError struct{ Message string }

func (e *QuotaError) Error() string { return e.Message }

type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Message)
}

// GatewayService talks to the OpenAI-compatible model gateway. Non-streaming
// calls (image search, image generation, title generation) go through the
// openai SDK; the streaming chat relay uses a raw HTTP request so the
// upstream SSE body can be piped to the client byte-for-byte.
type GatewayService struct {
	client     openai.Client
	httpClient *http.Client

	baseURL    string
	apiKey     string
	chatModel  string
	imageModel string
}

func NewGatewayService(baseURL, apiKey, chatModel, imageModel string) *GatewayService {
	return &GatewayService{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(baseURL),
		),
		// No deadline: the stream lives as long as the model generates.
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		chatModel:  chatModel,
		imageModel: imageModel,
	}
}

// streamRequest is the relay's wire body. Turns keep their raw content so
// multi-part messages pass through untouched.
type streamRequest struct {
	Model    string            `json:"model"`
	Messages []json.RawMessage `json:"messages"`
	Stream   bool              `json:"stream"`
	Tools    []map[string]any  `json:"tools,omitempty"`
}

// StreamChat issues the streaming completion request and returns the raw
// response. The caller owns resp.Body on success. A non-2xx status is read,
// closed and converted to one of the typed errors; transport failures come
// back as-is and are masked by the handler.
func (s *GatewayService) StreamChat(ctx context.Context, systemPrompt string, turns []models.ChatTurn, webSearch bool) (*http.Response, error) {
	messages := make([]json.RawMessage, 0, len(turns)+1)

	sys, _ := json.Marshal(map[string]string{"role": "system", "content": systemPrompt})
	messages = append(messages, sys)
	for _, t := range turns {
		m, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("failed to encode turn: %w", err)
		}
		messages = append(messages, m)
	}

	reqBody := streamRequest{
		Model:    s.chatModel,
		Messages: messages,
		Stream:   true,
	}
	if webSearch {
		reqBody.Tools = []map[string]any{{"type": "web_search"}}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		log.Printf("gateway: stream request rejected: status=%d body=%s", resp.StatusCode, detail)

		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			return nil, &RateLimitError{Message: "Rate limit reached. Please wait a moment and try again."}
		case http.StatusPaymentRequired:
			return nil, &QuotaError{Message: "Usage limit reached. Please check your plan and credits."}
		default:
			return nil, &UpstreamError{Status: resp.StatusCode, Message: "model gateway request failed"}
		}
	}

	return resp, nil
}

// GenerateImage asks an image-capable model for a single image and returns
// its URL. The image modality and the returned images array are gateway
// extensions outside the standard chat-completion schema, so the request is
// widened with WithJSONSet and the URL is dug out of the message's extra
// fields.
func (s *GatewayService) GenerateImage(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.imageModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage("Generate an image: " + prompt),
		},
	}, option.WithJSONSet("modalities", []string{"image", "text"}))
	if err != nil {
		return "", fmt.Errorf("image generation call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("image generation returned no choices")
	}

	field := resp.Choices[0].Message.JSON.ExtraFields["images"]
	if !field.Valid() {
		return "", fmt.Errorf("image generation response has no images field")
	}

	var images []struct {
		ImageURL struct {
			URL string `json:"url"`
		} `json:"image_url"`
	}
	if err := json.Unmarshal([]byte(field.Raw()), &images); err != nil {
		return "", fmt.Errorf("failed to parse images field: %w", err)
	}
	if len(images) == 0 || images[0].ImageURL.URL == "" {
		return "", fmt.Errorf("image generation returned no image URL")
	}
	return images[0].ImageURL.URL, nil
}

// SearchImages asks the model for direct image URLs matching the query. Any
// failure yields an empty slice: the chat proceeds without images rather
// than surfacing an error.
func (s *GatewayService) SearchImages(ctx context.Context, query string) []string {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	prompt := fmt.Sprintf(
		"Find up to 5 direct image URLs (ending in .jpg, .jpeg, .png, .webp or .gif, from reputable image hosts) for: %s\n"+
			"Respond with ONLY a JSON array of URL strings and nothing else.", query)

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.chatModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		log.Printf("gateway: image search call failed: %v", err)
		return nil
	}
	if len(resp.Choices) == 0 {
		return nil
	}
	return ParseImageURLArray(resp.Choices[0].Message.Content)
}

var jsonArrayRe = regexp.MustCompile(`(?s)\[.*\]`)

// ParseImageURLArray extracts the first JSON array substring from model
// output, keeps the http(s) string entries and caps the result at 5. Parse
// failures return nil.
func ParseImageURLArray(text string) []string {
	m := jsonArrayRe.FindString(text)
	if m == "" {
		return nil
	}

	var raw []any
	if err := json.Unmarshal([]byte(m), &raw); err != nil {
		log.Printf("gateway: image search returned unparseable array: %v", err)
		return nil
	}

	var urls []string
	for _, v := range raw {
		s, ok := v.(string)
		if !ok || !strings.HasPrefix(s, "http") {
			continue
		}
		urls = append(urls, s)
		if len(urls) == 5 {
			break
		}
	}
	return urls
}

// GenerateTitle produces a short conversation title from the first user
// message. Used by the title worker.
func (s *GatewayService) GenerateTitle(ctx context.Context, firstMessage string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.chatModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage("Write a title of at most 6 words for a conversation that starts with this message. Respond with the title only, no quotes:\n\n" + firstMessage),
		},
	})
	if err != nil {
		return "", fmt.Errorf("title generation call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("title generation returned no choices")
	}

	title := strings.TrimSpace(strings.Trim(resp.Choices[0].Message.Content, `"`))
	if title == "" {
		return "", fmt.Errorf("title generation returned empty text")
	}
	return title, nil
}
