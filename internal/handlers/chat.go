package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"cloud-backend/internal/intent"
	"cloud-backend/internal/markers"
	"cloud-backend/internal/models"
	"cloud-backend/internal/prompt"
	"cloud-backend/internal/services"
	"cloud-backend/internal/sse"
)

// chatGateway is the slice of GatewayService the relay pipeline needs.
type chatGateway interface {
	StreamChat(ctx context.Context, systemPrompt string, turns []models.ChatTurn, webSearch bool) (*http.Response, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
	SearchImages(ctx context.Context, query string) []string
}

type ChatHandler struct {
	gateway chatGateway
}

func NewChatHandler(gateway chatGateway) *ChatHandler {
	return &ChatHandler{gateway: gateway}
}

// Relay is the chat pipeline endpoint: classify the latest turn, run the
// matching capability, compose the system prompt and pipe the upstream SSE
// stream back to the client. Capability failures soft-degrade to the plain
// chat path; only upstream 429/402 and masked 500s ever reach the caller as
// errors.
func (h *ChatHandler) Relay(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if len(req.Messages) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "At least one message is required", r))
		return
	}

	ctx := r.Context()

	det := intent.None
	if req.CloudPlusEnabled {
		det = intent.Classify(req.Messages)
	}

	var galleryURLs []string
	switch det.Kind {
	case intent.KindImageGeneration:
		url, err := h.gateway.GenerateImage(ctx, det.Query)
		if err == nil {
			h.writeGeneratedImage(w, url, det.Query)
			return
		}
		// Soft degrade: the turn continues as plain chat.
		log.Printf("chat: image generation failed, falling back to plain chat: %v", err)
	case intent.KindImageSearch:
		galleryURLs = h.gateway.SearchImages(ctx, det.Query)
	}

	systemPrompt := prompt.Compose(prompt.ComposeInput{
		Preferences:      req.UserPreferences,
		IsCreator:        req.IsCreator,
		TemperatureUnit:  req.TemperatureUnit,
		ImageURLs:        galleryURLs,
		LabContext:       req.LabContext,
		SystemContext:    req.SystemContext,
		WebSearchEnabled: req.WebSearchEnabled,
	})

	resp, err := h.gateway.StreamChat(ctx, systemPrompt, req.Messages, req.WebSearchEnabled)
	if err != nil {
		var rateErr *services.RateLimitError
		var quotaErr *services.QuotaError
		switch {
		case errors.As(err, &rateErr):
			writeJSON(w, http.StatusTooManyRequests, errorResp("RATE_LIMITED", rateErr.Message, r))
		case errors.As(err, &quotaErr):
			writeJSON(w, http.StatusPaymentRequired, errorResp("QUOTA_EXCEEDED", quotaErr.Message, r))
		default:
			// Transport failures and unrecognized statuses are masked.
			log.Printf("chat: stream request failed: %v", err)
			writeJSON(w, http.StatusInternalServerError, errorResp("AI_ERROR", "Failed to get AI response", r))
		}
		return
	}
	defer resp.Body.Close()

	h.pipe(w, resp)
}

// writeGeneratedImage wraps a successful generation as a degenerate
// one-frame SSE stream so the client's reassembler handles it like any
// other reply.
func (h *ChatHandler) writeGeneratedImage(w http.ResponseWriter, url, imagePrompt string) {
	content := markers.BuildAIImage(url, imagePrompt) + "Here's your image! I hope you like it 🎨"

	setStreamHeaders(w)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(sse.FormatFrame(content)))
	w.Write([]byte(sse.FormatDone()))
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// pipe forwards the upstream body to the client unmodified, flushing after
// every read so deltas reach the client as they arrive.
func (h *ChatHandler) pipe(w http.ResponseWriter, resp *http.Response) {
	setStreamHeaders(w)
	w.WriteHeader(http.StatusOK)

	flusher, canFlush := w.(http.Flusher)
	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return // client went away
			}
			if canFlush {
				flusher.Flush()
			}
		}
		if err != nil {
			return
		}
	}
}

func setStreamHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}
