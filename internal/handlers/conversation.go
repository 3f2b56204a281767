package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"cloud-backend/internal/markers"
	"cloud-backend/internal/middleware"
	"cloud-backend/internal/models"
	"cloud-backend/internal/repository"
	"cloud-backend/internal/worker"
)

type ConversationHandler struct {
	repo  *repository.ConversationRepo
	queue *redis.Client
}

func NewConversationHandler(repo *repository.ConversationRepo, queue *redis.Client) *ConversationHandler {
	return &ConversationHandler{repo: repo, queue: queue}
}

func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	c := &models.Conversation{
		UserID: middleware.GetUserID(r.Context()),
		Title:  strings.TrimSpace(req.Title),
	}
	if err := h.repo.Create(r.Context(), c); err != nil {
		log.Printf("conversation: create failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create conversation", r))
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	offset := 0
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}

	list, err := h.repo.ListByUser(r.Context(), middleware.GetUserID(r.Context()), limit, offset)
	if err != nil {
		log.Printf("conversation: list failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list conversations", r))
		return
	}
	if list == nil {
		list = []*models.Conversation{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"conversations": list})
}

func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := h.ownedConversation(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ConversationHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid conversation ID", r))
		return
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Title is required", r))
		return
	}

	err = h.repo.UpdateTitle(r.Context(), id, middleware.GetUserID(r.Context()), strings.TrimSpace(req.Title))
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Conversation not found", r))
		return
	}
	if err != nil {
		log.Printf("conversation: rename failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to rename conversation", r))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Conversation renamed"})
}

func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid conversation ID", r))
		return
	}

	err = h.repo.Delete(r.Context(), id, middleware.GetUserID(r.Context()))
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Conversation not found", r))
		return
	}
	if err != nil {
		log.Printf("conversation: delete failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete conversation", r))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Conversation deleted"})
}

func (h *ConversationHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	c, ok := h.ownedConversation(w, r)
	if !ok {
		return
	}

	msgs, err := h.repo.ListMessages(r.Context(), c.ID)
	if err != nil {
		log.Printf("conversation: list messages failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list messages", r))
		return
	}
	if msgs == nil {
		msgs = []*models.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": msgs})
}

// AppendMessage persists one turn. Assistant turns are run through the
// marker extractor first: widgets are stored as structured metadata and the
// prose is stored clean. After the first user/assistant exchange a title
// job is queued for the worker pool.
func (h *ConversationHandler) AppendMessage(w http.ResponseWriter, r *http.Request) {
	c, ok := h.ownedConversation(w, r)
	if !ok {
		return
	}

	var req struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if req.Role != "user" && req.Role != "assistant" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Role must be user or assistant", r))
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Content is required", r))
		return
	}

	msg := &models.Message{
		ConversationID: c.ID,
		Role:           req.Role,
		Content:        req.Content,
	}
	if req.Role == "assistant" {
		msg.Content, msg.Metadata = extractWidgets(req.Content)
	}

	if err := h.repo.CreateMessage(r.Context(), msg); err != nil {
		log.Printf("conversation: append message failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to save message", r))
		return
	}

	if req.Role == "assistant" && c.Title == models.DefaultConversationTitle {
		h.enqueueTitleJob(r, c)
	}

	writeJSON(w, http.StatusCreated, msg)
}

func (h *ConversationHandler) ownedConversation(w http.ResponseWriter, r *http.Request) (*models.Conversation, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid conversation ID", r))
		return nil, false
	}

	c, err := h.repo.GetByID(r.Context(), id, middleware.GetUserID(r.Context()))
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Conversation not found", r))
		return nil, false
	}
	if err != nil {
		log.Printf("conversation: lookup failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load conversation", r))
		return nil, false
	}
	return c, true
}

func (h *ConversationHandler) enqueueTitleJob(r *http.Request, c *models.Conversation) {
	msgs, err := h.repo.ListMessages(r.Context(), c.ID)
	if err != nil || len(msgs) == 0 {
		return
	}

	var first string
	for _, m := range msgs {
		if m.Role == "user" {
			first = m.Content
			break
		}
	}
	if first == "" {
		return
	}

	job := models.TitleJob{ConversationID: c.ID, UserID: c.UserID, FirstMessage: first}
	payload, _ := json.Marshal(job)
	if err := h.queue.RPush(r.Context(), worker.TitleQueue, payload).Err(); err != nil {
		log.Printf("conversation: failed to enqueue title job: %v", err)
	}
}

// extractWidgets pulls marker blocks out of assistant prose and packs them
// into the message metadata column.
func extractWidgets(content string) (string, json.RawMessage) {
	clean, blocks := markers.Extract(content)
	if len(blocks) == 0 {
		return clean, nil
	}

	meta := map[string]interface{}{}
	for _, b := range blocks {
		switch b.Kind {
		case markers.KindWeather:
			meta["weather"] = b.Weather
		case markers.KindImageGallery:
			meta["imageUrls"] = b.Gallery
		case markers.KindAIImage:
			meta["aiImage"] = b.AIImage
		}
	}
	raw, _ := json.Marshal(meta)
	return clean, raw
}
