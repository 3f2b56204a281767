package intent

import (
	"encoding/json"
	"testing"

	"cloud-backend/internal/models"
)

func userTurn(text string) []models.ChatTurn {
	return []models.ChatTurn{models.TextTurn("user", text)}
}

func TestClassify_GenerationBeatsSearch(t *testing.T) {
	// "image ... of X" also matches the search grammar; generation must win.
	got := Classify(userTurn("generate an image of a sunset"))
	if got.Kind != KindImageGeneration {
		t.Fatalf("Expected generation intent, got kind %d", got.Kind)
	}
	if got.Query != "a sunset" {
		t.Errorf("Expected query 'a sunset', got %q", got.Query)
	}
}

func TestClassify_BareGenerationUsesFullMessage(t *testing.T) {
	got := Classify(userTurn("generate an image"))
	if got.Kind != KindImageGeneration {
		t.Fatalf("Expected generation intent, got kind %d", got.Kind)
	}
	if got.Query != "generate an image" {
		t.Errorf("Expected full message as prompt, got %q", got.Query)
	}
}

func TestClassify_Patterns(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		kind  Kind
		query string
	}{
		{"draw with subject", "draw me a picture of a red panda", KindImageGeneration, "a red panda"},
		{"design artwork", "Design artwork showing a storm at sea", KindImageGeneration, "a storm at sea"},
		{"create illustration for", "create an illustration for my blog post", KindImageGeneration, "my blog post"},
		{"make art uppercase", "MAKE ME AN IMAGE OF A CASTLE", KindImageGeneration, "A CASTLE"},
		{"show me pictures", "show me pictures of red pandas", KindImageSearch, "red pandas"},
		{"find some photos", "find some photos of the Eiffel Tower", KindImageSearch, "the Eiffel Tower"},
		{"get images for", "get images for my presentation", KindImageSearch, "my presentation"},
		{"bare images of", "images of the northern lights", KindImageSearch, "the northern lights"},
		{"plain chat", "What's the weather in Paris?", KindNone, ""},
		{"mentions image without verb", "I like that image a lot", KindNone, ""},
		{"empty message", "", KindNone, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(userTurn(tc.text))
			if got.Kind != tc.kind {
				t.Fatalf("Expected kind %d, got %d", tc.kind, got.Kind)
			}
			if got.Query != tc.query {
				t.Errorf("Expected query %q, got %q", tc.query, got.Query)
			}
		})
	}
}

func TestClassify_OnlyFinalUserTurn(t *testing.T) {
	turns := []models.ChatTurn{
		models.TextTurn("user", "generate an image of a cat"),
		models.TextTurn("assistant", "Here you go!"),
	}
	if got := Classify(turns); got.Kind != KindNone {
		t.Errorf("Expected no intent when final turn is not the user's, got kind %d", got.Kind)
	}

	if got := Classify(nil); got.Kind != KindNone {
		t.Errorf("Expected no intent for empty turn list, got kind %d", got.Kind)
	}
}

func TestClassify_MultiPartContent(t *testing.T) {
	content, _ := json.Marshal([]models.ContentPart{
		{Type: "image_url", ImageURL: &struct {
			URL string `json:"url"`
		}{URL: "https://example.com/a.png"}},
		{Type: "text", Text: "show me pictures of mountains"},
	})
	turns := []models.ChatTurn{{Role: "user", Content: content}}

	got := Classify(turns)
	if got.Kind != KindImageSearch {
		t.Fatalf("Expected search intent from first text part, got kind %d", got.Kind)
	}
	if got.Query != "mountains" {
		t.Errorf("Expected query 'mountains', got %q", got.Query)
	}
}
