// Package markers implements the in-band marker protocol layered on top of
// model prose. Structured payloads travel between [TAG]...[/TAG] delimiter
// pairs inside the free-text channel; extraction is fail-open: a span whose
// payload does not parse is left in the text untouched and yields no block.
package markers

import (
	"encoding/json"
	"regexp"
	"strings"

	"cloud-backend/internal/models"
)

type Kind string

const (
	KindWeather      Kind = "weather"
	KindImageGallery Kind = "imageGallery"
	KindAIImage      Kind = "aiImage"
)

// Block is one extracted marker. Exactly one payload field is set,
// matching Kind.
type Block struct {
	Kind    Kind
	Weather *models.WeatherData
	Gallery []string
	AIImage *AIImagePayload
}

type AIImagePayload struct {
	URL    string `json:"url"`
	Prompt string `json:"prompt"`
}

var (
	weatherRe  = regexp.MustCompile(`(?s)\[WEATHER_DATA\](.*?)\[/WEATHER_DATA\]`)
	galleryRe  = regexp.MustCompile(`(?s)\[IMAGE_GALLERY\](.*?)\[/IMAGE_GALLERY\]`)
	aiImageRe  = regexp.MustCompile(`(?s)\[AI_GENERATED_IMAGE\](.*?)\[/AI_GENERATED_IMAGE\]`)
	aiPromptRe = regexp.MustCompile(`(?s)\[AI_IMAGE_PROMPT\](.*?)\[/AI_IMAGE_PROMPT\]`)
)

// Extract pulls marker blocks out of text and strips the matched spans from
// the prose. Each kind is matched independently (first occurrence only), so
// a gallery and a weather block can coexist in one message. Running Extract
// on already-cleaned text is a no-op.
func Extract(text string) (string, []Block) {
	clean := text
	var blocks []Block

	if m := weatherRe.FindStringSubmatch(clean); m != nil {
		var w models.WeatherData
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &w); err == nil {
			clean = strings.Replace(clean, m[0], "", 1)
			blocks = append(blocks, Block{Kind: KindWeather, Weather: &w})
		}
	}

	if m := galleryRe.FindStringSubmatch(clean); m != nil {
		var urls []string
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &urls); err == nil {
			clean = strings.Replace(clean, m[0], "", 1)
			blocks = append(blocks, Block{Kind: KindImageGallery, Gallery: urls})
		}
	}

	if m := aiImageRe.FindStringSubmatch(clean); m != nil {
		url := strings.TrimSpace(m[1])
		if strings.HasPrefix(url, "http") {
			clean = strings.Replace(clean, m[0], "", 1)
			payload := &AIImagePayload{URL: url}
			if pm := aiPromptRe.FindStringSubmatch(clean); pm != nil {
				payload.Prompt = strings.TrimSpace(pm[1])
				clean = strings.Replace(clean, pm[0], "", 1)
			}
			blocks = append(blocks, Block{Kind: KindAIImage, AIImage: payload})
		}
	}

	return strings.TrimSpace(clean), blocks
}

// BuildWeather renders a WeatherData as its wire form.
func BuildWeather(w models.WeatherData) string {
	payload, _ := json.Marshal(w)
	return "[WEATHER_DATA]" + string(payload) + "[/WEATHER_DATA]"
}

// BuildGallery renders an image URL list as its wire form.
func BuildGallery(urls []string) string {
	payload, _ := json.Marshal(urls)
	return "[IMAGE_GALLERY]" + string(payload) + "[/IMAGE_GALLERY]"
}

// BuildAIImage renders a generated-image result as its wire form: the image
// marker followed by the sibling prompt marker.
func BuildAIImage(url, prompt string) string {
	return "[AI_GENERATED_IMAGE]" + url + "[/AI_GENERATED_IMAGE]" +
		"[AI_IMAGE_PROMPT]" + prompt + "[/AI_IMAGE_PROMPT]"
}
