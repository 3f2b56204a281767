package handlers

import (
	"encoding/json"
	"testing"
)

func TestExtractWidgets_Weather(t *testing.T) {
	content := `Nice day! [WEATHER_DATA]{"location":"Oslo, Norway","temperature":-3,"condition":"Snow","humidity":80,"windSpeed":5,"icon":"7"}[/WEATHER_DATA]`

	clean, meta := extractWidgets(content)
	if clean != "Nice day!" {
		t.Errorf("Expected clean prose, got %q", clean)
	}

	var parsed struct {
		Weather *struct {
			Location    string  `json:"location"`
			Temperature float64 `json:"temperature"`
		} `json:"weather"`
	}
	if err := json.Unmarshal(meta, &parsed); err != nil {
		t.Fatalf("Failed to parse metadata: %v", err)
	}
	if parsed.Weather == nil || parsed.Weather.Location != "Oslo, Norway" {
		t.Errorf("Expected weather metadata, got %s", meta)
	}
}

func TestExtractWidgets_NoMarkers(t *testing.T) {
	clean, meta := extractWidgets("just prose")
	if clean != "just prose" {
		t.Errorf("Expected prose unchanged, got %q", clean)
	}
	if meta != nil {
		t.Errorf("Expected nil metadata, got %s", meta)
	}
}

func TestExtractWidgets_GalleryAndAIImage(t *testing.T) {
	content := `[IMAGE_GALLERY]["https://a/1.jpg","https://a/2.jpg"][/IMAGE_GALLERY]Found these.`

	clean, meta := extractWidgets(content)
	if clean != "Found these." {
		t.Errorf("Expected clean prose, got %q", clean)
	}

	var parsed struct {
		ImageURLs []string `json:"imageUrls"`
	}
	if err := json.Unmarshal(meta, &parsed); err != nil {
		t.Fatalf("Failed to parse metadata: %v", err)
	}
	if len(parsed.ImageURLs) != 2 {
		t.Errorf("Expected 2 gallery URLs, got %v", parsed.ImageURLs)
	}
}
