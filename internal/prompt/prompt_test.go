package prompt

import (
	"strings"
	"testing"

	"cloud-backend/internal/models"
)

func TestCompose_Deterministic(t *testing.T) {
	in := ComposeInput{
		Preferences:      &models.UserPreferences{UserName: "Ada", Pronouns: "she/her"},
		IsCreator:        true,
		TemperatureUnit:  "fahrenheit",
		ImageURLs:        []string{"https://a.example/1.jpg"},
		LabContext:       "The lab is about rockets.",
		WebSearchEnabled: true,
	}

	if Compose(in) != Compose(in) {
		t.Error("Expected byte-identical output for identical inputs")
	}
}

func TestCompose_OptionalFragments(t *testing.T) {
	tests := []struct {
		name     string
		in       ComposeInput
		contains []string
		excludes []string
	}{
		{
			name:     "bare input",
			in:       ComposeInput{},
			contains: []string{"You are Cloud", "Celsius", "[WEATHER_DATA]", "built-in knowledge"},
			excludes: []string{"The user's name is", "pronouns are", "your creator", "[IMAGE_GALLERY]"},
		},
		{
			name:     "name set",
			in:       ComposeInput{Preferences: &models.UserPreferences{UserName: "Ada"}},
			contains: []string{"The user's name is Ada"},
		},
		{
			name:     "placeholder name skipped",
			in:       ComposeInput{Preferences: &models.UserPreferences{UserName: "User"}},
			excludes: []string{"The user's name is"},
		},
		{
			name:     "placeholder pronouns skipped",
			in:       ComposeInput{Preferences: &models.UserPreferences{Pronouns: "Prefer not to say"}},
			excludes: []string{"pronouns are"},
		},
		{
			name:     "creator flag",
			in:       ComposeInput{IsCreator: true},
			contains: []string{"your creator"},
		},
		{
			name:     "fahrenheit",
			in:       ComposeInput{TemperatureUnit: "fahrenheit"},
			contains: []string{"Fahrenheit"},
			excludes: []string{"Celsius"},
		},
		{
			name:     "lab context",
			in:       ComposeInput{LabContext: "Rockets use fuel."},
			contains: []string{"Rockets use fuel.", "authoritative context"},
		},
		{
			name:     "web search enabled",
			in:       ComposeInput{WebSearchEnabled: true},
			contains: []string{"web search tool"},
			excludes: []string{"built-in knowledge"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := Compose(tc.in)
			for _, want := range tc.contains {
				if !strings.Contains(out, want) {
					t.Errorf("Expected prompt to contain %q", want)
				}
			}
			for _, not := range tc.excludes {
				if strings.Contains(out, not) {
					t.Errorf("Expected prompt to not contain %q", not)
				}
			}
		})
	}
}

func TestCompose_GalleryMandatePreservesURLOrder(t *testing.T) {
	urls := []string{
		"https://a.example/1.jpg",
		"https://b.example/2.jpg",
		"https://c.example/3.jpg",
		"https://d.example/4.jpg",
		"https://e.example/5.jpg",
	}

	out := Compose(ComposeInput{ImageURLs: urls})
	want := `[IMAGE_GALLERY]["https://a.example/1.jpg","https://b.example/2.jpg","https://c.example/3.jpg","https://d.example/4.jpg","https://e.example/5.jpg"][/IMAGE_GALLERY]`
	if !strings.Contains(out, want) {
		t.Errorf("Expected gallery mandate with URLs in order, got:\n%s", out)
	}
}

func TestCompose_WeatherProtocolListsClosedConditionSet(t *testing.T) {
	out := Compose(ComposeInput{})
	for _, c := range models.WeatherConditions {
		if !strings.Contains(out, c) {
			t.Errorf("Expected condition %q in weather protocol", c)
		}
	}
}
