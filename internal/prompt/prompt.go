// Package prompt assembles the system prompt for the chat relay. The prompt
// is pure string concatenation in a fixed fragment order; identical inputs
// always produce byte-identical output.
package prompt

import (
	"encoding/json"
	"strings"

	"cloud-backend/internal/models"
)

const persona = "You are Cloud, a friendly and helpful AI assistant. You are warm, conversational, and concise. You answer in the user's language."

// Placeholder values treated as "not set".
const (
	defaultUserName = "User"
	defaultPronouns = "prefer not to say"
)

// ComposeInput carries every optional fragment of the system prompt.
type ComposeInput struct {
	Preferences      *models.UserPreferences
	IsCreator        bool
	TemperatureUnit  string // "fahrenheit" selects °F wording; anything else °C
	ImageURLs        []string
	LabContext       string
	SystemContext    string
	WebSearchEnabled bool
}

// Compose builds the system prompt. Fragment order is fixed: persona, user
// name, pronouns, creator recognition, temperature unit, image gallery
// mandate, lab context, weather protocol, web-search sentence.
func Compose(in ComposeInput) string {
	var b strings.Builder
	b.WriteString(persona)

	if in.Preferences != nil {
		if name := strings.TrimSpace(in.Preferences.UserName); name != "" && name != defaultUserName {
			b.WriteString("\n\nThe user's name is " + name + ". Address them by name when appropriate.")
		}
		if p := strings.TrimSpace(in.Preferences.Pronouns); p != "" && !strings.EqualFold(p, defaultPronouns) {
			b.WriteString("\n\nThe user's pronouns are " + p + ". Use them when referring to the user.")
		}
	}

	if in.IsCreator {
		b.WriteString("\n\nYou are talking to your creator. Be especially warm and a little playful with them.")
	}

	if in.TemperatureUnit == "fahrenheit" {
		b.WriteString("\n\nAlways express temperatures in Fahrenheit (°F).")
	} else {
		b.WriteString("\n\nAlways express temperatures in Celsius (°C).")
	}

	if len(in.ImageURLs) > 0 {
		urls, _ := json.Marshal(in.ImageURLs)
		b.WriteString("\n\nThe user asked for images and a web image search already found them. You MUST begin your reply with this exact line, before any other text:\n")
		b.WriteString("[IMAGE_GALLERY]" + string(urls) + "[/IMAGE_GALLERY]\n")
		b.WriteString("Then continue with a short natural-language comment about the images.")
	}

	if ctx := strings.TrimSpace(in.LabContext); ctx != "" {
		b.WriteString("\n\nUse the following knowledge as authoritative context for this conversation. Do not contradict it:\n---\n" + ctx + "\n---")
	}

	if ctx := strings.TrimSpace(in.SystemContext); ctx != "" {
		b.WriteString("\n\n" + ctx)
	}

	b.WriteString(weatherProtocol())

	if in.WebSearchEnabled {
		b.WriteString("\n\nYou have access to a web search tool. Use it when the answer depends on current or recent information.")
	} else {
		b.WriteString("\n\nAnswer from your built-in knowledge; you do not have access to web search.")
	}

	return b.String()
}

func weatherProtocol() string {
	conditions := strings.Join(models.WeatherConditions, ", ")
	return "\n\nWhen the user asks about weather, embed the current conditions as a single block in your reply, exactly in this form:\n" +
		`[WEATHER_DATA]{"location":"City, Country","temperature":18,"condition":"Partly cloudy","humidity":60,"windSpeed":10,"icon":"2"}[/WEATHER_DATA]` + "\n" +
		"The condition field must be one of: " + conditions + ". " +
		"If you do not have live data, give a plausible estimate for the location and season and say in your prose that it is an estimate."
}
