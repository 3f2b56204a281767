package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"

	"cloud-backend/internal/models"
)

type weatherProvider interface {
	Current(ctx context.Context, location, unit string) (*models.WeatherData, error)
}

type WeatherHandler struct {
	weather weatherProvider
}

func NewWeatherHandler(weather weatherProvider) *WeatherHandler {
	return &WeatherHandler{weather: weather}
}

// Current resolves ?location= to live conditions, shaped exactly like the
// [WEATHER_DATA] marker payload so the frontend renders both the same way.
func (h *WeatherHandler) Current(w http.ResponseWriter, r *http.Request) {
	location := strings.TrimSpace(r.URL.Query().Get("location"))
	if location == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "location query parameter is required", r))
		return
	}

	unit := r.URL.Query().Get("unit")
	if unit != "fahrenheit" {
		unit = "celsius"
	}

	data, err := h.weather.Current(r.Context(), location, unit)
	if err != nil {
		log.Printf("weather: lookup failed for %q: %v", location, err)
		writeJSON(w, http.StatusNotFound, errorResp("WEATHER_UNAVAILABLE", "Could not resolve weather for that location", r))
		return
	}
	writeJSON(w, http.StatusOK, data)
}
