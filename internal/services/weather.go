package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"cloud-backend/internal/models"
)

// WeatherService resolves a free-text location to current conditions using
// the Open-Meteo geocoding and forecast APIs. Lookups are cached in Redis so
// repeated questions about the same place within a few minutes do not hit
// the provider again.
type WeatherService struct {
	httpClient *http.Client
	cache      *redis.Client

	geocodeURL  string
	forecastURL string
}

const weatherCacheTTL = 10 * time.Minute

func NewWeatherService(cache *redis.Client) *WeatherService {
	return &WeatherService{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		cache:       cache,
		geocodeURL:  "https://geocoding-api.open-meteo.com/v1/search",
		forecastURL: "https://api.open-meteo.com/v1/forecast",
	}
}

// Current returns conditions for a location. unit is "celsius" or
// "fahrenheit"; temperatures are cached in celsius and converted on the way
// out.
func (s *WeatherService) Current(ctx context.Context, location, unit string) (*models.WeatherData, error) {
	key := "weather:" + strings.ToLower(strings.TrimSpace(location))

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key).Result(); err == nil {
			var w models.WeatherData
			if json.Unmarshal([]byte(cached), &w) == nil {
				return convertUnit(&w, unit), nil
			}
		}
	}

	lat, lon, resolved, err := s.geocode(ctx, location)
	if err != nil {
		return nil, err
	}

	w, err := s.fetchCurrent(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	w.Location = resolved

	if s.cache != nil {
		if data, err := json.Marshal(w); err == nil {
			s.cache.Set(ctx, key, data, weatherCacheTTL)
		}
	}
	return convertUnit(w, unit), nil
}

func (s *WeatherService) geocode(ctx context.Context, location string) (lat, lon float64, resolved string, err error) {
	u := fmt.Sprintf("%s?name=%s&count=1&language=en&format=json", s.geocodeURL, url.QueryEscape(location))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, 0, "", err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, 0, "", fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, "", fmt.Errorf("geocoding returned status %d", resp.StatusCode)
	}

	var body struct {
		Results []struct {
			Name      string  `json:"name"`
			Country   string  `json:"country"`
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, 0, "", fmt.Errorf("failed to decode geocoding response: %w", err)
	}
	if len(body.Results) == 0 {
		return 0, 0, "", fmt.Errorf("location %q not found", location)
	}

	r := body.Results[0]
	resolved = r.Name
	if r.Country != "" {
		resolved += ", " + r.Country
	}
	return r.Latitude, r.Longitude, resolved, nil
}

func (s *WeatherService) fetchCurrent(ctx context.Context, lat, lon float64) (*models.WeatherData, error) {
	u := fmt.Sprintf("%s?latitude=%f&longitude=%f&current=temperature_2m,relative_humidity_2m,wind_speed_10m,weather_code",
		s.forecastURL, lat, lon)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forecast request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("forecast returned status %d", resp.StatusCode)
	}

	var body struct {
		Current struct {
			Temperature float64 `json:"temperature_2m"`
			Humidity    float64 `json:"relative_humidity_2m"`
			WindSpeed   float64 `json:"wind_speed_10m"`
			WeatherCode int     `json:"weather_code"`
		} `json:"current"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode forecast response: %w", err)
	}

	condition, icon := MapWeatherCode(body.Current.WeatherCode)
	return &models.WeatherData{
		Temperature: body.Current.Temperature,
		Condition:   condition,
		Humidity:    body.Current.Humidity,
		WindSpeed:   body.Current.WindSpeed,
		Icon:        icon,
	}, nil
}

// MapWeatherCode folds a WMO weather code into the closed condition set the
// marker protocol allows. The icon is the condition's index in that set.
func MapWeatherCode(code int) (condition, icon string) {
	switch {
	case code == 0:
		condition = "Clear"
	case code <= 2:
		condition = "Partly cloudy"
	case code == 3:
		condition = "Overcast"
	case code == 45 || code == 48:
		condition = "Fog"
	case code >= 51 && code <= 57:
		condition = "Drizzle"
	case (code >= 61 && code <= 67) || (code >= 80 && code <= 82):
		condition = "Rain"
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		condition = "Snow"
	case code >= 95:
		condition = "Thunderstorm"
	default:
		condition = "Cloudy"
	}

	for i, c := range models.WeatherConditions {
		if c == condition {
			return condition, fmt.Sprintf("%d", i)
		}
	}
	return condition, "0"
}

func convertUnit(w *models.WeatherData, unit string) *models.WeatherData {
	if unit != "fahrenheit" {
		return w
	}
	out := *w
	out.Temperature = w.Temperature*9/5 + 32
	return &out
}
