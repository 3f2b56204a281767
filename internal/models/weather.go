package models

// WeatherData is the payload of a [WEATHER_DATA] marker block and the
// response shape of the weather endpoint.
type WeatherData struct {
	Location    string  `json:"location"`
	Temperature float64 `json:"temperature"`
	Condition   string  `json:"condition"`
	Humidity    float64 `json:"humidity"`
	WindSpeed   float64 `json:"windSpeed"`
	Icon        string  `json:"icon"`
}

// WeatherConditions is the closed set of condition strings the model is
// instructed to use and the weather service maps WMO codes onto.
var WeatherConditions = []string{
	"Clear",
	"Partly cloudy",
	"Cloudy",
	"Overcast",
	"Fog",
	"Drizzle",
	"Rain",
	"Snow",
	"Thunderstorm",
}
