package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"kisaanbot-be/internal/entity"
	"kisaanbot-be/internal/pkg/logger"
)

const defaultWeatherBaseURL = "https://api.openweathermap.org/data/3.0"

var weekdays = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

type IWeatherService interface {
	// ForecastSummary builds the 7-day weather message for a farm location:
	// per-day rain, total rain, the leading dry streak, and one advice line.
	ForecastSummary(ctx context.Context, loc entity.Location) (string, error)
}

type weatherService struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     logger.ILogger
}

type WeatherOption func(*weatherService)

func WithWeatherBaseURL(url string) WeatherOption {
	return func(s *weatherService) { s.baseURL = strings.TrimRight(url, "/") }
}

func WithWeatherHTTPClient(client *http.Client) WeatherOption {
	return func(s *weatherService) { s.client = client }
}

func NewWeatherService(apiKey string, log logger.ILogger, opts ...WeatherOption) IWeatherService {
	s := &weatherService{
		apiKey:  apiKey,
		baseURL: defaultWeatherBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type oneCallResponse struct {
	Daily []struct {
		Dt   int64   `json:"dt"`
		Rain float64 `json:"rain"`
	} `json:"daily"`
}

func (s *weatherService) ForecastSummary(ctx context.Context, loc entity.Location) (string, error) {
	url := fmt.Sprintf("%s/onecall?lat=%f&lon=%f&units=metric&exclude=minutely,hourly,alerts&appid=%s",
		s.baseURL, loc.Latitude, loc.Longitude, s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status error, got status %d. with response body %s", resp.StatusCode, string(body))
	}

	var payload oneCallResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", err
	}

	daily := payload.Daily
	if len(daily) > 7 {
		daily = daily[:7]
	}

	var sb strings.Builder
	sb.WriteString("7-day weather summary:\n")

	totalRain := 0
	dryStreak := 0
	for index, day := range daily {
		rain := int(math.Round(day.Rain))
		totalRain += rain

		var label string
		switch index {
		case 0:
			label = "Today"
		case 1:
			label = "Tomorrow"
		default:
			label = weekdays[time.Unix(day.Dt, 0).Weekday()]
		}

		// The streak only grows while every day so far has been dry.
		if rain == 0 && index == dryStreak {
			dryStreak++
		}

		sb.WriteString(fmt.Sprintf("\n%s\nRain: %d mm\n", label, rain))
	}

	var advice string
	switch {
	case len(daily) > 0 && daily[0].Rain > 0:
		advice = "Rain expected today. Avoid irrigation if possible."
	case dryStreak >= 5:
		advice = "Dry streak detected. Consider irrigation planning."
	default:
		advice = "Light rain expected. Monitor field conditions."
	}

	sb.WriteString(fmt.Sprintf("\nSummary:\nTotal rain (7 days): %d mm\nDry days in a row: %d\nAdvice: %s",
		totalRain, dryStreak, advice))

	return sb.String(), nil
}
