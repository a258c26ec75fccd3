// Package weather fetches the current forecast condition recorded on a
// booking. Conditions are normalized to the fixed vocabulary the risk
// features encode; anything the provider reports outside it, and any
// fetch failure, degrades to an empty condition which encodes as unknown.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brukd/attend/internal/shared/config"
)

// Client fetches current conditions from an external forecast API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

const requestTimeout = 5 * time.Second

// NewClient creates a weather client
func NewClient(cfg config.WeatherConfig) *Client {
	return &Client{
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// conditionResponse is the provider payload. Only the condition field
// matters; everything else is ignored.
type conditionResponse struct {
	Condition string `json:"condition"`
	Weather   string `json:"weather,omitempty"`
}

// Current returns the current condition normalized to the model
// vocabulary, or an empty string when the provider cannot be reached.
// A booking never fails on weather, so errors are logged and swallowed.
func (c *Client) Current(ctx context.Context) string {
	condition, err := c.fetch(ctx)
	if err != nil {
		log.Printf("Weather lookup failed: %v", err)
		return ""
	}
	return condition
}

func (c *Client) fetch(ctx context.Context) (string, error) {
	if c.baseURL == "" {
		return "", fmt.Errorf("no weather endpoint configured")
	}

	endpoint := c.baseURL
	if c.apiKey != "" {
		u, err := url.Parse(endpoint)
		if err != nil {
			return "", fmt.Errorf("invalid weather endpoint: %w", err)
		}
		q := u.Query()
		q.Set("key", c.apiKey)
		u.RawQuery = q.Encode()
		endpoint = u.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch conditions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var apiResp conditionResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	raw := apiResp.Condition
	if raw == "" {
		raw = apiResp.Weather
	}

	return Normalize(raw), nil
}

// Normalize maps a provider condition string onto the model vocabulary.
// Unrecognized conditions map to empty, which encodes as unknown.
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))

	switch {
	case s == "":
		return ""
	case strings.Contains(s, "sun") || strings.Contains(s, "clear"):
		return "sunny"
	case strings.Contains(s, "snow") || strings.Contains(s, "sleet") || strings.Contains(s, "ice"):
		return "snowy"
	case strings.Contains(s, "rain") || strings.Contains(s, "drizzle") ||
		strings.Contains(s, "shower") || strings.Contains(s, "storm"):
		return "rainy"
	case strings.Contains(s, "cloud") || strings.Contains(s, "overcast") ||
		strings.Contains(s, "fog") || strings.Contains(s, "mist"):
		return "cloudy"
	default:
		return ""
	}
}
