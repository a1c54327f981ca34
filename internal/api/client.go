package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"zonemeter/internal/config"
	"zonemeter/internal/logger"
	"zonemeter/internal/models"
	"zonemeter/internal/sanitize"
)

// CounterSuffix is the register field the accounting path consumes. The
// gateway publishes further suffixes (power, voltage) which reporting may
// request explicitly; accounting only ever reads the cumulative counter.
const CounterSuffix = "energy"

// Client polls live register values from the field gateway. Every poll
// returns the full current mapping for all known meters.
type Client struct {
	config *config.Config
	http   *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		config: cfg,
		http:   &http.Client{Timeout: cfg.API.Timeout()},
	}
}

func (c *Client) createRequest(ctx context.Context, method, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.config.API.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}

	// Add basic auth
	auth := base64.StdEncoding.EncodeToString([]byte(c.config.API.Username + ":" + c.config.API.Password))
	req.Header.Add("Authorization", "Basic "+auth)
	req.Header.Add("Accept", "application/json")
	req.Header.Add("User-Agent", "zonemeter/1.0")

	return req, nil
}

func (c *Client) TestConnection(ctx context.Context) error {
	req, err := c.createRequest(ctx, "GET", "/v1/overview")
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}

// FetchRaw returns the flat key -> value mapping exactly as the gateway
// reports it, keys parsed into typed ReadingKeys. Malformed keys are logged
// and dropped rather than failing the poll.
func (c *Client) FetchRaw(ctx context.Context) (map[models.ReadingKey]float64, error) {
	req, err := c.createRequest(ctx, "GET", "/v1/readings")
	if err != nil {
		return nil, fmt.Errorf("creating request: %v", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	var flat map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&flat); err != nil {
		return nil, fmt.Errorf("decoding response: %v", err)
	}

	readings := make(map[models.ReadingKey]float64, len(flat))
	for raw, value := range flat {
		key, err := models.ParseReadingKey(raw)
		if err != nil {
			logger.Warn("dropping malformed gateway key", "key", raw)
			continue
		}
		readings[key] = value
	}
	return readings, nil
}

// FetchCounters polls the gateway and reduces the raw mapping to one
// sanitized cumulative counter reading per meter, stamped with now.
func (c *Client) FetchCounters(ctx context.Context) ([]models.MeterReading, error) {
	raw, err := c.FetchRaw(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var readings []models.MeterReading
	for key, value := range raw {
		if key.Suffix != CounterSuffix {
			continue
		}
		readings = append(readings, models.MeterReading{
			MeterID: key.MeterID,
			TakenAt: now,
			Value:   sanitize.Counter(value),
		})
	}
	return readings, nil
}
