package prometheus

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/emiliopalmerini/abcta/internal/domain"
)

// Client queries Prometheus for the event counters the collector exports.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Prometheus client.
func NewClient(cfg Config) (*Client, error) {
	if !cfg.Enabled || cfg.URL == "" {
		return nil, fmt.Errorf("Prometheus client is disabled or URL not configured")
	}

	return &Client{
		baseURL: cfg.URL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// prometheusResponse represents the JSON response from Prometheus query API.
type prometheusResponse struct {
	Status string `json:"status"`
	Data   struct {
		ResultType string `json:"resultType"`
		Result     []struct {
			Metric map[string]string `json:"metric"`
			Value  []interface{}     `json:"value"`
		} `json:"result"`
	} `json:"data"`
}

// GetVariantEventCounts returns how many of each event every variant
// produced over the rolling window.
func (c *Client) GetVariantEventCounts(ctx context.Context, testID string, hours int) ([]domain.EventCount, error) {
	query := fmt.Sprintf(`sum by (variant, event) (increase(%s{test_id=%s}[%dh]))`,
		eventsMetric, strconv.Quote(testID), hours)

	resp, err := c.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying event counts: %w", err)
	}

	counts := make([]domain.EventCount, 0, len(resp.Data.Result))
	for _, r := range resp.Data.Result {
		if len(r.Value) < 2 {
			return nil, fmt.Errorf("unexpected result format")
		}
		valueStr, ok := r.Value[1].(string)
		if !ok {
			return nil, fmt.Errorf("unexpected value type")
		}
		value, err := strconv.ParseFloat(valueStr, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing value: %w", err)
		}
		counts = append(counts, domain.EventCount{
			Variant:   r.Metric["variant"],
			EventName: r.Metric["event"],
			Count:     int64(math.Round(value)),
		})
	}
	return counts, nil
}

// IsAvailable checks if Prometheus is reachable.
func (c *Client) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/-/ready", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

func (c *Client) query(ctx context.Context, query string) (*prometheusResponse, error) {
	u, err := url.Parse(c.baseURL + "/api/v1/query")
	if err != nil {
		return nil, fmt.Errorf("parsing URL: %w", err)
	}

	q := u.Query()
	q.Set("query", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var promResp prometheusResponse
	if err := json.NewDecoder(resp.Body).Decode(&promResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if promResp.Status != "success" {
		return nil, fmt.Errorf("prometheus query failed: %s", promResp.Status)
	}
	return &promResp, nil
}
