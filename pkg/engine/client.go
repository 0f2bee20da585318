package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// Client talks to the tour endpoints on behalf of the engine.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a client for the given base URL, e.g.
// "https://app.example.com".
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger.Named("tour-client"),
	}
}

// PageTours fetches the startable tours and auto-start decision for a page.
// Extra query parameters from the page URL ride along so URL triggers work.
func (c *Client) PageTours(ctx context.Context, pageURL string, pageQuery url.Values) (*PageToursPayload, error) {
	query := url.Values{}
	for key, values := range pageQuery {
		query[key] = values
	}
	query.Set("current_url", pageURL)

	endpoint := c.baseURL + "/api/page-tours?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page tours: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page tours request returned status %d", resp.StatusCode)
	}

	var payload PageToursPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode page tours payload: %w", err)
	}
	return &payload, nil
}

// Reporter delivers interaction reports. Delivery is best effort; callers
// never learn about failures.
type Reporter interface {
	Report(report Report, pageURL string)
}

// HTTPReporter posts reports to the track endpoint in the background.
// Failures are logged and dropped so a walkthrough never stalls on the
// network.
type HTTPReporter struct {
	client  *Client
	timeout time.Duration
}

// NewHTTPReporter creates a fire-and-forget reporter over client.
func NewHTTPReporter(client *Client) *HTTPReporter {
	return &HTTPReporter{client: client, timeout: 5 * time.Second}
}

var _ Reporter = (*HTTPReporter)(nil)

// Report delivers one interaction asynchronously.
func (r *HTTPReporter) Report(report Report, pageURL string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := r.client.track(ctx, report, pageURL); err != nil {
			r.client.logger.Warn("Failed to report tour interaction",
				zap.Int64("tour_id", report.TourID),
				zap.String("action", report.Action),
				zap.Error(err))
		}
	}()
}

func (c *Client) track(ctx context.Context, report Report, pageURL string) error {
	body, err := json.Marshal(map[string]any{
		"tour_id":        report.TourID,
		"action_type":    report.Action,
		"page_url":       pageURL,
		"step_completed": report.StepCompleted,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/track", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("track request returned status %d", resp.StatusCode)
	}
	return nil
}
