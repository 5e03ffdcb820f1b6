package analytics

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	commonhttp "funnel-orders/internal/common/http"
)

// RudderTracker delivers events to a RudderStack data plane over HTTP.
type RudderTracker struct {
	dataPlaneURL string
	authHeader   string
	httpClient   *commonhttp.Client
}

func NewRudderTracker(dataPlaneURL, writeKey string, timeout time.Duration) *RudderTracker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	// Rudder HTTP API authenticates with the write key as the basic-auth user.
	auth := base64.StdEncoding.EncodeToString([]byte(writeKey + ":"))
	return &RudderTracker{
		dataPlaneURL: dataPlaneURL,
		authHeader:   "Basic " + auth,
		httpClient:   commonhttp.NewClient(timeout),
	}
}

func (t *RudderTracker) Track(ctx context.Context, event string, properties map[string]interface{}) error {
	payload := map[string]interface{}{
		"event":      event,
		"properties": properties,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}
	if email, ok := properties["email"].(string); ok && email != "" {
		payload["anonymousId"] = email
	} else {
		payload["anonymousId"] = "anonymous"
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal track payload: %w", err)
	}

	url := t.dataPlaneURL + "/v1/track"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", t.authHeader)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("track rejected (status %d): %s", resp.StatusCode, string(body))
	}

	return nil
}
