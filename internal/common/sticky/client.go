// Package sticky implements the order API client for the payment provider.
package sticky

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

const (
	newOrderPath       = "/new_order"
	cardOnFilePath     = "/new_order_card_on_file"
	defaultCallTimeout = 30 * time.Second
)

type Client struct {
	baseURL    string
	authHeader string
	httpClient *commonhttp.Client
}

// Response carries the provider's reply. The body is always read as text
// first; Fields holds the decoded JSON, or a raw_response wrapper when the
// body is not valid JSON. Non-2xx statuses and undecodable bodies are data
// for the classifier, not client errors.
type Response struct {
	StatusCode int
	Body       string
	Fields     map[string]interface{}
}

func NewClient(baseURL, username, password string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	auth := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return &Client{
		baseURL:    baseURL,
		authHeader: "Basic " + auth,
		httpClient: commonhttp.NewClient(timeout),
	}
}

// NewOrder submits an initial, card-present order.
func (c *Client) NewOrder(ctx context.Context, payload interface{}) (*Response, error) {
	return c.post(ctx, newOrderPath, payload)
}

// NewOrderCardOnFile submits a followup order billed to the card stored on
// the referenced parent order.
func (c *Client) NewOrderCardOnFile(ctx context.Context, payload interface{}) (*Response, error) {
	return c.post(ctx, cardOnFilePath, payload)
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) (*Response, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order payload: %w", err)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.authHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       string(body),
		Fields:     decodeFields(body),
	}, nil
}

func decodeFields(body []byte) map[string]interface{} {
	var fields map[string]interface{}
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return map[string]interface{}{"raw_response": string(body)}
	}
	return fields
}
