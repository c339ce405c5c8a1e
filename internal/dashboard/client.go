package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"stockdash/models"
)

// Client fetches analytics payloads from the backend.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient builds a client for baseURL. A zero timeout leaves requests unbounded.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Get returns the body of a successful GET to endpoint. Anything else is a *TransportError.
func (c *Client) Get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+endpoint, nil)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{Status: resp.StatusCode, Body: string(body)}
	}
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("failed to read response: %w", err)}
	}
	return body, nil
}

// decode fills v from body. An error envelope yields *ApplicationError,
// anything that is not the expected JSON shape yields *DecodeError.
func decode(body []byte, v any) error {
	trimmed := bytes.TrimSpace(body)

	var probe any
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return &DecodeError{Err: err}
	}
	if probe == nil {
		return &DecodeError{Err: errors.New("empty payload")}
	}

	if trimmed[0] == '{' {
		var envelope models.APIErrorPayload
		if err := json.Unmarshal(trimmed, &envelope); err == nil {
			if msg, ok := envelope.Message(); ok {
				return &ApplicationError{Message: msg}
			}
		}
	}

	if err := json.Unmarshal(trimmed, v); err != nil {
		return &DecodeError{Err: err}
	}
	return nil
}
