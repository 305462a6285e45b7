package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultTimeout = 15 * time.Second

// HTTPNotifier delivers email through a JSON HTTP API
// (POST {baseURL}/send with a bearer token).
type HTTPNotifier struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPNotifier(baseURL, token string, timeout time.Duration) *HTTPNotifier {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &HTTPNotifier{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

type sendRequest struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
}

type sendResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id"`
	Error     string `json:"error"`
}

func (n *HTTPNotifier) SendEmail(ctx context.Context, to, subject, htmlBody string) (Result, error) {
	body, err := json.Marshal(sendRequest{To: to, Subject: subject, HTMLBody: htmlBody})
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/send", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create send request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("email transport request failed: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	var decoded sendResponse

	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Result{}, fmt.Errorf("failed to decode transport response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return Result{Success: false, Error: decoded.Error},
			fmt.Errorf("email transport rejected message: status %d: %s", resp.StatusCode, decoded.Error)
	}

	return Result{
		Success:   decoded.Success,
		MessageID: decoded.MessageID,
		Error:     decoded.Error,
	}, nil
}
