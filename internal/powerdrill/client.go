package powerdrill

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client wraps Powerdrill API interactions. Credentials are fixed for the
// lifetime of the client.
type Client struct {
	endpoint   string
	userID     string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new Powerdrill client. The endpoint is the API base URL,
// e.g. https://ai.data.cloud/api/v2/team.
func NewClient(endpoint, userID, apiKey string) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		userID:   userID,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute, // analysis jobs can stream for a while
		},
	}
}

// envelope is the JSON wrapper around every non-streaming response.
type envelope struct {
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// do issues a request and decodes the data field of the response envelope
// into out. Query parameters always include user_id.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	resp, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RequestError{Message: fmt.Sprintf("reading response: %v", err)}
	}

	if err := checkStatus(resp.StatusCode, respBody); err != nil {
		return err
	}

	slog.Debug("powerdrill response", "method", method, "path", path, "status", resp.StatusCode)

	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return &RequestError{Status: resp.StatusCode, Message: fmt.Sprintf("decoding response: %v", err)}
	}
	if len(env.Data) == 0 {
		return &RequestError{Status: resp.StatusCode, Message: "response missing data field"}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &RequestError{Status: resp.StatusCode, Message: fmt.Sprintf("decoding response data: %v", err)}
	}
	return nil
}

// stream issues a request and hands the raw response body to the caller.
// The body is a forward-only, single-pass line stream; the caller owns closing it.
func (c *Client) stream(ctx context.Context, method, path string, body any) (io.ReadCloser, error) {
	resp, err := c.send(ctx, method, path, nil, body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err := checkStatus(resp.StatusCode, respBody); err != nil {
			return nil, err
		}
	}

	return resp.Body, nil
}

// send builds and executes the HTTP request. All failures come back as
// *AuthError or *RequestError.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &RequestError{Message: fmt.Sprintf("marshaling request: %v", err)}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reqBody)
	if err != nil {
		return nil, &RequestError{Message: fmt.Sprintf("creating request: %v", err)}
	}

	q := req.URL.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if q.Get("user_id") == "" {
		q.Set("user_id", c.userID)
	}
	req.URL.RawQuery = q.Encode()

	req.Header.Set("x-pd-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	slog.Debug("powerdrill request",
		"method", method,
		"url", req.URL.String(),
		"api_key", maskKey(c.apiKey))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RequestError{Message: err.Error()}
	}
	return resp, nil
}

// checkStatus maps a non-2xx response to the error taxonomy. 401/403 stay
// distinguishable as *AuthError; everything else becomes *RequestError with
// the upstream message when the body carried one.
func checkStatus(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		slog.Debug("powerdrill auth rejected", "status", status)
		return &AuthError{Status: status}
	}

	msg := strings.TrimSpace(string(body))
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		msg = env.Message
	}
	return &RequestError{Status: status, Message: msg}
}

// maskKey hides the middle of an API key for log output.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "********"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
