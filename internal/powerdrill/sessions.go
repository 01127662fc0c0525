package powerdrill

import (
	"context"
	"io"
	"net/http"
)

// CreateSession opens a new continuity context for a sequence of jobs and
// returns its id.
func (c *Client) CreateSession(ctx context.Context, name string, opts SessionOptions) (string, error) {
	body := map[string]any{
		"name":                       name,
		"output_language":            opts.OutputLanguage,
		"job_mode":                   opts.JobMode,
		"max_contextual_job_history": opts.MaxContextualJobHistory,
		"user_id":                    c.userID,
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/sessions", nil, body, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", &RequestError{Message: "create session response missing id"}
	}
	return out.ID, nil
}

// CreateJob submits a question against a dataset within a session and returns
// the raw streaming response body. The stream is single-pass; the caller must
// close it.
func (c *Client) CreateJob(ctx context.Context, datasetID, sessionID, question string) (io.ReadCloser, error) {
	body := map[string]any{
		"dataset_id": datasetID,
		"session_id": sessionID,
		"question":   question,
		"stream":     true,
		"user_id":    c.userID,
	}
	return c.stream(ctx, http.MethodPost, "/jobs", body)
}
