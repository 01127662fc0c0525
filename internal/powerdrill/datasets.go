package powerdrill

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// CreateDataset creates a new, empty dataset and returns its id.
func (c *Client) CreateDataset(ctx context.Context, name, description string) (string, error) {
	body := map[string]string{
		"name":        name,
		"description": description,
		"user_id":     c.userID,
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/datasets", nil, body, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", &RequestError{Message: "create dataset response missing id"}
	}
	return out.ID, nil
}

// ListDatasets lists all datasets visible to the user.
func (c *Client) ListDatasets(ctx context.Context) ([]Dataset, error) {
	var out struct {
		Records    []Dataset `json:"records"`
		TotalItems int       `json:"total_items"`
	}
	if err := c.do(ctx, http.MethodGet, "/datasets", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Records, nil
}

// GetDatasetOverview fetches the dataset's generated name, summary, keywords
// and suggested exploration questions.
func (c *Client) GetDatasetOverview(ctx context.Context, datasetID string) (*DatasetOverview, error) {
	var out DatasetOverview
	path := fmt.Sprintf("/datasets/%s/overview", datasetID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetDatasetStatus fetches the aggregate ingestion counts for a dataset.
func (c *Client) GetDatasetStatus(ctx context.Context, datasetID string) (*DatasetStatus, error) {
	var out DatasetStatus
	path := fmt.Sprintf("/datasets/%s/status", datasetID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteDataset deletes a dataset and everything registered against it.
func (c *Client) DeleteDataset(ctx context.Context, datasetID string) error {
	return c.do(ctx, http.MethodDelete, "/datasets/"+datasetID, nil, nil, nil)
}

// WaitForDatasetReady polls the dataset status until every data source has
// finished synchronizing, reporting true as soon as both the invalid and
// synching counts are zero. It reports false, not an error, when timeout
// elapses first. Cancelling the context aborts the wait.
func (c *Client) WaitForDatasetReady(ctx context.Context, datasetID string, timeout, interval time.Duration) (bool, error) {
	start := time.Now()
	for time.Since(start) < timeout {
		status, err := c.GetDatasetStatus(ctx, datasetID)
		if err != nil {
			return false, err
		}
		if status.InvalidCount == 0 && status.SynchingCount == 0 {
			return true, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(interval):
		}
	}
	return false, nil
}
