package powerdrill

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
)

// ListDataSources lists the data sources registered against a dataset.
func (c *Client) ListDataSources(ctx context.Context, datasetID string) ([]DataSource, error) {
	var out struct {
		Records []DataSource `json:"records"`
	}
	path := fmt.Sprintf("/datasets/%s/datasources", datasetID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Records, nil
}

// CreateDataSource uploads a local file and registers it against the dataset.
// The upload is two-step: the raw bytes go to the file endpoint, which returns
// an object key, and the key is then registered as a FILE data source under
// fileName.
func (c *Client) CreateDataSource(ctx context.Context, datasetID, filePath, fileName string) (*DataSource, error) {
	objectKey, err := c.uploadFile(ctx, filePath, fileName)
	if err != nil {
		return nil, err
	}

	body := map[string]string{
		"name":            fileName,
		"type":            "FILE",
		"file_object_key": objectKey,
		"user_id":         c.userID,
	}
	var out DataSource
	path := fmt.Sprintf("/datasets/%s/datasources", datasetID)
	if err := c.do(ctx, http.MethodPost, path, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteDataSource removes one data source from a dataset.
func (c *Client) DeleteDataSource(ctx context.Context, datasetID, dataSourceID string) error {
	path := fmt.Sprintf("/datasets/%s/datasources/%s", datasetID, dataSourceID)
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// uploadFile sends the file bytes as a multipart form and returns the object
// key the registration step needs.
func (c *Client) uploadFile(ctx context.Context, filePath, fileName string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", &RequestError{Message: fmt.Sprintf("opening %s: %v", filepath.Base(filePath), err)}
	}
	defer f.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return "", &RequestError{Message: fmt.Sprintf("building upload form: %v", err)}
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", &RequestError{Message: fmt.Sprintf("reading %s: %v", fileName, err)}
	}
	if err := writer.Close(); err != nil {
		return "", &RequestError{Message: fmt.Sprintf("building upload form: %v", err)}
	}

	uploadURL := c.endpoint + "/file/upload-datasource"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, &buf)
	if err != nil {
		return "", &RequestError{Message: fmt.Sprintf("creating upload request: %v", err)}
	}
	q := url.Values{"user_id": {c.userID}}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("x-pd-api-key", c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	slog.Debug("powerdrill file upload",
		"url", uploadURL,
		"file", fileName,
		"api_key", maskKey(c.apiKey))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &RequestError{Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &RequestError{Message: fmt.Sprintf("reading upload response: %v", err)}
	}
	if err := checkStatus(resp.StatusCode, respBody); err != nil {
		return "", err
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return "", &RequestError{Status: resp.StatusCode, Message: fmt.Sprintf("decoding upload response: %v", err)}
	}
	var out struct {
		FileObjectKey string `json:"file_object_key"`
	}
	if err := json.Unmarshal(env.Data, &out); err != nil || out.FileObjectKey == "" {
		return "", &RequestError{Status: resp.StatusCode, Message: "upload response missing file_object_key"}
	}
	return out.FileObjectKey, nil
}
