package esa

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// UploadResult is the outcome of UploadAttachment. A non-empty Error means
// the API declined the file; no upload was attempted.
type UploadResult struct {
	Error   string
	Message string
	URL     string
}

type uploadPolicy struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	Attachment struct {
		Endpoint string `json:"endpoint"`
		URL      string `json:"url"`
	} `json:"attachment"`
	Form map[string]string `json:"form"`
}

// UploadAttachment stores the file at path. It asks the API for an upload
// policy, then posts the file to the storage endpoint the policy names.
func (c *Client) UploadAttachment(ctx context.Context, path string) (*UploadResult, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the export's attachments directory
	if err != nil {
		return nil, &LocalError{Err: fmt.Errorf("esa: read attachment: %w", err)}
	}
	name := filepath.Base(path)
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	policy, err := c.requestPolicy(ctx, name, contentType, len(data))
	var apiErr *APIError
	if errors.As(err, &apiErr) && isRejection(apiErr) {
		return &UploadResult{Error: apiErr.Code, Message: apiErr.Message}, nil
	}
	if err != nil {
		return nil, err
	}
	if policy.Error != "" {
		return &UploadResult{Error: policy.Error, Message: policy.Message}, nil
	}
	if policy.Attachment.Endpoint == "" || policy.Attachment.URL == "" {
		return nil, &LocalError{Err: fmt.Errorf("esa: upload policy for %s has no endpoint", name)}
	}

	if err := c.putObject(ctx, policy, name, data); err != nil {
		return nil, err
	}
	return &UploadResult{URL: policy.Attachment.URL}, nil
}

// isRejection reports whether the policy request was refused because of the
// file itself (type or size) rather than the request.
func isRejection(err *APIError) bool {
	if err.Code == "" {
		return false
	}
	switch err.StatusCode {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge,
		http.StatusUnsupportedMediaType, http.StatusUnprocessableEntity:
		return true
	}
	return false
}

func (c *Client) requestPolicy(ctx context.Context, name, contentType string, size int) (*uploadPolicy, error) {
	form := url.Values{}
	form.Set("type", contentType)
	form.Set("name", name)
	form.Set("size", strconv.Itoa(size))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.teamURL("/attachments/policies"), bytes.NewBufferString(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("esa: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var policy uploadPolicy
	if err := c.do(req, &policy); err != nil {
		return nil, err
	}
	return &policy, nil
}

// putObject sends the policy form fields followed by the file as one
// multipart request. The storage endpoint is not an esa URL so no token is sent.
func (c *Client) putObject(ctx context.Context, policy *uploadPolicy, name string, data []byte) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(policy.Form))
	for k := range policy.Form {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, policy.Form[k]); err != nil {
			return fmt.Errorf("esa: build upload form: %w", err)
		}
	}

	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return fmt.Errorf("esa: build upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("esa: build upload form: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("esa: build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, policy.Attachment.Endpoint, &buf)
	if err != nil {
		return fmt.Errorf("esa: create upload request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("esa: upload %s: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: "storage upload of " + name + " failed"}
	}
	return nil
}
