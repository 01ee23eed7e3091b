// Package httpapi is the default REST implementation of the peertalk backend
// and uploader interfaces. The surrounding application may substitute its own
// generic REST client instead.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"peertalk"
	"peertalk/models"
)

type Client struct {
	baseURL string
	session peertalk.Session
	http    *http.Client
}

func New(baseURL string, session peertalk.Session) *Client {
	return &Client{
		baseURL: baseURL,
		session: session,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	token, err := c.session.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}
	req.Header.Set("token", token)
	return req, nil
}

// History fetches all messages of the conversation with the counterpart.
func (c *Client) History(ctx context.Context, counterpartID string) ([]models.Message, error) {
	path := "/api/messages?user=" + url.QueryEscape(counterpartID)
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("history fetch failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("history fetch failed: status %d", resp.StatusCode)
	}

	var messages []models.Message
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return messages, nil
}

// Send issues the authoritative create-message call.
func (c *Client) Send(ctx context.Context, sendReq peertalk.SendRequest) error {
	body, err := json.Marshal(sendReq)
	if err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/messages", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("send failed: status %d", resp.StatusCode)
	}
	return nil
}

// UploadImage uploads one image and returns its public URL.
func (c *Client) UploadImage(ctx context.Context, name string, data []byte) (string, error) {
	raw, err := c.upload(ctx, "/api/upload/image", name, data)
	if err != nil {
		return "", err
	}

	var result struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if result.URL == "" {
		return "", fmt.Errorf("no url in upload response")
	}
	return result.URL, nil
}

// UploadVideo uploads one video. The raw response body is returned because
// the endpoint answers with either a bare URL string or a {"url": ...}
// object; the attach package unwraps it.
func (c *Client) UploadVideo(ctx context.Context, name string, data []byte) (json.RawMessage, error) {
	return c.upload(ctx, "/api/upload/video", name, data)
}

func (c *Client) upload(ctx context.Context, path, name string, data []byte) (json.RawMessage, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upload failed: status %d", resp.StatusCode)
	}
	return body, nil
}
