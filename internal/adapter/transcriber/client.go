package transcriber

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

	"github.com/escalopa/quran-recite-checker/internal/domain"
)

// Client calls a remote speech-to-text service that accepts a WAV upload
// and answers with the recognized Arabic text.
type Client struct {
	baseURL    string
	apiKey     string
	language   string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the request timeout. Default: 30s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		language: "ar",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

var _ domain.RecognizerPort = (*Client)(nil)

// Recognize uploads one WAV chunk and returns its transcript
func (c *Client) Recognize(ctx context.Context, audio io.Reader) (domain.Transcript, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "chunk.wav")
	if err != nil {
		return domain.Transcript{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return domain.Transcript{}, fmt.Errorf("write audio data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return domain.Transcript{}, fmt.Errorf("close writer: %w", err)
	}

	endpoint := fmt.Sprintf("%s/transcriptions?%s", c.baseURL, url.Values{"language": {c.language}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return domain.Transcript{}, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Transcript{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.Transcript{}, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result domain.Transcript
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.Transcript{}, fmt.Errorf("decode response: %w", err)
	}
	return result, nil
}
