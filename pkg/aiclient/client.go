// pkg/aiclient/client.go
package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Config describes how to reach the analysis service
type Config struct {
	BaseURL        string
	ProbeTimeout   time.Duration
	RequestTimeout time.Duration // zero leaves analyze calls unbounded
}

// Client talks to the external analysis service. Each call is a single
// request without retries.
type Client struct {
	baseURL      string
	probeTimeout time.Duration
	httpClient   *http.Client
}

func New(cfg Config) *Client {
	probe := cfg.ProbeTimeout
	if probe <= 0 {
		probe = 5 * time.Second
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		probeTimeout: probe,
		httpClient:   &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// ProbeHealth reports whether GET /health answers with a 2xx status within the probe timeout
func (c *Client) ProbeHealth(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Msg("analysis service not available")
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// AnalyzeText posts the symptom description as JSON
func (c *Client) AnalyzeText(ctx context.Context, in TextRequest) TextResult {
	const failed = "Text analysis failed"

	body, err := json.Marshal(in)
	if err != nil {
		return Failure[TextData](failed, err.Error())
	}
	status, respBody, err := c.post(ctx, "/analyze/text", "application/json", bytes.NewReader(body))
	if err != nil {
		return Failure[TextData](failed, err.Error())
	}
	return decode[TextData](failed, status, respBody)
}

// AnalyzeImage uploads one image with the symptom text as a hint
func (c *Client) AnalyzeImage(ctx context.Context, data []byte, filename, symptoms string) ImageResult {
	const failed = "Image analysis failed"

	fields := map[string]string{}
	if symptoms != "" {
		fields["symptoms"] = symptoms
	}
	body, contentType, err := multipartBody("image", filename, data, fields)
	if err != nil {
		return Failure[ImageData](failed, err.Error())
	}
	status, respBody, err := c.post(ctx, "/analyze/image", contentType, body)
	if err != nil {
		return Failure[ImageData](failed, err.Error())
	}
	return decode[ImageData](failed, status, respBody)
}

// AnalyzeAudio uploads one audio recording
func (c *Client) AnalyzeAudio(ctx context.Context, data []byte, filename string) AudioResult {
	const failed = "Audio analysis failed"

	body, contentType, err := multipartBody("audio", filename, data, nil)
	if err != nil {
		return Failure[AudioData](failed, err.Error())
	}
	status, respBody, err := c.post(ctx, "/analyze/audio", contentType, body)
	if err != nil {
		return Failure[AudioData](failed, err.Error())
	}
	return decode[AudioData](failed, status, respBody)
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

func multipartBody(field, filename string, data []byte, fields map[string]string) (io.Reader, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("failed to copy file: %w", err)
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

// envelope is the service's response wrapper: {"type", "status", "data"} on
// success, {"error": ...} on failure.
type envelope struct {
	Status string          `json:"status"`
	Error  any             `json:"error"`
	Data   json.RawMessage `json:"data"`
}

func decode[T any](failed string, status int, body []byte) Result[T] {
	if status < 200 || status >= 300 {
		return Failure[T](failed, fmt.Sprintf("status %d: %s", status, strings.TrimSpace(string(body))))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Failure[T](failed, "invalid response: "+err.Error())
	}
	if env.Error != nil || env.Status == "error" {
		details := "service reported an error"
		switch e := env.Error.(type) {
		case string:
			details = e
		case nil:
		default:
			if b, err := json.Marshal(e); err == nil {
				details = string(b)
			}
		}
		return Failure[T](failed, details)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return Result[T]{}
	}

	var data T
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return Failure[T](failed, "invalid response data: "+err.Error())
	}
	return Result[T]{Data: &data, Raw: env.Data}
}
