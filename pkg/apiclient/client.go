// pkg/apiclient/client.go

// Package apiclient submits symptom reports to the pawcare API and polls
// for their analysis results.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pawcare-back/internal/models"
)

// ErrPollTimeout is returned when the analysis is still running after the last poll
var ErrPollTimeout = errors.New("analysis did not finish in time")

// Polling defaults: first poll two seconds after the acknowledgement, then
// every three seconds, giving up after thirty attempts.
const (
	DefaultInitialDelay = 2 * time.Second
	DefaultInterval     = 3 * time.Second
	DefaultMaxAttempts  = 30
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client

	InitialDelay time.Duration
	Interval     time.Duration
	MaxAttempts  int
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		token:        token,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		InitialDelay: DefaultInitialDelay,
		Interval:     DefaultInterval,
		MaxAttempts:  DefaultMaxAttempts,
	}
}

// File is one upload of a submission
type File struct {
	Name string
	Data []byte
}

type Submission struct {
	DogID     uint
	Symptoms  string
	Breed     string
	Age       string
	Sex       string
	Severity  string
	Duration  string
	Frequency string
	Images    []File
	Audio     []File
}

// Analysis is the polled view of a submission
type Analysis struct {
	Status         models.AnalysisStatus   `json:"status"`
	Results        *models.AnalysisResults `json:"results,omitempty"`
	Error          string                  `json:"error,omitempty"`
	ModelVersion   string                  `json:"modelVersion,omitempty"`
	ProcessingTime int64                   `json:"processingTime,omitempty"`
}

type HealthLog struct {
	ID         uint            `json:"id"`
	DogID      uint            `json:"dogId"`
	Symptoms   models.Symptoms `json:"symptoms"`
	AIAnalysis Analysis        `json:"aiAnalysis"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// APIError is a non-2xx answer from the API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Submit posts the report and returns the id of the pending health log
func (c *Client) Submit(ctx context.Context, s Submission) (uint, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	fields := map[string]string{
		"dogId":     strconv.FormatUint(uint64(s.DogID), 10),
		"symptoms":  s.Symptoms,
		"breed":     s.Breed,
		"age":       s.Age,
		"sex":       s.Sex,
		"severity":  s.Severity,
		"duration":  s.Duration,
		"frequency": s.Frequency,
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := writer.WriteField(k, v); err != nil {
			return 0, fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}
	for field, files := range map[string][]File{"images": s.Images, "audio": s.Audio} {
		for _, f := range files {
			part, err := writer.CreateFormFile(field, f.Name)
			if err != nil {
				return 0, fmt.Errorf("failed to create form file: %w", err)
			}
			if _, err := part.Write(f.Data); err != nil {
				return 0, fmt.Errorf("failed to copy file: %w", err)
			}
		}
	}
	if err := writer.Close(); err != nil {
		return 0, err
	}

	var ack struct {
		HealthLogID uint `json:"healthLogId"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/health/submit-analysis", writer.FormDataContentType(), body, &ack); err != nil {
		return 0, err
	}
	return ack.HealthLogID, nil
}

// Status fetches the current state of a health log
func (c *Client) Status(ctx context.Context, id uint) (*HealthLog, error) {
	var resp struct {
		HealthLog HealthLog `json:"healthLog"`
	}
	path := "/api/health/analysis-status/" + strconv.FormatUint(uint64(id), 10)
	if err := c.do(ctx, http.MethodGet, path, "", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.HealthLog, nil
}

// WaitForResult polls until the analysis is completed or failed. It returns
// ErrPollTimeout with the last seen state when MaxAttempts polls were not enough.
func (c *Client) WaitForResult(ctx context.Context, id uint) (*HealthLog, error) {
	if err := sleep(ctx, c.InitialDelay); err != nil {
		return nil, err
	}

	var last *HealthLog
	for attempt := 1; attempt <= c.MaxAttempts; attempt++ {
		log, err := c.Status(ctx, id)
		if err != nil {
			return nil, err
		}
		last = log
		if log.AIAnalysis.Status.Terminal() {
			return log, nil
		}
		if attempt < c.MaxAttempts {
			if err := sleep(ctx, c.Interval); err != nil {
				return nil, err
			}
		}
	}
	return last, ErrPollTimeout
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
