// pkg/apiclient/client_test.go
package apiclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pawcare-back/internal/models"
)

func fastClient(url string) *Client {
	c := New(url, "tok")
	c.InitialDelay = time.Millisecond
	c.Interval = time.Millisecond
	return c
}

func TestSubmit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health/submit-analysis", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "4", r.FormValue("dogId"))
		assert.Equal(t, "sneezing", r.FormValue("symptoms"))
		assert.Empty(t, r.FormValue("breed"))
		assert.Len(t, r.MultipartForm.File["audio"], 1)

		io.WriteString(w, `{"success":true,"message":"Health analysis submitted successfully","healthLogId":12,"estimatedProcessingTime":"2-5 minutes"}`)
	}))
	defer srv.Close()

	id, err := fastClient(srv.URL).Submit(context.Background(), Submission{
		DogID:    4,
		Symptoms: "sneezing",
		Audio:    []File{{Name: "sneeze.wav", Data: []byte("RIFF")}},
	})
	require.NoError(t, err)
	assert.Equal(t, uint(12), id)
}

func TestSubmit_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"success":false,"error":"dog not found or access denied"}`)
	}))
	defer srv.Close()

	_, err := fastClient(srv.URL).Submit(context.Background(), Submission{DogID: 1, Symptoms: "x"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "dog not found or access denied", apiErr.Message)
}

func statusServer(t *testing.T, statuses ...models.AnalysisStatus) (*httptest.Server, *int32) {
	var polls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health/analysis-status/12", r.URL.Path)
		n := int(atomic.AddInt32(&polls, 1)) - 1
		if n >= len(statuses) {
			n = len(statuses) - 1
		}
		status := statuses[n]
		results := ""
		if status == models.AnalysisCompleted {
			results = `,"results":{"diagnosis":"Kennel Cough","confidence":87,"urgency":"medium"}`
		}
		fmt.Fprintf(w, `{"success":true,"healthLog":{"id":12,"aiAnalysis":{"status":%q%s}}}`, status, results)
	}))
	t.Cleanup(srv.Close)
	return srv, &polls
}

func TestWaitForResult_Completes(t *testing.T) {
	srv, polls := statusServer(t, models.AnalysisPending, models.AnalysisProcessing, models.AnalysisCompleted)

	log, err := fastClient(srv.URL).WaitForResult(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisCompleted, log.AIAnalysis.Status)
	require.NotNil(t, log.AIAnalysis.Results)
	assert.Equal(t, "Kennel Cough", log.AIAnalysis.Results.Diagnosis)
	assert.Equal(t, int32(3), atomic.LoadInt32(polls))
}

func TestWaitForResult_StopsOnFailed(t *testing.T) {
	srv, polls := statusServer(t, models.AnalysisFailed)

	log, err := fastClient(srv.URL).WaitForResult(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisFailed, log.AIAnalysis.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(polls))
}

func TestWaitForResult_GivesUp(t *testing.T) {
	srv, polls := statusServer(t, models.AnalysisProcessing)

	c := fastClient(srv.URL)
	c.MaxAttempts = 4
	log, err := c.WaitForResult(context.Background(), 12)
	assert.ErrorIs(t, err, ErrPollTimeout)
	require.NotNil(t, log)
	assert.Equal(t, models.AnalysisProcessing, log.AIAnalysis.Status)
	assert.Equal(t, int32(4), atomic.LoadInt32(polls))
}

func TestWaitForResult_ContextCancelled(t *testing.T) {
	srv, _ := statusServer(t, models.AnalysisPending)

	c := New(srv.URL, "tok")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.WaitForResult(ctx, 12)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDefaults(t *testing.T) {
	c := New("http://localhost:8080/", "")
	assert.Equal(t, 2*time.Second, c.InitialDelay)
	assert.Equal(t, 3*time.Second, c.Interval)
	assert.Equal(t, 30, c.MaxAttempts)
	assert.Equal(t, "http://localhost:8080", c.baseURL)
}
