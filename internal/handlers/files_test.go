// internal/handlers/files_test.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pawcare-back/internal/notify"
)

func TestDownloadLogFile(t *testing.T) {
	api := newTestAPI(t, stubClient{available: true})
	token := api.register(t, "files@example.com")
	dogID := api.createDog(t, token)

	w := api.submit(t, token, map[string]string{"dogId": strconv.Itoa(int(dogID))},
		map[string]map[string][]byte{
			"images": {"skin.png": pngBytes(t, 8, 8)},
			"audio":  {"bark.wav": []byte("RIFF....WAVE")},
		})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var ack struct {
		HealthLogID uint `json:"healthLogId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	api.dispatcher.Wait()

	base := "/api/health/logs/" + strconv.Itoa(int(ack.HealthLogID)) + "/files/"

	w = api.do(t, http.MethodGet, base+"images/0", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename=skin.png`)
	assert.Equal(t, pngBytes(t, 8, 8), w.Body.Bytes())

	w = api.do(t, http.MethodGet, base+"audio/0", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "RIFF....WAVE", w.Body.String())

	w = api.do(t, http.MethodGet, base+"images/1", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = api.do(t, http.MethodGet, base+"video/0", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	other := api.register(t, "nosy@example.com")
	w = api.do(t, http.MethodGet, base+"images/0", other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type unreachableBus struct {
	notify.MemoryBus
}

func (*unreachableBus) Ping(ctx context.Context) error {
	return errors.New("connection refused")
}

func TestReadiness(t *testing.T) {
	api := newTestAPI(t, stubClient{})
	w := api.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"status":"ready","checks":{"database":"ok"}}`, w.Body.String())

	r := gin.New()
	r.GET("/readyz", Readiness(api.db, &unreachableBus{}))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unavailable","checks":{"database":"ok","events":"connection refused"}}`, w.Body.String())
}

func TestAIAnalyzeRoutes(t *testing.T) {
	api := newTestAPI(t, stubClient{available: true})
	token := api.register(t, "direct@example.com")

	w := api.do(t, http.MethodPost, "/api/ai/analyze/text", "", map[string]any{"symptom_text": "itching"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(t, http.MethodPost, "/api/ai/analyze/text", token, map[string]any{"breed": "Pug"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPost, "/api/ai/analyze/text", token, map[string]any{"symptom_text": "itching", "age": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"disease":"Allergic Dermatitis"`)

	w = api.doMultipart(t, http.MethodPost, "/api/ai/analyze/image", token, nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.doMultipart(t, http.MethodPost, "/api/ai/analyze/image", token, map[string]string{"symptoms": "red skin"},
		map[string]map[string][]byte{"image": {"skin.png": pngBytes(t, 4, 4)}})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Image analysis failed","details":"status 500"}`, w.Body.String())

	w = api.doMultipart(t, http.MethodPost, "/api/ai/analyze/comprehensive", token,
		map[string]string{"symptom_text": "itching", "breed": "Pug"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Results struct {
			Diagnosis  string `json:"diagnosis"`
			Confidence int    `json:"confidence"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Allergic Dermatitis", resp.Results.Diagnosis)
	assert.Equal(t, 66, resp.Results.Confidence)

	w = api.doMultipart(t, http.MethodPost, "/api/ai/analyze/comprehensive", token, map[string]string{"breed": "Pug"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
