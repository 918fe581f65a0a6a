// internal/analysis/direct_test.go
package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pawcare-back/internal/models"
	"pawcare-back/pkg/aiclient"
	apperrors "pawcare-back/pkg/errors"
)

func TestAnalyzeNow_MergesWithoutStoring(t *testing.T) {
	var gotSymptoms string
	client := &fakeClient{
		available: true,
		text: func(aiclient.TextRequest) aiclient.TextResult {
			return aiclient.Success(aiclient.TextData{
				Predictions: []aiclient.TextPrediction{{Disease: "Kennel Cough", Confidence: 0.6}},
			})
		},
		image: func(data []byte, filename, symptoms string) aiclient.ImageResult {
			gotSymptoms = symptoms
			return aiclient.Success(aiclient.ImageData{MedicalAdvice: &aiclient.MedicalAdvice{Diagnosis: "Pneumonia", Confidence: 0.8}})
		},
	}
	fx := newFixture(t, client, 0)

	results, err := fx.orch.AnalyzeNow(context.Background(), DirectRequest{
		Text:  &aiclient.TextRequest{SymptomText: " coughing at night "},
		Image: &Sample{Name: "chest.jpg", Data: []byte("jpeg")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Pneumonia", results.Diagnosis)
	assert.Equal(t, 80, results.Confidence)
	assert.Equal(t, "coughing at night", gotSymptoms)
	assert.Equal(t, []string{"health", "text", "image"}, client.Calls())

	var count int64
	require.NoError(t, fx.db.Model(&models.HealthLog{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAnalyzeNow_UnavailableUsesFallback(t *testing.T) {
	client := &fakeClient{available: false}
	fx := newFixture(t, client, 0)

	results, err := fx.orch.AnalyzeNow(context.Background(), DirectRequest{
		Audio: &Sample{Name: "bark.wav", Data: []byte("RIFF")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Audio analysis: Audio Analysis Unavailable (30.0% confidence)"}, results.SuggestedActions)
	assert.Equal(t, []string{"health"}, client.Calls())
}

func TestAnalyzeNow_RequiresInput(t *testing.T) {
	fx := newFixture(t, &fakeClient{}, 0)

	_, err := fx.orch.AnalyzeNow(context.Background(), DirectRequest{Text: &aiclient.TextRequest{SymptomText: "  "}})
	assert.True(t, apperrors.IsValidation(err))
}

func TestAnalyzeImage_NoFallback(t *testing.T) {
	client := &fakeClient{
		image: func(data []byte, filename, symptoms string) aiclient.ImageResult {
			assert.Equal(t, "image.jpg", filename)
			return aiclient.Failure[aiclient.ImageData]("Image analysis failed", "status 500")
		},
	}
	fx := newFixture(t, client, 0)

	res := fx.orch.AnalyzeImage(context.Background(), Sample{Data: []byte("jpeg")}, "")
	require.NotNil(t, res.Err)
	assert.Equal(t, "status 500", res.Err.Details)
	assert.Equal(t, []string{"image"}, client.Calls())
}
