// internal/analysis/direct.go
package analysis

import (
	"context"
	"strings"

	"pawcare-back/internal/models"
	"pawcare-back/pkg/aiclient"
	apperrors "pawcare-back/pkg/errors"
)

// Sample is an in-memory file for an analysis that is not stored
type Sample struct {
	Name string
	Data []byte
}

// DirectRequest is a combined analysis answered synchronously. Nothing is
// persisted and nil fields are skipped.
type DirectRequest struct {
	Text     *aiclient.TextRequest
	Symptoms string
	Image    *Sample
	Audio    *Sample
}

// AnalyzeText forwards one text analysis to the service without fallback
func (o *Orchestrator) AnalyzeText(ctx context.Context, req aiclient.TextRequest) aiclient.TextResult {
	return *callModality(ctx, o, "text", true, func(ctx context.Context) aiclient.TextResult {
		return o.client.AnalyzeText(ctx, req)
	}, fallbackText)
}

// AnalyzeImage forwards one image analysis to the service without fallback
func (o *Orchestrator) AnalyzeImage(ctx context.Context, image Sample, symptoms string) aiclient.ImageResult {
	return *callModality(ctx, o, "image", true, func(ctx context.Context) aiclient.ImageResult {
		return o.client.AnalyzeImage(ctx, image.Data, firstNonEmpty(image.Name, "image.jpg"), symptoms)
	}, fallbackImage)
}

// AnalyzeAudio forwards one audio analysis to the service without fallback
func (o *Orchestrator) AnalyzeAudio(ctx context.Context, audio Sample) aiclient.AudioResult {
	return *callModality(ctx, o, "audio", true, func(ctx context.Context) aiclient.AudioResult {
		return o.client.AnalyzeAudio(ctx, audio.Data, firstNonEmpty(audio.Name, "audio.wav"))
	}, fallbackAudio)
}

// AnalyzeNow runs every present modality and merges the results the same way
// the background task does, including the fallbacks for an unavailable service.
func (o *Orchestrator) AnalyzeNow(ctx context.Context, req DirectRequest) (models.AnalysisResults, error) {
	if req.Text != nil {
		req.Text.SymptomText = strings.TrimSpace(req.Text.SymptomText)
		if req.Text.SymptomText == "" {
			req.Text = nil
		}
	}
	if req.Text == nil && req.Image == nil && req.Audio == nil {
		return models.AnalysisResults{}, apperrors.NewValidationError("please provide at least one of: symptom text, image, or audio")
	}

	available := o.client.ProbeHealth(ctx)

	var (
		text  *aiclient.TextResult
		image *aiclient.ImageResult
		audio *aiclient.AudioResult
	)
	if req.Text != nil {
		textReq := *req.Text
		text = callModality(ctx, o, "text", available, func(ctx context.Context) aiclient.TextResult {
			return o.client.AnalyzeText(ctx, textReq)
		}, fallbackText)
	}
	if req.Image != nil {
		sample, symptoms := *req.Image, firstNonEmpty(req.Symptoms, textOf(req.Text))
		image = callModality(ctx, o, "image", available, func(ctx context.Context) aiclient.ImageResult {
			return o.client.AnalyzeImage(ctx, sample.Data, firstNonEmpty(sample.Name, "image.jpg"), symptoms)
		}, fallbackImage)
	}
	if req.Audio != nil {
		sample := *req.Audio
		audio = callModality(ctx, o, "audio", available, func(ctx context.Context) aiclient.AudioResult {
			return o.client.AnalyzeAudio(ctx, sample.Data, firstNonEmpty(sample.Name, "audio.wav"))
		}, fallbackAudio)
	}

	return Merge(text, image, audio), nil
}

func textOf(req *aiclient.TextRequest) string {
	if req == nil {
		return ""
	}
	return req.SymptomText
}
