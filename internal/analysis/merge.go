// internal/analysis/merge.go
package analysis

import (
	"fmt"
	"math"
	"strings"
	"time"

	"pawcare-back/internal/models"
	"pawcare-back/pkg/aiclient"
)

var severityUrgency = map[string]models.Urgency{
	"low":      models.UrgencyLow,
	"moderate": models.UrgencyMedium,
	"high":     models.UrgencyHigh,
	"critical": models.UrgencyEmergency,
}

// Merge combines the per-modality results into one diagnosis. A nil result
// means the modality was not submitted.
//
// Text sets the baseline. Image replaces diagnosis and confidence only when
// strictly more confident. Audio contributes a suggested action only.
func Merge(text *aiclient.TextResult, image *aiclient.ImageResult, audio *aiclient.AudioResult) models.AnalysisResults {
	diagnosis := "Unknown"
	confidence := 0.0
	urgency := models.UrgencyLow
	var recommendations, actions []string

	if text != nil {
		switch {
		case text.OK() && len(text.Data.Predictions) > 0:
			top := text.Data.Predictions[0]
			diagnosis = top.Disease
			confidence = top.Confidence
			recommendations = append(recommendations, top.Treatments...)

			if text.Data.UrgentCare {
				urgency = models.UrgencyHigh
			} else if text.Data.Severity != nil && text.Data.Severity.Level != "" {
				if u, ok := severityUrgency[text.Data.Severity.Level]; ok {
					urgency = u
				}
			}

			actions = append(actions, fmt.Sprintf("Primary diagnosis: %s (%.1f%% confidence)", top.Disease, top.Confidence*100))
			if len(top.Treatments) > 0 {
				actions = append(actions, "Recommended treatments: "+strings.Join(top.Treatments[:min(3, len(top.Treatments))], ", "))
			}
		case text.Err != nil:
			actions = append(actions, "Text analysis failed: "+text.Err.Details)
		}
	}

	if image != nil {
		switch {
		case image.OK() && image.Data.MedicalAdvice != nil:
			advice := image.Data.MedicalAdvice
			if advice.Diagnosis != "" && advice.Confidence > confidence {
				diagnosis = advice.Diagnosis
				confidence = advice.Confidence
			}
			recommendations = append(recommendations, advice.Treatments...)
			if advice.IsEmergency && urgency.Rank() < models.UrgencyHigh.Rank() {
				urgency = models.UrgencyHigh
			}
			actions = append(actions, fmt.Sprintf("Image analysis: %s (%.1f%% confidence)", advice.Diagnosis, advice.Confidence*100))
		case image.Err != nil:
			actions = append(actions, "Image analysis failed: "+image.Err.Details)
		}
	}

	if audio != nil {
		switch {
		case audio.OK() && len(audio.Data.Predictions) > 0:
			top := audio.Data.Predictions[0]
			actions = append(actions, fmt.Sprintf("Audio analysis: %s (%.1f%% confidence)", top.Disease, top.Confidence*100))
		case audio.Err != nil:
			actions = append(actions, "Audio analysis failed: "+audio.Err.Details)
		}
	}

	results := models.AnalysisResults{
		Diagnosis:         diagnosis,
		PrimaryDiagnosis:  diagnosis,
		Confidence:        int(math.Round(confidence * 100)),
		Urgency:           urgency,
		Recommendations:   dedupe(recommendations),
		SuggestedActions:  actions,
		VetRecommendation: urgency.Rank() >= models.UrgencyHigh.Rank(),
		ProcessedAt:       time.Now(),
	}
	if results.SuggestedActions == nil {
		results.SuggestedActions = []string{}
	}
	if text != nil {
		results.AnalysisDetails.Text = text.Details()
	}
	if image != nil {
		results.AnalysisDetails.Image = image.Details()
	}
	if audio != nil {
		results.AnalysisDetails.Audio = audio.Details()
	}

	return results
}

func dedupe(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
