// internal/analysis/fallback.go
package analysis

import "pawcare-back/pkg/aiclient"

// Payloads used in place of a backend call when the analysis service is down.

func fallbackText() aiclient.TextResult {
	return aiclient.Success(aiclient.TextData{
		Predictions: []aiclient.TextPrediction{{
			Disease:    "General Health Assessment",
			Confidence: 0.5,
			Treatments: []string{
				"Monitor symptoms closely",
				"Consult veterinarian if symptoms persist",
				"Keep detailed symptom log",
			},
			Severity: 1,
		}},
		UrgentCare: false,
		Severity:   &aiclient.SeverityInfo{Level: "low", Score: 1},
	})
}

func fallbackImage() aiclient.ImageResult {
	return aiclient.Success(aiclient.ImageData{
		MedicalAdvice: &aiclient.MedicalAdvice{
			Diagnosis:  "Image Analysis Unavailable",
			Confidence: 0.3,
			Treatments: []string{
				"AI service not available",
				"Please consult a veterinarian for image analysis",
			},
			IsEmergency: false,
		},
	})
}

func fallbackAudio() aiclient.AudioResult {
	return aiclient.Success(aiclient.AudioData{
		Predictions: []aiclient.AudioPrediction{{Disease: "Audio Analysis Unavailable", Confidence: 0.3}},
	})
}
