// pkg/aiclient/types.go
package aiclient

import "encoding/json"

// ErrorDescriptor is the payload recorded for a modality that could not be analysed
type ErrorDescriptor struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// Result is either a decoded success payload or an error descriptor.
// Raw keeps the payload bytes exactly as they were received.
type Result[T any] struct {
	Data *T
	Raw  json.RawMessage
	Err  *ErrorDescriptor
}

// OK reports whether the call produced a decoded payload
func (r Result[T]) OK() bool {
	return r.Err == nil && r.Data != nil
}

// Details returns the payload to keep alongside the merged results:
// the success data, the error descriptor, or nil when nothing was received.
func (r Result[T]) Details() json.RawMessage {
	if r.Err != nil {
		b, _ := json.Marshal(r.Err)
		return b
	}
	return r.Raw
}

// Success wraps a locally built payload as if the service had returned it
func Success[T any](data T) Result[T] {
	raw, err := json.Marshal(data)
	if err != nil {
		return Result[T]{Err: &ErrorDescriptor{Error: "invalid payload", Details: err.Error()}}
	}
	return Result[T]{Data: &data, Raw: raw}
}

// Failure builds an error result
func Failure[T any](message, details string) Result[T] {
	return Result[T]{Err: &ErrorDescriptor{Error: message, Details: details}}
}

type TextPrediction struct {
	Disease    string   `json:"disease"`
	Confidence float64  `json:"confidence"`
	Treatments []string `json:"treatments,omitempty"`
	Severity   any      `json:"severity,omitempty"`
}

type SeverityInfo struct {
	Level string `json:"level"`
	Score any    `json:"score,omitempty"`
}

type TextData struct {
	Predictions []TextPrediction `json:"predictions"`
	UrgentCare  bool             `json:"urgent_care"`
	Severity    *SeverityInfo    `json:"severity,omitempty"`
}

type MedicalAdvice struct {
	Diagnosis   string   `json:"diagnosis"`
	Confidence  float64  `json:"confidence"`
	Treatments  []string `json:"treatments,omitempty"`
	IsEmergency bool     `json:"is_emergency"`
}

type ImageData struct {
	MedicalAdvice *MedicalAdvice `json:"medical_advice,omitempty"`
}

type AudioPrediction struct {
	Disease    string  `json:"disease"`
	Confidence float64 `json:"confidence"`
}

type AudioData struct {
	Predictions []AudioPrediction `json:"predictions"`
}

type (
	TextResult  = Result[TextData]
	ImageResult = Result[ImageData]
	AudioResult = Result[AudioData]
)

// TextRequest is the body of a text analysis call
type TextRequest struct {
	SymptomText string `json:"symptom_text"`
	Breed       string `json:"breed,omitempty"`
	Age         string `json:"age,omitempty"`
	Sex         string `json:"sex,omitempty"`
}
