// internal/analysis/orchestrator.go
package analysis

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"slices"
	"strconv"
	"strings"
	"time"

	"pawcare-back/internal/logger"
	"pawcare-back/internal/models"
	"pawcare-back/internal/notify"
	"pawcare-back/internal/observability"
	"pawcare-back/internal/repository"
	"pawcare-back/internal/storage"
	"pawcare-back/pkg/aiclient"
	apperrors "pawcare-back/pkg/errors"

	"go.opentelemetry.io/otel/attribute"
)

const (
	MaxImages = 5
	MaxAudio  = 3
)

var (
	validSeverities     = []string{"mild", "moderate", "severe", "critical", "unknown"}
	validReviewStatus   = []string{"active", "resolved", "monitoring", "escalated"}
	defaultModelVersion = "v1.0-real"
)

// AnalysisClient is the subset of the analysis service used by the pipeline
type AnalysisClient interface {
	ProbeHealth(ctx context.Context) bool
	AnalyzeText(ctx context.Context, in aiclient.TextRequest) aiclient.TextResult
	AnalyzeImage(ctx context.Context, data []byte, filename, symptoms string) aiclient.ImageResult
	AnalyzeAudio(ctx context.Context, data []byte, filename string) aiclient.AudioResult
}

// FileStore persists uploads and reads them back for analysis
type FileStore interface {
	Save(ctx context.Context, modality string, fh *multipart.FileHeader) (models.FileDescriptor, error)
	ReadAll(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
}

// SubmitRequest is one symptom report. Breed, Age and Sex default to the dog's profile.
type SubmitRequest struct {
	DogID     uint
	Symptoms  string
	Breed     string
	Age       string
	Sex       string
	Severity  string
	Duration  string
	Frequency string
	Images    []*multipart.FileHeader
	Audio     []*multipart.FileHeader
}

// Options tunes the background task
type Options struct {
	StartDelay   time.Duration
	ModelVersion string
}

// Summary is the owner's dashboard view
type Summary struct {
	repository.Stats
	RecentLogs []models.HealthLog `json:"recentLogs"`
}

type Orchestrator struct {
	logs       *repository.HealthLogRepository
	dogs       *repository.DogRepository
	files      FileStore
	client     AnalysisClient
	notifier   notify.Notifier
	metrics    *observability.Metrics
	dispatcher *Dispatcher
	opts       Options
}

func NewOrchestrator(
	logs *repository.HealthLogRepository,
	dogs *repository.DogRepository,
	files FileStore,
	client AnalysisClient,
	notifier notify.Notifier,
	metrics *observability.Metrics,
	dispatcher *Dispatcher,
	opts Options,
) *Orchestrator {
	if opts.ModelVersion == "" {
		opts.ModelVersion = defaultModelVersion
	}
	if dispatcher == nil {
		dispatcher = NewDispatcher()
	}
	return &Orchestrator{
		logs:       logs,
		dogs:       dogs,
		files:      files,
		client:     client,
		notifier:   notifier,
		metrics:    metrics,
		dispatcher: dispatcher,
		opts:       opts,
	}
}

// Submit validates and stores a symptom report, then schedules its analysis.
// The returned record is pending; its analysis completes in the background.
func (o *Orchestrator) Submit(ctx context.Context, ownerID uint, req SubmitRequest) (uint, error) {
	req.Symptoms = strings.TrimSpace(req.Symptoms)
	if err := validateSubmit(&req); err != nil {
		return 0, err
	}

	dog, err := o.dogs.FindOwned(ctx, ownerID, req.DogID)
	if err != nil {
		return 0, err
	}

	images, audio, err := o.saveFiles(ctx, req)
	if err != nil {
		return 0, err
	}

	record := &models.HealthLog{
		UserID: ownerID,
		DogID:  dog.ID,
		Symptoms: models.Symptoms{
			Text:      req.Symptoms,
			Severity:  req.Severity,
			Duration:  req.Duration,
			Frequency: req.Frequency,
		},
		Images:     images,
		Audio:      audio,
		AIAnalysis: models.AIAnalysis{Status: models.AnalysisPending},
		Status:     "active",
	}
	if err := o.logs.Create(ctx, record); err != nil {
		o.removeFiles(ctx, append(images, audio...))
		return 0, apperrors.NewInternalError("failed to submit health analysis", err)
	}

	textReq := aiclient.TextRequest{
		SymptomText: req.Symptoms,
		Breed:       firstNonEmpty(req.Breed, dog.Breed),
		Age:         req.Age,
		Sex:         firstNonEmpty(req.Sex, dog.Gender),
	}

	if textReq.Age == "" && dog.Age > 0 {
		textReq.Age = strconv.Itoa(dog.Age)
	}

	logger.FromContext(ctx).Info().
		Uint("health_log_id", record.ID).
		Uint("dog_id", dog.ID).
		Int("images", len(images)).
		Int("audio", len(audio)).
		Msg("health analysis submitted")

	id := record.ID
	o.dispatcher.Schedule(o.opts.StartDelay, func() {
		o.process(id, ownerID, textReq)
	})

	return id, nil
}

func validateSubmit(req *SubmitRequest) error {
	if req.DogID == 0 {
		return apperrors.NewValidationError("dogId is required")
	}
	if req.Severity == "" {
		req.Severity = "unknown"
	}
	if !slices.Contains(validSeverities, req.Severity) {
		return apperrors.NewValidationError(fmt.Sprintf("severity must be one of %s", strings.Join(validSeverities, ", ")))
	}
	if req.Symptoms == "" && len(req.Images) == 0 && len(req.Audio) == 0 {
		return apperrors.NewValidationError("symptoms, images or audio is required")
	}
	if len(req.Images) > MaxImages {
		return apperrors.NewValidationError(fmt.Sprintf("at most %d images are allowed", MaxImages))
	}
	if len(req.Audio) > MaxAudio {
		return apperrors.NewValidationError(fmt.Sprintf("at most %d audio files are allowed", MaxAudio))
	}
	return nil
}

func (o *Orchestrator) saveFiles(ctx context.Context, req SubmitRequest) ([]models.FileDescriptor, []models.FileDescriptor, error) {
	var images, audio []models.FileDescriptor

	save := func(modality string, headers []*multipart.FileHeader, into *[]models.FileDescriptor) error {
		for _, fh := range headers {
			desc, err := o.files.Save(ctx, modality, fh)
			if err != nil {
				return apperrors.NewInternalError("failed to store uploaded file", err)
			}
			*into = append(*into, desc)
		}
		return nil
	}

	if err := save(storage.ModalityImage, req.Images, &images); err != nil {
		o.removeFiles(ctx, images)
		return nil, nil, err
	}
	if err := save(storage.ModalityAudio, req.Audio, &audio); err != nil {
		o.removeFiles(ctx, append(images, audio...))
		return nil, nil, err
	}
	return images, audio, nil
}

func (o *Orchestrator) removeFiles(ctx context.Context, files []models.FileDescriptor) {
	for _, f := range files {
		if err := o.files.Delete(ctx, f.Path); err != nil {
			logger.FromContext(ctx).Warn().Err(err).Str("path", f.Path).Msg("failed to remove stored file")
		}
	}
}

// process runs the analysis of one record. It never returns an error: any
// failure, including a panic, ends with the record marked failed.
func (o *Orchestrator) process(id, ownerID uint, textReq aiclient.TextRequest) {
	ctx, span := observability.StartSpan(context.Background(), "analysis.process")
	defer span.End()
	span.SetAttributes(attribute.Int64("health_log.id", int64(id)))

	log := logger.FromContext(ctx).With().Uint("health_log_id", id).Logger()
	start := time.Now()
	status := models.AnalysisFailed

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("analysis panicked: %v", r)
			observability.RecordError(span, err)
			log.Error().Err(err).Msg("AI analysis failed")
			o.markFailed(ctx, id, ownerID, err)
		}
		o.metrics.RecordRun(ctx, string(status), time.Since(start))
	}()

	if err := o.run(ctx, id, ownerID, textReq); err != nil {
		observability.RecordError(span, err)
		log.Error().Err(err).Msg("AI analysis failed")
		o.markFailed(ctx, id, ownerID, err)
		return
	}

	status = models.AnalysisCompleted
	log.Info().Dur("elapsed", time.Since(start)).Msg("AI analysis completed")
}

func (o *Orchestrator) run(ctx context.Context, id, ownerID uint, textReq aiclient.TextRequest) error {
	if err := o.logs.MarkProcessing(ctx, id); err != nil {
		return err
	}
	o.publish(ctx, notify.Event{HealthLogID: id, OwnerID: ownerID, Status: models.AnalysisProcessing})

	record, err := o.logs.GetByID(ctx, id)
	if err != nil {
		return err
	}

	available := o.client.ProbeHealth(ctx)
	if !available {
		logger.FromContext(ctx).Warn().Uint("health_log_id", id).Msg("analysis service not available, using basic analysis")
	}

	var (
		text  *aiclient.TextResult
		image *aiclient.ImageResult
		audio *aiclient.AudioResult
	)

	if record.Symptoms.Text != "" {
		text = callModality(ctx, o, "text", available, func(ctx context.Context) aiclient.TextResult {
			return o.client.AnalyzeText(ctx, textReq)
		}, fallbackText)
	}

	// only the first image and the first recording are analysed
	if len(record.Images) > 0 {
		first := record.Images[0]
		image = callModality(ctx, o, "image", available, func(ctx context.Context) aiclient.ImageResult {
			data, err := o.files.ReadAll(ctx, first.Path)
			if err != nil {
				return aiclient.Failure[aiclient.ImageData]("Image analysis failed", "image file not found: "+err.Error())
			}
			return o.client.AnalyzeImage(ctx, data, firstNonEmpty(first.OriginalName, "image.jpg"), record.Symptoms.Text)
		}, fallbackImage)
	}

	if len(record.Audio) > 0 {
		first := record.Audio[0]
		audio = callModality(ctx, o, "audio", available, func(ctx context.Context) aiclient.AudioResult {
			data, err := o.files.ReadAll(ctx, first.Path)
			if err != nil {
				return aiclient.Failure[aiclient.AudioData]("Audio analysis failed", "audio file not found: "+err.Error())
			}
			return o.client.AnalyzeAudio(ctx, data, firstNonEmpty(first.OriginalName, "audio.wav"))
		}, fallbackAudio)
	}

	results := Merge(text, image, audio)
	if err := o.logs.Complete(ctx, id, results, o.opts.ModelVersion, time.Since(record.CreatedAt)); err != nil {
		return err
	}
	o.publish(ctx, notify.Event{HealthLogID: id, OwnerID: ownerID, Status: models.AnalysisCompleted})
	return nil
}

func callModality[T any](
	ctx context.Context,
	o *Orchestrator,
	modality string,
	available bool,
	call func(context.Context) aiclient.Result[T],
	fallback func() aiclient.Result[T],
) *aiclient.Result[T] {
	if !available {
		res := fallback()
		o.metrics.RecordModality(ctx, modality, "fallback")
		return &res
	}

	ctx, span := observability.StartSpan(ctx, "analysis."+modality)
	defer span.End()

	res := call(ctx)
	outcome := "success"
	if res.Err != nil {
		outcome = "error"
		observability.RecordError(span, errors.New(res.Err.Details))
		logger.FromContext(ctx).Warn().
			Str("modality", modality).
			Str("details", res.Err.Details).
			Msg(res.Err.Error)
	}
	o.metrics.RecordModality(ctx, modality, outcome)
	return &res
}

func (o *Orchestrator) markFailed(ctx context.Context, id, ownerID uint, cause error) {
	if err := o.logs.Fail(ctx, id, cause.Error()); err != nil {
		logger.FromContext(ctx).Error().Err(err).Uint("health_log_id", id).Msg("failed to mark analysis failed")
		return
	}
	o.publish(ctx, notify.Event{HealthLogID: id, OwnerID: ownerID, Status: models.AnalysisFailed, Error: cause.Error()})
}

func (o *Orchestrator) publish(ctx context.Context, event notify.Event) {
	if o.notifier == nil {
		return
	}
	event.At = time.Now()
	if err := o.notifier.Publish(ctx, event); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Uint("health_log_id", event.HealthLogID).Msg("failed to publish status change")
	}
}

// GetStatus returns the owner's record. Records of other owners are reported as not found.
func (o *Orchestrator) GetStatus(ctx context.Context, ownerID, id uint) (*models.HealthLog, error) {
	return o.logs.GetForOwner(ctx, ownerID, id)
}

// ListByDog returns a page of an owned dog's health logs
func (o *Orchestrator) ListByDog(ctx context.Context, ownerID, dogID uint, status string, page, limit int) ([]models.HealthLog, int64, error) {
	if _, err := o.dogs.FindOwned(ctx, ownerID, dogID); err != nil {
		return nil, 0, err
	}
	return o.logs.ListByDog(ctx, ownerID, dogID, status, page, limit)
}

// UpdateReview sets the review status and vet notes of the owner's record
func (o *Orchestrator) UpdateReview(ctx context.Context, ownerID, id uint, status string, notes *models.VetNotes) error {
	if status != "" && !slices.Contains(validReviewStatus, status) {
		return apperrors.NewValidationError(fmt.Sprintf("status must be one of %s", strings.Join(validReviewStatus, ", ")))
	}
	return o.logs.UpdateReview(ctx, ownerID, id, status, notes)
}

// Stats summarizes the owner's health logs with the five most recent
func (o *Orchestrator) Stats(ctx context.Context, ownerID uint) (*Summary, error) {
	stats, err := o.logs.Stats(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	recent, err := o.logs.Recent(ctx, ownerID, 5)
	if err != nil {
		return nil, err
	}
	return &Summary{Stats: stats, RecentLogs: recent}, nil
}

// ServiceAvailable reports whether the analysis service answers its health check
func (o *Orchestrator) ServiceAvailable(ctx context.Context) bool {
	return o.client.ProbeHealth(ctx)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
