// internal/handlers/health.go
package handlers

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"pawcare-back/internal/analysis"
	"pawcare-back/internal/models"
	"pawcare-back/internal/notify"

	"github.com/gin-gonic/gin"
)

// AnalysisView is the client-facing shape of an AI analysis. Results are only
// present once the analysis has completed.
type AnalysisView struct {
	Status         models.AnalysisStatus   `json:"status"`
	Results        *models.AnalysisResults `json:"results,omitempty"`
	Error          string                  `json:"error,omitempty"`
	ModelVersion   string                  `json:"modelVersion,omitempty"`
	ProcessingTime int64                   `json:"processingTime,omitempty"`
}

type FilesView struct {
	Images []models.FileDescriptor `json:"images"`
	Audio  []models.FileDescriptor `json:"audio"`
}

type HealthLogView struct {
	ID         uint            `json:"id"`
	DogID      uint            `json:"dogId"`
	Dog        *models.Dog     `json:"dog,omitempty"`
	Symptoms   models.Symptoms `json:"symptoms"`
	Files      FilesView       `json:"files"`
	AIAnalysis AnalysisView    `json:"aiAnalysis"`
	VetNotes   models.VetNotes `json:"vetNotes"`
	Status     string          `json:"status"`
	Tags       []string        `json:"tags"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// NewHealthLogView converts a record for output. Storage paths are not exposed.
func NewHealthLogView(log *models.HealthLog) HealthLogView {
	view := HealthLogView{
		ID:       log.ID,
		DogID:    log.DogID,
		Dog:      log.Dog,
		Symptoms: log.Symptoms,
		Files: FilesView{
			Images: publicFiles(log.Images),
			Audio:  publicFiles(log.Audio),
		},
		AIAnalysis: AnalysisView{
			Status:         log.AIAnalysis.Status,
			Error:          log.AIAnalysis.Error,
			ModelVersion:   log.AIAnalysis.ModelVersion,
			ProcessingTime: log.AIAnalysis.ProcessingTime,
		},
		VetNotes:  log.VetNotes,
		Status:    log.Status,
		Tags:      log.Tags,
		CreatedAt: log.CreatedAt,
		UpdatedAt: log.UpdatedAt,
	}
	if view.Tags == nil {
		view.Tags = []string{}
	}
	if log.AIAnalysis.Status == models.AnalysisCompleted {
		results := log.AIAnalysis.Results.Data()
		view.AIAnalysis.Results = &results
	}
	return view
}

func publicFiles(files []models.FileDescriptor) []models.FileDescriptor {
	out := make([]models.FileDescriptor, len(files))
	for i, f := range files {
		f.Path = ""
		out[i] = f
	}
	return out
}

func viewsOf(logs []models.HealthLog) []HealthLogView {
	views := make([]HealthLogView, len(logs))
	for i := range logs {
		views[i] = NewHealthLogView(&logs[i])
	}
	return views
}

// SubmitAnalysis accepts a multipart symptom report and answers as soon as
// the record is stored; the analysis runs in the background.
func SubmitAnalysis(orch *analysis.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := analysis.SubmitRequest{
			Symptoms:  c.PostForm("symptoms"),
			Breed:     c.PostForm("breed"),
			Age:       c.PostForm("age"),
			Sex:       c.PostForm("sex"),
			Severity:  c.PostForm("severity"),
			Duration:  c.PostForm("duration"),
			Frequency: c.PostForm("frequency"),
		}
		if raw := c.PostForm("dogId"); raw != "" {
			dogID, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid dogId"})
				return
			}
			req.DogID = uint(dogID)
		}
		if form, err := c.MultipartForm(); err == nil {
			req.Images = form.File["images"]
			req.Audio = form.File["audio"]
		}

		id, err := orch.Submit(c.Request.Context(), c.GetUint("userID"), req)
		if err != nil {
			respondError(c, err, "Failed to submit health analysis")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":                 true,
			"message":                 "Health analysis submitted successfully",
			"healthLogId":             id,
			"estimatedProcessingTime": "2-5 minutes",
		})
	}
}

func GetAnalysisStatus(orch *analysis.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		log, err := orch.GetStatus(c.Request.Context(), c.GetUint("userID"), id)
		if err != nil {
			respondError(c, err, "Failed to fetch health analysis")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "healthLog": NewHealthLogView(log)})
	}
}

// AnalysisEvents streams status changes of one record as server-sent events
// until the analysis reaches a terminal status or the client disconnects.
func AnalysisEvents(orch *analysis.Orchestrator, events notify.Subscriber) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		ownerID := c.GetUint("userID")
		ctx := c.Request.Context()

		// subscribe first so a change between the lookup and the stream is not lost
		ch, err := events.Subscribe(ctx)
		if err != nil {
			respondError(c, err, "Failed to subscribe to analysis events")
			return
		}
		log, err := orch.GetStatus(ctx, ownerID, id)
		if err != nil {
			respondError(c, err, "Failed to fetch health analysis")
			return
		}

		c.SSEvent("status", notify.Event{HealthLogID: id, OwnerID: ownerID, Status: log.AIAnalysis.Status, Error: log.AIAnalysis.Error, At: log.UpdatedAt})
		c.Writer.Flush()
		if log.AIAnalysis.Status.Terminal() {
			return
		}

		c.Stream(func(w io.Writer) bool {
			select {
			case ev, ok := <-ch:
				if !ok {
					return false
				}
				if ev.HealthLogID != id || ev.OwnerID != ownerID {
					return true
				}
				c.SSEvent("status", ev)
				return !ev.Status.Terminal()
			case <-ctx.Done():
				return false
			}
		})
	}
}

func ListDogLogs(orch *analysis.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		dogID, ok := paramID(c, "dogId")
		if !ok {
			return
		}
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
		if page < 1 {
			page = 1
		}
		if limit < 1 || limit > 100 {
			limit = 10
		}

		logs, total, err := orch.ListByDog(c.Request.Context(), c.GetUint("userID"), dogID, c.Query("status"), page, limit)
		if err != nil {
			respondError(c, err, "Failed to fetch health logs")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"healthLogs": viewsOf(logs),
			"pagination": gin.H{
				"current": page,
				"pages":   (total + int64(limit) - 1) / int64(limit),
				"total":   total,
			},
		})
	}
}

type UpdateLogStatusRequest struct {
	Status   string           `json:"status"`
	VetNotes *VetNotesRequest `json:"vetNotes"`
}

type VetNotesRequest struct {
	VetName          string `json:"vetName"`
	VetComments      string `json:"vetComments"`
	FollowUpRequired bool   `json:"followUpRequired"`
}

func UpdateLogStatus(orch *analysis.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req UpdateLogStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}

		var notes *models.VetNotes
		if req.VetNotes != nil {
			notes = &models.VetNotes{
				VetName:          req.VetNotes.VetName,
				VetComments:      req.VetNotes.VetComments,
				FollowUpRequired: req.VetNotes.FollowUpRequired,
			}
		}

		if err := orch.UpdateReview(c.Request.Context(), c.GetUint("userID"), id, req.Status, notes); err != nil {
			respondError(c, err, "Failed to update health log status")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Health log status updated successfully"})
	}
}

func GetStats(orch *analysis.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := orch.Stats(c.Request.Context(), c.GetUint("userID"))
		if err != nil {
			respondError(c, err, "Failed to fetch health statistics")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"stats":      summary.Stats,
			"recentLogs": viewsOf(summary.RecentLogs),
		})
	}
}

// AIHealth reports whether the analysis service is reachable
func AIHealth(orch *analysis.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !orch.ServiceAvailable(c.Request.Context()) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "disconnected",
				"error":  "AI service unavailable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "connected"})
	}
}
