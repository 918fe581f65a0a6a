// internal/handlers/ai.go
package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"pawcare-back/internal/analysis"
	"pawcare-back/pkg/aiclient"

	"github.com/gin-gonic/gin"
)

type AITextRequest struct {
	SymptomText string `json:"symptom_text" binding:"required"`
	Breed       string `json:"breed"`
	Age         *int   `json:"age" binding:"omitempty,min=0"`
	Sex         string `json:"sex"`
}

// respondResult writes a single modality result. Service failures are
// reported as 502 with the error descriptor.
func respondResult[T any](c *gin.Context, res aiclient.Result[T]) {
	if res.Err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": res.Err.Error, "details": res.Err.Details})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": res.Data})
}

// readSample loads an optional uploaded file into memory. It returns nil
// when the field is absent or the request is not multipart.
func readSample(c *gin.Context, field string) (*analysis.Sample, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return loadSample(fh)
}

func loadSample(fh *multipart.FileHeader) (*analysis.Sample, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return &analysis.Sample{Name: fh.Filename, Data: data}, nil
}

func AIAnalyzeText(orch *analysis.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AITextRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "symptom_text is required"})
			return
		}

		textReq := aiclient.TextRequest{SymptomText: req.SymptomText, Breed: req.Breed, Sex: req.Sex}
		if req.Age != nil {
			textReq.Age = strconv.Itoa(*req.Age)
		}
		respondResult(c, orch.AnalyzeText(c.Request.Context(), textReq))
	}
}

func AIAnalyzeImage(orch *analysis.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		sample, err := readSample(c, "image")
		if err != nil || sample == nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No image file provided"})
			return
		}
		respondResult(c, orch.AnalyzeImage(c.Request.Context(), *sample, c.PostForm("symptoms")))
	}
}

func AIAnalyzeAudio(orch *analysis.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		sample, err := readSample(c, "audio")
		if err != nil || sample == nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No audio file provided"})
			return
		}
		respondResult(c, orch.AnalyzeAudio(c.Request.Context(), *sample))
	}
}

// AIAnalyzeComprehensive merges text, image and audio analyses of one
// multipart request without creating a health log.
func AIAnalyzeComprehensive(orch *analysis.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := analysis.DirectRequest{Symptoms: c.PostForm("symptoms")}
		if text := c.PostForm("symptom_text"); text != "" {
			req.Text = &aiclient.TextRequest{
				SymptomText: text,
				Breed:       c.PostForm("breed"),
				Age:         c.PostForm("age"),
				Sex:         c.PostForm("sex"),
			}
		}

		var err error
		if req.Image, err = readSample(c, "image"); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid image upload"})
			return
		}
		if req.Audio, err = readSample(c, "audio"); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid audio upload"})
			return
		}

		results, err := orch.AnalyzeNow(c.Request.Context(), req)
		if err != nil {
			respondError(c, err, "Comprehensive analysis failed")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "results": results})
	}
}
