// internal/handlers/files.go
package handlers

import (
	"mime"
	"net/http"
	"strconv"

	"pawcare-back/internal/analysis"
	"pawcare-back/internal/models"
	"pawcare-back/internal/repository"
	"pawcare-back/internal/storage"
	"pawcare-back/pkg/media"

	"github.com/gin-gonic/gin"
)

// DownloadLogFile serves one uploaded file of a health log owned by the caller.
// kind is "images" or "audio" and index is the file's position in that list.
func DownloadLogFile(orch *analysis.Orchestrator, files *storage.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		log, err := orch.GetStatus(c.Request.Context(), c.GetUint("userID"), id)
		if err != nil {
			respondError(c, err, "Failed to fetch health log")
			return
		}

		var list []models.FileDescriptor
		switch c.Param("kind") {
		case storage.ModalityImage:
			list = log.Images
		case storage.ModalityAudio:
			list = log.Audio
		default:
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid file kind"})
			return
		}

		index, err := strconv.Atoi(c.Param("index"))
		if err != nil || index < 0 || index >= len(list) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "File not found"})
			return
		}

		file := list[index]
		serveStored(c, files, file.Path, file.ContentType, file.Size, file.OriginalName)
	}
}

// GetProfileImage serves the dog's profile image, or its thumbnail with ?size=thumb
func GetProfileImage(dogs *repository.DogRepository, files *storage.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		dog, err := dogs.FindOwned(c.Request.Context(), c.GetUint("userID"), id)
		if err != nil {
			respondError(c, err, "Failed to fetch dog details")
			return
		}

		path := dog.ProfileImage
		if c.Query("size") == "thumb" && dog.ProfileThumbnail != "" {
			path = dog.ProfileThumbnail
		}
		if path == "" {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Profile image not found"})
			return
		}

		serveStored(c, files, path, "", -1, "")
	}
}

// serveStored redirects to a presigned link when the store hands them out and
// streams the object otherwise. An empty contentType is sniffed from the data.
func serveStored(c *gin.Context, files *storage.Gateway, path, contentType string, size int64, filename string) {
	ctx := c.Request.Context()

	url, ok, err := files.PresignedURL(ctx, path)
	if err != nil {
		respondError(c, err, "Failed to get file")
		return
	}
	if ok {
		c.Redirect(http.StatusTemporaryRedirect, url)
		return
	}

	rc, err := files.Open(ctx, path)
	if err != nil {
		respondError(c, err, "Failed to get file")
		return
	}
	defer rc.Close()

	detected, body, err := media.DetectContentType(rc)
	if err != nil {
		respondError(c, err, "Failed to get file")
		return
	}
	if contentType == "" {
		contentType = detected
	}

	headers := map[string]string{}
	if filename != "" {
		headers["Content-Disposition"] = mime.FormatMediaType("inline", map[string]string{"filename": filename})
	}
	c.DataFromReader(http.StatusOK, size, contentType, body, headers)
}
