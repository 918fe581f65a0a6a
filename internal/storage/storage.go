// internal/storage/storage.go
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"os"
	pathpkg "path"
	"path/filepath"
	"strings"
	"time"

	"pawcare-back/internal/models"
	"pawcare-back/pkg/media"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Store persists blobs under an object name
type Store interface {
	Put(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) (string, error)
	Open(ctx context.Context, objectName string) (io.ReadCloser, error)
	Delete(ctx context.Context, objectName string) error
}

// Presigner is implemented by stores that can hand out direct download links
type Presigner interface {
	PresignedURL(ctx context.Context, objectName string) (string, error)
}

// Upload folders
const (
	ModalityImage   = "images"
	ModalityAudio   = "audio"
	ModalityProfile = "profiles"
)

// Gateway stores uploaded files and describes them for the health log
type Gateway struct {
	store  Store
	prober media.Prober
}

func NewGateway(store Store, prober media.Prober) *Gateway {
	return &Gateway{store: store, prober: prober}
}

// Save persists one uploaded file under the modality folder. Audio files get
// a best-effort duration; a failed probe leaves Duration nil.
func (g *Gateway) Save(ctx context.Context, modality string, fh *multipart.FileHeader) (models.FileDescriptor, error) {
	src, err := fh.Open()
	if err != nil {
		return models.FileDescriptor{}, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	tmp, err := os.CreateTemp("", "upload-*"+ext)
	if err != nil {
		return models.FileDescriptor{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tmp.Name()
	defer os.Remove(tempPath) // Clean up temp file

	size, err := io.Copy(tmp, src)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return models.FileDescriptor{}, fmt.Errorf("failed to save upload: %w", err)
	}

	desc := models.FileDescriptor{
		StoredName:   fmt.Sprintf("%s-%s%s", modality, uuid.New().String(), ext),
		OriginalName: fh.Filename,
		Size:         size,
		UploadedAt:   time.Now(),
	}

	if modality == ModalityAudio && g.prober != nil {
		if d, err := g.prober.ProbeDuration(ctx, tempPath); err != nil {
			log.Debug().Err(err).Str("file", fh.Filename).Msg("audio duration probe failed")
		} else {
			secs := int(math.Round(d.Seconds()))
			desc.Duration = &secs
		}
	}

	file, err := os.Open(tempPath)
	if err != nil {
		return models.FileDescriptor{}, fmt.Errorf("failed to reopen upload: %w", err)
	}
	defer file.Close()

	contentType, body, err := media.DetectContentType(file)
	if err != nil {
		return models.FileDescriptor{}, err
	}
	desc.ContentType = contentType

	objectName := modality + "/" + desc.StoredName
	path, err := g.store.Put(ctx, objectName, body, size, contentType)
	if err != nil {
		return models.FileDescriptor{}, err
	}
	desc.Path = path

	return desc, nil
}

// Open returns the stored file at path
func (g *Gateway) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	return g.store.Open(ctx, path)
}

// PresignedURL returns a direct download link when the store supports one.
// ok is false for stores that can only stream.
func (g *Gateway) PresignedURL(ctx context.Context, path string) (url string, ok bool, err error) {
	p, ok := g.store.(Presigner)
	if !ok {
		return "", false, nil
	}
	url, err = p.PresignedURL(ctx, path)
	if err != nil {
		return "", true, err
	}
	return url, true, nil
}

// Thumbnail stores a square JPEG preview of the image at path next to it and
// returns the preview's path.
func (g *Gateway) Thumbnail(ctx context.Context, path string) (string, error) {
	data, err := g.ReadAll(ctx, path)
	if err != nil {
		return "", err
	}
	thumb, err := media.Thumbnail(bytes.NewReader(data), media.ThumbnailSize)
	if err != nil {
		return "", err
	}

	dir, name := pathpkg.Split(path)
	name = "thumb_" + strings.TrimSuffix(name, pathpkg.Ext(name)) + ".jpg"
	return g.store.Put(ctx, dir+name, bytes.NewReader(thumb), int64(len(thumb)), "image/jpeg")
}

// ReadAll loads the stored file at path into memory
func (g *Gateway) ReadAll(ctx context.Context, path string) ([]byte, error) {
	rc, err := g.store.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// Delete removes the stored file at path
func (g *Gateway) Delete(ctx context.Context, path string) error {
	return g.store.Delete(ctx, path)
}
