// internal/storage/storage_test.go
package storage

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pawcare-back/pkg/media"
)

type stubProber struct {
	d   time.Duration
	err error
}

func (p stubProber) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, err
	}
	return p.d, p.err
}

func fileHeader(t *testing.T, field, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File[field][0]
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestGateway_SaveImage(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)
	gw := NewGateway(store, stubProber{d: time.Second})

	desc, err := gw.Save(context.Background(), ModalityImage, fileHeader(t, "images", "Paw.PNG", pngHeader))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(desc.StoredName, "images-"))
	assert.True(t, strings.HasSuffix(desc.StoredName, ".png"))
	assert.Equal(t, "Paw.PNG", desc.OriginalName)
	assert.Equal(t, int64(len(pngHeader)), desc.Size)
	assert.Equal(t, "image/png", desc.ContentType)
	assert.Nil(t, desc.Duration)
	assert.False(t, desc.UploadedAt.IsZero())

	data, err := gw.ReadAll(context.Background(), desc.Path)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)
	assert.FileExists(t, filepath.Join(dir, desc.Path))

	require.NoError(t, gw.Delete(context.Background(), desc.Path))
	assert.NoFileExists(t, filepath.Join(dir, desc.Path))
}

func TestGateway_SaveAudioDuration(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	gw := NewGateway(store, stubProber{d: 4600 * time.Millisecond})
	desc, err := gw.Save(context.Background(), ModalityAudio, fileHeader(t, "audio", "bark.wav", []byte("RIFF....WAVE")))
	require.NoError(t, err)
	require.NotNil(t, desc.Duration)
	assert.Equal(t, 5, *desc.Duration)

	// a failed probe keeps the upload
	gw = NewGateway(store, stubProber{err: errors.New("no ffprobe")})
	desc, err = gw.Save(context.Background(), ModalityAudio, fileHeader(t, "audio", "bark.wav", []byte("RIFF....WAVE")))
	require.NoError(t, err)
	assert.Nil(t, desc.Duration)
	assert.NotEmpty(t, desc.Path)
}

func TestLocalStore_RejectsEscape(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../outside.txt", strings.NewReader("x"), 1, "text/plain")
	require.NoError(t, err, "leading .. is clamped to the base directory")

	_, err = store.Open(context.Background(), "images/missing.png")
	assert.Error(t, err)
	assert.NoError(t, store.Delete(context.Background(), "images/missing.png"))
}

type presigningStore struct {
	*LocalStore
}

func (presigningStore) PresignedURL(ctx context.Context, objectName string) (string, error) {
	return "https://files.example.com/" + objectName + "?sig=abc", nil
}

func TestGateway_PresignedURL(t *testing.T) {
	local, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, ok, err := NewGateway(local, nil).PresignedURL(context.Background(), "images/a.png")
	require.NoError(t, err)
	assert.False(t, ok)

	url, ok, err := NewGateway(presigningStore{local}, nil).PresignedURL(context.Background(), "images/a.png")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://files.example.com/images/a.png?sig=abc", url)
}

func TestGateway_Thumbnail(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)
	gw := NewGateway(store, nil)

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 40, 20))))
	desc, err := gw.Save(context.Background(), ModalityProfile, fileHeader(t, "profileImage", "rex.png", img.Bytes()))
	require.NoError(t, err)

	thumbPath, err := gw.Thumbnail(context.Background(), desc.Path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(thumbPath, "profiles/thumb_profiles-"))
	assert.True(t, strings.HasSuffix(thumbPath, ".jpg"))

	data, err := gw.ReadAll(context.Background(), thumbPath)
	require.NoError(t, err)
	thumb, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, media.ThumbnailSize, thumb.Bounds().Dx())

	audio, err := gw.Save(context.Background(), ModalityAudio, fileHeader(t, "audio", "bark.wav", []byte("RIFF....WAVE")))
	require.NoError(t, err)
	_, err = gw.Thumbnail(context.Background(), audio.Path)
	assert.Error(t, err)
}
