// pkg/media/thumbnail_test.go
package media

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThumbnail_CropsToSquare(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 640, 320))
	for x := 0; x < 640; x++ {
		for y := 0; y < 320; y++ {
			src.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var in bytes.Buffer
	require.NoError(t, png.Encode(&in, src))

	out, err := Thumbnail(&in, ThumbnailSize)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, ThumbnailSize, ThumbnailSize), img.Bounds())
}

func TestThumbnail_RejectsNonImage(t *testing.T) {
	_, err := Thumbnail(strings.NewReader("RIFF....WAVE"), ThumbnailSize)
	assert.Error(t, err)
}

func TestCoverRect(t *testing.T) {
	assert.Equal(t, image.Rect(160, 0, 480, 320), coverRect(image.Rect(0, 0, 640, 320)))
	assert.Equal(t, image.Rect(0, 50, 100, 150), coverRect(image.Rect(0, 0, 100, 200)))
}
