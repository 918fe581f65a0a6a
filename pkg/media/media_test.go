// pkg/media/media_test.go
package media

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("12.500000\n")
	require.NoError(t, err)
	assert.Equal(t, 12500*time.Millisecond, d)

	_, err = ParseDuration("N/A")
	assert.Error(t, err)

	_, err = ParseDuration("abc")
	assert.Error(t, err)
}

func TestFFProbe_MissingBinary(t *testing.T) {
	p := NewFFProbe("definitely-not-a-real-ffprobe-binary")
	_, err := p.ProbeDuration(context.Background(), "/tmp/none.wav")
	assert.Error(t, err)
}

func TestDetectContentType(t *testing.T) {
	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

	ctype, r, err := DetectContentType(bytes.NewReader(png))
	require.NoError(t, err)
	assert.Equal(t, "image/png", ctype)

	replayed, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, png, replayed)

	ctype, _, err = DetectContentType(strings.NewReader("plain words"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ctype, "text/plain"))
}
