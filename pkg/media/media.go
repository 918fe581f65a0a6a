// pkg/media/media.go
package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// Prober reports the playback length of an audio file
type Prober interface {
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
}

// FFProbe runs the ffprobe binary to read a file's container duration
type FFProbe struct {
	Binary  string
	Timeout time.Duration
}

// NewFFProbe returns a prober using the given binary, "ffprobe" when empty
func NewFFProbe(binary string) *FFProbe {
	if binary == "" {
		binary = "ffprobe"
	}
	return &FFProbe{Binary: binary, Timeout: 10 * time.Second}
}

// ProbeDuration executes ffprobe and parses format.duration
func (p *FFProbe) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, p.Binary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe failed: %s - %s", err.Error(), strings.TrimSpace(stderr.String()))
	}

	return ParseDuration(stdout.String())
}

// ParseDuration converts ffprobe's seconds output ("12.345000") to a duration
func ParseDuration(out string) (time.Duration, error) {
	out = strings.TrimSpace(out)
	if out == "" || out == "N/A" {
		return 0, fmt.Errorf("no duration reported")
	}
	secs, err := strconv.ParseFloat(out, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", out, err)
	}
	if secs < 0 {
		return 0, fmt.Errorf("invalid duration %q", out)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// DetectContentType sniffs the MIME type from the reader's leading bytes.
// The returned reader replays those bytes followed by the rest of r.
func DetectContentType(r io.Reader) (string, io.Reader, error) {
	header := make([]byte, 3072)
	n, err := io.ReadFull(r, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", nil, fmt.Errorf("failed to read file header: %w", err)
	}
	header = header[:n]

	mtype := mimetype.Detect(header)
	return mtype.String(), io.MultiReader(bytes.NewReader(header), r), nil
}
