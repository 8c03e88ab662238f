package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// FFmpeg converts voice notes (OGG/Opus from Telegram) to MP3, which every
// speech-to-text service accepts.
type FFmpeg struct {
	Binary string
}

func NewFFmpeg(binary string) *FFmpeg {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpeg{Binary: binary}
}

// Normalize writes an MP3 next to src and returns its path and MIME type.
func (f *FFmpeg) Normalize(ctx context.Context, src string) (string, string, error) {
	dst := strings.TrimSuffix(src, filepath.Ext(src)) + ".mp3"
	if dst == src {
		dst = src + ".mp3"
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.Binary, "-y", "-loglevel", "error", "-i", src, dst)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", "", fmt.Errorf("ffmpeg %s: %w: %s", filepath.Base(src), err, strings.TrimSpace(stderr.String()))
	}
	return dst, "audio/mpeg", nil
}
